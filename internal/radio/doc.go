// Package radio talks to a radio's line-oriented TCP API. It sends numbered
// commands, reports every line in both directions to a single handler and
// optionally keeps the connection alive with periodic pings.
package radio
