// Package discovery listens for radio announcements broadcast on the local
// network and keeps the latest announcement per radio.
package discovery
