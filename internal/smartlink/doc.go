// Package smartlink logs in to the remote access service, keeps the id token
// fresh and registers with the smartlink server to list remote radios.
package smartlink
