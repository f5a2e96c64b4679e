package radio

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/flexapi/explorer/internal/model"
)

// DefaultPort is the radio API port
const DefaultPort = 4992

// DefaultPingInterval is how often keep-alive pings are sent
const DefaultPingInterval = time.Second

// ErrNotConnected is returned when sending without a connection
var ErrNotConnected = errors.New("not connected")

// LineHandler receives every line. isInput is true for lines from the radio.
type LineHandler func(text string, isInput bool)

// Engine is the connection collaborator used by the views
type Engine interface {
	Connect(ctx context.Context, sel model.Selection, opts Options) error
	Disconnect()
	SendLine(text string) error
	SetLineHandler(h LineHandler)
}

// Options controls the client registration after connect
type Options struct {
	IsGui        bool
	ClientID     string
	Program      string
	Station      string
	KeepAlive    bool
	PingInterval time.Duration

	// TLS dials the radio over TLS. Smartlink radios only accept TLS.
	TLS *tls.Config
	// WanHandle is sent as "wan validate" before registering. It comes
	// from the smartlink server's connect_ready reply.
	WanHandle string
}

// RemoteTLSConfig is the TLS config for smartlink radios. Radios present
// self-signed certificates.
func RemoteTLSConfig() *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: true,
		MinVersion:         tls.VersionTLS12,
	}
}

// ConnectError describes a failed connection attempt
type ConnectError struct {
	Addr string
	Op   string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}
