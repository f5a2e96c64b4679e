package smartlink

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/flexapi/explorer/internal/discovery"
	"github.com/flexapi/explorer/internal/model"
)

const (
	radioListPrefix    = "radio list "
	connectReadyPrefix = "radio connect_ready "
	dialTimeout        = 10 * time.Second
	writeTimeout       = 5 * time.Second
)

// ErrNotRegistered is returned when a radio connect is requested before
// Connect succeeded
var ErrNotRegistered = errors.New("not registered with smartlink")

// Client talks to the auth service and the smartlink server
type Client struct {
	authURL    string
	clientID   string
	serverAddr string
	appName    string
	http       *http.Client
	tlsConfig  *tls.Config
	now        func() time.Time

	mu       sync.Mutex
	conn     net.Conn
	radios   []model.Radio
	onRadios func([]model.Radio)
	pending  map[string]chan string // serial -> wan handle
	wg       sync.WaitGroup
}

// Option configures a Client
type Option func(*Client)

// WithAuthURL overrides the auth service base URL
func WithAuthURL(u string) Option {
	return func(c *Client) { c.authURL = strings.TrimRight(u, "/") }
}

// WithClientID overrides the OAuth client id
func WithClientID(id string) Option {
	return func(c *Client) { c.clientID = id }
}

// WithServer overrides the smartlink server address and TLS config
func WithServer(addr string, cfg *tls.Config) Option {
	return func(c *Client) {
		c.serverAddr = addr
		c.tlsConfig = cfg
	}
}

// WithHTTPClient replaces the HTTP client used for auth
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithAppName sets the name sent when registering
func WithAppName(name string) Option {
	return func(c *Client) { c.appName = name }
}

// NewClient creates a client with the public service endpoints. A client id
// must be supplied with WithClientID before logging in.
func NewClient(opts ...Option) *Client {
	c := &Client{
		authURL:    DefaultAuthURL,
		serverAddr: DefaultServerAddr,
		appName:    "FlexExplorer",
		http:       &http.Client{Timeout: httpTimeout},
		now:        time.Now,
		pending:    make(map[string]chan string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetRadioCallback sets fn to receive each radio list from the server
func (c *Client) SetRadioCallback(fn func([]model.Radio)) {
	c.mu.Lock()
	c.onRadios = fn
	c.mu.Unlock()
}

// Radios returns the last radio list received
func (c *Client) Radios() []model.Radio {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Radio(nil), c.radios...)
}

// Connect registers with the smartlink server using the id token. It reports
// false on any failure; details are logged.
func (c *Client) Connect(ctx context.Context, tokens model.Tokens) bool {
	c.Close()

	if !c.IsValid(tokens.IDToken) {
		log.Warn().Msg("Smartlink connect skipped: id token missing or expired")
		return false
	}

	dialer := tls.Dialer{NetDialer: &net.Dialer{Timeout: dialTimeout}, Config: c.tlsConfig}
	conn, err := dialer.DialContext(ctx, "tcp", c.serverAddr)
	if err != nil {
		log.Error().Err(err).Str("addr", c.serverAddr).Msg("Failed to connect to smartlink")
		return false
	}

	register := fmt.Sprintf("application register name=%s platform=%s token=%s\n",
		c.appName, runtime.GOOS, tokens.IDToken)
	if _, err := conn.Write([]byte(register)); err != nil {
		conn.Close()
		log.Error().Err(err).Msg("Failed to register with smartlink")
		return false
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.wg.Add(1)
	go c.readLoop(conn)

	log.Info().Str("addr", c.serverAddr).Msg("Registered with smartlink")
	return true
}

// Close drops the smartlink server connection
func (c *Client) Close() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
	c.wg.Wait()
}

// RequestConnect asks the server to broker a connection to the radio with
// serial and returns the handle to validate with the radio.
func (c *Client) RequestConnect(ctx context.Context, serial string) (string, error) {
	ready := make(chan string, 1)

	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return "", ErrNotRegistered
	}
	c.pending[serial] = ready
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.pending[serial] == ready {
			delete(c.pending, serial)
		}
		c.mu.Unlock()
	}()

	line := fmt.Sprintf("application connect serial=%s hole_punch_port=0\n", serial)
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := conn.Write([]byte(line)); err != nil {
		return "", fmt.Errorf("request connect to %s: %w", serial, err)
	}
	log.Debug().Str("serial", serial).Msg("Smartlink connect requested")

	select {
	case handle := <-ready:
		return handle, nil
	case <-ctx.Done():
		return "", fmt.Errorf("wait for %s: %w", serial, ctx.Err())
	}
}

func (c *Client) connectReady(fields map[string]string) {
	serial, handle := fields["serial"], fields["handle"]
	c.mu.Lock()
	ready := c.pending[serial]
	c.mu.Unlock()
	if ready == nil || handle == "" {
		log.Debug().Str("serial", serial).Msg("Unexpected smartlink connect_ready")
		return
	}
	select {
	case ready <- handle:
	default:
	}
}

func (c *Client) readLoop(conn net.Conn) {
	defer c.wg.Done()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, connectReadyPrefix) {
			c.connectReady(discovery.ParsePairs(strings.TrimPrefix(line, connectReadyPrefix)))
			continue
		}
		if !strings.HasPrefix(line, radioListPrefix) {
			log.Debug().Str("line", line).Msg("Smartlink message")
			continue
		}
		radios := ParseRadioList(strings.TrimPrefix(line, radioListPrefix), c.now())

		c.mu.Lock()
		c.radios = radios
		onRadios := c.onRadios
		c.mu.Unlock()
		if onRadios != nil {
			onRadios(radios)
		}
	}

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
}

// ParseRadioList decodes a "|" separated list of key=value radio records
func ParseRadioList(list string, seen time.Time) []model.Radio {
	var radios []model.Radio
	for _, record := range strings.Split(list, "|") {
		fields := discovery.ParsePairs(record)
		if fields["serial"] == "" {
			continue
		}
		r := model.Radio{
			Serial:    fields["serial"],
			Model:     fields["model"],
			Nickname:  fields["radio_name"],
			Callsign:  fields["callsign"],
			IP:        fields["public_ip"],
			Version:   fields["version"],
			Status:    fields["status"],
			InUseHost: fields["inuse_host"],
			Source:    model.SourceSmartlink,
			LastSeen:  seen,
		}
		if port, err := strconv.Atoi(fields["public_tls_port"]); err == nil {
			r.Port = port
		}
		if stations := fields["gui_client_stations"]; stations != "" {
			r.GuiClients = strings.Split(stations, ",")
		}
		radios = append(radios, r)
	}
	return radios
}
