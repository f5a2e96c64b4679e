package radio

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/flexapi/explorer/internal/model"
)

const (
	dialTimeout       = 5 * time.Second
	scannerBufSize    = 256 * 1024
	keepAliveCommand  = "keepalive enable"
	pingCommand       = "ping"
	clientGuiCommand  = "client gui"
	clientProgCommand = "client program"
	clientStaCommand  = "client station"
	wanValidate       = "wan validate handle="
)

// TCPClient is an Engine over a TCP connection, optionally TLS wrapped
type TCPClient struct {
	mu           sync.Mutex
	conn         net.Conn
	writer       *bufio.Writer
	seq          int
	handler      LineHandler
	onDisconnect func(error)
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// NewTCPClient creates a disconnected client
func NewTCPClient() *TCPClient {
	return &TCPClient{}
}

// SetLineHandler implements Engine
func (c *TCPClient) SetLineHandler(h LineHandler) {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
}

// SetDisconnectHandler registers fn to run when the radio closes the
// connection. It is not called for Disconnect.
func (c *TCPClient) SetDisconnectHandler(fn func(error)) {
	c.mu.Lock()
	c.onDisconnect = fn
	c.mu.Unlock()
}

// Connected reports whether a connection is open
func (c *TCPClient) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Connect implements Engine. An existing connection is closed first.
func (c *TCPClient) Connect(ctx context.Context, sel model.Selection, opts Options) error {
	c.Disconnect()

	port := sel.Port
	if port == 0 {
		port = DefaultPort
	}
	addr := net.JoinHostPort(sel.Host, strconv.Itoa(port))
	if sel.Host == "" {
		return &ConnectError{Addr: addr, Op: "dial", Err: errors.New("no radio address")}
	}

	conn, err := dial(ctx, addr, opts.TLS)
	if err != nil {
		log.Error().Err(err).Str("addr", addr).Msg("Failed to connect to radio")
		return &ConnectError{Addr: addr, Op: "dial", Err: err}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.conn = conn
	c.writer = bufio.NewWriter(conn)
	c.seq = 0
	c.cancel = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go c.readLoop(conn)

	log.Info().Str("addr", addr).Str("serial", sel.Serial).Bool("gui", opts.IsGui).Bool("tls", opts.TLS != nil).Msg("Connected to radio")

	if opts.WanHandle != "" {
		if err := c.SendLine(wanValidate + opts.WanHandle); err != nil {
			c.Disconnect()
			return &ConnectError{Addr: addr, Op: "validate", Err: err}
		}
	}

	if err := c.register(opts); err != nil {
		c.Disconnect()
		return &ConnectError{Addr: addr, Op: "register", Err: err}
	}

	if opts.KeepAlive {
		if err := c.SendLine(keepAliveCommand); err != nil {
			c.Disconnect()
			return &ConnectError{Addr: addr, Op: "keepalive", Err: err}
		}
		interval := opts.PingInterval
		if interval <= 0 {
			interval = DefaultPingInterval
		}
		c.wg.Add(1)
		go c.pingLoop(runCtx, interval)
	}
	return nil
}

func dial(ctx context.Context, addr string, cfg *tls.Config) (net.Conn, error) {
	nd := &net.Dialer{Timeout: dialTimeout}
	if cfg == nil {
		return nd.DialContext(ctx, "tcp", addr)
	}
	td := tls.Dialer{NetDialer: nd, Config: cfg}
	return td.DialContext(ctx, "tcp", addr)
}

func (c *TCPClient) register(opts Options) error {
	if opts.IsGui {
		id := opts.ClientID
		if id == "" {
			id = uuid.NewString()
		}
		if err := c.SendLine(clientGuiCommand + " " + id); err != nil {
			return err
		}
	}
	if opts.Program != "" {
		if err := c.SendLine(clientProgCommand + " " + opts.Program); err != nil {
			return err
		}
	}
	if opts.IsGui && opts.Station != "" {
		if err := c.SendLine(clientStaCommand + " " + opts.Station); err != nil {
			return err
		}
	}
	return nil
}

// Disconnect implements Engine. It is safe to call when not connected.
func (c *TCPClient) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	cancel := c.cancel
	c.conn = nil
	c.writer = nil
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
		log.Info().Str("addr", conn.RemoteAddr().String()).Msg("Disconnected from radio")
	}
	c.wg.Wait()
}

// SendLine implements Engine. The line is numbered "C<seq>|" and reported to
// the handler as output.
func (c *TCPClient) SendLine(text string) error {
	c.mu.Lock()
	if c.writer == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	c.seq++
	line := fmt.Sprintf("C%d|%s", c.seq, text)
	_, err := c.writer.WriteString(line + "\n")
	if err == nil {
		err = c.writer.Flush()
	}
	handler := c.handler
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("send %q: %w", line, err)
	}
	if handler != nil {
		handler(line, false)
	}
	return nil
}

func (c *TCPClient) readLoop(conn net.Conn) {
	defer c.wg.Done()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, scannerBufSize), scannerBufSize)
	for scanner.Scan() {
		c.mu.Lock()
		handler := c.handler
		c.mu.Unlock()
		if handler != nil {
			handler(scanner.Text(), true)
		}
	}
	err := scanner.Err()

	c.mu.Lock()
	closedByUs := c.conn != conn
	onDisconnect := c.onDisconnect
	if !closedByUs {
		c.conn = nil
		c.writer = nil
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
	}
	c.mu.Unlock()

	if closedByUs {
		return
	}
	conn.Close()
	log.Warn().Err(err).Msg("Radio closed the connection")
	if onDisconnect != nil {
		go onDisconnect(err)
	}
}

func (c *TCPClient) pingLoop(ctx context.Context, interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.SendLine(pingCommand); err != nil {
				log.Debug().Err(err).Msg("Keep-alive ping failed")
				return
			}
		}
	}
}

var _ Engine = (*TCPClient)(nil)
