package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/flexapi/explorer/internal/model"
)

const (
	// DefaultPort is the discovery broadcast port
	DefaultPort = 4992
	// MaxPackets bounds the raw packet dump
	MaxPackets = 1000

	readBufSize = 64 * 1024
)

// ErrRunning is returned by Start when the listener is already running
var ErrRunning = errors.New("discovery already running")

// Listener receives discovery datagrams on a UDP port
type Listener struct {
	mu       sync.Mutex
	table    *model.RadioTable
	packets  []model.Packet
	conn     net.PacketConn
	cancel   context.CancelFunc
	onUpdate func([]model.Radio)
	now      func() time.Time
	wg       sync.WaitGroup
}

// NewListener creates a stopped listener
func NewListener() *Listener {
	return &Listener{
		table: model.NewRadioTable(),
		now:   time.Now,
	}
}

// SetUpdateCallback sets fn to receive the sorted radio list after every
// announcement. It runs on the listener goroutine.
func (l *Listener) SetUpdateCallback(fn func([]model.Radio)) {
	l.mu.Lock()
	l.onUpdate = fn
	l.mu.Unlock()
}

// Start binds the port and processes datagrams until Stop or ctx is done.
// Port 0 binds an ephemeral port; see Addr.
func (l *Listener) Start(ctx context.Context, port int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		return ErrRunning
	}

	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp4", ":"+strconv.Itoa(port))
	if err != nil {
		return fmt.Errorf("listen for discovery on port %d: %w", port, err)
	}
	runCtx, cancel := context.WithCancel(ctx)
	l.conn = conn
	l.cancel = cancel

	l.wg.Add(2)
	go l.readLoop(conn, cancel)
	go func() {
		defer l.wg.Done()
		<-runCtx.Done()
		l.closeConn(conn)
	}()

	log.Info().Str("addr", conn.LocalAddr().String()).Msg("Discovery started")
	return nil
}

// Addr returns the bound address, or nil when stopped
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// Stop closes the socket and waits for the listener to exit. Collected
// radios and packets are kept.
func (l *Listener) Stop() {
	l.mu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	l.wg.Wait()
}

func (l *Listener) closeConn(conn net.PacketConn) {
	l.mu.Lock()
	if l.conn == conn {
		l.conn = nil
		l.cancel = nil
	}
	l.mu.Unlock()
	conn.Close()
}

// Wait blocks until the listener goroutines have exited
func (l *Listener) Wait() {
	l.wg.Wait()
}

// Radios returns the known radios sorted by nickname
func (l *Listener) Radios() []model.Radio {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.table.Sorted()
}

// Packets returns the raw datagrams received so far, oldest first
func (l *Listener) Packets() []model.Packet {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.packets)
}

// Prune drops radios not heard from within maxAge
func (l *Listener) Prune(maxAge time.Duration) int {
	l.mu.Lock()
	removed := l.table.Remove(l.now().Add(-maxAge))
	radios := l.table.Sorted()
	onUpdate := l.onUpdate
	l.mu.Unlock()

	if removed > 0 && onUpdate != nil {
		onUpdate(radios)
	}
	return removed
}

// Handle processes one datagram as if it had been received
func (l *Listener) Handle(data []byte, from string) {
	now := l.now()

	l.mu.Lock()
	l.packets = append(l.packets, model.Packet{Received: now, From: from, Data: slices.Clone(data)})
	if len(l.packets) > MaxPackets {
		l.packets = slices.Delete(l.packets, 0, len(l.packets)-MaxPackets)
	}

	r, err := ParseAnnouncement(data, now)
	if err != nil {
		l.mu.Unlock()
		log.Debug().Err(err).Str("from", from).Int("bytes", len(data)).Msg("Ignoring discovery packet")
		return
	}
	if l.table.Upsert(r) {
		log.Info().Str("serial", r.Serial).Str("nickname", r.Nickname).Str("ip", r.IP).Msg("Radio discovered")
	}
	radios := l.table.Sorted()
	onUpdate := l.onUpdate
	l.mu.Unlock()

	if onUpdate != nil {
		onUpdate(radios)
	}
}

func (l *Listener) readLoop(conn net.PacketConn, cancel context.CancelFunc) {
	defer l.wg.Done()
	defer cancel()

	buf := make([]byte, readBufSize)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Warn().Err(err).Msg("Discovery read failed")
			}
			return
		}
		l.Handle(buf[:n], from.String())
	}
}
