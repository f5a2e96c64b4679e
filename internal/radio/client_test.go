package radio

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexapi/explorer/internal/model"
)

type lineRecorder struct {
	mu     sync.Mutex
	input  []string
	output []string
}

func (r *lineRecorder) handle(text string, isInput bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if isInput {
		r.input = append(r.input, text)
	} else {
		r.output = append(r.output, text)
	}
}

func (r *lineRecorder) inputs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.input...)
}

func (r *lineRecorder) outputs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.output...)
}

// fakeRadio accepts one connection and collects the lines it receives
type fakeRadio struct {
	ln    net.Listener
	conn  chan net.Conn
	lines chan string
}

func newFakeRadio(t *testing.T) *fakeRadio {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return serveFakeRadio(t, ln)
}

// newTLSFakeRadio serves the httptest self-signed certificate
func newTLSFakeRadio(t *testing.T) *fakeRadio {
	t.Helper()
	cert := httptest.NewTLSServer(http.NotFoundHandler())
	t.Cleanup(cert.Close)

	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{Certificates: cert.TLS.Certificates})
	require.NoError(t, err)
	return serveFakeRadio(t, ln)
}

func serveFakeRadio(t *testing.T, ln net.Listener) *fakeRadio {
	f := &fakeRadio{ln: ln, conn: make(chan net.Conn, 1), lines: make(chan string, 256)}
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		f.conn <- conn
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			f.lines <- scanner.Text()
		}
		close(f.lines)
	}()
	t.Cleanup(func() { ln.Close() })
	return f
}

func (f *fakeRadio) selection() model.Selection {
	addr := f.ln.Addr().(*net.TCPAddr)
	return model.Selection{Serial: "1234-5678", Host: addr.IP.String(), Port: addr.Port, Source: model.SourceLocal}
}

func (f *fakeRadio) next(t *testing.T) string {
	t.Helper()
	select {
	case line := <-f.lines:
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for line")
		return ""
	}
}

func TestTCPClient_GuiRegistration(t *testing.T) {
	radio := newFakeRadio(t)
	client := NewTCPClient()
	rec := &lineRecorder{}
	client.SetLineHandler(rec.handle)

	opts := Options{IsGui: true, ClientID: "abc-123", Program: "Explorer", Station: "Laptop"}
	require.NoError(t, client.Connect(context.Background(), radio.selection(), opts))
	defer client.Disconnect()

	assert.Equal(t, "C1|client gui abc-123", radio.next(t))
	assert.Equal(t, "C2|client program Explorer", radio.next(t))
	assert.Equal(t, "C3|client station Laptop", radio.next(t))

	assert.Equal(t, []string{
		"C1|client gui abc-123",
		"C2|client program Explorer",
		"C3|client station Laptop",
	}, rec.outputs())
}

func TestTCPClient_NonGuiSkipsGuiAndStation(t *testing.T) {
	radio := newFakeRadio(t)
	client := NewTCPClient()

	opts := Options{Program: "Explorer", Station: "Laptop"}
	require.NoError(t, client.Connect(context.Background(), radio.selection(), opts))
	defer client.Disconnect()

	assert.Equal(t, "C1|client program Explorer", radio.next(t))

	require.NoError(t, client.SendLine("info"))
	assert.Equal(t, "C2|info", radio.next(t))
}

func TestTCPClient_ReportsReceivedLines(t *testing.T) {
	radio := newFakeRadio(t)
	client := NewTCPClient()
	rec := &lineRecorder{}
	client.SetLineHandler(rec.handle)

	require.NoError(t, client.Connect(context.Background(), radio.selection(), Options{}))
	defer client.Disconnect()

	var conn net.Conn
	select {
	case conn = <-radio.conn:
	case <-time.After(2 * time.Second):
		t.Fatal("radio never accepted")
	}
	_, err := conn.Write([]byte("V1.4.0.0\nH2A3B4C5D\nS2A3B4C5D|radio slices=4\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(rec.inputs()) == 3 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"V1.4.0.0", "H2A3B4C5D", "S2A3B4C5D|radio slices=4"}, rec.inputs())
}

func TestTCPClient_KeepAlivePings(t *testing.T) {
	radio := newFakeRadio(t)
	client := NewTCPClient()

	opts := Options{KeepAlive: true, PingInterval: 20 * time.Millisecond}
	require.NoError(t, client.Connect(context.Background(), radio.selection(), opts))
	defer client.Disconnect()

	assert.Equal(t, "C1|keepalive enable", radio.next(t))
	line := radio.next(t)
	assert.True(t, strings.HasPrefix(line, "C2|"), line)
	assert.True(t, strings.HasSuffix(line, "|ping"), line)
}

func TestTCPClient_SendWithoutConnection(t *testing.T) {
	client := NewTCPClient()
	err := client.SendLine("info")
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.False(t, client.Connected())
}

func TestTCPClient_ConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	client := NewTCPClient()
	err = client.Connect(context.Background(), model.Selection{Host: "127.0.0.1", Port: addr.Port}, Options{})
	require.Error(t, err)

	var connectErr *ConnectError
	require.True(t, errors.As(err, &connectErr))
	assert.Equal(t, "dial", connectErr.Op)
	assert.False(t, client.Connected())
}

func TestTCPClient_ConnectWithoutHost(t *testing.T) {
	client := NewTCPClient()
	err := client.Connect(context.Background(), model.Selection{}, Options{})

	var connectErr *ConnectError
	require.ErrorAs(t, err, &connectErr)
	assert.Contains(t, connectErr.Addr, "4992")
}

func TestTCPClient_RemoteClose(t *testing.T) {
	radio := newFakeRadio(t)
	client := NewTCPClient()

	closed := make(chan struct{})
	client.SetDisconnectHandler(func(error) { close(closed) })

	require.NoError(t, client.Connect(context.Background(), radio.selection(), Options{}))

	conn := <-radio.conn
	conn.Close()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect handler not called")
	}
	assert.False(t, client.Connected())
	assert.ErrorIs(t, client.SendLine("info"), ErrNotConnected)
}

func TestTCPClient_DisconnectIsIdempotent(t *testing.T) {
	radio := newFakeRadio(t)
	client := NewTCPClient()

	require.NoError(t, client.Connect(context.Background(), radio.selection(), Options{}))
	assert.True(t, client.Connected())

	client.Disconnect()
	client.Disconnect()
	assert.False(t, client.Connected())
}

func TestTCPClient_RemoteValidatesBeforeRegistering(t *testing.T) {
	radio := newTLSFakeRadio(t)
	client := NewTCPClient()

	sel := radio.selection()
	sel.Source = model.SourceSmartlink
	opts := Options{IsGui: true, ClientID: "abc-123", TLS: RemoteTLSConfig(), WanHandle: "0x5A3B"}
	require.NoError(t, client.Connect(context.Background(), sel, opts))
	defer client.Disconnect()

	assert.Equal(t, "C1|wan validate handle=0x5A3B", radio.next(t))
	assert.Equal(t, "C2|client gui abc-123", radio.next(t))
}

func TestTCPClient_TLSVerifiesByDefault(t *testing.T) {
	radio := newTLSFakeRadio(t)
	client := NewTCPClient()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := client.Connect(ctx, radio.selection(), Options{TLS: &tls.Config{}})
	var connErr *ConnectError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "dial", connErr.Op)
}
