package main

import (
	"bufio"
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexapi/explorer/internal/config"
	"github.com/flexapi/explorer/internal/model"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	err := rootCmd.Execute()
	return stdout.String(), err
}

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{name: "version flag", args: []string{"--version"}},
		{name: "help flag", args: []string{"--help"}},
		{name: "unknown command", args: []string{"bogus"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSubcommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"tail", "discover", "login"} {
		assert.True(t, names[want], want)
	}
}

func TestDiscover_NoRadios(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "settings.yaml")
	out, err := execute(t, "discover", "--config", cfg, "--port", "0", "--duration", "50ms")
	require.NoError(t, err)
	assert.Contains(t, out, "No radios found.")
}

func TestTail_RejectsUnknownFilter(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "settings.yaml")
	_, err := execute(t, "tail", "127.0.0.1", "--config", cfg, "--filter", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown filter")
}

func TestLogin_RequiresClientID(t *testing.T) {
	t.Setenv("SMARTLINK_CLIENT_ID", "")
	cfg := filepath.Join(t.TempDir(), "settings.yaml")
	_, err := execute(t, "login", "--config", cfg, "--client-id", "")
	require.Error(t, err)
}

// replyingRadio answers every command with an empty reply, except info
func replyingRadio(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			seq, cmd, _ := strings.Cut(strings.TrimPrefix(scanner.Text(), "C"), "|")
			reply := fmt.Sprintf("R%s|0|\n", seq)
			if cmd == "info" {
				reply = fmt.Sprintf("R%s|0|model=FLEX-6600\n", seq)
			}
			conn.Write([]byte(reply))
		}
	}()
	return ln.Addr().String()
}

func TestTail_CapturesAndExports(t *testing.T) {
	host, port, err := net.SplitHostPort(replyingRadio(t))
	require.NoError(t, err)

	dir := t.TempDir()
	cfg := filepath.Join(dir, "settings.yaml")
	exportPath := filepath.Join(dir, "capture.txt")

	out, err := execute(t, "tail", host,
		"--config", cfg,
		"--port", port,
		"--filter", "all",
		"--send", "info",
		"--duration", "500ms",
		"--export", exportPath,
	)
	require.NoError(t, err)

	assert.Contains(t, out, "-> C5|info")
	assert.Contains(t, out, "<- R5|0|model=FLEX-6600")
	assert.NotContains(t, out, "R1|0|\n", "empty replies are hidden by default")
	assert.NotContains(t, out, "ping")

	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	lines := strings.Split(string(data), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		assert.Regexp(t, `^\d+\.\d{6} `, line)
	}
	assert.Contains(t, string(data), "R5|0|model=FLEX-6600")

	// the host was saved as the default radio
	settings, _, err := openSettings()
	require.NoError(t, err)
	assert.Equal(t, host, settings.GetDefaultSelection().Host)
}

func TestResolveSelection(t *testing.T) {
	store, err := config.OpenFileStore(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)
	settings := config.NewSettingsWithStore(store)

	_, err = resolveSelection(settings, nil)
	assert.Error(t, err, "nothing saved")

	sel, err := resolveSelection(settings, []string{"10.0.0.9"})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.9", sel.Host)
	assert.Equal(t, model.SourceLocal, sel.Source)

	settings.SetDefaultSelection(model.Selection{Serial: "1234", Host: "10.0.0.5", Port: 4992, Source: model.SourceLocal})
	sel, err = resolveSelection(settings, nil)
	require.NoError(t, err)
	assert.Equal(t, "1234", sel.Serial)

	settings.SetDefaultSelection(model.Selection{Serial: "777", Nickname: "Remote", Host: "198.51.100.1", Port: 4994, Source: model.SourceSmartlink})
	_, err = resolveSelection(settings, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smartlink")
}
