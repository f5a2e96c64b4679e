package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/flexapi/explorer/internal/config"
	"github.com/flexapi/explorer/internal/export"
	"github.com/flexapi/explorer/internal/model"
	"github.com/flexapi/explorer/internal/msglog"
	"github.com/flexapi/explorer/internal/platform"
	"github.com/flexapi/explorer/internal/radio"
)

var (
	tailPort       int
	tailFilter     string
	tailText       string
	tailReplies    bool
	tailPings      bool
	tailIgnoreIdle bool
	tailSend       []string
	tailStdin      bool
	tailDuration   time.Duration
	tailExport     string
	tailFormat     string
	tailNoGui      bool
)

// tailCmd represents the tail command
var tailCmd = &cobra.Command{
	Use:   "tail [host]",
	Short: "Connect to a radio and print filtered traffic",
	Long: `Connect to a radio and print every line that passes the message filter.

Without a host the default selection saved in the settings file is used.
Filter flags override the settings file for this run only.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("filter") {
			if _, ok := model.ParseFilterKind(tailFilter); !ok {
				return fmt.Errorf("unknown filter %q (supported: %s)", tailFilter, strings.Join(filterKindNames(), ", "))
			}
		}

		settings, store, err := openSettings()
		if err != nil {
			return err
		}

		sel, err := resolveSelection(settings, args)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		if tailDuration > 0 {
			var stop context.CancelFunc
			ctx, stop = context.WithTimeout(ctx, tailDuration)
			defer stop()
		}

		return runTail(ctx, tailOptions{
			settings: settings,
			store:    store,
			sel:      sel,
			filter:   filterOverrides(cmd, settings),
			out:      cmd.OutOrStdout(),
			stdin:    stdinReader(cmd),
		})
	},
}

func init() {
	rootCmd.AddCommand(tailCmd)

	tailCmd.Flags().IntVarP(&tailPort, "port", "p", radio.DefaultPort, "Radio API port")
	tailCmd.Flags().StringVarP(&tailFilter, "filter", "f", "", "Filter kind: "+strings.Join(filterKindNames(), ", "))
	tailCmd.Flags().StringVarP(&tailText, "text", "t", "", "Filter text for prefix/includes/excludes")
	tailCmd.Flags().BoolVar(&tailReplies, "replies", false, "Show empty replies")
	tailCmd.Flags().BoolVar(&tailPings, "pings", false, "Show keep-alive pings")
	tailCmd.Flags().BoolVar(&tailIgnoreIdle, "ignore-idle", false, "Drop idle status lines")
	tailCmd.Flags().StringArrayVarP(&tailSend, "send", "s", nil, "Command to send after connecting (repeatable)")
	tailCmd.Flags().BoolVar(&tailStdin, "stdin", false, "Send each line read from stdin as a command")
	tailCmd.Flags().DurationVarP(&tailDuration, "duration", "d", 0, "Stop after this long (default: until interrupted)")
	tailCmd.Flags().StringVarP(&tailExport, "export", "o", "", "Write the visible messages to this file (or directory) on exit")
	tailCmd.Flags().StringVar(&tailFormat, "format", "", "Export format: "+strings.Join(export.Formats(), ", ")+" (default: from file extension)")
	tailCmd.Flags().BoolVar(&tailNoGui, "no-gui", false, "Connect as a non-GUI client")
}

type tailOptions struct {
	settings *config.Settings
	store    *config.FileStore
	sel      model.Selection
	filter   msglog.SettingsSource
	out      io.Writer
	stdin    io.Reader
}

func runTail(ctx context.Context, opts tailOptions) error {
	var exporter export.Exporter
	if tailExport != "" {
		var err error
		if exporter, err = exporterFor(tailExport, tailFormat); err != nil {
			return err
		}
	}

	p := newPrinter(opts.out)
	logCtx, stopLog := context.WithCancel(context.Background())
	defer stopLog()
	messages := msglog.New(opts.filter, msglog.WithPublisher(p.Publish))
	go messages.Run(logCtx)

	opts.settings.AddChangeListener(func(key string) {
		if config.IsFilterKey(key) {
			messages.Refilter()
		}
	})
	if opts.store != nil {
		if err := opts.store.Watch(ctx, opts.settings.NotifyExternalChange); err != nil {
			log.Warn().Err(err).Msg("Settings will not reload")
		}
	}

	engine := radio.NewTCPClient()
	engine.SetLineHandler(messages.Receive)
	lost := make(chan error, 1)
	engine.SetDisconnectHandler(func(err error) { lost <- err })

	messages.Start(opts.settings.GetClearOnStart())
	err := engine.Connect(ctx, opts.sel, radio.Options{
		IsGui:     opts.settings.GetIsGui() && !tailNoGui,
		Program:   opts.settings.GetProgram(),
		Station:   opts.settings.GetStation(),
		KeepAlive: opts.settings.GetKeepAlive(),
	})
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer engine.Disconnect()
	opts.settings.SetDefaultSelection(opts.sel)

	for _, line := range tailSend {
		if err := engine.SendLine(line); err != nil {
			return err
		}
	}
	if opts.stdin != nil {
		go sendLines(ctx, engine, opts.stdin)
	}

	select {
	case <-ctx.Done():
	case err := <-lost:
		log.Warn().Err(err).Msg("Radio closed the connection")
	}

	engine.Disconnect()
	messages.Stop(false)

	if exporter == nil {
		return nil
	}
	queryCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	visible, err := messages.Visible(queryCtx)
	if err != nil {
		return err
	}
	return writeExport(tailExport, exporter, visible)
}

func sendLines(ctx context.Context, engine radio.Engine, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := engine.SendLine(line); err != nil {
			log.Error().Err(err).Str("command", line).Msg("Send failed")
			return
		}
	}
}

func stdinReader(cmd *cobra.Command) io.Reader {
	if !tailStdin {
		return nil
	}
	return cmd.InOrStdin()
}

func resolveSelection(settings *config.Settings, args []string) (model.Selection, error) {
	if len(args) == 1 {
		return model.Selection{Host: args[0], Port: tailPort, Source: model.SourceLocal}, nil
	}
	sel := settings.GetDefaultSelection()
	if sel.IsZero() {
		return model.Selection{}, fmt.Errorf("no host given and no default radio saved; run 'flexlog discover' first")
	}
	if sel.Source == model.SourceSmartlink {
		return model.Selection{}, fmt.Errorf("default radio %s is a smartlink radio; pass its LAN address instead", sel.Nickname)
	}
	return sel, nil
}

// filterOverrides layers the filter flags that were set over the settings file
func filterOverrides(cmd *cobra.Command, settings *config.Settings) msglog.SettingsSource {
	flags := cmd.Flags()
	return msglog.SettingsFunc(func() model.FilterSettings {
		fs := settings.FilterSettings()
		if flags.Changed("filter") {
			if kind, ok := model.ParseFilterKind(tailFilter); ok {
				fs.Kind = kind
			}
		}
		if flags.Changed("text") {
			fs.Text = tailText
		}
		if flags.Changed("replies") {
			fs.ShowReplies = tailReplies
		}
		if flags.Changed("pings") {
			fs.ShowPings = tailPings
		}
		if flags.Changed("ignore-idle") {
			fs.IgnoreIdleStatus = tailIgnoreIdle
		}
		return fs
	})
}

func filterKindNames() []string {
	var names []string
	for _, k := range model.FilterKinds() {
		names = append(names, k.String())
	}
	return names
}

func exporterFor(path, format string) (export.Exporter, error) {
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(path), ".")
	}
	return export.NewExporter(format)
}

// writeExport writes msgs to path. When path is a directory a timestamped
// file is created inside it.
func writeExport(path string, exporter export.Exporter, msgs []model.Message) error {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		var buf bytes.Buffer
		if err := exporter.Export(msgs, &buf); err != nil {
			return fmt.Errorf("failed to export messages: %w", err)
		}
		name := platform.ExportFileName("messages", exporter.Extension(), time.Now())
		written, err := platform.WriteExportFile(path, name, buf.Bytes())
		if err != nil {
			return err
		}
		log.Info().Str("path", written).Int("messages", len(msgs)).Msg("Exported")
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := exporter.Export(msgs, f); err != nil {
		f.Close()
		return fmt.Errorf("failed to export messages: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Info().Str("path", path).Int("messages", len(msgs)).Msg("Exported")
	return nil
}
