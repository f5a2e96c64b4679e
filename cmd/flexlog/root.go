package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/flexapi/explorer/internal/config"
)

var (
	debug        bool
	settingsPath string
	version      = "dev"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "flexlog",
	Short: "Capture and filter radio API traffic",
	Long: `flexlog connects to a radio's TCP API, records every command, reply and
status line, and prints the lines that pass the message filter.

Settings are read from a YAML file shared by all subcommands and reloaded
while a capture is running, so editing the filter takes effect immediately.

Quick Start:
  flexlog discover                      # List radios on the local network
  flexlog tail 192.168.1.20             # Capture traffic from a radio
  flexlog tail --filter status --ignore-idle
  flexlog login --user op@example.com   # Store a smartlink refresh token`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(debug)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&settingsPath, "config", "", "Settings file (default: user config dir)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

func setupLogging(debug bool) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// openSettings opens the YAML settings file named by --config
func openSettings() (*config.Settings, *config.FileStore, error) {
	path := settingsPath
	if path == "" {
		var err error
		if path, err = config.DefaultSettingsPath(); err != nil {
			return nil, nil, fmt.Errorf("failed to locate settings: %w", err)
		}
	}
	store, err := config.OpenFileStore(path)
	if err != nil {
		return nil, nil, err
	}
	log.Debug().Str("path", store.Path()).Msg("Settings loaded")
	return config.NewSettingsWithStore(store), store, nil
}
