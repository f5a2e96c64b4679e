package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/flexapi/explorer/internal/discovery"
	"github.com/flexapi/explorer/internal/export"
	"github.com/flexapi/explorer/internal/model"
)

var (
	discoverPort     int
	discoverDuration time.Duration
	discoverDump     string
	discoverSelect   string
)

var (
	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)
)

// discoverCmd represents the discover command
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List radios announcing themselves on the local network",
	Long: `Listen for discovery broadcasts and print the radios heard.

Use --select to save one radio (by serial or nickname) as the default for
'flexlog tail', and --dump to keep the raw packets.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, _, err := openSettings()
		if err != nil {
			return err
		}
		port := settings.GetDiscoveryPort()
		if cmd.Flags().Changed("port") {
			port = discoverPort
		}

		listener := discovery.NewListener()
		if err := listener.Start(cmd.Context(), port); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), discoverDuration)
		defer cancel()
		<-ctx.Done()
		listener.Stop()

		radios := listener.Radios()
		printRadios(cmd.OutOrStdout(), radios)

		if discoverDump != "" {
			if err := writeDump(discoverDump, listener.Packets()); err != nil {
				return err
			}
		}

		if discoverSelect != "" {
			r, ok := findRadio(radios, discoverSelect)
			if !ok {
				return fmt.Errorf("radio %q not found", discoverSelect)
			}
			settings.SetDefaultSelection(r.Selection(settings.GetStation()))
			fmt.Fprintf(cmd.OutOrStdout(), "Default radio set to %s (%s)\n", r.Nickname, r.Address())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)

	discoverCmd.Flags().IntVarP(&discoverPort, "port", "p", discovery.DefaultPort, "Discovery port")
	discoverCmd.Flags().DurationVarP(&discoverDuration, "duration", "d", 3*time.Second, "How long to listen")
	discoverCmd.Flags().StringVar(&discoverDump, "dump", "", "Write raw packets to this file")
	discoverCmd.Flags().StringVar(&discoverSelect, "select", "", "Save the radio with this serial or nickname as default")
}

func printRadios(w io.Writer, radios []model.Radio) {
	if len(radios) == 0 {
		fmt.Fprintln(w, emptyStyle.Render("No radios found."))
		return
	}
	fmt.Fprintln(w, countStyle.Render(fmt.Sprintf("%d radio(s)", len(radios))))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SERIAL\tNICKNAME\tMODEL\tADDRESS\tVERSION\tSTATUS\tSTATIONS")
	for _, r := range radios {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Serial, r.Nickname, r.Model, r.Address(), r.Version, r.Status, strings.Join(r.GuiClients, ","))
	}
	tw.Flush()
}

func findRadio(radios []model.Radio, key string) (model.Radio, bool) {
	for _, r := range radios {
		if r.Serial == key || strings.EqualFold(r.Nickname, key) {
			return r, true
		}
	}
	return model.Radio{}, false
}

func writeDump(path string, packets []model.Packet) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dump file: %w", err)
	}
	if err := export.WriteBroadcastDump(packets, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
