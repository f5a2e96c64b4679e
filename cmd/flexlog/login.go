package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/flexapi/explorer/internal/model"
	"github.com/flexapi/explorer/internal/smartlink"
)

var (
	loginUser     string
	loginClientID string
	loginAuthURL  string
	loginWait     time.Duration
)

const passwordEnv = "FLEXLOG_PASSWORD"

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to smartlink and list remote radios",
	Long: `Log in to smartlink, save the refresh token in the settings file and
print the radios registered to the account.

The password is read from $` + passwordEnv + ` or, when unset, from the first line
of stdin. Without --user the saved refresh token is used instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if loginClientID == "" {
			return errors.New("--client-id is required")
		}
		settings, _, err := openSettings()
		if err != nil {
			return err
		}

		opts := []smartlink.Option{smartlink.WithClientID(loginClientID)}
		if loginAuthURL != "" {
			opts = append(opts, smartlink.WithAuthURL(loginAuthURL))
		}
		client := smartlink.NewClient(opts...)

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		var tokens model.Tokens
		if loginUser != "" {
			password := os.Getenv(passwordEnv)
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read password: %w", err)
				}
				password = strings.TrimSpace(line)
			}
			if tokens, err = client.RequestTokens(ctx, loginUser, password); err != nil {
				return err
			}
			settings.SetSmartlinkUser(loginUser)
			settings.SetSmartlinkRefreshToken(tokens.RefreshToken)
			settings.SetSmartlinkEnabled(true)
		} else {
			refresh := settings.GetSmartlinkRefreshToken()
			if refresh == "" {
				return errors.New("no saved login; pass --user")
			}
			idToken, err := client.RequestIDToken(ctx, refresh)
			if err != nil {
				return err
			}
			tokens = model.Tokens{IDToken: idToken, RefreshToken: refresh}
		}

		if !client.IsValid(tokens.IDToken) {
			return errors.New("smartlink returned an expired token")
		}
		log.Info().Str("user", settings.GetSmartlinkUser()).Msg("Logged in")

		radios := make(chan []model.Radio, 1)
		client.SetRadioCallback(func(r []model.Radio) {
			select {
			case radios <- r:
			default:
			}
		})
		if !client.Connect(ctx, tokens) {
			return errors.New("smartlink server rejected the connection")
		}
		defer client.Close()

		select {
		case list := <-radios:
			printRadios(cmd.OutOrStdout(), list)
		case <-time.After(loginWait):
			fmt.Fprintln(cmd.OutOrStdout(), "No radio list received.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringVarP(&loginUser, "user", "u", "", "Smartlink account")
	loginCmd.Flags().StringVar(&loginClientID, "client-id", os.Getenv("SMARTLINK_CLIENT_ID"), "Smartlink OAuth client id")
	loginCmd.Flags().StringVar(&loginAuthURL, "auth-url", "", "Auth service URL (default: "+smartlink.DefaultAuthURL+")")
	loginCmd.Flags().DurationVar(&loginWait, "wait", 5*time.Second, "How long to wait for the radio list")
}
