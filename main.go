package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/flexapi/explorer/internal/config"
	"github.com/flexapi/explorer/internal/discovery"
	"github.com/flexapi/explorer/internal/msglog"
	"github.com/flexapi/explorer/internal/radio"
	"github.com/flexapi/explorer/internal/smartlink"
	"github.com/flexapi/explorer/internal/ui"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

const (
	AppID   = "io.flexapi.explorer"
	AppName = "Flex API Explorer"
)

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging")
	clientID := flag.String("smartlink-client-id", os.Getenv("SMARTLINK_CLIENT_ID"), "Smartlink OAuth client id")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	log.Info().Str("version", version).Msg("Flex API Explorer starting")

	myApp := app.NewWithID(AppID)
	settings := config.NewSettings(myApp)
	myApp.Settings().SetTheme(ui.NewCompactTheme(settings.GetFontSize()))

	myWindow := myApp.NewWindow(fmt.Sprintf("%s v%s", AppName, version))
	myWindow.Resize(fyne.NewSize(ui.WindowWidth, ui.WindowHeight))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages := ui.NewMessagesViewModel()
	messageLog := msglog.New(settings, msglog.WithPublisher(messages.Publish))
	go func() {
		if err := messageLog.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("Message log stopped")
		}
	}()

	engine := radio.NewTCPClient()
	var slOpts []smartlink.Option
	if *clientID != "" {
		slOpts = append(slOpts, smartlink.WithClientID(*clientID))
	}

	root := ui.NewRootUI(myWindow, myApp, settings, ui.Services{
		Engine:    engine,
		Log:       messageLog,
		Discovery: discovery.NewListener(),
		Smartlink: smartlink.NewClient(slOpts...),
	}, messages)
	engine.SetDisconnectHandler(root.OnRemoteDisconnect)

	myWindow.ShowAndRun()
}
