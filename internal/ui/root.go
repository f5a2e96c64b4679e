package ui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog/log"

	"github.com/flexapi/explorer/internal/config"
	"github.com/flexapi/explorer/internal/discovery"
	"github.com/flexapi/explorer/internal/export"
	"github.com/flexapi/explorer/internal/model"
	"github.com/flexapi/explorer/internal/msglog"
	"github.com/flexapi/explorer/internal/platform"
	"github.com/flexapi/explorer/internal/radio"
	"github.com/flexapi/explorer/internal/smartlink"
)

var (
	// ErrNoSelection is shown when connecting without choosing a radio
	ErrNoSelection = errors.New("no radio selected")
	// ErrNoSmartlink is shown when a smartlink radio is chosen without a login
	ErrNoSmartlink = errors.New("smartlink is not available")
)

// Discoverer is the local discovery listener used by the UI
type Discoverer interface {
	Start(ctx context.Context, port int) error
	Stop()
	Packets() []model.Packet
	Prune(maxAge time.Duration) int
	SetUpdateCallback(fn func([]model.Radio))
}

// RemoteLogin is the smartlink client used by the UI
type RemoteLogin interface {
	RequestTokens(ctx context.Context, user, password string) (model.Tokens, error)
	RequestIDToken(ctx context.Context, refreshToken string) (string, error)
	IsValid(idToken string) bool
	Connect(ctx context.Context, tokens model.Tokens) bool
	RequestConnect(ctx context.Context, serial string) (string, error)
	SetRadioCallback(fn func([]model.Radio))
}

// MessageLog is the capture log the UI drives
type MessageLog interface {
	Receive(text string, isInput bool)
	Start(clear bool)
	Stop(clear bool)
	Clear()
	Refilter()
	Visible(ctx context.Context) ([]model.Message, error)
}

// Services bundles the collaborators of RootUI. Discovery and Smartlink are
// optional.
type Services struct {
	Engine    radio.Engine
	Log       MessageLog
	Discovery Discoverer
	Smartlink RemoteLogin
}

// RootUI represents the main UI structure
type RootUI struct {
	window   fyne.Window
	app      fyne.App
	settings *config.Settings
	svc      Services

	messages   *MessagesViewModel
	radios     *RadiosViewModel
	connection *ConnectionViewModel

	ctx    context.Context
	cancel context.CancelFunc

	radioSelect  *widget.Select
	connectBtn   *widget.Button
	kindSelect   *widget.Select
	filterEntry  *widget.Entry
	repliesCheck *widget.Check
	pingsCheck   *widget.Check
	idleCheck    *widget.Check
	messageList  *widget.List
	sendEntry    *widget.Entry
	captureBtn   *widget.Button

	selectedSerial string
	lastExport     string
}

// NewRootUI creates the window content and starts discovery
func NewRootUI(window fyne.Window, app fyne.App, settings *config.Settings, svc Services, messages *MessagesViewModel) *RootUI {
	ctx, cancel := context.WithCancel(context.Background())
	ui := &RootUI{
		window:     window,
		app:        app,
		settings:   settings,
		svc:        svc,
		messages:   messages,
		radios:     NewRadiosViewModel(),
		connection: NewConnectionViewModel(),
		ctx:        ctx,
		cancel:     cancel,
	}

	svc.Engine.SetLineHandler(svc.Log.Receive)
	settings.AddChangeListener(ui.onSettingChanged)

	ui.setupUI()
	ui.startDiscovery()
	ui.startSmartlink()
	if svc.Discovery != nil {
		go ui.pruneRadios()
	}
	ui.connectOnLaunch()

	window.SetOnClosed(ui.Close)
	log.Debug().Msg("UI setup completed")
	return ui
}

// Close disconnects and stops background work
func (ui *RootUI) Close() {
	ui.cancel()
	ui.svc.Engine.Disconnect()
	if ui.svc.Discovery != nil {
		ui.svc.Discovery.Stop()
	}
}

func (ui *RootUI) setupUI() {
	ui.radioSelect = widget.NewSelect(nil, nil)
	ui.radioSelect.PlaceHolder = NoRadioPlaceholder
	ui.radioSelect.OnChanged = func(string) {
		if r, ok := ui.radios.Radio(ui.radioSelect.SelectedIndex()); ok {
			ui.selectedSerial = r.Serial
		}
	}
	ui.radios.Labels().AddListener(binding.NewDataListener(ui.refreshRadioOptions))

	ui.connectBtn = widget.NewButton("Connect", ui.onConnectClick)
	ui.connection.Connected.AddListener(binding.NewDataListener(ui.refreshConnectButton))

	settingsBtn := widget.NewButton(IconSettings, ui.onShowSettings)
	settingsBtn.Importance = widget.LowImportance
	loginBtn := widget.NewButton(IconCloud, ui.onSmartlinkLogin)
	loginBtn.Importance = widget.LowImportance

	status := widget.NewLabelWithData(ui.connection.Status)
	top := container.NewBorder(nil, nil,
		container.NewHBox(settingsBtn, loginBtn),
		container.NewHBox(status, ui.connectBtn),
		ui.radioSelect,
	)

	filterRow := ui.createFilterRow()

	ui.messageList = widget.NewListWithData(ui.messages.Items(),
		func() fyne.CanvasObject {
			return widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Monospace: true})
		},
		func(item binding.DataItem, obj fyne.CanvasObject) {
			v, err := item.(binding.Untyped).Get()
			if err != nil {
				return
			}
			if m, ok := v.(model.Message); ok {
				obj.(*widget.Label).SetText(FormatRow(m))
			}
		},
	)
	ui.messages.Items().AddListener(binding.NewDataListener(func() {
		if n := ui.messages.Len(); n > 0 {
			ui.messageList.ScrollToBottom()
		}
	}))

	ui.sendEntry = widget.NewEntry()
	ui.sendEntry.SetPlaceHolder("Command")
	ui.sendEntry.OnSubmitted = func(string) { ui.onSendClick() }
	sendBtn := widget.NewButtonWithIcon("", theme.MailSendIcon(), ui.onSendClick)

	ui.captureBtn = widget.NewButton("Start", ui.onCaptureClick)
	ui.connection.Capturing.AddListener(binding.NewDataListener(ui.refreshCaptureButton))
	clearBtn := widget.NewButton("Clear", ui.onClearClick)
	exportBtn := widget.NewButton(IconExport, ui.onExportClick)
	countLabel := widget.NewLabelWithData(ui.messages.Count())

	bottom := container.NewBorder(nil, nil, nil,
		container.NewHBox(sendBtn, ui.captureBtn, clearBtn, exportBtn, countLabel),
		ui.sendEntry,
	)

	content := container.NewBorder(
		container.NewVBox(top, filterRow), // top
		bottom,                            // bottom
		nil,                               // left
		nil,                               // right
		ui.messageList,                    // center
	)
	ui.window.SetContent(content)
	ui.createMenu()
}

func (ui *RootUI) createFilterRow() fyne.CanvasObject {
	fs := ui.settings.FilterSettings()

	var kinds []string
	for _, k := range ui.settings.GetFilterKindOptions() {
		kinds = append(kinds, k.String())
	}
	ui.kindSelect = widget.NewSelect(kinds, nil)
	ui.kindSelect.SetSelected(fs.Kind.String())
	ui.kindSelect.OnChanged = func(name string) {
		if kind, ok := model.ParseFilterKind(name); ok {
			ui.settings.SetFilterKind(kind)
		}
		ui.refreshFilterEntry()
	}

	ui.filterEntry = widget.NewEntry()
	ui.filterEntry.SetPlaceHolder("Filter text")
	ui.filterEntry.SetText(fs.Text)
	ui.filterEntry.OnChanged = ui.settings.SetFilterText
	ui.refreshFilterEntry()

	ui.repliesCheck = widget.NewCheck("Replies", nil)
	ui.repliesCheck.SetChecked(fs.ShowReplies)
	ui.repliesCheck.OnChanged = ui.settings.SetShowReplies

	ui.pingsCheck = widget.NewCheck("Pings", nil)
	ui.pingsCheck.SetChecked(fs.ShowPings)
	ui.pingsCheck.OnChanged = ui.settings.SetShowPings

	ui.idleCheck = widget.NewCheck("Ignore idle status", nil)
	ui.idleCheck.SetChecked(fs.IgnoreIdleStatus)
	ui.idleCheck.OnChanged = ui.settings.SetIgnoreIdleStatus

	return container.NewBorder(nil, nil,
		container.NewGridWrap(fyne.NewSize(FilterSelectWidth, ui.kindSelect.MinSize().Height), ui.kindSelect),
		container.NewHBox(ui.repliesCheck, ui.pingsCheck, ui.idleCheck),
		ui.filterEntry,
	)
}

func (ui *RootUI) createMenu() {
	settingsItem := fyne.NewMenuItem("Settings", ui.onShowSettings)
	exportItem := fyne.NewMenuItem("Export Messages…", ui.onExportClick)
	quickExportItem := fyne.NewMenuItem("Save to Export Folder", ui.onQuickExport)
	openLastItem := fyne.NewMenuItem("Open Last Export", ui.onOpenLastExport)
	broadcastItem := fyne.NewMenuItem("Export Broadcasts", ui.onExportBroadcasts)
	loginItem := fyne.NewMenuItem("Smartlink Login", ui.onSmartlinkLogin)

	ui.window.SetMainMenu(fyne.NewMainMenu(
		fyne.NewMenu("File", exportItem, quickExportItem, openLastItem, broadcastItem, fyne.NewMenuItemSeparator(), settingsItem),
		fyne.NewMenu("Radio", loginItem),
	))
}

func (ui *RootUI) refreshFilterEntry() {
	kind, _ := model.ParseFilterKind(ui.kindSelect.Selected)
	if kind.UsesText() {
		ui.filterEntry.Enable()
	} else {
		ui.filterEntry.Disable()
	}
}

func (ui *RootUI) refreshRadioOptions() {
	labels, _ := ui.radios.Labels().Get()
	ui.radioSelect.Options = labels

	idx := ui.radios.Find(ui.selectedSerial)
	if idx < 0 {
		ui.selectedSerial = ""
		if sel := ui.settings.GetDefaultSelection(); sel.Serial != "" {
			if idx = ui.radios.Find(sel.Serial); idx >= 0 {
				ui.selectedSerial = sel.Serial
			}
		}
	}
	if idx >= 0 && idx < len(labels) {
		ui.radioSelect.Selected = labels[idx]
	} else {
		ui.radioSelect.Selected = ""
	}
	ui.radioSelect.Refresh()
}

func (ui *RootUI) refreshConnectButton() {
	if ui.connection.IsConnected() {
		ui.connectBtn.SetText("Disconnect")
	} else {
		ui.connectBtn.SetText("Connect")
	}
}

func (ui *RootUI) refreshCaptureButton() {
	if ui.connection.IsCapturing() {
		ui.captureBtn.SetText("Stop")
	} else {
		ui.captureBtn.SetText("Start")
	}
}

func (ui *RootUI) onSettingChanged(key string) {
	if config.IsFilterKey(key) {
		ui.svc.Log.Refilter()
	}
	if key == config.KeyFontSize {
		ui.app.Settings().SetTheme(NewCompactTheme(ui.settings.GetFontSize()))
	}
}

// selection resolves the radio to connect to: the picker first, then the
// saved default when enabled
func (ui *RootUI) selection() (model.Selection, error) {
	if ui.selectedSerial != "" {
		if r, ok := ui.radios.Radio(ui.radios.Find(ui.selectedSerial)); ok {
			return r.Selection(ui.settings.GetStation()), nil
		}
	}
	if ui.settings.GetUseDefault() {
		if sel := ui.settings.GetDefaultSelection(); !sel.IsZero() {
			return sel, nil
		}
	}
	return model.Selection{}, ErrNoSelection
}

func (ui *RootUI) connectOptions() radio.Options {
	return radio.Options{
		IsGui:     ui.settings.GetIsGui(),
		Program:   ui.settings.GetProgram(),
		Station:   ui.settings.GetStation(),
		KeepAlive: ui.settings.GetKeepAlive(),
	}
}

func (ui *RootUI) onConnectClick() {
	if ui.connection.IsConnected() {
		ui.disconnect()
		return
	}

	sel, err := ui.selection()
	if err != nil {
		dialog.ShowError(err, ui.window)
		return
	}
	ui.connect(sel)
}

// connectOnLaunch reconnects to the saved radio when enabled. Smartlink
// radios are skipped because the login has not been restored yet.
func (ui *RootUI) connectOnLaunch() {
	if !ui.settings.GetUseDefault() {
		return
	}
	sel := ui.settings.GetDefaultSelection()
	if sel.IsZero() || sel.Source == model.SourceSmartlink {
		return
	}
	log.Info().Str("host", sel.Host).Str("serial", sel.Serial).Msg("Reconnecting to last radio")
	ui.connect(sel)
}

func (ui *RootUI) connect(sel model.Selection) {
	opts := ui.connectOptions()
	ui.connectBtn.Disable()
	ui.connection.SetConnected(false, "Connecting…")

	go func() {
		ctx, cancel := context.WithTimeout(ui.ctx, ConnectTimeout)
		defer cancel()

		err := ui.brokerRemote(ctx, sel, &opts)
		if err == nil {
			err = ui.svc.Engine.Connect(ctx, sel, opts)
		}
		fyne.Do(func() {
			ui.connectBtn.Enable()
			if err != nil {
				log.Error().Err(err).Str("host", sel.Host).Msg("Connection failed")
				ui.connection.SetConnected(false, "Disconnected")
				dialog.ShowError(err, ui.window)
				return
			}
			name := sel.Nickname
			if name == "" {
				name = sel.Host
			}
			ui.connection.SetConnected(true, "Connected to "+name)
			ui.settings.SetDefaultSelection(sel)
			ui.startCapture()
		})
	}()
}

// brokerRemote asks smartlink for a wan handle when sel is a smartlink radio
func (ui *RootUI) brokerRemote(ctx context.Context, sel model.Selection, opts *radio.Options) error {
	if sel.Source != model.SourceSmartlink {
		return nil
	}
	if ui.svc.Smartlink == nil {
		return ErrNoSmartlink
	}
	handle, err := ui.svc.Smartlink.RequestConnect(ctx, sel.Serial)
	if err != nil {
		return fmt.Errorf("smartlink connect %s: %w", sel.Nickname, err)
	}
	opts.TLS = radio.RemoteTLSConfig()
	opts.WanHandle = handle
	return nil
}

func (ui *RootUI) disconnect() {
	ui.stopCapture()
	ui.svc.Engine.Disconnect()
	ui.connection.SetConnected(false, "Disconnected")
}

// OnRemoteDisconnect updates the view after the radio drops the connection
func (ui *RootUI) OnRemoteDisconnect(err error) {
	log.Warn().Err(err).Msg("Connection lost")
	fyne.Do(func() {
		ui.stopCapture()
		ui.connection.SetConnected(false, "Connection lost")
	})
}

func (ui *RootUI) startCapture() {
	ui.svc.Log.Start(ui.settings.GetClearOnStart())
	ui.connection.SetCapturing(true)
}

func (ui *RootUI) stopCapture() {
	if !ui.connection.IsCapturing() {
		return
	}
	ui.svc.Log.Stop(ui.settings.GetClearOnStop())
	ui.connection.SetCapturing(false)
}

func (ui *RootUI) onCaptureClick() {
	if ui.connection.IsCapturing() {
		ui.stopCapture()
	} else {
		ui.startCapture()
	}
}

func (ui *RootUI) onClearClick() {
	ui.svc.Log.Clear()
}

func (ui *RootUI) onSendClick() {
	text := strings.TrimSpace(ui.sendEntry.Text)
	if text == "" {
		return
	}
	if ui.settings.GetClearOnSend() {
		ui.svc.Log.Clear()
	}
	if err := ui.svc.Engine.SendLine(text); err != nil {
		log.Error().Err(err).Str("command", text).Msg("Send failed")
		dialog.ShowError(err, ui.window)
		return
	}
	ui.sendEntry.SetText("")
}

func (ui *RootUI) onShowSettings() {
	NewSettingsDialog(ui.settings, ui.window, func() {
		ui.restartDiscovery()
	}).Show()
}

func (ui *RootUI) startDiscovery() {
	if ui.svc.Discovery == nil {
		return
	}
	ui.svc.Discovery.SetUpdateCallback(ui.radios.SetLocal)
	if !ui.settings.GetLocalEnabled() {
		return
	}
	port := ui.settings.GetDiscoveryPort()
	if err := ui.svc.Discovery.Start(ui.ctx, port); err != nil {
		log.Warn().Err(err).Int("port", port).Msg("Discovery unavailable")
		ui.connection.SetConnected(false, "Discovery unavailable")
	}
}

func (ui *RootUI) restartDiscovery() {
	if ui.svc.Discovery == nil {
		return
	}
	ui.svc.Discovery.Stop()
	ui.startDiscovery()
}

func (ui *RootUI) pruneRadios() {
	ticker := time.NewTicker(RadioPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ui.ctx.Done():
			return
		case <-ticker.C:
			ui.svc.Discovery.Prune(RadioTimeout)
		}
	}
}

// startSmartlink reconnects with the saved refresh token
func (ui *RootUI) startSmartlink() {
	if ui.svc.Smartlink == nil {
		return
	}
	ui.svc.Smartlink.SetRadioCallback(ui.radios.SetRemote)
	refresh := ui.settings.GetSmartlinkRefreshToken()
	if !ui.settings.GetSmartlinkEnabled() || refresh == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(ui.ctx, SmartlinkTimeout)
		defer cancel()

		idToken, err := ui.svc.Smartlink.RequestIDToken(ctx, refresh)
		if err != nil {
			log.Warn().Err(err).Msg("Smartlink token refresh failed")
			return
		}
		tokens := model.Tokens{IDToken: idToken, RefreshToken: refresh}
		if !ui.svc.Smartlink.Connect(ctx, tokens) {
			log.Warn().Msg("Smartlink connect failed")
		}
	}()
}

func (ui *RootUI) onSmartlinkLogin() {
	if ui.svc.Smartlink == nil {
		dialog.ShowInformation("Smartlink", "Smartlink is not available", ui.window)
		return
	}

	userEntry := widget.NewEntry()
	userEntry.SetText(ui.settings.GetSmartlinkUser())
	passwordEntry := widget.NewPasswordEntry()

	items := []*widget.FormItem{
		widget.NewFormItem("User", userEntry),
		widget.NewFormItem("Password", passwordEntry),
	}
	dialog.ShowForm("Smartlink Login", "Login", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		ui.login(userEntry.Text, passwordEntry.Text)
	}, ui.window)
}

func (ui *RootUI) login(user, password string) {
	go func() {
		ctx, cancel := context.WithTimeout(ui.ctx, SmartlinkTimeout)
		defer cancel()

		tokens, err := ui.svc.Smartlink.RequestTokens(ctx, user, password)
		if err == nil && !ui.svc.Smartlink.IsValid(tokens.IDToken) {
			err = errors.New("smartlink returned an expired token")
		}
		if err == nil && !ui.svc.Smartlink.Connect(ctx, tokens) {
			err = errors.New("smartlink server rejected the login")
		}
		fyne.Do(func() {
			if err != nil {
				log.Error().Err(err).Str("user", user).Msg("Smartlink login failed")
				dialog.ShowError(err, ui.window)
				return
			}
			ui.settings.SetSmartlinkUser(user)
			ui.settings.SetSmartlinkRefreshToken(tokens.RefreshToken)
			ui.settings.SetSmartlinkEnabled(true)
		})
	}()
}

func (ui *RootUI) visibleMessages() ([]model.Message, error) {
	ctx, cancel := context.WithTimeout(ui.ctx, QueryTimeout)
	defer cancel()
	return ui.svc.Log.Visible(ctx)
}

func (ui *RootUI) onExportClick() {
	msgs, err := ui.visibleMessages()
	if err != nil {
		dialog.ShowError(err, ui.window)
		return
	}

	name := platform.ExportFileName(MessagesExportPrefix, (&export.TextExporter{}).Extension(), time.Now())
	ui.showSave(name, func(w io.Writer, ext string) error {
		exporter, err := export.NewExporter(ext)
		if err != nil {
			exporter = &export.TextExporter{}
		}
		return exporter.Export(msgs, w)
	})
}

func (ui *RootUI) onExportBroadcasts() {
	if ui.svc.Discovery == nil {
		return
	}
	packets := ui.svc.Discovery.Packets()
	name := platform.ExportFileName(BroadcastExportPrefix, BroadcastExportExt, time.Now())
	ui.showSave(name, func(w io.Writer, _ string) error {
		return export.WriteBroadcastDump(packets, w)
	})
}

// quickExport writes the visible messages to the export folder and returns
// the file path
func (ui *RootUI) quickExport() (string, error) {
	msgs, err := ui.visibleMessages()
	if err != nil {
		return "", err
	}
	exporter := &export.TextExporter{}
	var buf bytes.Buffer
	if err := exporter.Export(msgs, &buf); err != nil {
		return "", err
	}
	name := platform.ExportFileName(MessagesExportPrefix, exporter.Extension(), time.Now())
	path, err := platform.WriteExportFile(ui.settings.GetExportDirectory(), name, buf.Bytes())
	if err != nil {
		return "", err
	}
	ui.lastExport = path
	log.Info().Str("path", path).Int("messages", len(msgs)).Msg("Exported")
	return path, nil
}

func (ui *RootUI) onQuickExport() {
	path, err := ui.quickExport()
	if err != nil {
		dialog.ShowError(err, ui.window)
		return
	}
	dialog.ShowConfirm("Exported", path+"\n\nShow in folder?", func(reveal bool) {
		if !reveal {
			return
		}
		if err := platform.RevealFile(path); err != nil {
			log.Error().Err(err).Str("path", path).Msg("Failed to reveal export")
			dialog.ShowError(err, ui.window)
		}
	}, ui.window)
}

func (ui *RootUI) onOpenLastExport() {
	if ui.lastExport == "" {
		dialog.ShowInformation("Export", "Nothing exported yet", ui.window)
		return
	}
	if err := platform.OpenFileWithDefaultApp(ui.lastExport); err != nil {
		log.Error().Err(err).Str("path", ui.lastExport).Msg("Failed to open export")
		dialog.ShowError(err, ui.window)
	}
}

// showSave asks for a destination starting in the export folder. write gets
// the chosen file extension without the dot.
func (ui *RootUI) showSave(name string, write func(w io.Writer, ext string) error) {
	save := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, ui.window)
			return
		}
		if wc == nil {
			return
		}
		defer wc.Close()

		ext := strings.TrimPrefix(wc.URI().Extension(), ".")
		if err := write(wc, ext); err != nil {
			log.Error().Err(err).Str("path", wc.URI().Path()).Msg("Export failed")
			dialog.ShowError(fmt.Errorf("export %s: %w", wc.URI().Name(), err), ui.window)
			return
		}
		ui.lastExport = wc.URI().Path()
		log.Info().Str("path", ui.lastExport).Msg("Exported")
	}, ui.window)
	save.SetFileName(name)

	dir := ui.settings.GetExportDirectory()
	if err := platform.CreateDirectoryIfNotExists(dir); err == nil {
		if lister, err := storage.ListerForURI(storage.NewFileURI(dir)); err == nil {
			save.SetLocation(lister)
		}
	}
	save.Show()
}

var (
	_ MessageLog  = (*msglog.Log)(nil)
	_ RemoteLogin = (*smartlink.Client)(nil)
	_ Discoverer  = (*discovery.Listener)(nil)
)
