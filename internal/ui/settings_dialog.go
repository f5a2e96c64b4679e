package ui

import (
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/flexapi/explorer/internal/config"
)

// SettingsDialog edits the connection, capture and display settings
type SettingsDialog struct {
	settings *config.Settings
	window   fyne.Window
	dialog   *dialog.ConfirmDialog
	onSaved  func()

	stationEntry    *widget.Entry
	programEntry    *widget.Entry
	isGuiCheck      *widget.Check
	keepAliveCheck  *widget.Check
	useDefaultCheck *widget.Check

	clearOnStartCheck *widget.Check
	clearOnStopCheck  *widget.Check
	clearOnSendCheck  *widget.Check

	localCheck     *widget.Check
	smartlinkCheck *widget.Check
	portEntry      *widget.Entry

	fontSizeSelect *widget.Select
	exportDirEntry *widget.Entry
}

// NewSettingsDialog creates a new settings dialog
func NewSettingsDialog(settings *config.Settings, window fyne.Window, onSaved func()) *SettingsDialog {
	sd := &SettingsDialog{
		settings: settings,
		window:   window,
		onSaved:  onSaved,
	}

	sd.createUI()
	return sd
}

// Show displays the settings dialog
func (sd *SettingsDialog) Show() {
	sd.loadCurrentSettings()
	sd.dialog.Show()
}

func (sd *SettingsDialog) createUI() {
	sd.stationEntry = widget.NewEntry()
	sd.programEntry = widget.NewEntry()
	sd.isGuiCheck = widget.NewCheck("Connect as GUI client", nil)
	sd.keepAliveCheck = widget.NewCheck("Send keep-alive pings", nil)
	sd.useDefaultCheck = widget.NewCheck("Reconnect to last radio on launch", nil)

	sd.clearOnStartCheck = widget.NewCheck("Clear on start", nil)
	sd.clearOnStopCheck = widget.NewCheck("Clear on stop", nil)
	sd.clearOnSendCheck = widget.NewCheck("Clear on send", nil)

	sd.localCheck = widget.NewCheck("Local discovery", nil)
	sd.smartlinkCheck = widget.NewCheck("Smartlink", nil)
	sd.portEntry = widget.NewEntry()
	sd.portEntry.SetPlaceHolder(strconv.Itoa(config.DefaultDiscoveryPort))

	var sizes []string
	for size := config.MinFontSize; size <= config.MaxFontSize; size++ {
		sizes = append(sizes, strconv.Itoa(size))
	}
	sd.fontSizeSelect = widget.NewSelect(sizes, nil)

	sd.exportDirEntry = widget.NewEntry()
	browseDirBtn := widget.NewButton("Browse", sd.onBrowseDirectory)
	exportDirRow := container.NewBorder(nil, nil, nil, browseDirBtn, sd.exportDirEntry)

	form := container.NewVBox(
		widget.NewLabel("Connection"),
		widget.NewSeparator(),
		widget.NewForm(
			widget.NewFormItem("Station", sd.stationEntry),
			widget.NewFormItem("Program", sd.programEntry),
		),
		sd.isGuiCheck,
		sd.keepAliveCheck,
		sd.useDefaultCheck,

		widget.NewLabel("Capture"),
		widget.NewSeparator(),
		container.NewHBox(sd.clearOnStartCheck, sd.clearOnStopCheck, sd.clearOnSendCheck),

		widget.NewLabel("Discovery"),
		widget.NewSeparator(),
		container.NewHBox(sd.localCheck, sd.smartlinkCheck),
		widget.NewForm(widget.NewFormItem("Port", sd.portEntry)),

		widget.NewLabel("Display & Export"),
		widget.NewSeparator(),
		widget.NewForm(
			widget.NewFormItem("Font size", sd.fontSizeSelect),
			widget.NewFormItem("Export folder", exportDirRow),
		),
	)

	sd.dialog = dialog.NewCustomConfirm(
		"Settings",
		"Save",
		"Cancel",
		container.NewVScroll(form),
		sd.onSave,
		sd.window,
	)
	sd.dialog.Resize(fyne.NewSize(SettingsDialogWidth, SettingsDialogHeight))
}

func (sd *SettingsDialog) loadCurrentSettings() {
	sd.stationEntry.SetText(sd.settings.GetStation())
	sd.programEntry.SetText(sd.settings.GetProgram())
	sd.isGuiCheck.SetChecked(sd.settings.GetIsGui())
	sd.keepAliveCheck.SetChecked(sd.settings.GetKeepAlive())
	sd.useDefaultCheck.SetChecked(sd.settings.GetUseDefault())

	sd.clearOnStartCheck.SetChecked(sd.settings.GetClearOnStart())
	sd.clearOnStopCheck.SetChecked(sd.settings.GetClearOnStop())
	sd.clearOnSendCheck.SetChecked(sd.settings.GetClearOnSend())

	sd.localCheck.SetChecked(sd.settings.GetLocalEnabled())
	sd.smartlinkCheck.SetChecked(sd.settings.GetSmartlinkEnabled())
	sd.portEntry.SetText(strconv.Itoa(sd.settings.GetDiscoveryPort()))

	sd.fontSizeSelect.SetSelected(strconv.Itoa(sd.settings.GetFontSize()))
	sd.exportDirEntry.SetText(sd.settings.GetExportDirectory())
}

func (sd *SettingsDialog) onBrowseDirectory() {
	dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil || uri == nil {
			return
		}
		sd.exportDirEntry.SetText(uri.Path())
	}, sd.window)
}

// save writes every field to settings. Invalid numbers keep the old value.
func (sd *SettingsDialog) save() {
	sd.settings.SetStation(sd.stationEntry.Text)
	sd.settings.SetProgram(sd.programEntry.Text)
	sd.settings.SetIsGui(sd.isGuiCheck.Checked)
	sd.settings.SetKeepAlive(sd.keepAliveCheck.Checked)
	sd.settings.SetUseDefault(sd.useDefaultCheck.Checked)

	sd.settings.SetClearOnStart(sd.clearOnStartCheck.Checked)
	sd.settings.SetClearOnStop(sd.clearOnStopCheck.Checked)
	sd.settings.SetClearOnSend(sd.clearOnSendCheck.Checked)

	sd.settings.SetLocalEnabled(sd.localCheck.Checked)
	sd.settings.SetSmartlinkEnabled(sd.smartlinkCheck.Checked)
	if port, err := strconv.Atoi(sd.portEntry.Text); err == nil {
		sd.settings.SetDiscoveryPort(port)
	}

	if size, err := strconv.Atoi(sd.fontSizeSelect.Selected); err == nil {
		sd.settings.SetFontSize(size)
	}
	if sd.exportDirEntry.Text != "" {
		sd.settings.SetExportDirectory(sd.exportDirEntry.Text)
	}
}

func (sd *SettingsDialog) onSave(confirmed bool) {
	if !confirmed {
		return
	}
	sd.save()
	if sd.onSaved != nil {
		sd.onSaved()
	}
}
