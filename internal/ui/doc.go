// Package ui contains the Fyne desktop shell. View-models mirror state owned
// elsewhere (the message log, discovery, the radio connection) into Fyne data
// bindings; widgets only read from those bindings.
package ui
