package platform

// Package platform contains OS integration glue: well-known directories,
// directory creation and revealing exported files in the system file manager.
