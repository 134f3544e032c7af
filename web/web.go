// Package web carries the embedded browser client for the passkey demo.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var assets embed.FS

// Static returns the embedded client assets rooted at the static directory.
func Static() (fs.FS, error) {
	return fs.Sub(assets, "static")
}
