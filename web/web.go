// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vocalis Contributors

// Package web embeds the recorder front-end served at the relay root.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var assets embed.FS

// Static returns the embedded asset tree rooted at static/.
func Static() fs.FS {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		// The subtree is embedded at compile time; this cannot fail at
		// runtime with a well-formed build.
		panic(err)
	}
	return sub
}
