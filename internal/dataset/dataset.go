// Package dataset embeds the default empire and place data.
package dataset

import (
	"embed"
	"io/fs"
)

//go:embed empires/*.json
var files embed.FS

// FS returns the dataset rooted at the empires directory.
func FS() fs.FS {
	sub, err := fs.Sub(files, "empires")
	if err != nil {
		panic(err)
	}
	return sub
}
