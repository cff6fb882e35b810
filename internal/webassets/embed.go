package webassets

import (
	"embed"
	"fmt"
	"io/fs"
)

// templates/ holds the page templates, static/ everything served verbatim.
//
//go:embed templates static
var embedded embed.FS

// TemplatesFS returns the html/template sources, one *.html file per page part.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(fmt.Errorf("webassets: templates subfs: %w", err))
	}
	return sub
}

// StaticFS returns files served at the site root: robots.txt, favicon.svg
// and the static/ directory.
func StaticFS() fs.FS {
	sub, err := fs.Sub(embedded, "static")
	if err != nil {
		panic(fmt.Errorf("webassets: static subfs: %w", err))
	}
	return sub
}
