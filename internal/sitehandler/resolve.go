package sitehandler

import (
	"io/fs"
	"path"
	"strings"

	"github.com/alberthiggs/folio/internal/pathutil"
)

// resolvePath maps a URL path to a regular file within fsys. Directories,
// dotfiles and ambiguous paths never resolve.
func resolvePath(urlPath string, fsys fs.FS) (string, bool) {
	p := urlPath
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	// basic rejection of ambiguous/unsafe paths
	if strings.Contains(p, "\x00") || strings.Contains(p, "\\") || strings.Contains(p, "..") {
		return "", false
	}
	if pathutil.HasDotSegments(p) || pathutil.HasHiddenSegment(p) {
		return "", false
	}
	if strings.HasSuffix(p, "/") {
		return "", false
	}

	name := strings.TrimPrefix(path.Clean(p), "/")
	if !existsFile(fsys, name) {
		return "", false
	}
	return name, true
}

func existsFile(fsys fs.FS, name string) bool {
	if name == "" || !fs.ValidPath(name) {
		return false
	}
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
