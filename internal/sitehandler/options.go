package sitehandler

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
)

var ErrInvalidOptions = errors.New("sitehandler: invalid options")

type Options struct {
	// Static is served from the site root.
	Static fs.FS
	// NotFound handles paths with no file behind them.
	NotFound http.Handler

	// Cache policies applied by file extension.
	AssetCacheControl string // default: "public, max-age=86400"
	OtherCacheControl string // default: "public, max-age=3600"
}

func (o *Options) setDefaults() {
	if o.AssetCacheControl == "" {
		o.AssetCacheControl = "public, max-age=86400"
	}
	if o.OtherCacheControl == "" {
		o.OtherCacheControl = "public, max-age=3600"
	}
	if o.NotFound == nil {
		o.NotFound = http.HandlerFunc(plainNotFound)
	}
}

func (o *Options) validate() error {
	if o.Static == nil {
		return fmt.Errorf("%w: Static is nil", ErrInvalidOptions)
	}
	return nil
}

func plainNotFound(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("404 page not found"))
}
