package relay

import (
	"errors"
	"net/http"

	"github.com/alberthiggs/folio/internal/cms"
)

type ErrorKind int

const (
	NotFound ErrorKind = iota + 1
	InvalidAssetURL
	InvalidContentType
	UpstreamUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case InvalidAssetURL:
		return "invalid_url"
	case InvalidContentType:
		return "invalid_content_type"
	case UpstreamUnavailable:
		return "upstream_unavailable"
	}
	return "unknown"
}

// Status is the HTTP status the kind is surfaced as.
func (k ErrorKind) Status() int {
	switch k {
	case NotFound:
		return http.StatusNotFound
	case InvalidAssetURL, InvalidContentType:
		return http.StatusBadRequest
	case UpstreamUnavailable:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Error is a relay failure. Public is the client-visible body.
type Error struct {
	Kind   ErrorKind
	Public string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Public + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Public
}

func (e *Error) Unwrap() error { return e.Err }

func newError(k ErrorKind, public string, err error) *Error {
	return &Error{Kind: k, Public: public, Err: err}
}

// KindOf classifies err. Content fetch failures count as an unavailable
// upstream since the CMS is the relay's upstream too.
func KindOf(err error) ErrorKind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	var cfe *cms.ContentFetchError
	if errors.As(err, &cfe) {
		return UpstreamUnavailable
	}
	return 0
}
