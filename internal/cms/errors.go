package cms

import (
	"errors"
	"fmt"
)

// ErrSectionNotFound marks a section absent from the source response.
var ErrSectionNotFound = errors.New("section not found")

// ContentFetchError is every section failure: transport, upstream status,
// GraphQL errors, a missing section or an undecodable payload.
type ContentFetchError struct {
	Section Section
	// Status is the upstream HTTP status, 0 when there was no response.
	Status  int
	Message string
	Err     error
}

func (e *ContentFetchError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("cms section %q: %s (status %d)", e.Section, msg, e.Status)
	}
	return fmt.Sprintf("cms section %q: %s", e.Section, msg)
}

func (e *ContentFetchError) Unwrap() error { return e.Err }

// fetchError attributes err to section, keeping upstream status and message
// when err already is a ContentFetchError.
func fetchError(section Section, err error) *ContentFetchError {
	var cfe *ContentFetchError
	if errors.As(err, &cfe) {
		if cfe.Section == section {
			return cfe
		}
		return &ContentFetchError{Section: section, Status: cfe.Status, Message: cfe.Message, Err: cfe.Err}
	}
	return &ContentFetchError{Section: section, Message: err.Error(), Err: err}
}

func notFound(section Section) *ContentFetchError {
	return &ContentFetchError{Section: section, Status: 0, Message: fmt.Sprintf("section %q not found", section), Err: ErrSectionNotFound}
}
