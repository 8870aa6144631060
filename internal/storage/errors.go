package storage

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned when no document exists at a path.
	ErrNotFound = errors.New("storage: document not found")
	// ErrConflict is returned when a document already exists.
	ErrConflict = errors.New("storage: document already exists")
	// ErrRemote covers transport failures and unexpected server answers.
	ErrRemote = errors.New("storage: remote error")
)

// RemoteError is a failed request, classified into one of the sentinel errors.
type RemoteError struct {
	Op      string
	Status  int    // HTTP status, 0 for transport failures
	Code    string // server exception class, e.g. org.nuxeo.ecm.core.model.NoSuchDocumentException
	Message string
	Cause   error
}

var _ error = (*RemoteError)(nil)

const noSuchDocument = "org.nuxeo.ecm.core.model.NoSuchDocumentException"

// Kind returns the sentinel error this failure belongs to.
func (e *RemoteError) Kind() error {
	switch {
	case e.Status == http.StatusNotFound, e.Code == noSuchDocument:
		return ErrNotFound
	case e.Status == http.StatusConflict:
		return ErrConflict
	default:
		return ErrRemote
	}
}

func (e *RemoteError) Error() string {
	if e == nil {
		return "(*RemoteError)(nil)"
	}
	message := e.Kind().Error() + ": " + e.Op
	if e.Status != 0 {
		message += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Message != "" {
		message += ": " + e.Message
	}
	if e.Cause != nil {
		message += ": " + e.Cause.Error()
	}
	return message
}

func (e *RemoteError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind()}
	}
	return []error{e.Kind(), e.Cause}
}
