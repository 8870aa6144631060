package storage

import (
	"context"
	"io"
)

// DocumentStore is the remote document repository.
// Implementations classify failures at the boundary: a missing document is
// reported as ErrNotFound, a name clash as ErrConflict, anything else as
// ErrRemote (see RemoteError).
type DocumentStore interface {
	// Get fetches the document at path.
	Get(ctx context.Context, path string) (*Document, error)
	// Children lists the direct children of the document at path.
	Children(ctx context.Context, path string) ([]Document, error)
	// Query runs an NXQL query and returns every matching document.
	Query(ctx context.Context, nxql string) ([]Document, error)
	// Create creates a document below parent.
	Create(ctx context.Context, parent string, params CreateParams) (*Document, error)
	// Move moves the document at src into the folder dst.
	Move(ctx context.Context, src, dst string) (*Document, error)
	// Import uploads a blob into folder, letting the server pick the document type.
	Import(ctx context.Context, folder string, blob Blob) (*Document, error)
	// CheckIn creates a new version of the document at path.
	CheckIn(ctx context.Context, path string, increment VersionIncrement) (*Document, error)
	// Attach stores blob in the xpath property of the document at path.
	// List properties such as files:files get the blob appended.
	Attach(ctx context.Context, path, xpath string, blob Blob) (*Document, error)
}

// CreateParams describes a document to create.
type CreateParams struct {
	Type  string
	Name  string
	Title string
}

// Blob is a binary to upload.
type Blob struct {
	Name     string
	MimeType string
	Size     int64
	Content  io.Reader
}

// VersionIncrement selects which part of the version label a check-in bumps.
type VersionIncrement string

const (
	VersionMajor VersionIncrement = "major"
	VersionMinor VersionIncrement = "minor"
)

// Xpaths used when attaching blobs.
const (
	XpathContent = "file:content"
	XpathFiles   = "files:files"
)
