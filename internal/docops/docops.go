// Package docops holds the simple read and move operations on documents.
package docops

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/goodtune/nx/internal/docpath"
	"github.com/goodtune/nx/internal/storage"
)

// ErrEmptyQuery is returned for a blank NXQL statement.
var ErrEmptyQuery = errors.New("query must not be empty")

// Ops runs listing, query and move requests.
type Ops struct {
	store  storage.DocumentStore
	logger zerolog.Logger
}

// New creates Ops backed by store.
func New(store storage.DocumentStore, logger zerolog.Logger) *Ops {
	return &Ops{
		store:  store,
		logger: logger.With().Str("component", "docops").Logger(),
	}
}

// Listing is a document with its direct children.
type Listing struct {
	Document *storage.Document
	Children []storage.Document
}

// List fetches the document at p and, when it is folderish, its children.
func (o *Ops) List(ctx context.Context, p docpath.Path) (*Listing, error) {
	doc, err := o.store.Get(ctx, p.String())
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", p, err)
	}

	listing := &Listing{Document: doc}
	if !doc.IsFolderish() {
		return listing, nil
	}

	listing.Children, err = o.store.Children(ctx, p.String())
	if err != nil {
		return nil, fmt.Errorf("list children of %s: %w", p, err)
	}
	o.logger.Debug().Str("path", p.String()).Int("children", len(listing.Children)).Msg("Listed document")
	return listing, nil
}

// Query runs nxql and returns every matching document.
func (o *Ops) Query(ctx context.Context, nxql string) ([]storage.Document, error) {
	nxql = strings.TrimSpace(nxql)
	if nxql == "" {
		return nil, ErrEmptyQuery
	}

	docs, err := o.store.Query(ctx, nxql)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	o.logger.Debug().Str("query", nxql).Int("results", len(docs)).Msg("Query done")
	return docs, nil
}

// Move moves the document at src into the folder dst and returns it at its
// new location. Both ends are checked before the move is requested.
func (o *Ops) Move(ctx context.Context, src, dst docpath.Path) (*storage.Document, error) {
	if src.IsRoot() {
		return nil, fmt.Errorf("cannot move the repository root: %w", docpath.ErrInvalidPath)
	}
	if dst.HasPrefix(src) {
		return nil, fmt.Errorf("cannot move %s below itself: %w", src, docpath.ErrInvalidPath)
	}

	if _, err := o.store.Get(ctx, src.String()); err != nil {
		return nil, fmt.Errorf("move source %s: %w", src, err)
	}
	folder, err := o.store.Get(ctx, dst.String())
	if err != nil {
		return nil, fmt.Errorf("move destination %s: %w", dst, err)
	}
	if !folder.IsFolderish() {
		return nil, fmt.Errorf("move destination %s is a %s, not a folder: %w", dst, folder.Type, docpath.ErrInvalidPath)
	}

	doc, err := o.store.Move(ctx, src.String(), dst.String())
	if err != nil {
		return nil, fmt.Errorf("move %s to %s: %w", src, dst, err)
	}
	o.logger.Info().Str("from", src.String()).Str("to", doc.Path).Msg("Moved document")
	return doc, nil
}
