// Package cache wraps a DocumentStore with an LRU cache of Get results.
package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/goodtune/nx/internal/docpath"
	"github.com/goodtune/nx/internal/metrics"
	"github.com/goodtune/nx/internal/storage"
)

// Store is a read-through cache in front of another DocumentStore.
// Only successful Get results are cached. Mutations evict the paths they
// touch together with everything below them.
type Store struct {
	next   storage.DocumentStore
	docs   *lru.Cache[docpath.Path, *storage.Document]
	logger zerolog.Logger
}

var _ storage.DocumentStore = (*Store)(nil)

// New wraps next with a cache holding up to size documents.
func New(next storage.DocumentStore, size int, logger zerolog.Logger) (*Store, error) {
	docs, err := lru.New[docpath.Path, *storage.Document](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create document cache: %w", err)
	}

	return &Store{
		next:   next,
		docs:   docs,
		logger: logger.With().Str("component", "cache").Logger(),
	}, nil
}

func key(path string) docpath.Path {
	p, err := docpath.Parse(path)
	if err != nil {
		return docpath.Path(path)
	}
	return p
}

// Get returns the cached document or fetches it from the underlying store
func (s *Store) Get(ctx context.Context, path string) (*storage.Document, error) {
	k := key(path)
	if doc, ok := s.docs.Get(k); ok {
		metrics.CacheHits.Inc()
		s.logger.Debug().Str("path", k.String()).Msg("Document cache hit")
		copied := *doc
		return &copied, nil
	}
	metrics.CacheMisses.Inc()

	doc, err := s.next.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	s.store(doc)
	return doc, nil
}

func (s *Store) Children(ctx context.Context, path string) ([]storage.Document, error) {
	return s.next.Children(ctx, path)
}

func (s *Store) Query(ctx context.Context, nxql string) ([]storage.Document, error) {
	return s.next.Query(ctx, nxql)
}

func (s *Store) Create(ctx context.Context, parent string, params storage.CreateParams) (*storage.Document, error) {
	s.evict(key(parent).Join(params.Name))
	doc, err := s.next.Create(ctx, parent, params)
	if err != nil {
		return nil, err
	}
	s.store(doc)
	return doc, nil
}

func (s *Store) Move(ctx context.Context, src, dst string) (*storage.Document, error) {
	from := key(src)
	s.evict(from)
	s.evict(key(dst).Join(from.Base()))
	return s.next.Move(ctx, src, dst)
}

func (s *Store) Import(ctx context.Context, folder string, blob storage.Blob) (*storage.Document, error) {
	s.evict(key(folder).Join(blob.Name))
	doc, err := s.next.Import(ctx, folder, blob)
	if err != nil {
		return nil, err
	}
	s.store(doc)
	return doc, nil
}

func (s *Store) CheckIn(ctx context.Context, path string, increment storage.VersionIncrement) (*storage.Document, error) {
	s.evict(key(path))
	return s.next.CheckIn(ctx, path, increment)
}

func (s *Store) Attach(ctx context.Context, path, xpath string, blob storage.Blob) (*storage.Document, error) {
	s.evict(key(path))
	return s.next.Attach(ctx, path, xpath, blob)
}

// Len returns the number of cached documents.
func (s *Store) Len() int {
	return s.docs.Len()
}

func (s *Store) store(doc *storage.Document) {
	if doc == nil || doc.Path == "" {
		return
	}
	copied := *doc
	s.docs.Add(key(doc.Path), &copied)
}

// evict drops p and every cached path below it.
func (s *Store) evict(p docpath.Path) {
	for _, k := range s.docs.Keys() {
		if k.HasPrefix(p) {
			s.docs.Remove(k)
		}
	}
}
