package nuxeo

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goodtune/nx/internal/storage"
)

// Get fetches the document at path
func (s *Store) Get(ctx context.Context, path string) (*storage.Document, error) {
	var doc storage.Document
	err := s.do(ctx, request{
		op:     "get",
		method: http.MethodGet,
		path:   pathEndpoint(path),
	}, &doc)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Children lists every child of the document at path, following pages
func (s *Store) Children(ctx context.Context, path string) ([]storage.Document, error) {
	return s.list(ctx, "children", strings.TrimSuffix(pathEndpoint(path), "/")+"/@children", url.Values{})
}

// Query runs an NXQL query and returns all pages of results
func (s *Store) Query(ctx context.Context, nxql string) ([]storage.Document, error) {
	return s.list(ctx, "query", "/query", url.Values{"query": {nxql}})
}

func (s *Store) list(ctx context.Context, op, path string, query url.Values) ([]storage.Document, error) {
	var docs []storage.Document
	for page := 0; ; page++ {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("pageSize", strconv.Itoa(s.pageSize))
		q.Set("currentPageIndex", strconv.Itoa(page))

		var list storage.DocumentList
		err := s.do(ctx, request{
			op:     op,
			method: http.MethodGet,
			path:   path,
			query:  q,
		}, &list)
		if err != nil {
			return nil, err
		}

		docs = append(docs, list.Entries...)
		if !list.IsNextPageAvailable || len(list.Entries) == 0 {
			return docs, nil
		}
	}
}
