package nuxeo

import (
	"context"
	"net/http"

	"github.com/goodtune/nx/internal/storage"
)

// automationRequest is the body of an automation operation call.
type automationRequest struct {
	Input   any            `json:"input,omitempty"`
	Params  map[string]any `json:"params"`
	Context map[string]any `json:"context,omitempty"`
}

func (s *Store) execute(ctx context.Context, operation string, body automationRequest) (*storage.Document, error) {
	data, err := jsonBody(body)
	if err != nil {
		return nil, err
	}

	var doc storage.Document
	err = s.do(ctx, request{
		op:          operation,
		method:      http.MethodPost,
		path:        "/automation/" + operation,
		body:        data,
		contentType: "application/json",
	}, &doc)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Create creates a document below parent with Document.Create
func (s *Store) Create(ctx context.Context, parent string, params storage.CreateParams) (*storage.Document, error) {
	title := params.Title
	if title == "" {
		title = params.Name
	}
	return s.execute(ctx, "Document.Create", automationRequest{
		Input: parent,
		Params: map[string]any{
			"type":       params.Type,
			"name":       params.Name,
			"properties": map[string]any{"dc:title": title},
		},
	})
}

// Move moves src into the folder dst with Document.Move
func (s *Store) Move(ctx context.Context, src, dst string) (*storage.Document, error) {
	return s.execute(ctx, "Document.Move", automationRequest{
		Input:  src,
		Params: map[string]any{"target": dst},
	})
}

// CheckIn creates a new version of the document with Document.CheckIn
func (s *Store) CheckIn(ctx context.Context, path string, increment storage.VersionIncrement) (*storage.Document, error) {
	return s.execute(ctx, "Document.CheckIn", automationRequest{
		Input:  path,
		Params: map[string]any{"version": string(increment)},
	})
}
