package nuxeo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/goodtune/nx/internal/metrics"
	"github.com/goodtune/nx/internal/storage"
)

type batch struct {
	BatchID string `json:"batchId"`
}

// upload sends blob to a new batch and returns the batch id. The blob is
// always file index 0 of its batch.
func (s *Store) upload(ctx context.Context, blob storage.Blob) (string, error) {
	var b batch
	err := s.do(ctx, request{
		op:     "batch.create",
		method: http.MethodPost,
		path:   "/upload/",
	}, &b)
	if err != nil {
		return "", err
	}
	if b.BatchID == "" {
		return "", &storage.RemoteError{Op: "batch.create", Message: "server returned no batch id"}
	}

	mimeType := blob.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	header := http.Header{}
	header.Set("X-File-Name", url.PathEscape(blob.Name))
	header.Set("X-File-Type", mimeType)
	header.Set("X-File-Size", strconv.FormatInt(blob.Size, 10))

	err = s.do(ctx, request{
		op:          "batch.upload",
		method:      http.MethodPost,
		path:        "/upload/" + url.PathEscape(b.BatchID) + "/0",
		stream:      blob.Content,
		length:      blob.Size,
		contentType: "application/octet-stream",
		header:      header,
	}, nil)
	if err != nil {
		return "", err
	}
	metrics.UploadBytesTotal.Add(float64(blob.Size))

	s.logger.Debug().Str("batch", b.BatchID).Str("file", blob.Name).Int64("size", blob.Size).Msg("Blob uploaded")
	return b.BatchID, nil
}

func (s *Store) executeBatch(ctx context.Context, batchID, operation string, body automationRequest, out any) error {
	data, err := jsonBody(body)
	if err != nil {
		return err
	}
	return s.do(ctx, request{
		op:          operation,
		method:      http.MethodPost,
		path:        fmt.Sprintf("/upload/%s/0/execute/%s", url.PathEscape(batchID), operation),
		body:        data,
		contentType: "application/json",
	}, out)
}

// Import uploads blob and lets FileManager.Import create a document for it in folder
func (s *Store) Import(ctx context.Context, folder string, blob storage.Blob) (*storage.Document, error) {
	batchID, err := s.upload(ctx, blob)
	if err != nil {
		return nil, err
	}

	var doc storage.Document
	err = s.executeBatch(ctx, batchID, "FileManager.Import", automationRequest{
		Params:  map[string]any{},
		Context: map[string]any{"currentDocument": folder},
	}, &doc)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Attach uploads blob and stores it in the xpath property of the document
// with Blob.AttachOnDocument. The operation answers with the blob, so the
// document is fetched again afterwards.
func (s *Store) Attach(ctx context.Context, path, xpath string, blob storage.Blob) (*storage.Document, error) {
	if xpath == "" {
		xpath = storage.XpathContent
	}

	batchID, err := s.upload(ctx, blob)
	if err != nil {
		return nil, err
	}

	err = s.executeBatch(ctx, batchID, "Blob.AttachOnDocument", automationRequest{
		Params: map[string]any{
			"document": path,
			"save":     true,
			"xpath":    xpath,
		},
	}, nil)
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, path)
}
