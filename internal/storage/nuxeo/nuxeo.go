// Package nuxeo implements storage.DocumentStore on top of the Nuxeo REST API.
package nuxeo

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/goodtune/nx/internal/config"
	"github.com/goodtune/nx/internal/metrics"
	"github.com/goodtune/nx/internal/storage"
)

const apiPrefix = "/api/v1"

// Store implements the storage.DocumentStore interface using the REST API
type Store struct {
	baseURL      string
	username     string
	password     string
	token        string
	client       *http.Client
	uploadClient *http.Client
	maxRetries   int
	retryWait    time.Duration
	pageSize     int
	logger       zerolog.Logger
}

var _ storage.DocumentStore = (*Store)(nil)

// Open creates a new REST-backed document store. No request is sent until
// the store is used.
func Open(server config.ServerConfig, client config.ClientConfig, logger zerolog.Logger) (*Store, error) {
	timeout, err := time.ParseDuration(server.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout: %w", err)
	}

	retryWait, err := time.ParseDuration(client.RetryWait)
	if err != nil {
		return nil, fmt.Errorf("invalid retry_wait: %w", err)
	}

	if _, err := url.Parse(server.URL); err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}

	pageSize := client.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if server.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Store{
		baseURL:  strings.TrimRight(server.URL, "/") + apiPrefix,
		username: server.Username,
		password: server.Password,
		token:    server.Token,
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		// Blob transfers are bounded by the caller's context only.
		uploadClient: &http.Client{Transport: transport},
		maxRetries:   client.MaxRetries,
		retryWait:    retryWait,
		pageSize:     pageSize,
		logger:       logger.With().Str("component", "nuxeo").Logger(),
	}, nil
}

// request is one REST call.
type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        []byte
	stream      io.Reader // used instead of body for blob uploads
	length      int64
	contentType string
	header      http.Header
}

// exception is the error entity returned by the server.
type exception struct {
	EntityType string `json:"entity-type"`
	Status     int    `json:"status"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// do executes a request and decodes a JSON answer into out when out is not nil.
// Read-only requests are retried on transport failures and 5xx answers.
func (s *Store) do(ctx context.Context, r request, out any) error {
	if r.method != http.MethodGet || s.maxRetries == 0 {
		return s.attempt(ctx, r, out)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retryWait
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.maxRetries)), ctx)

	return backoff.RetryNotify(func() error {
		err := s.attempt(ctx, r, out)
		if err == nil {
			return nil
		}
		var rerr *storage.RemoteError
		if errors.As(err, &rerr) && (rerr.Kind() != storage.ErrRemote || (rerr.Status != 0 && rerr.Status < 500)) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		s.logger.Warn().Err(err).Str("op", r.op).Dur("wait", wait).Msg("Retrying request")
	})
}

func (s *Store) attempt(ctx context.Context, r request, out any) error {
	endpoint := s.baseURL + r.path
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}

	var body io.Reader
	switch {
	case r.stream != nil:
		body = r.stream
	case r.body != nil:
		body = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, body)
	if err != nil {
		return &storage.RemoteError{Op: r.op, Cause: fmt.Errorf("failed to create request: %w", err)}
	}
	if r.stream != nil && r.length >= 0 {
		req.ContentLength = r.length
	}

	for k, values := range r.header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("properties", "dublincore")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if s.token != "" {
		req.Header.Set("X-Authentication-Token", s.token)
	} else if s.username != "" {
		req.SetBasicAuth(s.username, s.password)
	}

	client := s.client
	if r.stream != nil {
		client = s.uploadClient
	}

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	metrics.RemoteRequestDuration.WithLabelValues(r.op).Observe(elapsed.Seconds())
	if err != nil {
		metrics.RemoteRequestsTotal.WithLabelValues(r.op, "error").Inc()
		s.logger.Debug().Err(err).Str("op", r.op).Str("url", endpoint).Msg("Request failed")
		return &storage.RemoteError{Op: r.op, Cause: err}
	}
	defer resp.Body.Close()

	metrics.RemoteRequestsTotal.WithLabelValues(r.op, strconv.Itoa(resp.StatusCode)).Inc()
	s.logger.Debug().
		Str("op", r.op).
		Str("method", r.method).
		Str("url", endpoint).
		Int("status", resp.StatusCode).
		Dur("duration", elapsed).
		Msg("Remote request")

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &storage.RemoteError{Op: r.op, Status: resp.StatusCode, Cause: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rerr := &storage.RemoteError{Op: r.op, Status: resp.StatusCode}
		var exc exception
		if err := json.Unmarshal(respBody, &exc); err == nil && (exc.Message != "" || exc.Code != "") {
			rerr.Code = exc.Code
			rerr.Message = exc.Message
		} else {
			rerr.Message = strings.TrimSpace(string(respBody))
		}
		return rerr
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return &storage.RemoteError{Op: r.op, Status: resp.StatusCode, Cause: fmt.Errorf("failed to decode response: %w", err)}
		}
	}

	return nil
}

// pathEndpoint returns the REST path addressing a document by repository path.
func pathEndpoint(docPath string) string {
	var parts []string
	for _, p := range strings.Split(docPath, "/") {
		if p == "" {
			continue
		}
		parts = append(parts, url.PathEscape(p))
	}
	return "/path/" + strings.Join(parts, "/")
}

func jsonBody(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return data, nil
}
