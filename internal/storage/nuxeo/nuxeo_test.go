package nuxeo

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/goodtune/nx/internal/config"
	"github.com/goodtune/nx/internal/storage"
)

// fakeServer is an in-memory stand-in for the REST API.
type fakeServer struct {
	t *testing.T

	mu          sync.Mutex
	docs        map[string]storage.Document
	blobs       map[string][]byte // batch id -> uploaded bytes
	names       map[string]string // batch id -> file name
	attachments map[string][]string
	requests    []string
	failGets    int // number of GETs answered with 503 before serving
	nextID      int
}

func newFakeServer(t *testing.T) (*fakeServer, *httptest.Server) {
	t.Helper()

	f := &fakeServer{
		t:           t,
		docs:        map[string]storage.Document{},
		blobs:       map[string][]byte{},
		names:       map[string]string{},
		attachments: map[string][]string{},
	}
	f.put("/", "Root", true)

	srv := httptest.NewServer(http.HandlerFunc(f.serveHTTP))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeServer) put(p, docType string, folderish bool) storage.Document {
	f.nextID++
	doc := storage.Document{
		EntityType: "document",
		UID:        "uid-" + strconv.Itoa(f.nextID),
		Path:       p,
		Type:       docType,
		Title:      path.Base(p),
	}
	if folderish {
		doc.Facets = []string{storage.FacetFolderish}
	}
	f.docs[p] = doc
	return doc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter, p string) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"entity-type": "exception",
		"status":      404,
		"code":        "org.nuxeo.ecm.core.model.NoSuchDocumentException",
		"message":     p,
	})
}

func (f *fakeServer) serveHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	if user, pass, ok := r.BasicAuth(); !ok || user != "Administrator" || pass != "secret" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"entity-type": "exception", "status": 401, "message": "unauthorized"})
		return
	}

	if r.Method == http.MethodGet && f.failGets > 0 {
		f.failGets--
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	p := strings.TrimPrefix(r.URL.Path, "/api/v1")
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(p, "/@children"):
		parent := path.Clean("/" + strings.TrimSuffix(strings.TrimPrefix(p, "/path"), "/@children"))
		if _, ok := f.docs[parent]; !ok {
			notFound(w, parent)
			return
		}
		var children []storage.Document
		for k, d := range f.docs {
			if k != "/" && path.Dir(k) == parent {
				children = append(children, d)
			}
		}
		f.page(w, r, children)

	case r.Method == http.MethodGet && strings.HasPrefix(p, "/path"):
		docPath := path.Clean("/" + strings.TrimPrefix(p, "/path"))
		doc, ok := f.docs[docPath]
		if !ok {
			notFound(w, docPath)
			return
		}
		writeJSON(w, http.StatusOK, doc)

	case r.Method == http.MethodGet && p == "/query":
		var all []storage.Document
		for k, d := range f.docs {
			if k != "/" && strings.Contains(r.URL.Query().Get("query"), d.Type) {
				all = append(all, d)
			}
		}
		f.page(w, r, all)

	case r.Method == http.MethodPost && strings.HasPrefix(p, "/automation/"):
		f.automation(w, r, strings.TrimPrefix(p, "/automation/"))

	case r.Method == http.MethodPost && p == "/upload/":
		id := "batch-" + strconv.Itoa(len(f.blobs)+1)
		f.blobs[id] = nil
		writeJSON(w, http.StatusCreated, map[string]string{"batchId": id})

	case r.Method == http.MethodPost && strings.HasPrefix(p, "/upload/") && strings.Contains(p, "/execute/"):
		parts := strings.Split(strings.TrimPrefix(p, "/upload/"), "/")
		f.executeBatch(w, r, parts[0], parts[len(parts)-1])

	case r.Method == http.MethodPost && strings.HasPrefix(p, "/upload/"):
		id := strings.Split(strings.TrimPrefix(p, "/upload/"), "/")[0]
		data, _ := io.ReadAll(r.Body)
		if size := r.Header.Get("X-File-Size"); size != strconv.Itoa(len(data)) {
			f.t.Errorf("Expected X-File-Size %d, got %s", len(data), size)
		}
		name, _ := url.PathUnescape(r.Header.Get("X-File-Name"))
		f.blobs[id] = data
		f.names[id] = name
		writeJSON(w, http.StatusCreated, map[string]string{"uploaded": "true", "batchId": id})

	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func (f *fakeServer) page(w http.ResponseWriter, r *http.Request, docs []storage.Document) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	size, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	index, _ := strconv.Atoi(r.URL.Query().Get("currentPageIndex"))
	start := min(index*size, len(docs))
	end := min(start+size, len(docs))
	writeJSON(w, http.StatusOK, storage.DocumentList{
		EntityType:          "documents",
		IsPaginable:         true,
		CurrentPageIndex:    index,
		PageSize:            size,
		IsNextPageAvailable: end < len(docs),
		Entries:             docs[start:end],
	})
}

func (f *fakeServer) automation(w http.ResponseWriter, r *http.Request, operation string) {
	var body automationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		f.t.Errorf("Failed to decode automation body: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	input, _ := body.Input.(string)

	switch operation {
	case "Document.Create":
		if _, ok := f.docs[input]; !ok {
			notFound(w, input)
			return
		}
		name, _ := body.Params["name"].(string)
		docType, _ := body.Params["type"].(string)
		target := path.Join(input, name)
		if _, exists := f.docs[target]; exists {
			writeJSON(w, http.StatusConflict, map[string]any{"entity-type": "exception", "status": 409, "message": "exists"})
			return
		}
		writeJSON(w, http.StatusOK, f.put(target, docType, docType == "Folder"))

	case "Document.Move":
		doc, ok := f.docs[input]
		if !ok {
			notFound(w, input)
			return
		}
		target, _ := body.Params["target"].(string)
		delete(f.docs, input)
		doc.Path = path.Join(target, path.Base(input))
		f.docs[doc.Path] = doc
		writeJSON(w, http.StatusOK, doc)

	case "Document.CheckIn":
		doc, ok := f.docs[input]
		if !ok {
			notFound(w, input)
			return
		}
		doc.Properties = map[string]any{"uid:major_version": 1.0, "version": body.Params["version"]}
		f.docs[input] = doc
		writeJSON(w, http.StatusOK, doc)

	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func (f *fakeServer) executeBatch(w http.ResponseWriter, r *http.Request, batchID, operation string) {
	var body automationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	name := f.names[batchID]

	switch operation {
	case "FileManager.Import":
		folder, _ := body.Context["currentDocument"].(string)
		if _, ok := f.docs[folder]; !ok {
			notFound(w, folder)
			return
		}
		writeJSON(w, http.StatusOK, f.put(path.Join(folder, name), "File", false))

	case "Blob.AttachOnDocument":
		docPath, _ := body.Params["document"].(string)
		xpath, _ := body.Params["xpath"].(string)
		f.attachments[docPath] = append(f.attachments[docPath], xpath+"="+name)
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(f.blobs[batchID])

	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func setupTestStore(t *testing.T, retries int) (*Store, *fakeServer) {
	t.Helper()

	f, srv := newFakeServer(t)
	store, err := Open(
		config.ServerConfig{URL: srv.URL + "/", Username: "Administrator", Password: "secret", Timeout: "5s"},
		config.ClientConfig{MaxRetries: retries, RetryWait: "1ms", PageSize: 2},
		zerolog.Nop(),
	)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	return store, f
}

func TestStore_Get(t *testing.T) {
	store, f := setupTestStore(t, 0)
	f.put("/default-domain", "Domain", true)
	f.put("/default-domain/my folder", "Folder", true)

	doc, err := store.Get(context.Background(), "/default-domain/my folder")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc.Path != "/default-domain/my folder" {
		t.Errorf("Expected path /default-domain/my folder, got %s", doc.Path)
	}
	if !doc.IsFolderish() {
		t.Error("Expected folder to be folderish")
	}

	_, err = store.Get(context.Background(), "/missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStore_Unauthorized(t *testing.T) {
	_, srv := newFakeServer(t)
	store, err := Open(
		config.ServerConfig{URL: srv.URL, Username: "Administrator", Password: "wrong", Timeout: "5s"},
		config.ClientConfig{RetryWait: "1ms", PageSize: 10},
		zerolog.Nop(),
	)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}

	_, err = store.Get(context.Background(), "/")
	var rerr *storage.RemoteError
	if !errors.As(err, &rerr) || rerr.Status != http.StatusUnauthorized {
		t.Fatalf("Expected 401 RemoteError, got %v", err)
	}
	if !errors.Is(err, storage.ErrRemote) {
		t.Errorf("Expected ErrRemote classification, got %v", err)
	}
}

func TestStore_ChildrenPaging(t *testing.T) {
	store, f := setupTestStore(t, 0)
	f.put("/ws", "Workspace", true)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		f.put("/ws/"+name, "File", false)
	}

	children, err := store.Children(context.Background(), "/ws")
	if err != nil {
		t.Fatalf("Children failed: %v", err)
	}
	if len(children) != 5 {
		t.Fatalf("Expected 5 children over 3 pages, got %d", len(children))
	}
	if children[0].Path != "/ws/a" || children[4].Path != "/ws/e" {
		t.Errorf("Unexpected order: %s .. %s", children[0].Path, children[4].Path)
	}
}

func TestStore_Query(t *testing.T) {
	store, f := setupTestStore(t, 0)
	f.put("/ws", "Workspace", true)
	f.put("/ws/one", "Note", false)
	f.put("/ws/two", "Note", false)
	f.put("/ws/pic", "Picture", false)

	docs, err := store.Query(context.Background(), "SELECT * FROM Note")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("Expected 2 notes, got %d", len(docs))
	}
}

func TestStore_CreateAndMove(t *testing.T) {
	store, f := setupTestStore(t, 0)
	f.put("/ws", "Workspace", true)
	f.put("/archive", "Folder", true)
	ctx := context.Background()

	doc, err := store.Create(ctx, "/ws", storage.CreateParams{Type: "Folder", Name: "reports"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if doc.Path != "/ws/reports" || doc.Type != "Folder" {
		t.Errorf("Unexpected document %+v", doc)
	}

	_, err = store.Create(ctx, "/ws", storage.CreateParams{Type: "Folder", Name: "reports"})
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("Expected ErrConflict on duplicate, got %v", err)
	}

	moved, err := store.Move(ctx, "/ws/reports", "/archive")
	if err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if moved.Path != "/archive/reports" {
		t.Errorf("Expected /archive/reports, got %s", moved.Path)
	}
}

func TestStore_ImportAndAttach(t *testing.T) {
	store, f := setupTestStore(t, 0)
	f.put("/ws", "Workspace", true)
	ctx := context.Background()

	content := "hello, repository"
	doc, err := store.Import(ctx, "/ws", storage.Blob{
		Name:     "hello world.txt",
		MimeType: "text/plain",
		Size:     int64(len(content)),
		Content:  strings.NewReader(content),
	})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if doc.Path != "/ws/hello world.txt" {
		t.Errorf("Expected imported document at /ws/hello world.txt, got %s", doc.Path)
	}
	if string(f.blobs["batch-1"]) != content {
		t.Errorf("Expected uploaded bytes %q, got %q", content, f.blobs["batch-1"])
	}

	if _, err := store.CheckIn(ctx, doc.Path, storage.VersionMajor); err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}

	attached, err := store.Attach(ctx, doc.Path, storage.XpathFiles, storage.Blob{
		Name:    "extra.pdf",
		Size:    3,
		Content: strings.NewReader("pdf"),
	})
	if err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	if attached.Path != doc.Path {
		t.Errorf("Expected attach to return %s, got %s", doc.Path, attached.Path)
	}
	if got := f.attachments[doc.Path]; len(got) != 1 || got[0] != "files:files=extra.pdf" {
		t.Errorf("Unexpected attachments %v", got)
	}
}

func TestStore_RetriesReads(t *testing.T) {
	store, f := setupTestStore(t, 3)
	f.failGets = 2

	if _, err := store.Get(context.Background(), "/"); err != nil {
		t.Fatalf("Expected Get to succeed after retries, got %v", err)
	}
	if len(f.requests) != 3 {
		t.Errorf("Expected 3 requests, got %d", len(f.requests))
	}
}

func TestStore_DoesNotRetryNotFound(t *testing.T) {
	store, f := setupTestStore(t, 3)

	_, err := store.Get(context.Background(), "/missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if len(f.requests) != 1 {
		t.Errorf("Expected a single request, got %d", len(f.requests))
	}
}

func TestStore_NoRetriesByDefault(t *testing.T) {
	store, f := setupTestStore(t, 0)
	f.failGets = 1

	_, err := store.Get(context.Background(), "/")
	if !errors.Is(err, storage.ErrRemote) {
		t.Fatalf("Expected ErrRemote, got %v", err)
	}
	if len(f.requests) != 1 {
		t.Errorf("Expected a single request, got %d", len(f.requests))
	}
}

func TestPathEndpoint(t *testing.T) {
	tests := map[string]string{
		"/":          "/path/",
		"/a/b":       "/path/a/b",
		"/a b/c#d":   "/path/a%20b/c%23d",
		"/trailing/": "/path/trailing",
	}
	for in, want := range tests {
		if got := pathEndpoint(in); got != want {
			t.Errorf("pathEndpoint(%q) = %q, want %q", in, got, want)
		}
	}
}
