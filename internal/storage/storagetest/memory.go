// Package storagetest provides an in-memory DocumentStore for tests.
package storagetest

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/goodtune/nx/internal/docpath"
	"github.com/goodtune/nx/internal/storage"
)

// Call is one recorded store invocation, e.g. {"get", "/a"}.
type Call struct {
	Op   string
	Path string
}

func (c Call) String() string {
	return c.Op + " " + c.Path
}

// Memory is a DocumentStore keeping documents in a map. It records every
// call and can be told to fail specific operations.
type Memory struct {
	mu       sync.Mutex
	docs     map[docpath.Path]*storage.Document
	content  map[docpath.Path][]byte
	files    map[docpath.Path][]string
	versions map[docpath.Path]int
	calls    []Call
	failures map[Call]error
	nextID   int
}

var _ storage.DocumentStore = (*Memory)(nil)

// NewMemory returns a store containing only the root.
func NewMemory() *Memory {
	m := &Memory{
		docs:     map[docpath.Path]*storage.Document{},
		content:  map[docpath.Path][]byte{},
		files:    map[docpath.Path][]string{},
		versions: map[docpath.Path]int{},
		failures: map[Call]error{},
	}
	m.Put("/", "Root")
	return m
}

// Put stores a document of docType at path. Folder-like types get the
// Folderish facet.
func (m *Memory) Put(path, docType string) *storage.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.put(docpath.MustParse(path), docType)
}

func (m *Memory) put(p docpath.Path, docType string) *storage.Document {
	m.nextID++
	doc := &storage.Document{
		EntityType: "document",
		UID:        fmt.Sprintf("uid-%d", m.nextID),
		Path:       p.String(),
		Type:       docType,
		Title:      p.Base(),
	}
	switch docType {
	case "Root", "Domain", "Folder", "Workspace", "WorkspaceRoot", "OrderedFolder":
		doc.Facets = []string{storage.FacetFolderish}
	}
	m.docs[p] = doc
	return doc
}

// FailOn makes the next and every later call of op on path return err.
func (m *Memory) FailOn(op, path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[Call{op, docpath.MustParse(path).String()}] = err
}

// Calls returns the recorded calls in order.
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallCount returns how many times op was called.
func (m *Memory) CallCount(op string) int {
	n := 0
	for _, c := range m.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Reset forgets the recorded calls.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Content returns the bytes stored in file:content of the document at path.
func (m *Memory) Content(path string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.content[docpath.MustParse(path)])
}

// Files returns the names attached to files:files of the document at path.
func (m *Memory) Files(path string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.files[docpath.MustParse(path)]...)
}

// Versions returns how many times the document at path was checked in.
func (m *Memory) Versions(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.versions[docpath.MustParse(path)]
}

// record logs the call and returns the configured failure, if any.
func (m *Memory) record(op string, p docpath.Path) error {
	c := Call{op, p.String()}
	m.calls = append(m.calls, c)
	return m.failures[c]
}

func notFound(op string, p docpath.Path) error {
	return &storage.RemoteError{Op: op, Status: 404, Message: p.String()}
}

func (m *Memory) Get(ctx context.Context, path string) (*storage.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := docpath.MustParse(path)
	if err := m.record("get", p); err != nil {
		return nil, err
	}
	doc, ok := m.docs[p]
	if !ok {
		return nil, notFound("get", p)
	}
	copied := *doc
	return &copied, nil
}

func (m *Memory) Children(ctx context.Context, path string) ([]storage.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := docpath.MustParse(path)
	if err := m.record("children", p); err != nil {
		return nil, err
	}
	if _, ok := m.docs[p]; !ok {
		return nil, notFound("children", p)
	}
	var out []storage.Document
	for k, doc := range m.docs {
		if !k.IsRoot() && k.Dir() == p {
			out = append(out, *doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Query matches documents whose type appears in the query text.
func (m *Memory) Query(ctx context.Context, nxql string) ([]storage.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, Call{"query", nxql})
	var out []storage.Document
	for k, doc := range m.docs {
		if !k.IsRoot() && strings.Contains(nxql, "'"+doc.Type+"'") {
			out = append(out, *doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Create overwrites any existing document of the same name.
func (m *Memory) Create(ctx context.Context, parent string, params storage.CreateParams) (*storage.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := docpath.MustParse(parent).Join(params.Name)
	if err := m.record("create", p); err != nil {
		return nil, err
	}
	if _, ok := m.docs[p.Dir()]; !ok {
		return nil, notFound("create", p.Dir())
	}
	copied := *m.put(p, params.Type)
	return &copied, nil
}

func (m *Memory) Move(ctx context.Context, src, dst string) (*storage.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := docpath.MustParse(src)
	to := docpath.MustParse(dst)
	if err := m.record("move", from); err != nil {
		return nil, err
	}
	if _, ok := m.docs[from]; !ok {
		return nil, notFound("move", from)
	}
	if _, ok := m.docs[to]; !ok {
		return nil, notFound("move", to)
	}

	for k, doc := range m.docs {
		if !k.HasPrefix(from) {
			continue
		}
		delete(m.docs, k)
		moved := to.Join(strings.TrimPrefix(k.String(), from.Dir().String()))
		doc.Path = moved.String()
		m.docs[moved] = doc
	}
	copied := *m.docs[to.Join(from.Base())]
	return &copied, nil
}

func (m *Memory) Import(ctx context.Context, folder string, blob storage.Blob) (*storage.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := docpath.MustParse(folder).Join(blob.Name)
	if err := m.record("import", p); err != nil {
		return nil, err
	}
	if _, ok := m.docs[p.Dir()]; !ok {
		return nil, notFound("import", p.Dir())
	}
	data, err := io.ReadAll(blob.Content)
	if err != nil {
		return nil, err
	}
	doc := m.put(p, "File")
	m.content[p] = data
	copied := *doc
	return &copied, nil
}

func (m *Memory) CheckIn(ctx context.Context, path string, increment storage.VersionIncrement) (*storage.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := docpath.MustParse(path)
	if err := m.record("checkin", p); err != nil {
		return nil, err
	}
	doc, ok := m.docs[p]
	if !ok {
		return nil, notFound("checkin", p)
	}
	m.versions[p]++
	copied := *doc
	return &copied, nil
}

func (m *Memory) Attach(ctx context.Context, path, xpath string, blob storage.Blob) (*storage.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := docpath.MustParse(path)
	if err := m.record("attach", p); err != nil {
		return nil, err
	}
	doc, ok := m.docs[p]
	if !ok {
		return nil, notFound("attach", p)
	}
	data, err := io.ReadAll(blob.Content)
	if err != nil {
		return nil, err
	}
	if xpath == storage.XpathFiles {
		m.files[p] = append(m.files[p], blob.Name)
	} else {
		m.content[p] = data
	}
	copied := *doc
	return &copied, nil
}
