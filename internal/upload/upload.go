// Package upload sends local files to the repository.
package upload

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/goodtune/nx/internal/docpath"
	"github.com/goodtune/nx/internal/metrics"
	"github.com/goodtune/nx/internal/storage"
)

var (
	// ErrNotFolderish is returned when the upload destination cannot hold documents.
	ErrNotFolderish = errors.New("destination is not a folder")
	// ErrNoSources is returned when nothing was given to upload.
	ErrNoSources = errors.New("no source files given")
)

// Status is what happened to one local file.
type Status int

const (
	Uploaded Status = iota // imported as a new document
	Replaced               // existing document versioned and its content replaced
	Attached               // added to the extra files of a document
	Skipped                // target exists or the source is a directory
	Failed
)

func (s Status) String() string {
	switch s {
	case Uploaded:
		return "uploaded"
	case Replaced:
		return "replaced"
	case Attached:
		return "attached"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result reports the outcome for one source file.
type Result struct {
	Source   string
	Target   docpath.Path
	Status   Status
	Reason   string // why a file was skipped
	Document *storage.Document
	Err      error
}

// Uploader reads local files from an afero filesystem and stores them remotely.
type Uploader struct {
	store  storage.DocumentStore
	fs     afero.Fs
	logger zerolog.Logger
}

// New creates an Uploader. Pass afero.NewOsFs() for the local disk.
func New(store storage.DocumentStore, fs afero.Fs, logger zerolog.Logger) *Uploader {
	return &Uploader{
		store:  store,
		fs:     fs,
		logger: logger.With().Str("component", "upload").Logger(),
	}
}

// ToFolder uploads each source into folder under its own base name. Existing
// documents are skipped unless force is set, in which case a major version is
// checked in before the content is replaced. Failures of individual sources
// do not stop the others; they are collected into the returned error.
func (u *Uploader) ToFolder(ctx context.Context, folder docpath.Path, sources []string, force bool) ([]Result, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	if err := u.checkFolder(ctx, folder); err != nil {
		return nil, err
	}

	var (
		results []Result
		errs    *multierror.Error
	)
	for _, src := range sources {
		r := u.put(ctx, src, folder.Join(filepath.Base(src)), force)
		results = append(results, r)
		if r.Err != nil {
			errs = multierror.Append(errs, r.Err)
		}
	}
	return results, errs.ErrorOrNil()
}

// ToDocument uploads source into the parent of target, named after the last
// segment of target whatever the local file name.
func (u *Uploader) ToDocument(ctx context.Context, target docpath.Path, source string, force bool) (Result, error) {
	if target.IsRoot() {
		return Result{}, fmt.Errorf("cannot upload to the repository root: %w", docpath.ErrInvalidPath)
	}
	if err := u.checkFolder(ctx, target.Dir()); err != nil {
		return Result{}, err
	}

	r := u.put(ctx, source, target, force)
	return r, r.Err
}

// ExtraFiles appends each source to the files:files list of the document at target.
func (u *Uploader) ExtraFiles(ctx context.Context, target docpath.Path, sources []string) ([]Result, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	if _, err := u.store.Get(ctx, target.String()); err != nil {
		return nil, fmt.Errorf("document %s: %w", target, err)
	}

	var (
		results []Result
		errs    *multierror.Error
	)
	for _, src := range sources {
		r := u.attach(ctx, src, target)
		results = append(results, r)
		if r.Err != nil {
			errs = multierror.Append(errs, r.Err)
		}
	}
	return results, errs.ErrorOrNil()
}

func (u *Uploader) checkFolder(ctx context.Context, folder docpath.Path) error {
	doc, err := u.store.Get(ctx, folder.String())
	if err != nil {
		return fmt.Errorf("folder %s: %w", folder, err)
	}
	if !doc.IsFolderish() {
		return fmt.Errorf("%s (%s): %w", folder, doc.Type, ErrNotFolderish)
	}
	return nil
}

// put uploads src to target, which lies directly below an existing folder.
func (u *Uploader) put(ctx context.Context, src string, target docpath.Path, force bool) Result {
	blob, closeFn, r := u.open(src, target)
	if r != nil {
		return u.record(*r)
	}
	defer closeFn()
	blob.Name = target.Base()

	existing, err := u.store.Get(ctx, target.String())
	switch {
	case err == nil && !force:
		return u.record(Result{Source: src, Target: target, Status: Skipped, Reason: "exists", Document: existing})
	case err == nil:
		if _, err := u.store.CheckIn(ctx, target.String(), storage.VersionMajor); err != nil {
			return u.record(Result{Source: src, Target: target, Status: Failed, Err: fmt.Errorf("check in %s: %w", target, err)})
		}
		doc, err := u.store.Attach(ctx, target.String(), storage.XpathContent, blob)
		if err != nil {
			return u.record(Result{Source: src, Target: target, Status: Failed, Err: fmt.Errorf("replace %s with %s: %w", target, src, err)})
		}
		return u.record(Result{Source: src, Target: target, Status: Replaced, Document: doc})
	case errors.Is(err, storage.ErrNotFound):
	default:
		return u.record(Result{Source: src, Target: target, Status: Failed, Err: fmt.Errorf("%s: %w", target, err)})
	}

	doc, err := u.store.Import(ctx, target.Dir().String(), blob)
	if err != nil {
		return u.record(Result{Source: src, Target: target, Status: Failed, Err: fmt.Errorf("upload %s to %s: %w", src, target, err)})
	}
	return u.record(Result{Source: src, Target: target, Status: Uploaded, Document: doc})
}

// attach appends src to the extra files of target.
func (u *Uploader) attach(ctx context.Context, src string, target docpath.Path) Result {
	blob, closeFn, r := u.open(src, target)
	if r != nil {
		return u.record(*r)
	}
	defer closeFn()

	doc, err := u.store.Attach(ctx, target.String(), storage.XpathFiles, blob)
	if err != nil {
		return u.record(Result{Source: src, Target: target, Status: Failed, Err: fmt.Errorf("attach %s to %s: %w", src, target, err)})
	}
	return u.record(Result{Source: src, Target: target, Status: Attached, Document: doc})
}

// open prepares src as a blob. A non-nil Result means src cannot be sent.
func (u *Uploader) open(src string, target docpath.Path) (storage.Blob, func(), *Result) {
	info, err := u.fs.Stat(src)
	if err != nil {
		return storage.Blob{}, nil, &Result{Source: src, Target: target, Status: Failed, Err: fmt.Errorf("stat %s: %w", src, err)}
	}
	if info.IsDir() {
		u.logger.Warn().Str("source", src).Msg("Skipping directory")
		return storage.Blob{}, nil, &Result{Source: src, Target: target, Status: Skipped, Reason: "directory"}
	}

	f, err := u.fs.Open(src)
	if err != nil {
		return storage.Blob{}, nil, &Result{Source: src, Target: target, Status: Failed, Err: fmt.Errorf("open %s: %w", src, err)}
	}

	return storage.Blob{
		Name:     info.Name(),
		MimeType: mimeType(src),
		Size:     info.Size(),
		Content:  f,
	}, func() { f.Close() }, nil
}

func mimeType(name string) string {
	t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if t == "" {
		return "application/octet-stream"
	}
	return t
}

func (u *Uploader) record(r Result) Result {
	metrics.UploadsTotal.WithLabelValues(r.Status.String()).Inc()

	event := u.logger.Info()
	if r.Err != nil {
		event = u.logger.Error().Err(r.Err)
	}
	event.Str("source", r.Source).Str("target", r.Target.String()).Str("status", r.Status.String()).Msg("Processed file")
	return r
}
