// Package ensure makes sure documents exist at repository paths, creating
// missing parents one level at a time.
package ensure

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/goodtune/nx/internal/docpath"
	"github.com/goodtune/nx/internal/metrics"
	"github.com/goodtune/nx/internal/storage"
)

// ErrEmptyType is returned when no document type is given.
var ErrEmptyType = errors.New("document type must not be empty")

// Result is the outcome of ensuring a single path.
type Result int

const (
	// Created means a create call succeeded for the path.
	Created Result = iota
	// AlreadyExists means the create call reported a conflict.
	AlreadyExists
	// SkippedExisting means the document was found and left untouched.
	SkippedExisting
	// Failed means the path could not be ensured. See Outcome.Err.
	Failed
)

func (r Result) String() string {
	switch r {
	case Created:
		return "created"
	case AlreadyExists:
		return "exists"
	case SkippedExisting:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Outcome reports what happened at one path.
type Outcome struct {
	Path     docpath.Path
	Result   Result
	Document *storage.Document // nil unless the document was found or created
	Err      error             // set when Result is Failed
}

// Ensurer runs ensure sequences against a document store.
type Ensurer struct {
	store  storage.DocumentStore
	logger zerolog.Logger
}

// New creates an Ensurer backed by store.
func New(store storage.DocumentStore, logger zerolog.Logger) *Ensurer {
	return &Ensurer{
		store:  store,
		logger: logger.With().Str("component", "ensure").Logger(),
	}
}

func check(p docpath.Path, docType string) error {
	if p.IsRoot() {
		return fmt.Errorf("cannot ensure the repository root: %w", docpath.ErrInvalidPath)
	}
	if docType == "" {
		return ErrEmptyType
	}
	return nil
}

// Document ensures a document of docType exists at p, without looking at
// its parents. With force set an existing document is created again.
func (e *Ensurer) Document(ctx context.Context, p docpath.Path, docType string, force bool) Outcome {
	if err := check(p, docType); err != nil {
		return e.record(Outcome{Path: p, Result: Failed, Err: err})
	}
	return e.record(e.ensure(ctx, p, docType, force))
}

// Path ensures every ancestor of p, from the shallowest down to p itself.
// It stops at the first failure; the returned outcomes end with the failed
// one and the error names the offending path.
func (e *Ensurer) Path(ctx context.Context, p docpath.Path, docType string, force bool) ([]Outcome, error) {
	if err := check(p, docType); err != nil {
		return nil, err
	}

	ancestors := p.Ancestors()
	outcomes := make([]Outcome, 0, len(ancestors))
	for _, a := range ancestors {
		o := e.record(e.ensure(ctx, a, docType, force))
		outcomes = append(outcomes, o)
		if o.Result == Failed {
			return outcomes, o.Err
		}
	}
	return outcomes, nil
}

func (e *Ensurer) ensure(ctx context.Context, p docpath.Path, docType string, force bool) Outcome {
	doc, err := e.store.Get(ctx, p.String())
	switch {
	case err == nil && !force:
		return Outcome{Path: p, Result: SkippedExisting, Document: doc}
	case err == nil:
		e.logger.Debug().Str("path", p.String()).Msg("Document exists, forcing creation")
	case errors.Is(err, storage.ErrNotFound):
	default:
		return Outcome{Path: p, Result: Failed, Err: fmt.Errorf("ensure %s: %w", p, err)}
	}

	created, err := e.store.Create(ctx, p.Dir().String(), storage.CreateParams{
		Type: docType,
		Name: p.Base(),
	})
	switch {
	case err == nil:
		return Outcome{Path: p, Result: Created, Document: created}
	case errors.Is(err, storage.ErrConflict):
		return Outcome{Path: p, Result: AlreadyExists, Document: doc}
	default:
		return Outcome{Path: p, Result: Failed, Err: fmt.Errorf("ensure %s: %w", p, err)}
	}
}

func (e *Ensurer) record(o Outcome) Outcome {
	metrics.EnsureOutcomesTotal.WithLabelValues(o.Result.String()).Inc()

	event := e.logger.Debug()
	if o.Result == Failed {
		event = e.logger.Warn().Err(o.Err)
	}
	event.Str("path", o.Path.String()).Str("result", o.Result.String()).Msg("Ensured document")
	return o
}
