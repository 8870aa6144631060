// Package report prints command results for humans.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/goodtune/nx/internal/ensure"
	"github.com/goodtune/nx/internal/storage"
	"github.com/goodtune/nx/internal/upload"
)

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

var (
	cyan   = color.New(color.FgCyan, color.Bold)
	green  = color.New(color.FgGreen, color.Bold)
	yellow = color.New(color.FgYellow, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
)

// Printer writes reports to w.
type Printer struct {
	w io.Writer
}

// New returns a Printer writing to w.
func New(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Document prints one line per document: uid, type and path separated by tabs.
func (p *Printer) Document(doc storage.Document) {
	fmt.Fprintf(p.w, "%s\t%s\t%s\n", doc.UID, doc.Type, doc.Path)
}

// Documents prints each document on its own line.
func (p *Printer) Documents(docs []storage.Document) {
	for _, doc := range docs {
		p.Document(doc)
	}
}

func ensureColor(r ensure.Result) *color.Color {
	switch r {
	case ensure.Created:
		return green
	case ensure.AlreadyExists:
		return cyan
	case ensure.SkippedExisting:
		return yellow
	default:
		return red
	}
}

// Outcomes prints ensure outcomes, one per path.
func (p *Printer) Outcomes(outcomes []ensure.Outcome) {
	for _, o := range outcomes {
		ensureColor(o.Result).Fprintf(p.w, "%-8s", strings.ToUpper(o.Result.String()))
		fmt.Fprintf(p.w, " %s", o.Path)
		if o.Err != nil {
			fmt.Fprintf(p.w, ": %v", o.Err)
		}
		fmt.Fprintln(p.w)
	}
}

func uploadColor(s upload.Status) *color.Color {
	switch s {
	case upload.Uploaded, upload.Attached:
		return green
	case upload.Replaced:
		return cyan
	case upload.Skipped:
		return yellow
	default:
		return red
	}
}

// Uploads prints one line per processed local file.
func (p *Printer) Uploads(results []upload.Result) {
	for _, r := range results {
		uploadColor(r.Status).Fprintf(p.w, "%-8s", strings.ToUpper(r.Status.String()))
		fmt.Fprintf(p.w, " %s -> %s", r.Source, r.Target)
		switch {
		case r.Err != nil:
			fmt.Fprintf(p.w, ": %v", r.Err)
		case r.Reason != "":
			fmt.Fprintf(p.w, " (%s)", r.Reason)
		}
		fmt.Fprintln(p.w)
	}
}

// Stat prints a summary box for the document at path. A nil doc reports it
// as missing.
func (p *Printer) Stat(path string, doc *storage.Document) {
	fmt.Fprintln(p.w)
	cyan.Fprintln(p.w, rule)
	cyan.Fprintln(p.w, "DOCUMENT STATUS")
	cyan.Fprintln(p.w, rule)
	fmt.Fprintln(p.w)

	fmt.Fprintf(p.w, "Path:       %s\n", path)
	fmt.Fprint(p.w, "Status:     ")
	if doc == nil {
		red.Fprintln(p.w, "MISSING")
		fmt.Fprintln(p.w, "            → 'nx mkdoc -p' will create it")
	} else {
		green.Fprintln(p.w, "EXISTS")
		fmt.Fprintf(p.w, "UID:        %s\n", doc.UID)
		fmt.Fprintf(p.w, "Type:       %s\n", doc.Type)
		if doc.Title != "" {
			fmt.Fprintf(p.w, "Title:      %s\n", doc.Title)
		}
		if doc.State != "" {
			fmt.Fprintf(p.w, "State:      %s\n", doc.State)
		}
		folderish := "no"
		if doc.IsFolderish() {
			folderish = "yes"
		}
		fmt.Fprintf(p.w, "Folderish:  %s\n", folderish)
		if len(doc.Facets) > 0 {
			fmt.Fprintf(p.w, "Facets:     %s\n", strings.Join(doc.Facets, ", "))
		}
	}

	fmt.Fprintln(p.w)
	cyan.Fprintln(p.w, rule)
	fmt.Fprintln(p.w)
}
