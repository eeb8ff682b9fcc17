// Package report renders analysis records as paginated PDF documents and
// plain-text terminal summaries.
package report

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/property-cli/internal/model"
)

var unsafeID = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Filename is the deterministic file name of the report for a record id.
func Filename(id string) string {
	safe := unsafeID.ReplaceAllString(id, "_")
	if safe == "" {
		safe = "unknown"
	}
	return "property-analysis-" + safe + ".pdf"
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithFacilityCap sets how many facilities are listed per category.
func WithFacilityCap(n int) Option {
	return func(e *Exporter) {
		e.facilityCap = n
	}
}

// WithCanvas replaces the PDF canvas factory.
func WithCanvas(fn func(title string) Canvas) Option {
	return func(e *Exporter) {
		e.newCanvas = fn
	}
}

// WithClock sets the time printed in the header.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		e.now = now
	}
}

// Exporter writes report files into a directory.
type Exporter struct {
	dir         string
	facilityCap int
	newCanvas   func(title string) Canvas
	now         func() time.Time
}

// NewExporter creates an Exporter writing into dir.
func NewExporter(dir string, opts ...Option) *Exporter {
	e := &Exporter{
		dir:         dir,
		facilityCap: DefaultFacilityCap,
		newCanvas:   NewPDFCanvas,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render writes the report for rec to w. entry supplies query context when
// the record lacks it and may be nil.
func (e *Exporter) Render(w io.Writer, rec *model.AnalysisRecord, entry *model.HistoryEntry) error {
	if rec == nil {
		return eris.New("report: no record")
	}
	c := e.newCanvas("Property Analysis " + rec.ID)
	render(c, *rec, entry, e.facilityCap, e.now())
	return c.Output(w)
}

// Export renders rec into the output directory and returns the file path.
// The document is rendered in memory and moved into place with a rename, so
// a failure never leaves a partial file behind.
func (e *Exporter) Export(ctx context.Context, rec *model.AnalysisRecord, entry *model.HistoryEntry) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", eris.Wrap(err, "report: export")
	}
	if rec == nil || rec.ID == "" {
		return "", eris.New("report: export: record has no id")
	}

	var buf bytes.Buffer
	if err := e.Render(&buf, rec, entry); err != nil {
		return "", err
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "report: create dir %s", e.dir)
	}
	path := filepath.Join(e.dir, Filename(rec.ID))
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return "", err
	}

	zap.L().Info("report: exported",
		zap.String("id", rec.ID),
		zap.String("path", path),
		zap.Int("bytes", buf.Len()),
	)
	return path, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrap(err, "report: create temp file")
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		cleanup()
		return eris.Wrap(err, "report: write temp file")
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return eris.Wrap(err, "report: close temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return eris.Wrapf(err, "report: move into place %s", path)
	}
	return nil
}
