package history

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/property-cli/internal/model"
)

// Exporter renders one analysis to a file and returns its path. entry may
// be nil when the record is not in the loaded list.
type Exporter interface {
	Export(ctx context.Context, rec *model.AnalysisRecord, entry *model.HistoryEntry) (string, error)
}

// ExportResult is the outcome for one entry of ExportAll.
type ExportResult struct {
	ID   string
	Path string
	Err  error
}

// Export resolves id and hands it to exp. A failed detail lookup returns the
// error before the exporter runs, so no file is produced.
func (s *Service) Export(ctx context.Context, id string, exp Exporter) (string, error) {
	rec, err := s.Detail(ctx, id)
	if err != nil {
		return "", err
	}
	var entry *model.HistoryEntry
	if e, ok := s.Entry(id); ok {
		entry = &e
	}
	path, err := exp.Export(ctx, rec, entry)
	if err != nil {
		return "", eris.Wrapf(err, "history: export %s", id)
	}
	return path, nil
}

// ExportAll exports every listed entry, running up to concurrency exports
// at once. Individual failures are reported in the results and do not stop
// the others.
func (s *Service) ExportAll(ctx context.Context, exp Exporter, concurrency int) ([]ExportResult, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([]ExportResult, len(entries))
	var mu sync.Mutex
	failed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, e := range entries {
		g.Go(func() error {
			path, err := s.Export(gctx, e.ID, exp)
			results[i] = ExportResult{ID: e.ID, Path: path, Err: err}
			if err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				zap.L().Warn("history: export failed", zap.String("id", e.ID), zap.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	zap.L().Info("history: export complete",
		zap.Int("total", len(entries)),
		zap.Int("failed", failed),
	)
	return results, nil
}
