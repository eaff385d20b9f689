// Package importer turns the downloaded source file into store records and
// orchestrates the check/download/import refresh cycle.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"fahrzeugdaten/internal/fetch"
	"fahrzeugdaten/internal/platform/metrics"
	"fahrzeugdaten/internal/sentinel"
	"fahrzeugdaten/internal/store"
	"fahrzeugdaten/internal/tracer"
)

// Fetcher is the part of the fetch client the importer needs.
type Fetcher interface {
	Check(ctx context.Context, localModified time.Time) fetch.CheckResult
	Download(ctx context.Context, dest string) error
}

// Summary describes one completed import.
type Summary struct {
	JobID        string        `json:"job_id"`
	RowsRead     int           `json:"rows_read"`
	RowsImported int           `json:"rows_imported"`
	RowsSkipped  int           `json:"rows_skipped"`
	Duration     time.Duration `json:"-"`
}

// RefreshResult describes one refresh cycle. Summary is nil when no import
// ran.
type RefreshResult struct {
	Status   fetch.Status `json:"status"`
	Forced   bool         `json:"forced,omitempty"`
	Imported bool         `json:"imported"`
	Summary  *Summary     `json:"summary,omitempty"`
}

// Importer replaces the record store from freshly downloaded source files.
type Importer struct {
	fetcher    Fetcher
	store      store.Store
	sourcePath string
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     tracer.Tracer
	group      singleflight.Group
}

// New creates an importer writing downloads to sourcePath.
func New(fetcher Fetcher, st store.Store, sourcePath string, logger *slog.Logger, m *metrics.Metrics, tr tracer.Tracer) *Importer {
	if tr == nil {
		tr = tracer.NewNoop()
	}
	return &Importer{
		fetcher:    fetcher,
		store:      st,
		sourcePath: sourcePath,
		logger:     logger,
		metrics:    m,
		tracer:     tr,
	}
}

// Refresh runs one check/download/import cycle. Concurrent callers share a
// single in-flight refresh. With force set the update check is skipped and
// the file is downloaded unconditionally.
func (im *Importer) Refresh(ctx context.Context, force bool) (*RefreshResult, error) {
	v, err, _ := im.group.Do("refresh", func() (any, error) {
		return im.refresh(ctx, force)
	})
	if v == nil {
		return nil, err
	}
	return v.(*RefreshResult), err
}

func (im *Importer) refresh(ctx context.Context, force bool) (*RefreshResult, error) {
	result := &RefreshResult{Forced: force}

	if !force {
		local, err := im.store.LastUpdated(ctx)
		if err != nil && !errors.Is(err, sentinel.ErrStoreMissing) {
			return nil, fmt.Errorf("determine local data age: %w", err)
		}

		check := im.fetcher.Check(ctx, local)
		result.Status = check.Status
		switch check.Status {
		case fetch.StatusUpToDate:
			im.logger.Info("local data is current, skipping import")
			return result, nil
		case fetch.StatusTimeout, fetch.StatusError:
			return result, check.Err
		}
	}

	if err := im.fetcher.Download(ctx, im.sourcePath); err != nil {
		return result, err
	}

	summary, err := im.Import(ctx, im.sourcePath)
	if err != nil {
		return result, err
	}
	result.Imported = true
	result.Summary = summary
	return result, nil
}

// Import parses the source file at path, replaces the store content with it
// and deletes the file. The file is left in place when anything fails.
func (im *Importer) Import(ctx context.Context, path string) (*Summary, error) {
	jobID := uuid.NewString()
	ctx, span := im.tracer.Start(ctx, tracer.SpanImportRun,
		tracer.String(tracer.AttrJobID, jobID))
	start := time.Now()

	summary, err := im.run(ctx, jobID, path)
	if err != nil {
		span.End(err)
		return nil, err
	}
	summary.Duration = time.Since(start)

	span.SetAttributes(
		tracer.Int64(tracer.AttrRowsRead, int64(summary.RowsRead)),
		tracer.Int64(tracer.AttrRowsSkipped, int64(summary.RowsSkipped)))
	span.End(nil)

	if im.metrics != nil {
		im.metrics.ImportDuration.Observe(summary.Duration.Seconds())
		im.metrics.RecordsImported.Add(float64(summary.RowsImported))
		im.metrics.RowsSkipped.Add(float64(summary.RowsSkipped))
		im.metrics.StoreRecords.Set(float64(summary.RowsImported))
	}

	im.logger.Info("import completed",
		"job_id", jobID,
		"rows_read", summary.RowsRead,
		"rows_imported", summary.RowsImported,
		"rows_skipped", summary.RowsSkipped,
		"duration", summary.Duration.String())
	return summary, nil
}

func (im *Importer) run(ctx context.Context, jobID, path string) (*Summary, error) {
	parsed, err := parseFile(path, im.logger)
	if err != nil {
		return nil, err
	}
	if len(parsed.snapshot.Records) == 0 {
		return nil, fmt.Errorf("source file %s contains no usable records", path)
	}

	if err := im.store.ReplaceAll(ctx, parsed.snapshot); err != nil {
		return nil, fmt.Errorf("replace store content: %w", err)
	}

	// The source file only matters until its content is in the store.
	if err := os.Remove(path); err != nil {
		im.logger.Warn("could not delete imported source file", "path", path, "error", err)
	}

	return &Summary{
		JobID:        jobID,
		RowsRead:     parsed.rowsRead,
		RowsImported: len(parsed.snapshot.Records),
		RowsSkipped:  parsed.rowsSkipped,
	}, nil
}
