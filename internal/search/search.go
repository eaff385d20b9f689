// Package search answers type-approval code queries against the record
// store, translating store sentinels into coded domain errors.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	domerrors "fahrzeugdaten/pkg/domain-errors"

	"fahrzeugdaten/internal/platform/metrics"
	"fahrzeugdaten/internal/record"
	"fahrzeugdaten/internal/sentinel"
	"fahrzeugdaten/internal/store"
	"fahrzeugdaten/internal/tracer"
)

// maxCodeLength bounds user-supplied codes; upstream TG codes are 6
// characters, older ones up to 11.
const maxCodeLength = 20

// DefaultPrefixLimit caps prefix search results when the caller passes no
// limit.
const DefaultPrefixLimit = 50

// search outcome labels.
const (
	outcomeHit    = "hit"
	outcomeMiss   = "miss"
	outcomeNoData = "no_data"
	outcomeError  = "error"
)

// StoreInfo describes the current store content.
type StoreInfo struct {
	Available   bool      `json:"available"`
	Records     int       `json:"records"`
	LastUpdated time.Time `json:"last_updated,omitzero"`
}

// Service looks up records by TG-Code.
type Service struct {
	store   store.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  tracer.Tracer
}

// NewService creates a search service.
func NewService(st store.Store, logger *slog.Logger, m *metrics.Metrics, tr tracer.Tracer) *Service {
	if tr == nil {
		tr = tracer.NewNoop()
	}
	return &Service{store: st, logger: logger, metrics: m, tracer: tr}
}

// Lookup returns the record with exactly the given TG-Code.
func (s *Service) Lookup(ctx context.Context, code string) (*record.Record, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanSearchLookup,
		tracer.String(tracer.AttrTGCode, code))

	rec, err := s.store.FindByCode(ctx, code)
	span.End(err)
	switch {
	case errors.Is(err, sentinel.ErrStoreMissing):
		s.count(outcomeNoData)
		return nil, errNoData(err)
	case errors.Is(err, sentinel.ErrNotFound):
		s.count(outcomeMiss)
		return nil, domerrors.New(domerrors.CodeNotFound,
			fmt.Sprintf("no record with type-approval code %s", code))
	case err != nil:
		s.count(outcomeError)
		s.logger.Error("record lookup failed", "tg_code", code, "error", err)
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "record lookup failed")
	}

	s.count(outcomeHit)
	return rec, nil
}

// Prefix returns records whose TG-Code starts with the given prefix, in file
// order. An absent prefix yields an empty list, not an error. limit <= 0
// applies DefaultPrefixLimit.
func (s *Service) Prefix(ctx context.Context, prefix string, limit int) ([]record.Record, error) {
	prefix, err := normalizeCode(prefix)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultPrefixLimit
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanSearchPrefix,
		tracer.String(tracer.AttrPrefix, prefix))

	records, err := s.store.SearchByPrefix(ctx, prefix, limit)
	switch {
	case errors.Is(err, sentinel.ErrStoreMissing):
		span.End(err)
		s.count(outcomeNoData)
		return nil, errNoData(err)
	case err != nil:
		span.End(err)
		s.count(outcomeError)
		s.logger.Error("prefix search failed", "prefix", prefix, "error", err)
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "prefix search failed")
	}

	span.SetAttributes(tracer.Int64(tracer.AttrMatches, int64(len(records))))
	span.End(nil)
	if len(records) == 0 {
		s.count(outcomeMiss)
	} else {
		s.count(outcomeHit)
	}
	return records, nil
}

// Info reports whether data has been imported and how much. A missing store
// is not an error here.
func (s *Service) Info(ctx context.Context) (*StoreInfo, error) {
	n, err := s.store.Count(ctx)
	if errors.Is(err, sentinel.ErrStoreMissing) {
		return &StoreInfo{}, nil
	}
	if err != nil {
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "store status failed")
	}

	info := &StoreInfo{Available: true, Records: n}
	if ts, err := s.store.LastUpdated(ctx); err == nil {
		info.LastUpdated = ts
	}
	return info, nil
}

func (s *Service) count(outcome string) {
	if s.metrics != nil {
		s.metrics.Searches.WithLabelValues(outcome).Inc()
	}
}

func errNoData(err error) error {
	return domerrors.Wrap(err, domerrors.CodeUnavailable,
		"no data imported yet, run an import first")
}

// normalizeCode trims and uppercases a user-supplied code or prefix.
func normalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", domerrors.New(domerrors.CodeInvalidInput, "type-approval code must not be empty")
	}
	if len(code) > maxCodeLength {
		return "", domerrors.New(domerrors.CodeInvalidInput, "type-approval code is too long")
	}
	return code, nil
}
