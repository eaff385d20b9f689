// Package httptransport is the thin HTTP layer over the search and refresh
// services: the JSON API, the export downloads and the embedded search page.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	domerrors "fahrzeugdaten/pkg/domain-errors"
	"fahrzeugdaten/pkg/platform/httputil"

	"fahrzeugdaten/internal/export"
	"fahrzeugdaten/internal/format"
	"fahrzeugdaten/internal/i18n"
	"fahrzeugdaten/internal/importer"
	"fahrzeugdaten/internal/platform/middleware"
	"fahrzeugdaten/internal/record"
	"fahrzeugdaten/internal/search"
)

// SearchService is the part of the search service the handler needs.
type SearchService interface {
	Lookup(ctx context.Context, code string) (*record.Record, error)
	Prefix(ctx context.Context, prefix string, limit int) ([]record.Record, error)
	Info(ctx context.Context) (*search.StoreInfo, error)
}

// Refresher triggers a check/download/import cycle.
type Refresher interface {
	Refresh(ctx context.Context, force bool) (*importer.RefreshResult, error)
}

// Handler handles all vehicle endpoints.
type Handler struct {
	logger      *slog.Logger
	search      SearchService
	refresher   Refresher
	formatter   *format.Formatter
	exporter    *export.Exporter
	translator  *i18n.Translator
	defaultLang string
}

// New creates a new Handler.
func New(searchSvc SearchService, refresher Refresher, formatter *format.Formatter, exporter *export.Exporter, translator *i18n.Translator, defaultLang string, logger *slog.Logger) *Handler {
	return &Handler{
		logger:      logger,
		search:      searchSvc,
		refresher:   refresher,
		formatter:   formatter,
		exporter:    exporter,
		translator:  translator,
		defaultLang: defaultLang,
	}
}

// Register registers the API routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/vehicles", h.handlePrefixSearch)
	r.Get("/api/vehicles/{code}", h.handleLookup)
	r.Get("/api/vehicles/{code}/export", h.handleExport)
	r.Get("/api/compare", h.handleCompare)
	r.Get("/api/info", h.handleInfo)
}

// RegisterRefresh registers the refresh route, guarded separately so the
// admin token middleware only wraps this one.
func (h *Handler) RegisterRefresh(r chi.Router) {
	r.Post("/api/refresh", h.handleRefresh)
}

// lang picks the response language from the lang query parameter, falling
// back to the configured default for unknown values.
func (h *Handler) lang(r *http.Request) string {
	lang := r.URL.Query().Get("lang")
	for _, supported := range i18n.Languages {
		if lang == supported {
			return lang
		}
	}
	return h.defaultLang
}

// vehicleResponse is the JSON shape for a single formatted record.
type vehicleResponse struct {
	Code   string         `json:"code"`
	Fields []format.Field `json:"fields"`
}

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := chi.URLParam(r, "code")

	rec, err := h.search.Lookup(ctx, code)
	if err != nil {
		h.logLookupFailure(ctx, code, err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, vehicleResponse{
		Code:   rec.Code,
		Fields: h.formatter.Datasheet(rec, h.lang(r)),
	})
}

// matchResponse is one row in a prefix search result.
type matchResponse struct {
	Code  string `json:"code"`
	Brand string `json:"brand"`
	Type  string `json:"type"`
}

// matchesResponse is the JSON shape for a prefix search.
type matchesResponse struct {
	Prefix  string          `json:"prefix"`
	Count   int             `json:"count"`
	Results []matchResponse `json:"results"`
}

func (h *Handler) handlePrefixSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	prefix := r.URL.Query().Get("prefix")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httputil.WriteError(w, domerrors.New(domerrors.CodeBadRequest, "limit must be a positive number"))
			return
		}
		limit = n
	}

	records, err := h.search.Prefix(ctx, prefix, limit)
	if err != nil {
		h.logLookupFailure(ctx, prefix, err)
		httputil.WriteError(w, err)
		return
	}

	resp := matchesResponse{Prefix: prefix, Count: len(records), Results: []matchResponse{}}
	for _, rec := range records {
		resp.Results = append(resp.Results, matchResponse{
			Code:  rec.Code,
			Brand: rec.Brand(),
			Type:  rec.Type(),
		})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := chi.URLParam(r, "code")
	lang := h.lang(r)

	rec, err := h.search.Lookup(ctx, code)
	if err != nil {
		h.logLookupFailure(ctx, code, err)
		httputil.WriteError(w, err)
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", attachment(rec.Code, "txt"))
		err = h.exporter.Text(w, rec, lang)
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", attachment(rec.Code, "csv"))
		err = h.exporter.CSV(w, rec, lang)
	case "json":
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", attachment(rec.Code, "json"))
		err = h.exporter.JSON(w, rec, lang)
	default:
		httputil.WriteError(w, domerrors.New(domerrors.CodeBadRequest, "format must be text, csv or json"))
		return
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "export failed",
			"request_id", middleware.GetRequestID(ctx),
			"tg_code", rec.Code,
			"error", err)
	}
}

func attachment(code, ext string) string {
	return `attachment; filename="` + code + `.` + ext + `"`
}

func (h *Handler) handleCompare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lang := h.lang(r)

	var codes []string
	for _, raw := range strings.Split(r.URL.Query().Get("codes"), ",") {
		if code := strings.TrimSpace(raw); code != "" {
			codes = append(codes, code)
		}
	}
	if len(codes) < export.MinCompare || len(codes) > export.MaxCompare {
		httputil.WriteError(w, domerrors.New(domerrors.CodeBadRequest, export.ErrCompareCount.Error()))
		return
	}

	records := make([]record.Record, 0, len(codes))
	for _, code := range codes {
		rec, err := h.search.Lookup(ctx, code)
		if err != nil {
			h.logLookupFailure(ctx, code, err)
			httputil.WriteError(w, err)
			return
		}
		records = append(records, *rec)
	}

	var err error
	switch r.URL.Query().Get("format") {
	case "", "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		err = h.exporter.CompareText(w, records, lang)
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		err = h.exporter.CompareCSV(w, records, lang)
	default:
		httputil.WriteError(w, domerrors.New(domerrors.CodeBadRequest, "format must be text or csv"))
		return
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "comparison failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err)
	}
}

func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.search.Info(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, info)
}

// refreshRequest is the optional refresh body.
type refreshRequest struct {
	Force bool `json:"force"`
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeJSON[refreshRequest](w, r, h.logger, ctx, middleware.GetRequestID(ctx))
	if !ok {
		return
	}
	force := req.Force || r.URL.Query().Get("force") == "true"

	result, err := h.refresher.Refresh(ctx, force)
	if err != nil {
		h.logger.ErrorContext(ctx, "refresh failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err)
		resp := domerrors.Wrap(err, domerrors.CodeUnavailable, "refresh failed")
		httputil.WriteError(w, resp)
		return
	}

	status := http.StatusOK
	if result.Imported {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, result)
}

// logLookupFailure logs store trouble at error level and user mistakes at
// debug.
func (h *Handler) logLookupFailure(ctx context.Context, input string, err error) {
	requestID := middleware.GetRequestID(ctx)
	if domerrors.HasCode(err, domerrors.CodeInternal) || domerrors.HasCode(err, domerrors.CodeUnavailable) {
		h.logger.ErrorContext(ctx, "search failed", "request_id", requestID, "input", input, "error", err)
		return
	}
	h.logger.DebugContext(ctx, "search produced no result", "request_id", requestID, "input", input, "error", err)
}
