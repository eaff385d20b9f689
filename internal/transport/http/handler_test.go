package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"fahrzeugdaten/internal/export"
	"fahrzeugdaten/internal/format"
	"fahrzeugdaten/internal/i18n"
	"fahrzeugdaten/internal/importer"
	"fahrzeugdaten/internal/platform/health"
	"fahrzeugdaten/internal/platform/metrics"
	"fahrzeugdaten/internal/record"
	"fahrzeugdaten/internal/search"
	"fahrzeugdaten/internal/store/memory"
	"fahrzeugdaten/internal/tracer"
)

const testAdminToken = "sekrit"

type stubRefresher struct {
	result *importer.RefreshResult
	err    error
	calls  int
}

func (s *stubRefresher) Refresh(context.Context, bool) (*importer.RefreshResult, error) {
	s.calls++
	return s.result, s.err
}

type HandlerSuite struct {
	suite.Suite
	store     *memory.InMemory
	refresher *stubRefresher
	router    http.Handler
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewWith(prometheus.NewRegistry())

	translator, err := i18n.New()
	s.Require().NoError(err)
	formatter := format.New(translator)
	exporter := export.New(formatter, translator)

	s.store = memory.NewInMemory()
	s.refresher = &stubRefresher{result: &importer.RefreshResult{Imported: true, Summary: &importer.Summary{RowsImported: 2}}}

	searchSvc := search.NewService(s.store, logger, m, tracer.NewNoop())
	handler := New(searchSvc, s.refresher, formatter, exporter, translator, "en", logger)
	s.router = NewRouter(handler, health.New(), testAdminToken, logger)
}

func (s *HandlerSuite) importFixtures() {
	snap := &record.Snapshot{
		Columns: []string{"TG_Code", "Marke", "Typ", "Leistung"},
		Records: []record.Record{
			{Code: "1VB906", Fields: map[string]string{"TG_Code": "1VB906", "Marke": "VOLVO", "Typ": "V70", "Leistung": "103"}},
			{Code: "1VB907", Fields: map[string]string{"TG_Code": "1VB907", "Marke": "VOLVO", "Typ": "XC70"}},
			{Code: "2AU418", Fields: map[string]string{"TG_Code": "2AU418", "Marke": "AUDI", "Typ": "A4"}},
		},
	}
	s.Require().NoError(s.store.ReplaceAll(context.Background(), snap))
}

func (s *HandlerSuite) request(method, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) TestLookupFound() {
	s.importFixtures()

	rec := s.request(http.MethodGet, "/api/vehicles/1VB906", nil)
	s.Equal(http.StatusOK, rec.Code)

	var resp vehicleResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("1VB906", resp.Code)
	s.NotEmpty(resp.Fields)
	s.Equal("Type approval number", resp.Fields[0].Label)
}

func (s *HandlerSuite) TestLookupLocalized() {
	s.importFixtures()

	rec := s.request(http.MethodGet, "/api/vehicles/1VB906?lang=de", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "Typengenehmigungsnummer")
}

func (s *HandlerSuite) TestLookupUnknownCode() {
	s.importFixtures()

	rec := s.request(http.MethodGet, "/api/vehicles/9ZZ999", nil)
	s.Equal(http.StatusNotFound, rec.Code)
	s.Contains(rec.Body.String(), "error")
}

func (s *HandlerSuite) TestLookupBeforeImport() {
	rec := s.request(http.MethodGet, "/api/vehicles/1VB906", nil)
	s.Equal(http.StatusServiceUnavailable, rec.Code)
}

func (s *HandlerSuite) TestPrefixSearch() {
	s.importFixtures()

	rec := s.request(http.MethodGet, "/api/vehicles?prefix=1VB", nil)
	s.Equal(http.StatusOK, rec.Code)

	var resp matchesResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(2, resp.Count)
	s.Equal("1VB906", resp.Results[0].Code)
	s.Equal("VOLVO", resp.Results[0].Brand)
}

func (s *HandlerSuite) TestPrefixSearchNoMatches() {
	s.importFixtures()

	rec := s.request(http.MethodGet, "/api/vehicles?prefix=9ZZ", nil)
	s.Equal(http.StatusOK, rec.Code)

	var resp matchesResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Zero(resp.Count)
	s.NotNil(resp.Results)
}

func (s *HandlerSuite) TestPrefixSearchBadLimit() {
	s.importFixtures()

	rec := s.request(http.MethodGet, "/api/vehicles?prefix=1VB&limit=zero", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestExportFormats() {
	s.importFixtures()

	tests := []struct {
		format      string
		contentType string
		contains    string
	}{
		{format: "text", contentType: "text/plain", contains: "Power:"},
		{format: "csv", contentType: "text/csv", contains: "Make,VOLVO"},
		{format: "json", contentType: "application/json", contains: `"code": "1VB906"`},
	}
	for _, tt := range tests {
		rec := s.request(http.MethodGet, "/api/vehicles/1VB906/export?format="+tt.format, nil)
		s.Equal(http.StatusOK, rec.Code, tt.format)
		s.Contains(rec.Header().Get("Content-Type"), tt.contentType, tt.format)
		s.Contains(rec.Header().Get("Content-Disposition"), "1VB906."+map[string]string{"text": "txt", "csv": "csv", "json": "json"}[tt.format])
		s.Contains(rec.Body.String(), tt.contains, tt.format)
	}
}

func (s *HandlerSuite) TestExportBadFormat() {
	s.importFixtures()

	rec := s.request(http.MethodGet, "/api/vehicles/1VB906/export?format=pdf", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestCompare() {
	s.importFixtures()

	rec := s.request(http.MethodGet, "/api/compare?codes=1VB906,2AU418", nil)
	s.Equal(http.StatusOK, rec.Code)
	body := rec.Body.String()
	s.Contains(body, "1VB906")
	s.Contains(body, "2AU418")
	s.Contains(body, "VOLVO")
	s.Contains(body, "AUDI")
}

func (s *HandlerSuite) TestCompareTooFewCodes() {
	s.importFixtures()

	rec := s.request(http.MethodGet, "/api/compare?codes=1VB906", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestCompareUnknownCode() {
	s.importFixtures()

	rec := s.request(http.MethodGet, "/api/compare?codes=1VB906,9ZZ999", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestRefreshRequiresToken() {
	rec := s.request(http.MethodPost, "/api/refresh", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Zero(s.refresher.calls)
}

func (s *HandlerSuite) TestRefreshWithToken() {
	rec := s.request(http.MethodPost, "/api/refresh", map[string]string{"X-Admin-Token": testAdminToken})
	s.Equal(http.StatusCreated, rec.Code)
	s.Equal(1, s.refresher.calls)
	s.Contains(rec.Body.String(), `"imported":true`)
}

func (s *HandlerSuite) TestRefreshFailure() {
	s.refresher.result = &importer.RefreshResult{}
	s.refresher.err = errors.New("upstream down")

	rec := s.request(http.MethodPost, "/api/refresh", map[string]string{"X-Admin-Token": testAdminToken})
	s.Equal(http.StatusServiceUnavailable, rec.Code)
}

func (s *HandlerSuite) TestInfo() {
	s.importFixtures()

	rec := s.request(http.MethodGet, "/api/info", nil)
	s.Equal(http.StatusOK, rec.Code)

	var info search.StoreInfo
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &info))
	s.True(info.Available)
	s.Equal(3, info.Records)
}

func (s *HandlerSuite) TestIndexPage() {
	rec := s.request(http.MethodGet, "/?lang=de", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	s.Contains(body, "Fahrzeug-Typengenehmigungen")
	s.True(strings.Contains(body, `lang="de"`))
}

func (s *HandlerSuite) TestHealthEndpoints() {
	for _, target := range []string{"/health", "/health/live", "/health/ready"} {
		rec := s.request(http.MethodGet, target, nil)
		s.Equal(http.StatusOK, rec.Code, target)
	}
}

func (s *HandlerSuite) TestMetricsEndpoint() {
	rec := s.request(http.MethodGet, "/metrics", nil)
	s.Equal(http.StatusOK, rec.Code)
}
