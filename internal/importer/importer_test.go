package importer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"fahrzeugdaten/internal/fetch"
	"fahrzeugdaten/internal/platform/metrics"
	"fahrzeugdaten/internal/record"
	"fahrzeugdaten/internal/store/memory"
	"fahrzeugdaten/internal/tracer"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeSourceFile writes lines as a windows-1252 encoded tab-delimited file.
func writeSourceFile(t *testing.T, lines ...string) string {
	t.Helper()
	encoded, err := charmap.Windows1252.NewEncoder().String(strings.Join(lines, "\n") + "\n")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "emissionen.txt")
	require.NoError(t, os.WriteFile(path, []byte(encoded), 0o644))
	return path
}

func newTestImporter(f Fetcher, st *memory.InMemory, sourcePath string) *Importer {
	m := metrics.NewWith(prometheus.NewRegistry())
	return New(f, st, sourcePath, testLogger(), m, tracer.NewNoop())
}

type fakeFetcher struct {
	checkResult fetch.CheckResult
	downloadErr error
	content     string

	checks    int
	downloads int
}

func (f *fakeFetcher) Check(context.Context, time.Time) fetch.CheckResult {
	f.checks++
	return f.checkResult
}

func (f *fakeFetcher) Download(_ context.Context, dest string) error {
	f.downloads++
	if f.downloadErr != nil {
		return f.downloadErr
	}
	encoded, err := charmap.Windows1252.NewEncoder().String(f.content)
	if err != nil {
		return err
	}
	return os.WriteFile(dest, []byte(encoded), 0o644)
}

func TestImporter_Import(t *testing.T) {
	path := writeSourceFile(t,
		"TG-Code\tMarke\tTyp\tGetriebe\tET_CO",
		"1AB123\tVOLVO\tV70\tAutomat\t0.5",
		"2CD456\tCITROËN\tC4\tman. 5-Gang\t0.7",
	)

	st := memory.NewInMemory()
	im := newTestImporter(&fakeFetcher{}, st, path)

	summary, err := im.Import(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.RowsRead)
	assert.Equal(t, 2, summary.RowsImported)
	assert.Equal(t, 0, summary.RowsSkipped)
	assert.NotEmpty(t, summary.JobID)

	// Source file is gone after a successful import.
	assert.NoFileExists(t, path)

	got, err := st.FindByCode(context.Background(), "2CD456")
	require.NoError(t, err)
	assert.Equal(t, "CITROËN", got.Get("Marke"))
	assert.Equal(t, "man. 5-Gang", got.Get("Getriebe"))
	// Measurement columns are not imported.
	assert.Empty(t, got.Get("ET_CO"))
}

func TestImporter_ImportSkipsMalformedRows(t *testing.T) {
	path := writeSourceFile(t,
		"TG-Code\tMarke\tTyp",
		"1AB123\tVOLVO\tV70",
		"too\tfew",
		"\tOPEL\tCorsa",
		"2CD456\tAUDI\tA4",
	)

	st := memory.NewInMemory()
	im := newTestImporter(&fakeFetcher{}, st, path)

	summary, err := im.Import(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.RowsRead)
	assert.Equal(t, 2, summary.RowsImported)
	assert.Equal(t, 2, summary.RowsSkipped)
}

func TestImporter_ImportRejectsFileWithoutCodeColumn(t *testing.T) {
	path := writeSourceFile(t,
		"Marke\tTyp",
		"VOLVO\tV70",
	)

	im := newTestImporter(&fakeFetcher{}, memory.NewInMemory(), path)

	_, err := im.Import(context.Background(), path)
	require.Error(t, err)
	// A rejected file stays on disk.
	assert.FileExists(t, path)
}

func TestImporter_ImportKeepsFileWhenStoreFails(t *testing.T) {
	path := writeSourceFile(t,
		"TG-Code\tMarke",
		"1AB123\tVOLVO",
	)

	st := memory.NewInMemory()
	st.FailNextReplace(errors.New("disk full"))
	im := newTestImporter(&fakeFetcher{}, st, path)

	_, err := im.Import(context.Background(), path)
	require.Error(t, err)
	assert.FileExists(t, path)
}

func TestImporter_RefreshUpToDate(t *testing.T) {
	f := &fakeFetcher{checkResult: fetch.CheckResult{Status: fetch.StatusUpToDate}}
	dest := filepath.Join(t.TempDir(), "emissionen.txt")
	im := newTestImporter(f, memory.NewInMemory(), dest)

	result, err := im.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, fetch.StatusUpToDate, result.Status)
	assert.False(t, result.Imported)
	assert.Nil(t, result.Summary)
	assert.Equal(t, 0, f.downloads)
}

func TestImporter_RefreshDownloadsAndImports(t *testing.T) {
	f := &fakeFetcher{
		checkResult: fetch.CheckResult{Status: fetch.StatusStoreMissing},
		content:     "TG-Code\tMarke\n1AB123\tVOLVO\n",
	}
	dest := filepath.Join(t.TempDir(), "emissionen.txt")
	st := memory.NewInMemory()
	im := newTestImporter(f, st, dest)

	result, err := im.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, fetch.StatusStoreMissing, result.Status)
	assert.True(t, result.Imported)
	require.NotNil(t, result.Summary)
	assert.Equal(t, 1, result.Summary.RowsImported)

	got, err := st.FindByCode(context.Background(), "1AB123")
	require.NoError(t, err)
	assert.Equal(t, "VOLVO", got.Get("Marke"))
}

func TestImporter_RefreshForceSkipsCheck(t *testing.T) {
	f := &fakeFetcher{
		checkResult: fetch.CheckResult{Status: fetch.StatusUpToDate},
		content:     "TG-Code\tMarke\n1AB123\tVOLVO\n",
	}
	dest := filepath.Join(t.TempDir(), "emissionen.txt")
	im := newTestImporter(f, memory.NewInMemory(), dest)

	result, err := im.Refresh(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, result.Forced)
	assert.True(t, result.Imported)
	assert.Equal(t, 0, f.checks)
	assert.Equal(t, 1, f.downloads)
}

func TestImporter_RefreshCheckError(t *testing.T) {
	checkErr := errors.New("connection refused")
	f := &fakeFetcher{checkResult: fetch.CheckResult{Status: fetch.StatusError, Err: checkErr}}
	im := newTestImporter(f, memory.NewInMemory(), filepath.Join(t.TempDir(), "emissionen.txt"))

	result, err := im.Refresh(context.Background(), false)
	require.ErrorIs(t, err, checkErr)
	require.NotNil(t, result)
	assert.Equal(t, fetch.StatusError, result.Status)
	assert.Equal(t, 0, f.downloads)
}

func TestParseFile_DecodesWindows1252(t *testing.T) {
	path := writeSourceFile(t,
		"TG-Code\tAnzahl Achsen/Räder\tGeräusch Fahrt",
		"1AB123\t2/4\t71",
	)

	parsed, err := parseFile(path, testLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"TG_Code", "Anzahl_Achsen_Räder", "Geräusch_Fahrt"}, parsed.snapshot.Columns)
	require.Len(t, parsed.snapshot.Records, 1)
	assert.Equal(t, "2/4", parsed.snapshot.Records[0].Get("Anzahl_Achsen_Räder"))

	rec := parsed.snapshot.Records[0]
	assert.Equal(t, "1AB123", rec.Code)
	assert.Equal(t, rec.Code, rec.Get(record.ColumnCode))
}
