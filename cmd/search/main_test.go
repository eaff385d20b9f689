package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fahrzeugdaten/internal/record"
	"fahrzeugdaten/internal/store/sqlite"
)

func seedStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "emissionen.db")
	snap := &record.Snapshot{
		Columns: []string{"TG_Code", "Marke", "Typ", "Leistung"},
		Records: []record.Record{
			{Code: "1VB906", Fields: map[string]string{
				"TG_Code": "1VB906", "Marke": "VOLVO", "Typ": "V70", "Leistung": "103",
			}},
		},
	}
	s := sqlite.New(path)
	require.NoError(t, s.ReplaceAll(context.Background(), snap))
	require.NoError(t, s.Close())
	return path
}

func TestRun_PrintsDatasheet(t *testing.T) {
	path := seedStore(t)
	var stdout, stderr bytes.Buffer

	code := run([]string{"-db", path, "1VB906"}, &stdout, &stderr)

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "VOLVO")
	assert.Contains(t, stdout.String(), "103 kW")
}

func TestRun_UnknownCodeIsEmptyResult(t *testing.T) {
	path := seedStore(t)
	var stdout, stderr bytes.Buffer

	code := run([]string{"-db", path, "9ZZ999"}, &stdout, &stderr)

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "no data found for TG-Code 9ZZ999")
}

func TestRun_MissingStoreFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.db")
	var stdout, stderr bytes.Buffer

	code := run([]string{"-db", path, "1VB906"}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "no data imported yet")
}

func TestRun_UsageError(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run(nil, &stdout, &stderr)

	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "usage:")
}
