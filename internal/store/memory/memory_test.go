package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fahrzeugdaten/internal/record"
	"fahrzeugdaten/internal/sentinel"
)

func snapshot(codes ...string) *record.Snapshot {
	snap := &record.Snapshot{Columns: []string{record.ColumnCode, record.ColumnBrand}}
	for _, c := range codes {
		snap.Records = append(snap.Records, record.Record{
			Code:   c,
			Fields: map[string]string{record.ColumnCode: c, record.ColumnBrand: "VOLVO"},
		})
	}
	return snap
}

func TestReadsBeforeFirstImportFail(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	_, err := store.FindByCode(ctx, "1AB123")
	require.ErrorIs(t, err, sentinel.ErrStoreMissing)

	_, err = store.SearchByPrefix(ctx, "1AB", 0)
	require.ErrorIs(t, err, sentinel.ErrStoreMissing)

	require.ErrorIs(t, store.Ping(ctx), sentinel.ErrStoreMissing)
}

func TestFindByCode(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	require.NoError(t, store.ReplaceAll(ctx, snapshot("1AB123", "2CD456")))

	found, err := store.FindByCode(ctx, "2CD456")
	require.NoError(t, err)
	assert.Equal(t, "2CD456", found.Code)
	assert.Equal(t, "VOLVO", found.Brand())

	_, err = store.FindByCode(ctx, "9ZZ999")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSearchByPrefix_FileOrder(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	require.NoError(t, store.ReplaceAll(ctx, snapshot("1AB999", "1AB111", "2CD456")))

	got, err := store.SearchByPrefix(ctx, "1AB", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Insertion order, not lexicographic
	assert.Equal(t, "1AB999", got[0].Code)
	assert.Equal(t, "1AB111", got[1].Code)
}

func TestSearchByPrefix_NoMatchIsEmptyNotError(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	require.NoError(t, store.ReplaceAll(ctx, snapshot("1AB123")))

	got, err := store.SearchByPrefix(ctx, "XX", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchByPrefix_Limit(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	require.NoError(t, store.ReplaceAll(ctx, snapshot("1A1", "1A2", "1A3")))

	got, err := store.SearchByPrefix(ctx, "1A", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestReplaceAll_FullReplacement(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	require.NoError(t, store.ReplaceAll(ctx, snapshot("1AB123", "2CD456")))
	require.NoError(t, store.ReplaceAll(ctx, snapshot("3EF789")))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.FindByCode(ctx, "1AB123")
	assert.ErrorIs(t, err, ErrNotFound)
}
