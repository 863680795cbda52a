package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/matzehuels/leafshift/pkg/errors"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteRecordAndList(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	ok := Entry{
		Time:          base,
		InputName:     "RP.T3.dcm",
		InputHash:     "abc",
		Source:        "Millenium",
		Target:        "HD",
		Beams:         2,
		ControlPoints: 4,
		OutputUID:     "2.25.1",
		Warnings:      []errs.Warning{errs.NewWarning(errs.ErrCodeMissingAperture, "no MLC positions at control point %d of beam %d", 1, 2)},
		Duration:      1500 * time.Millisecond,
		CacheHit:      true,
	}
	rejected := Entry{
		Time:      base.Add(time.Minute),
		InputName: "bad.dcm",
		Code:      errs.ErrCodeFieldExceedsRange,
		Message:   "leaf 0 does not match leaf 60 at control point 0 of beam 1",
	}
	require.NoError(t, s.Record(ctx, ok))
	require.NoError(t, s.Record(ctx, rejected))

	got, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "bad.dcm", got[0].InputName, "newest first")
	assert.False(t, got[0].OK())
	assert.Equal(t, errs.ErrCodeFieldExceedsRange, got[0].Code)

	first := got[1]
	assert.True(t, first.OK())
	assert.NotEmpty(t, first.ID)
	assert.True(t, base.Equal(first.Time))
	assert.Equal(t, "Millenium", first.Source)
	assert.Equal(t, 4, first.ControlPoints)
	assert.Equal(t, 1500*time.Millisecond, first.Duration)
	assert.True(t, first.CacheHit)
	require.Len(t, first.Warnings, 1)
	assert.Equal(t, errs.ErrCodeMissingAperture, first.Warnings[0].Code)
	assert.Equal(t, []any{1.0, 2.0}, first.Warnings[0].Details)
}

func TestSQLiteListLimit(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Record(ctx, Entry{InputName: "p", Beams: i}))
	}
	got, err := s.List(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, 4, got[0].Beams)
}

func TestSQLiteReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, Entry{ID: "fixed", InputName: "a"}))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fixed", got[0].ID)
}

func TestNop(t *testing.T) {
	var s Store = Nop{}
	require.NoError(t, s.Record(context.Background(), Entry{}))
	got, err := s.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpenMongoUnreachable(t *testing.T) {
	_, err := OpenMongo(context.Background(), MongoOptions{
		URI:        "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=200&connectTimeoutMS=200",
		Database:   "leafshift",
		Collection: "conversions",
	})
	require.Error(t, err)
}

func TestPrepare(t *testing.T) {
	e := prepare(Entry{})
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Time.IsZero())
	assert.Equal(t, time.UTC, e.Time.Location())

	kept := prepare(Entry{ID: "x"})
	assert.Equal(t, "x", kept.ID)
}
