package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kvanticoder/jobscout/internal/job"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return s
}

func scannedRow(id, title string) []string {
	return job.Row{
		JobID:       id,
		Title:       title,
		Company:     "Acme",
		Location:    "Remote",
		JobURL:      "https://example.com/" + id,
		Source:      "gamejobs",
		DateScraped: "08/29/2026",
	}.Fields()
}

func TestAppendAndKnownIDs(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, TableScanned, [][]string{
		scannedRow("a", "Animator"),
		scannedRow("b", "Rigger"),
	}))
	require.NoError(t, s.Append(ctx, TableRated, [][]string{{"c"}}))

	seen, err := s.KnownIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, seen.Len())
	for _, id := range []string{"a", "b", "c"} {
		assert.True(t, seen.Contains(id), id)
	}
}

func TestAppendAccumulatesAcrossCalls(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, TableScanned, [][]string{scannedRow("a", "Animator")}))
	require.NoError(t, s.Append(ctx, TableScanned, [][]string{scannedRow("b", "Rigger")}))

	pending, err := s.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "a", pending[0].JobID)
	assert.Equal(t, "b", pending[1].JobID)
}

func TestPendingExcludesRatedJobs(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, TableScanned, [][]string{
		scannedRow("a", "Animator"),
		scannedRow("b", "Rigger"),
	}))
	require.NoError(t, s.Append(ctx, TableRated, [][]string{{"a", "0.82"}}))

	pending, err := s.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "b", pending[0].JobID)
	assert.Equal(t, "Rigger", pending[0].Title)
	assert.Equal(t, "https://example.com/b", pending[0].JobURL)
}

func TestPendingSkipsMalformedRows(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, TableScanned, [][]string{
		{"short", "row"},
		scannedRow("ok", "Animator"),
	}))

	pending, err := s.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "ok", pending[0].JobID)
}

func TestAppendRejectsBadTableName(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	err := s.Append(context.Background(), "../escape", [][]string{{"x"}})
	assert.Error(t, err)
}

func TestEmptyStore(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	seen, err := s.KnownIDs(ctx)
	require.NoError(t, err)
	assert.Zero(t, seen.Len())

	pending, err := s.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCorruptTableSurfacesError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := NewFileStore(dir, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, TableScanned+".json"), []byte("not json"), 0o644))

	_, err = s.Pending(context.Background())
	assert.Error(t, err)
}
