package merge

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/tally/internal/snapshot"
	"github.com/bamsammich/tally/internal/stats"
	"github.com/bamsammich/tally/internal/summary"
)

const unit = 10

func mkFile(t *testing.T, path string, n int) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("a"), n), 0o644))
}

func mkDir(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.Mkdir(path, 0o755))
}

// summaryOne is the first recorded transfer: two files, one directory
// and a file that a later transfer turns into a directory.
func summaryOne() *summary.Node {
	return &summary.Node{
		Original: 4 * unit,
		Children: map[string]*summary.Node{
			"file1": {Original: unit},
			"file2": {Original: unit},
			"folder_not_overwritten": {
				Original: unit,
				Children: map[string]*summary.Node{"file1": {Original: unit}},
			},
			"file_to_be_overwritten": {Original: unit},
		},
	}
}

// summaryTwo is the second transfer: file2 grew, file3 and folder1 are
// new (folder1 arrives already trimmed), a file collides with the old
// folder_not_overwritten directory, a directory collides with the old
// file_to_be_overwritten file, and folder_tobe_deleted is later removed
// from the assembled directory.
func summaryTwo() *summary.Node {
	return &summary.Node{
		Original: 26 * unit,
		Children: map[string]*summary.Node{
			"file1": {Original: unit},
			"file2": {Original: 2 * unit},
			"file3": {Original: unit},
			"folder1": {
				Original: 20 * unit,
				Trimmed:  ptr(unit),
				Children: map[string]*summary.Node{
					"file4": {Original: 20 * unit, Trimmed: ptr(unit)},
				},
			},
			"folder_not_overwritten": {Original: 100 * unit},
			"file_to_be_overwritten": {
				Original: unit,
				Children: map[string]*summary.Node{"file1": {Original: unit}},
			},
			"folder_tobe_deleted": {
				Original: unit,
				Children: map[string]*summary.Node{"file_tobe_deleted": {Original: unit}},
			},
		},
	}
}

// setupAssembled lays out the assembled directory the two summaries
// describe, with folder2/server_file added on the assembling side,
// file3's content already removed again, and both summary artifacts
// stored in the directory itself. Returns the artifact payload sizes.
func setupAssembled(t *testing.T) (string, uint64, uint64) {
	t.Helper()
	dir := t.TempDir()

	mkFile(t, filepath.Join(dir, "file1"), unit)
	mkFile(t, filepath.Join(dir, "file2"), 2*unit)
	mkFile(t, filepath.Join(dir, "file3"), unit)
	mkDir(t, filepath.Join(dir, "folder1"))
	mkFile(t, filepath.Join(dir, "folder1", "file4"), unit)
	mkDir(t, filepath.Join(dir, "folder2"))
	mkFile(t, filepath.Join(dir, "folder2", "server_file"), 10*unit)
	mkDir(t, filepath.Join(dir, "folder_not_overwritten"))
	mkFile(t, filepath.Join(dir, "folder_not_overwritten", "file1"), unit)
	mkDir(t, filepath.Join(dir, "file_to_be_overwritten"))
	mkFile(t, filepath.Join(dir, "file_to_be_overwritten", "file1"), unit)

	z1 := storeArtifact(t, filepath.Join(dir, "dir_summary_1.json"), summaryOne(), -2*time.Minute)
	z2 := storeArtifact(t, filepath.Join(dir, "dir_summary_2.json"), summaryTwo(), -time.Minute)
	return dir, z1, z2
}

func storeArtifact(t *testing.T, path string, root *summary.Node, age time.Duration) uint64 {
	t.Helper()
	require.NoError(t, snapshot.Write(path, root))
	stamp := time.Now().Add(age)
	require.NoError(t, os.Chtimes(path, stamp, stamp))
	info, err := os.Stat(path)
	require.NoError(t, err)
	return uint64(info.Size())
}

func TestSummariesEndToEnd(t *testing.T) {
	dir, z1, z2 := setupAssembled(t)

	result, err := Summaries(context.Background(), dir, Options{})
	require.NoError(t, err)

	// file2 was overwritten between the two summaries, so one extra
	// unit of its old size counts on top of the 8 units the summaries
	// describe.
	assert.Equal(t, uint64(9*unit), result.CollectedBytes)
	require.Len(t, result.Artifacts, 2)

	expected := &summary.Node{
		Original:  37*unit + z1 + z2,
		Trimmed:   ptr(17*unit + z1 + z2),
		Collected: ptr(19*unit + z1 + z2),
		Children: map[string]*summary.Node{
			"dir_summary_1.json": {Original: z1},
			"dir_summary_2.json": {Original: z2},
			"file1":              {Original: unit},
			"file2": {
				Original:  2 * unit,
				Trimmed:   ptr(2 * unit),
				Collected: ptr(3 * unit),
			},
			"file3": {Original: unit},
			"folder1": {
				Original:  20 * unit,
				Trimmed:   ptr(unit),
				Collected: ptr(unit),
				Children: map[string]*summary.Node{
					"file4": {Original: 20 * unit, Trimmed: ptr(unit)},
				},
			},
			"folder2": {
				Original:  10 * unit,
				Trimmed:   ptr(10 * unit),
				Collected: ptr(10 * unit),
				Children: map[string]*summary.Node{
					"server_file": {Original: 10 * unit},
				},
			},
			"folder_not_overwritten": {
				Original:  unit,
				Trimmed:   ptr(unit),
				Collected: ptr(unit),
				Children:  map[string]*summary.Node{"file1": {Original: unit}},
			},
			"file_to_be_overwritten": {
				Original:  unit,
				Trimmed:   ptr(unit),
				Collected: ptr(unit),
				Children:  map[string]*summary.Node{"file1": {Original: unit}},
			},
			"folder_tobe_deleted": {
				Original:  unit,
				Trimmed:   ptr(0),
				Collected: ptr(unit),
				Children: map[string]*summary.Node{
					"file_tobe_deleted": {
						Original:  unit,
						Trimmed:   ptr(0),
						Collected: ptr(unit),
					},
				},
			},
		},
	}
	require.Equal(t, expected, result.Root)

	totals := TotalsOf(result)
	assert.Equal(t, uint64(9*unit), totals.CollectedBytes)
	assert.Equal(t, uint64(37*unit+z1+z2), totals.OriginalBytes)
	assert.Equal(t, uint64(17*unit+z1+z2), totals.UploadedBytes)
	assert.True(t, totals.Throttled)
}

func TestSummariesNoHistory(t *testing.T) {
	dir := t.TempDir()
	mkFile(t, filepath.Join(dir, "file1"), unit)
	mkDir(t, filepath.Join(dir, "sub"))
	mkFile(t, filepath.Join(dir, "sub", "file2"), 2*unit)

	result, err := Summaries(context.Background(), dir, Options{})
	require.NoError(t, err)

	assert.Zero(t, result.CollectedBytes)
	assert.Empty(t, result.Artifacts)
	assert.Equal(t, uint64(3*unit), result.Root.Original)
	assert.Equal(t, uint64(3*unit), result.Root.TrimmedSize())
	assert.Equal(t, uint64(3*unit), result.Root.CollectedSize())

	totals := TotalsOf(result)
	assert.False(t, totals.Throttled)
}

func TestSummariesFoldsInModTimeOrder(t *testing.T) {
	dir, _, _ := setupAssembled(t)

	// Swap the file names so that name order contradicts modification
	// time order; the fold must still run oldest mtime first.
	require.NoError(t, os.Rename(
		filepath.Join(dir, "dir_summary_1.json"),
		filepath.Join(dir, "dir_summary_9.json")))

	result, err := Summaries(context.Background(), dir, Options{})
	require.NoError(t, err)

	// Folding in name order would put the newer summary first and
	// charge file2's final content a second time (collected 5 units).
	assert.Equal(t, uint64(9*unit), result.CollectedBytes)
	assert.Equal(t, uint64(3*unit), result.Root.Children["file2"].CollectedSize())
}

func TestSummariesSingleArtifact(t *testing.T) {
	dir := t.TempDir()
	mkFile(t, filepath.Join(dir, "file1"), unit)
	storeArtifact(t, filepath.Join(dir, "dir_summary_1.json"), summaryOne(), -time.Minute)

	result, err := Summaries(context.Background(), dir, Options{})
	require.NoError(t, err)

	// A single summary was never merged, so the root total falls back
	// through trimmed to the original size.
	assert.Equal(t, uint64(4*unit), result.CollectedBytes)
}

func TestSummariesIgnoredNames(t *testing.T) {
	dir := t.TempDir()
	mkFile(t, filepath.Join(dir, "kept"), unit)
	recorded := &summary.Node{
		Original: 2 * unit,
		Children: map[string]*summary.Node{
			"kept":         {Original: unit},
			"scratch.lock": {Original: unit},
		},
	}
	storeArtifact(t, filepath.Join(dir, "dir_summary_1.json"), recorded, -time.Minute)

	result, err := Summaries(context.Background(), dir, Options{Ignore: []string{"scratch.lock"}})
	require.NoError(t, err)

	assert.NotContains(t, result.Root.Children, "scratch.lock")
	assert.Contains(t, result.Root.Children, "kept")
	assert.Contains(t, result.Root.Children, "dir_summary_1.json")
}

func TestSummariesCorruptArtifact(t *testing.T) {
	dir := t.TempDir()
	mkFile(t, filepath.Join(dir, "file1"), unit)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dir_summary_0.json"), []byte("junk"), 0o644))

	_, err := Summaries(context.Background(), dir, Options{})
	assert.Error(t, err)
}

func TestSummariesCanceled(t *testing.T) {
	dir, _, _ := setupAssembled(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Summaries(ctx, dir, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummariesReportsWalkStats(t *testing.T) {
	dir, _, _ := setupAssembled(t)
	collector := stats.NewCollector()

	_, err := Summaries(context.Background(), dir, Options{Stats: collector})
	require.NoError(t, err)

	snap := collector.Snapshot()
	assert.Equal(t, int64(9), snap.FilesScanned)
	assert.Equal(t, int64(5), snap.DirsScanned)
}
