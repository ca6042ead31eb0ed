package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/tally/internal/summary"
)

func sampleTree() *summary.Node {
	root := summary.NewDir()
	root.Children["file"] = summary.NewFile(100)
	trimmed := summary.NewFile(40)
	trimmed.SetTrimmed(10)
	trimmed.SetCollected(25)
	root.Children["trimmed"] = trimmed
	root.RecomputeSizes()
	return root
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()

	first, err := UniquePath(dir, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "dir_summary_0.json"), first)

	require.NoError(t, os.WriteFile(first, []byte("{}"), 0o644))
	second, err := UniquePath(dir, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "dir_summary_1.json"), second)

	compressed, err := UniquePath(dir, true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "dir_summary_0.json.zst"), compressed)
}

func TestWriteNewRoundTrip(t *testing.T) {
	dir := t.TempDir()
	root := sampleTree()

	path, err := WriteNew(dir, root, WriteOptions{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "dir_summary_0.json"), path)

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, root, loaded)

	// The temporary name must be gone once the write lands.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestWriteNewCompressed(t *testing.T) {
	dir := t.TempDir()
	root := sampleTree()

	path, err := WriteNew(dir, root, WriteOptions{Compress: true})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "dir_summary_0.json.zst"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(raw), 4)
	assert.Equal(t, []byte{0x28, 0xb5, 0x2f, 0xfd}, raw[:4], "zstd frame magic")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, root, loaded)
}

func TestListOrder(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)

	// Written newest-name-first to prove the order comes from mtime,
	// not the counter in the name.
	for i, name := range []string{"dir_summary_2.json", "dir_summary_0.json.zst", "dir_summary_1.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		stamp := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(path, stamp, stamp))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dir_summary_3.json.tally-tmp"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir_summary_sub"), 0o755))

	artifacts, err := List(dir)
	require.NoError(t, err)
	require.Len(t, artifacts, 3)
	assert.Equal(t, filepath.Join(dir, "dir_summary_2.json"), artifacts[0].Path)
	assert.Equal(t, filepath.Join(dir, "dir_summary_0.json.zst"), artifacts[1].Path)
	assert.Equal(t, filepath.Join(dir, "dir_summary_1.json"), artifacts[2].Path)
	assert.Equal(t, int64(1), artifacts[0].Size)
}

func TestListTieBreaksOnPath(t *testing.T) {
	dir := t.TempDir()
	stamp := time.Now().Add(-time.Hour)
	for _, name := range []string{"dir_summary_1.json", "dir_summary_0.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		require.NoError(t, os.Chtimes(path, stamp, stamp))
	}

	artifacts, err := List(dir)
	require.NoError(t, err)
	require.Len(t, artifacts, 2)
	assert.Equal(t, filepath.Join(dir, "dir_summary_0.json"), artifacts[0].Path)
	assert.Equal(t, filepath.Join(dir, "dir_summary_1.json"), artifacts[1].Path)
}

func TestLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dir_summary_0.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)

	zpath := filepath.Join(dir, "dir_summary_1.json.zst")
	require.NoError(t, os.WriteFile(zpath, []byte("not zstd"), 0o644))
	_, err = Load(zpath)
	assert.Error(t, err)
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte("payload"))
	b := Fingerprint([]byte("payload"))
	c := Fingerprint([]byte("other"))

	assert.Len(t, a, 8)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestCheckFreeSpace(t *testing.T) {
	assert.NoError(t, CheckFreeSpace(t.TempDir(), 1))
}
