package snapshot

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"github.com/bamsammich/tally/internal/summary"
)

const (
	artifactPrefix = "dir_summary_"
	artifactExt    = ".json"
	compressedExt  = ".json.zst"
	tmpSuffix      = ".tally-tmp"
)

// MinFreeBytes is the headroom required beyond the artifact payload
// itself before the store will write into a directory.
const MinFreeBytes = 10 << 20

// Artifact describes one stored summary file.
type Artifact struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Fingerprint returns a short stable identifier for an artifact payload.
func Fingerprint(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])[:8]
}

// UniquePath picks the first unused artifact name in dir, counting up
// from dir_summary_0.
func UniquePath(dir string, compress bool) (string, error) {
	ext := artifactExt
	if compress {
		ext = compressedExt
	}
	for i := 0; ; i++ {
		path := filepath.Join(dir, fmt.Sprintf("%s%d%s", artifactPrefix, i, ext))
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return path, nil
			}
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
	}
}

// Write stores root at path. Compression follows the path's extension.
// The payload lands under a temporary name first and is renamed into
// place, so readers never observe a partial artifact.
func Write(path string, root *summary.Node) error {
	payload, err := encodeArtifact(path, root)
	if err != nil {
		return err
	}
	return writeAtomic(path, payload)
}

// WriteOptions controls WriteNew.
type WriteOptions struct {
	// Compress stores the artifact zstd-compressed.
	Compress bool
	// MinFree is the free-space floor required beyond the payload size.
	// Zero means MinFreeBytes.
	MinFree uint64
}

// WriteNew stores root under a fresh unique name in dir and returns the
// chosen path. It refuses to write when the filesystem holding dir has
// less than the payload size plus the free-space floor available.
func WriteNew(dir string, root *summary.Node, opts WriteOptions) (string, error) {
	minFree := opts.MinFree
	if minFree == 0 {
		minFree = MinFreeBytes
	}
	path, err := UniquePath(dir, opts.Compress)
	if err != nil {
		return "", err
	}
	payload, err := encodeArtifact(path, root)
	if err != nil {
		return "", err
	}
	if err := CheckFreeSpace(dir, uint64(len(payload))+minFree); err != nil {
		return "", err
	}
	if err := writeAtomic(path, payload); err != nil {
		return "", err
	}
	return path, nil
}

// Load reads the artifact at path, decompressing when the extension
// calls for it.
func Load(path string) (*summary.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	if strings.HasSuffix(path, compressedExt) {
		if data, err = decompress(data); err != nil {
			return nil, fmt.Errorf("decompress %s: %w", path, err)
		}
	}
	root, err := summary.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return root, nil
}

// List returns the artifacts in dir ordered oldest first. Ties on
// modification time fall back to the path so the order is deterministic.
// In-flight temporary files are not artifacts and are skipped.
func List(dir string) ([]Artifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("readdir %s: %w", dir, err)
	}
	var artifacts []Artifact
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, artifactPrefix) {
			continue
		}
		if !strings.HasSuffix(name, artifactExt) && !strings.HasSuffix(name, compressedExt) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
		artifacts = append(artifacts, Artifact{
			Path:    filepath.Join(dir, name),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(artifacts, func(i, j int) bool {
		if !artifacts[i].ModTime.Equal(artifacts[j].ModTime) {
			return artifacts[i].ModTime.Before(artifacts[j].ModTime)
		}
		return artifacts[i].Path < artifacts[j].Path
	})
	return artifacts, nil
}

func encodeArtifact(path string, root *summary.Node) ([]byte, error) {
	payload, err := summary.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	if strings.HasSuffix(path, compressedExt) {
		if payload, err = compress(payload); err != nil {
			return nil, fmt.Errorf("compress artifact: %w", err)
		}
	}
	return payload, nil
}

func writeAtomic(path string, payload []byte) error {
	tmp := path + tmpSuffix
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("place artifact: %w", err)
	}
	return nil
}

func compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedFastest),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

func decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}
