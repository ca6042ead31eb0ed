package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/bamsammich/tally/internal/summary"
)

// Builder errors distinguish bad input from walk failures.
var (
	ErrNotFound     = errors.New("path does not exist")
	ErrNotDirectory = errors.New("path is not a directory")
)

// Counter receives walk counters. *stats.Collector satisfies it.
type Counter interface {
	AddFilesScanned(n int64)
	AddDirsScanned(n int64)
	AddLinksSkipped(n int64)
	AddBytesScanned(n int64)
}

// Options controls a Build run.
type Options struct {
	// Workers bounds the walk worker pool; <= 0 picks min(NumCPU, 8).
	Workers int
	// Stats receives walk counters when non-nil.
	Stats Counter
}

type workItem struct {
	path string
	node *summary.Node
}

type builder struct {
	top   string // canonical walk root, for the in-tree symlink check
	stats Counter

	queue       chan workItem
	outstanding sync.WaitGroup // directories queued but not yet processed
	visited     sync.Map       // canonical dir path -> struct{}

	cancel  context.CancelFunc
	errOnce sync.Once
	err     error
}

// Build walks root into a fresh summary tree carrying original sizes
// only; trimmed and collected stay unset. Fails with ErrNotFound or
// ErrNotDirectory wrapped around the offending path. Any error during the
// walk aborts the whole build; there is no partial tree.
func Build(ctx context.Context, root string, opts Options) (*summary.Node, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", root, ErrNotFound)
		}
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", root, ErrNotDirectory)
	}

	top, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = min(runtime.NumCPU(), 8)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	b := &builder{
		top:    top,
		stats:  opts.Stats,
		queue:  make(chan workItem, workers*2),
		cancel: cancel,
	}

	var workerWg sync.WaitGroup
	for range workers {
		workerWg.Add(1)
		go func() {
			defer workerWg.Done()
			for item := range b.queue {
				b.walkDir(ctx, item)
				b.outstanding.Done()
			}
		}()
	}

	rootNode := summary.NewDir()
	b.outstanding.Add(1)
	b.queue <- workItem{path: root, node: rootNode}

	// Wait for all directory work to finish, then close the queue so
	// workers exit their range loop.
	b.outstanding.Wait()
	close(b.queue)
	workerWg.Wait()

	if b.err != nil {
		return nil, b.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sumOriginals(rootNode)
	return rootNode, nil
}

func (b *builder) walkDir(ctx context.Context, item workItem) {
	if ctx.Err() != nil {
		return
	}

	real, err := filepath.EvalSymlinks(item.path)
	if err != nil {
		b.fail(fmt.Errorf("resolve %s: %w", item.path, err))
		return
	}

	// A symlink pointing back into the walked tree stays a childless
	// directory node, as does any directory whose canonical path was
	// already walked through another route.
	if linfo, lerr := os.Lstat(item.path); lerr == nil && linfo.Mode()&os.ModeSymlink != 0 &&
		strings.HasPrefix(real, b.top+string(os.PathSeparator)) {
		b.countLinkSkipped()
		return
	}
	if _, seen := b.visited.LoadOrStore(real, struct{}{}); seen {
		b.countLinkSkipped()
		return
	}

	entries, err := os.ReadDir(item.path)
	if err != nil {
		b.fail(fmt.Errorf("readdir %s: %w", item.path, err))
		return
	}
	b.countDir()

	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		b.addEntry(ctx, item.node, filepath.Join(item.path, entry.Name()), entry.Name())
	}
}

func (b *builder) addEntry(ctx context.Context, parent *summary.Node, path, name string) {
	info, err := os.Stat(path) // follows symlinks: a link to a file costs its target's size
	if err != nil {
		if linfo, lerr := os.Lstat(path); lerr == nil && linfo.Mode()&os.ModeSymlink != 0 {
			// Dangling link: childless placeholder, same shape as
			// the loop-protection case.
			parent.Children[name] = summary.NewDir()
			b.countLinkSkipped()
			return
		}
		b.fail(fmt.Errorf("stat %s: %w", path, err))
		return
	}

	if info.IsDir() {
		node := summary.NewDir()
		parent.Children[name] = node
		b.enqueue(ctx, workItem{path: path, node: node})
		return
	}

	parent.Children[name] = summary.NewFile(uint64(info.Size()))
	b.countFile(info.Size())
}

func (b *builder) enqueue(ctx context.Context, item workItem) {
	b.outstanding.Add(1)
	select {
	case b.queue <- item:
		return
	default:
	}
	// Full queue: walk inline so workers can never all block on a send
	// at once.
	b.walkDir(ctx, item)
	b.outstanding.Done()
}

func (b *builder) fail(err error) {
	b.errOnce.Do(func() {
		b.err = err
		b.cancel()
	})
}

func (b *builder) countFile(size int64) {
	if b.stats != nil {
		b.stats.AddFilesScanned(1)
		b.stats.AddBytesScanned(size)
	}
}

func (b *builder) countDir() {
	if b.stats != nil {
		b.stats.AddDirsScanned(1)
	}
}

func (b *builder) countLinkSkipped() {
	if b.stats != nil {
		b.stats.AddLinksSkipped(1)
	}
}

// sumOriginals aggregates directory original sizes bottom-up after the
// parallel walk. Trimmed and collected are left unset on fresh snapshots.
func sumOriginals(n *summary.Node) uint64 {
	if n.IsDir() {
		var total uint64
		for _, c := range n.Children {
			total += sumOriginals(c)
		}
		n.Original = total
	}
	return n.Original
}
