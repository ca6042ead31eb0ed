package merge

import (
	"context"

	"github.com/bamsammich/tally/internal/snapshot"
	"github.com/bamsammich/tally/internal/summary"
)

// Options controls a Summaries run.
type Options struct {
	// Workers is handed to the snapshot builder.
	Workers int
	// Stats receives walk counters from the live snapshot build.
	Stats snapshot.Counter
	// Ignore names files that are dropped from the tree instead of
	// being counted as deleted.
	Ignore []string
}

// Result carries the reconciled tree and the collected-bytes total.
type Result struct {
	// CollectedBytes is the total size transferred from the source
	// across every recorded summary, re-transfers of overwritten files
	// included. It is read before the live reconciliation, so files
	// that appeared without ever being recorded in a summary do not
	// count toward it.
	CollectedBytes uint64
	// Root is the merged tree after the live reconciliation.
	Root *summary.Node
	// Artifacts lists the summary files that were folded, oldest first.
	Artifacts []snapshot.Artifact
}

// Summaries folds every stored summary under dir in modification-time
// order, reads the collected total, then reconciles the fold against a
// live snapshot of dir: a final merge followed by the deletion pass.
func Summaries(ctx context.Context, dir string, opts Options) (Result, error) {
	artifacts, err := snapshot.List(dir)
	if err != nil {
		return Result{}, err
	}

	var root *summary.Node
	for _, artifact := range artifacts {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		tree, err := snapshot.Load(artifact.Path)
		if err != nil {
			return Result{}, err
		}
		if root == nil {
			root = tree
			continue
		}
		Trees(root, tree, false)
	}

	// The collected total is fixed here: the live pass below sees files
	// that never went through a summary, and those were not collected.
	var collected uint64
	if root == nil {
		root = summary.NewDir()
	} else {
		collected = root.CollectedSize()
	}

	live, err := snapshot.Build(ctx, dir, snapshot.Options{Workers: opts.Workers, Stats: opts.Stats})
	if err != nil {
		return Result{}, err
	}
	Trees(root, live, true)
	DeleteMissing(root, live, opts.Ignore)

	return Result{CollectedBytes: collected, Root: root, Artifacts: artifacts}, nil
}
