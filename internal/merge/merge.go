// Package merge folds recorded summary trees together and reconciles
// the fold against a live snapshot of the assembled directory.
package merge

import (
	"github.com/bamsammich/tally/internal/summary"
)

// Trees merges the tree rooted at new into the tree rooted at old.
//
// A name only present in new is deep-copied in. When both sides carry a
// file, a changed original size means the file was overwritten and
// transferred again, so its collected size becomes the sum of both
// sides' collected sizes while trimmed and original track the new side.
// Equal original sizes leave the entry untouched.
//
// With isFinal set, new is a snapshot of the assembled directory rather
// than another transfer summary. The assembled copy only ever holds the
// trimmed form of a file, so a size difference with an unchanged trimmed
// size is no evidence of a new transfer and the entry stays untouched.
//
// A directory in new replacing a file in old restarts as an empty
// directory before its children merge. A file in new colliding with a
// directory in old cannot land in the assembled tree and is skipped.
//
// old is modified in place; new is never modified.
func Trees(old, new *summary.Node, isFinal bool) {
	mergeChildren(old, new, isFinal)
	old.RecomputeSizes()
}

func mergeChildren(old, new *summary.Node, isFinal bool) {
	for _, name := range new.ChildNames() {
		newChild := new.Children[name]
		oldChild, ok := old.Children[name]
		if !ok {
			clone := newChild.Clone()
			old.Children[name] = clone
			clone.RecomputeSizes()
			continue
		}

		if newChild.IsDir() {
			if !oldChild.IsDir() {
				// The old file is overwritten by the incoming
				// directory; restart it empty so the children can
				// merge into it.
				oldChild.Original = 0
				oldChild.SetTrimmed(0)
				oldChild.SetCollected(0)
				oldChild.Children = make(map[string]*summary.Node)
			}
			mergeChildren(oldChild, newChild, isFinal)
			oldChild.RecomputeSizes()
			continue
		}

		if oldChild.IsDir() {
			// A file cannot overwrite a directory; the directory stays.
			continue
		}

		if newChild.Original == oldChild.Original {
			continue
		}
		if isFinal && newChild.TrimmedSize() == oldChild.TrimmedSize() {
			continue
		}

		// The file changed between the two summaries, so it moved
		// again: account the new transfer on top of what was already
		// collected.
		collected := oldChild.CollectedSize() + newChild.CollectedSize()
		oldChild.SetCollected(collected)
		oldChild.SetTrimmed(newChild.TrimmedSize())
		oldChild.Original = newChild.Original
	}
}

// DeleteMissing reconciles old against new after a final merge: anything
// in old that no longer exists in new was deleted from the assembled
// directory. A deleted file keeps its collected size, materialized from
// the trimmed fallback when never set, and drops its trimmed size to
// zero. A deleted directory is walked so every file below it is
// accounted the same way. Names on the ignore list are bookkeeping files
// that were never meant to be kept and are removed from the tree
// outright.
//
// An entry whose kind differs between the two sides is left as the merge
// pass recorded it.
func DeleteMissing(old, new *summary.Node, ignore []string) {
	set := make(map[string]bool, len(ignore))
	for _, name := range ignore {
		set[name] = true
	}
	reconcileChildren(old, new.Children, set)
	old.RecomputeSizes()
}

func reconcileChildren(old *summary.Node, newChildren map[string]*summary.Node, ignore map[string]bool) {
	for _, name := range old.ChildNames() {
		oldChild := old.Children[name]
		newChild, ok := newChildren[name]
		if !ok {
			switch {
			case oldChild.IsDir():
				reconcileChildren(oldChild, nil, ignore)
				oldChild.RecomputeSizes()
			case ignore[name]:
				delete(old.Children, name)
			default:
				if oldChild.Collected == nil {
					oldChild.SetCollected(oldChild.TrimmedSize())
				}
				oldChild.SetTrimmed(0)
			}
			continue
		}
		if oldChild.IsDir() && newChild.IsDir() {
			reconcileChildren(oldChild, newChild.Children, ignore)
			oldChild.RecomputeSizes()
		}
	}
}
