package summary

import "sort"

// Node is one entry in a directory summary tree. A node describes a
// directory when Children is non-nil (an empty map is a real, empty
// directory) and a file otherwise.
//
// Trimmed and Collected are optional. A nil Trimmed means the entry was
// never trimmed; a nil Collected means no transfer has been accounted
// beyond what trimmed/original already imply. All reads go through
// TrimmedSize and CollectedSize so the fallback chain lives in one place.
type Node struct {
	Original  uint64
	Trimmed   *uint64
	Collected *uint64
	Children  map[string]*Node
}

// NewFile returns a file node of the given size.
func NewFile(size uint64) *Node {
	return &Node{Original: size}
}

// NewDir returns an empty directory node.
func NewDir() *Node {
	return &Node{Children: map[string]*Node{}}
}

// IsDir reports whether the node describes a directory.
func (n *Node) IsDir() bool {
	return n.Children != nil
}

// TrimmedSize returns the trimmed size, falling back to the original size
// for entries that were never trimmed.
func (n *Node) TrimmedSize() uint64 {
	if n.Trimmed != nil {
		return *n.Trimmed
	}
	return n.Original
}

// CollectedSize returns the collected size, falling back through the
// trimmed size to the original size.
func (n *Node) CollectedSize() uint64 {
	if n.Collected != nil {
		return *n.Collected
	}
	return n.TrimmedSize()
}

// SetTrimmed records an explicit trimmed size.
func (n *Node) SetTrimmed(v uint64) {
	n.Trimmed = &v
}

// SetCollected records an explicit collected size.
func (n *Node) SetCollected(v uint64) {
	n.Collected = &v
}

// ChildNames returns the node's child names in lexical order.
func (n *Node) ChildNames() []string {
	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RecomputeSizes recalculates a directory's sizes from its direct
// children, materializing explicit trimmed and collected values on the
// directory. Children are read through their fallback accessors but are
// not modified. No-op for files.
func (n *Node) RecomputeSizes() {
	if !n.IsDir() {
		return
	}
	var original, trimmed, collected uint64
	for _, c := range n.Children {
		original += c.Original
		trimmed += c.TrimmedSize()
		collected += c.CollectedSize()
	}
	n.Original = original
	n.SetTrimmed(trimmed)
	n.SetCollected(collected)
}

// Clone returns a deep copy sharing no pointers with the receiver.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{Original: n.Original}
	if n.Trimmed != nil {
		out.SetTrimmed(*n.Trimmed)
	}
	if n.Collected != nil {
		out.SetCollected(*n.Collected)
	}
	if n.Children != nil {
		out.Children = make(map[string]*Node, len(n.Children))
		for name, c := range n.Children {
			out.Children[name] = c.Clone()
		}
	}
	return out
}
