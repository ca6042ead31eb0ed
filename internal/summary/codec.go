package summary

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Artifact field names are deliberately short: summary files live inside
// the directory they describe and get collected along with everything
// else, so their own footprint matters.
const (
	keyOriginal  = "/S"
	keyTrimmed   = "/T"
	keyCollected = "/C"
	keyChildren  = "/D"
)

// RootName keys the synthetic root entry of every artifact.
const RootName = ""

// Marshal encodes a tree in artifact form: a single-entry JSON object
// mapping the root name to the root node. The encoding is deterministic,
// so equal trees produce equal bytes.
func Marshal(root *Node) ([]byte, error) {
	return json.Marshal(map[string]*Node{RootName: root})
}

// Unmarshal decodes an artifact produced by Marshal or by any collector
// writing the same format.
func Unmarshal(data []byte) (*Node, error) {
	var tree map[string]*Node
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	root, ok := tree[RootName]
	if !ok || root == nil {
		return nil, errors.New("decode summary: missing root entry")
	}
	return root, nil
}

// MarshalJSON emits the short-key object form. The children key is present
// for every directory, including empty ones: its presence is what
// distinguishes a directory from a file. Unset trimmed/collected fields
// are omitted rather than written as zero.
func (n *Node) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, 4)
	obj[keyOriginal] = n.Original
	if n.Trimmed != nil {
		obj[keyTrimmed] = *n.Trimmed
	}
	if n.Collected != nil {
		obj[keyCollected] = *n.Collected
	}
	if n.Children != nil {
		obj[keyChildren] = n.Children
	}
	return json.Marshal(obj)
}

// UnmarshalJSON decodes the short-key object form, preserving field
// absence: a missing trimmed/collected key stays nil and an empty
// children object stays an empty, non-nil map.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw struct {
		Original  uint64           `json:"/S"`
		Trimmed   *uint64          `json:"/T"`
		Collected *uint64          `json:"/C"`
		Children  map[string]*Node `json:"/D"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	n.Original = raw.Original
	n.Trimmed = raw.Trimmed
	n.Collected = raw.Collected
	n.Children = raw.Children
	return nil
}
