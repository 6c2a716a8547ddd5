// Copyright 2026 Chava Systems
//
// Hierarchical index of objects by JSON pointer path

package index

import (
	"sync"

	"github.com/chava-systems/chava/pkg/pointer"
)

// trieNode is one segment of a pointer path. objIDs holds the ids whose
// obligations are scoped exactly at this node's path.
type trieNode struct {
	children map[string]*trieNode
	objIDs   map[string]struct{}
}

func newTrieNode() *trieNode {
	return &trieNode{children: make(map[string]*trieNode), objIDs: make(map[string]struct{})}
}

// HierarchicalPointerIndex is a trie over RFC-6901 pointer segments,
// answering "what obligations live inside this subtree" — the opposite
// direction from projection, which also pulls in obligations strictly
// above the queried path.
type HierarchicalPointerIndex struct {
	mu   sync.RWMutex
	root *trieNode
}

// NewHierarchicalPointerIndex returns an empty index.
func NewHierarchicalPointerIndex() *HierarchicalPointerIndex {
	return &HierarchicalPointerIndex{root: newTrieNode()}
}

// Add records that objID has an obligation scoped exactly at path.
func (idx *HierarchicalPointerIndex) Add(objID, path string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	node := idx.root
	for _, seg := range pointer.Split(path) {
		child, ok := node.children[seg]
		if !ok {
			child = newTrieNode()
			node.children[seg] = child
		}
		node = child
	}
	node.objIDs[objID] = struct{}{}
}

// Remove drops objID from the node at path. It does not prune now-empty
// nodes: an empty interior node may still be a waypoint to populated
// descendants, and pruning leaves is an optional bookkeeping step this
// index skips.
func (idx *HierarchicalPointerIndex) Remove(objID, path string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	node := idx.root
	for _, seg := range pointer.Split(path) {
		child, ok := node.children[seg]
		if !ok {
			return
		}
		node = child
	}
	delete(node.objIDs, objID)
}

// GetObjectsAtPath returns the union of obj_ids stored at path and every
// descendant of path.
func (idx *HierarchicalPointerIndex) GetObjectsAtPath(path string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	node := idx.root
	for _, seg := range pointer.Split(path) {
		child, ok := node.children[seg]
		if !ok {
			return nil
		}
		node = child
	}
	seen := make(map[string]struct{})
	collect(node, seen)
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	return out
}

func collect(node *trieNode, into map[string]struct{}) {
	for id := range node.objIDs {
		into[id] = struct{}{}
	}
	for _, child := range node.children {
		collect(child, into)
	}
}
