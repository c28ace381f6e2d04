package search

import (
	"sort"

	"github.com/notargets/remap/geometry"
)

// kdNode is one node of a bounding-box kd-tree. Every node holds one
// entity; Box is the union of the entity's box and both subtrees, so a
// query can prune whole branches with a single overlap test.
type kdNode struct {
	id          int
	entityBox   geometry.BoundingBox
	Box         geometry.BoundingBox
	left, right *kdNode
}

type kdEntry struct {
	id     int
	box    geometry.BoundingBox
	center geometry.Point
}

// buildTree builds a balanced tree by median split on alternating axes.
func buildTree(entries []kdEntry, axis int) *kdNode {
	if len(entries) == 0 {
		return nil
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].center[axis] < entries[j].center[axis]
	})
	mid := len(entries) / 2
	node := &kdNode{
		id:        entries[mid].id,
		entityBox: entries[mid].box,
		Box:       entries[mid].box,
	}
	node.left = buildTree(entries[:mid], (axis+1)%2)
	node.right = buildTree(entries[mid+1:], (axis+1)%2)
	if node.left != nil {
		node.Box = node.Box.Union(node.left.Box)
	}
	if node.right != nil {
		node.Box = node.Box.Union(node.right.Box)
	}
	return node
}

// query appends the ids of all entities whose boxes overlap the query
// box.
func (n *kdNode) query(box geometry.BoundingBox, out []int) []int {
	if n == nil || !n.Box.Overlaps(box) {
		return out
	}
	if n.entityBox.Overlaps(box) {
		out = append(out, n.id)
	}
	out = n.left.query(box, out)
	out = n.right.query(box, out)
	return out
}
