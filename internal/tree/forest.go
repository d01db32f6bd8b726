// Package tree builds the note forest and applies structural moves to it.
package tree

import (
	"sort"

	"github.com/tgienger/stn/internal/models"
)

// Node is a note placed in the forest
type Node struct {
	Note     models.Note
	Parent   *Node
	Children []*Node
}

// ID returns the id of the wrapped note
func (n *Node) ID() string { return n.Note.ID }

// Forest is the set of root notes and their descendants.
// Detached holds notes whose parent is not part of the set (or whose parent
// chain loops); they are never mixed into Roots.
type Forest struct {
	Roots    []*Node
	Detached []*Node
	index    map[string]*Node
}

// Flatten returns every note of the input, including nested children, once.
// Nested children without a parent id inherit the id of the note they were
// nested under. The returned notes carry no Children.
func Flatten(notes []models.Note) []models.Note {
	seen := make(map[string]struct{}, len(notes))
	out := make([]models.Note, 0, len(notes))

	var visit func(n models.Note, parent *string)
	visit = func(n models.Note, parent *string) {
		if _, ok := seen[n.ID]; ok {
			return
		}
		seen[n.ID] = struct{}{}
		children := n.Children
		flat := n.Clone()
		flat.Children = nil
		if flat.ParentID == nil && parent != nil {
			flat.ParentID = models.StringPtr(*parent)
		}
		out = append(out, flat)
		for _, c := range children {
			visit(c, &flat.ID)
		}
	}
	for _, n := range notes {
		visit(n, nil)
	}
	return out
}

// BuildForest groups notes by parent id through an id index and returns the
// resulting forest. Children are ordered by position ascending.
func BuildForest(notes []models.Note) *Forest {
	flat := Flatten(notes)
	f := &Forest{index: make(map[string]*Node, len(flat))}

	nodes := make([]*Node, len(flat))
	for i := range flat {
		nodes[i] = &Node{Note: flat[i]}
		f.index[flat[i].ID] = nodes[i]
	}

	for _, n := range nodes {
		pid := n.Note.ParentID
		if pid == nil {
			f.Roots = append(f.Roots, n)
			continue
		}
		parent, ok := f.index[*pid]
		if !ok {
			f.Detached = append(f.Detached, n)
			continue
		}
		n.Parent = parent
		parent.Children = append(parent.Children, n)
	}

	// Anything not reachable from a root or a detached note sits on a parent
	// loop. Cut the loop at the first member met in input order.
	visited := make(map[string]bool, len(nodes))
	mark := func(start *Node) {
		stack := []*Node{start}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if visited[n.ID()] {
				continue
			}
			visited[n.ID()] = true
			stack = append(stack, n.Children...)
		}
	}
	for _, r := range f.Roots {
		mark(r)
	}
	for _, d := range f.Detached {
		mark(d)
	}
	for _, n := range nodes {
		if visited[n.ID()] {
			continue
		}
		if p := n.Parent; p != nil {
			p.Children = removeNode(p.Children, n)
			n.Parent = nil
		}
		f.Detached = append(f.Detached, n)
		mark(n)
	}

	sortNodes(f.Roots)
	for _, n := range nodes {
		sortNodes(n.Children)
	}
	return f
}

func removeNode(list []*Node, target *Node) []*Node {
	for i, n := range list {
		if n == target {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// Less orders siblings: position, then creation time, then id
func Less(a, b models.Note) bool {
	if a.Position != b.Position {
		return a.Position < b.Position
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func sortNodes(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return Less(nodes[i].Note, nodes[j].Note)
	})
}

// Len returns the number of notes in the forest
func (f *Forest) Len() int {
	return len(f.index)
}

// Node looks up a note by id
func (f *Forest) Node(id string) (*Node, bool) {
	n, ok := f.index[id]
	return n, ok
}

// Siblings returns the ordered children of parentID, or the roots for nil
func (f *Forest) Siblings(parentID *string) []*Node {
	if parentID == nil {
		return f.Roots
	}
	if p, ok := f.index[*parentID]; ok {
		return p.Children
	}
	return nil
}

// Walk visits roots then detached notes depth first. Returning false from fn
// skips the children of that node.
func (f *Forest) Walk(fn func(n *Node, depth int) bool) {
	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		if !fn(n, depth) {
			return
		}
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	for _, r := range f.Roots {
		visit(r, 0)
	}
	for _, d := range f.Detached {
		visit(d, 0)
	}
}

// IsDescendant reports whether targetID is ancestorID itself or sits
// anywhere below it. It walks parent links, so it costs O(depth).
func (f *Forest) IsDescendant(ancestorID, targetID string) bool {
	if ancestorID == targetID {
		return true
	}
	n, ok := f.index[targetID]
	if !ok {
		return false
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if p.ID() == ancestorID {
			return true
		}
	}
	return false
}

// IsDescendant reports whether targetID is the ancestor node itself or one
// of its transitive children.
func IsDescendant(ancestor *Node, targetID string) bool {
	if ancestor == nil {
		return false
	}
	if ancestor.ID() == targetID {
		return true
	}
	for _, c := range ancestor.Children {
		if IsDescendant(c, targetID) {
			return true
		}
	}
	return false
}

// Depth returns how many ancestors the node has in the forest
func (n *Node) Depth() int {
	d := 0
	for p := n.Parent; p != nil; p = p.Parent {
		d++
	}
	return d
}

// Path returns the titles from the root down to the node
func (n *Node) Path() []string {
	var path []string
	for p := n; p != nil; p = p.Parent {
		path = append([]string{p.Note.Title}, path...)
	}
	return path
}
