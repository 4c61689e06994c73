package section

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// MaxDepth bounds parent-chain walks. Any chain longer than this is treated
// as a cycle rather than recursed into.
const MaxDepth = 128

// ErrCycle is returned when a parent chain does not reach a root within
// MaxDepth hops.
var ErrCycle = errors.New("section: parent chain exceeds max depth (cycle?)")

// ErrNotInTree is returned when an ID is not part of the tree.
var ErrNotInTree = errors.New("section: not in tree")

// Tree is an arena over a document's sections. Records are indexed by ID and
// child lists are computed from ParentID, so the parent/child relation has a
// single source of truth. Sibling enumeration is always ordered by ascending
// SectionOrder (stable on the unexpected tie).
type Tree struct {
	byID     map[uuid.UUID]*Section
	children map[uuid.UUID][]*Section
	roots    []*Section
}

// NewTree builds a tree over the given sections.
func NewTree(sections []*Section) *Tree {
	t := &Tree{
		byID:     make(map[uuid.UUID]*Section, len(sections)),
		children: make(map[uuid.UUID][]*Section),
	}
	for _, s := range sections {
		t.byID[s.ID] = s
	}
	for _, s := range sections {
		if s.ParentID == nil {
			t.roots = append(t.roots, s)
		} else {
			t.children[*s.ParentID] = append(t.children[*s.ParentID], s)
		}
	}
	sortByOrder(t.roots)
	for _, kids := range t.children {
		sortByOrder(kids)
	}
	return t
}

func sortByOrder(ss []*Section) {
	sort.SliceStable(ss, func(i, j int) bool {
		return ss[i].SectionOrder < ss[j].SectionOrder
	})
}

// Len returns the number of sections in the tree.
func (t *Tree) Len() int { return len(t.byID) }

// Get returns the section with the given ID, or nil.
func (t *Tree) Get(id uuid.UUID) *Section { return t.byID[id] }

// Roots returns the root sections in section order.
func (t *Tree) Roots() []*Section { return t.roots }

// Children returns the direct children of id in section order.
func (t *Tree) Children(id uuid.UUID) []*Section { return t.children[id] }

// IsLeaf reports whether id has no children.
func (t *Tree) IsLeaf(id uuid.UUID) bool { return len(t.children[id]) == 0 }

// Parent returns the parent of id, or nil for roots and unknown IDs.
func (t *Tree) Parent(id uuid.UUID) *Section {
	s := t.byID[id]
	if s == nil || s.ParentID == nil {
		return nil
	}
	return t.byID[*s.ParentID]
}

// Depth returns the number of ancestor hops from id to its root (0 for a
// root). Walks the parent chain iteratively; a chain longer than MaxDepth
// reports ErrCycle instead of looping forever.
func (t *Tree) Depth(id uuid.UUID) (int, error) {
	s := t.byID[id]
	if s == nil {
		return 0, ErrNotInTree
	}
	depth := 0
	for s.ParentID != nil {
		parent := t.byID[*s.ParentID]
		if parent == nil {
			break // parent outside the arena counts as a root
		}
		depth++
		if depth > MaxDepth {
			return 0, ErrCycle
		}
		s = parent
	}
	return depth, nil
}

// Ancestors returns the chain from the root down to (excluding) id.
func (t *Tree) Ancestors(id uuid.UUID) ([]*Section, error) {
	s := t.byID[id]
	if s == nil {
		return nil, ErrNotInTree
	}
	var chain []*Section
	for s.ParentID != nil {
		parent := t.byID[*s.ParentID]
		if parent == nil {
			break
		}
		chain = append(chain, parent)
		if len(chain) > MaxDepth {
			return nil, ErrCycle
		}
		s = parent
	}
	// Collected child-to-root; reverse to root-first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// Descendants returns the subtree below id in pre-order, excluding id.
func (t *Tree) Descendants(id uuid.UUID) []*Section {
	var out []*Section
	stack := make([]*Section, 0, len(t.children[id]))
	for i := len(t.children[id]) - 1; i >= 0; i-- {
		stack = append(stack, t.children[id][i])
	}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, s)
		kids := t.children[s.ID]
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
	return out
}

// Siblings returns the other children of id's parent in section order.
// Empty for roots.
func (t *Tree) Siblings(id uuid.UUID) []*Section {
	s := t.byID[id]
	if s == nil || s.ParentID == nil {
		return nil
	}
	var out []*Section
	for _, sib := range t.children[*s.ParentID] {
		if sib.ID != id {
			out = append(out, sib)
		}
	}
	return out
}

// FullPath renders the root-to-node path as each node's display label
// joined by " > ".
func (t *Tree) FullPath(id uuid.UUID) (string, error) {
	s := t.byID[id]
	if s == nil {
		return "", ErrNotInTree
	}
	ancestors, err := t.Ancestors(id)
	if err != nil {
		return "", err
	}
	path := ""
	for _, a := range ancestors {
		path += a.Label() + " > "
	}
	return path + s.Label(), nil
}

// AddChild attaches child under parentID, updating the child's ParentID and
// the computed child list. The parent must exist, must be able to have
// children, and the child must be part of the arena. Sibling SectionOrder
// values are not renumbered.
func (t *Tree) AddChild(parentID uuid.UUID, child *Section) error {
	parent := t.byID[parentID]
	if parent == nil {
		return fmt.Errorf("add child: parent %s: %w", parentID, ErrNotInTree)
	}
	if !parent.Type.CanHaveChildren() {
		return fmt.Errorf("add child: %s sections cannot have children", parent.Type)
	}
	if t.byID[child.ID] == nil {
		t.byID[child.ID] = child
	}
	t.detach(child)
	pid := parentID
	child.ParentID = &pid
	kids := append(t.children[parentID], child)
	sortByOrder(kids)
	t.children[parentID] = kids
	return nil
}

// RemoveChild detaches child from parentID, making it a root. The subtree
// below the child moves with it.
func (t *Tree) RemoveChild(parentID, childID uuid.UUID) error {
	child := t.byID[childID]
	if child == nil {
		return fmt.Errorf("remove child: %s: %w", childID, ErrNotInTree)
	}
	if child.ParentID == nil || *child.ParentID != parentID {
		return fmt.Errorf("remove child: %s is not a child of %s", childID, parentID)
	}
	t.detach(child)
	child.ParentID = nil
	t.roots = append(t.roots, child)
	sortByOrder(t.roots)
	return nil
}

// detach removes s from its current sibling list (roots or a child list).
func (t *Tree) detach(s *Section) {
	if s.ParentID == nil {
		t.roots = remove(t.roots, s.ID)
		return
	}
	t.children[*s.ParentID] = remove(t.children[*s.ParentID], s.ID)
}

func remove(ss []*Section, id uuid.UUID) []*Section {
	for i, s := range ss {
		if s.ID == id {
			return append(ss[:i:i], ss[i+1:]...)
		}
	}
	return ss
}
