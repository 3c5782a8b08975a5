package lexica

import "strings"

// MaxDepth bounds every recursive walk over a tree.
const MaxDepth = 64

// Key is the structural identity of a node. Two nodes with the same Key are
// the same modifier as far as a modifier set is concerned.
type Key struct {
	Role   Role
	Type   Type
	Phrase string
}

// Node is one word or phrase in a meaning tree.
type Node struct {
	Role   Role
	Type   Type
	Phrase string

	modifiers []*Node
}

// New creates a node with no modifiers.
func New(t Type, role Role, phrase string) *Node {
	return &Node{Role: role, Type: t, Phrase: phrase}
}

// NewBlank creates the empty descriptive placeholder used as the root of
// events that are assembled entirely from modifiers.
func NewBlank() *Node {
	return New(TypeNoun, RoleDescriptive, "")
}

// IsBlank reports whether the node has no phrase of its own.
func (n *Node) IsBlank() bool {
	return strings.TrimSpace(n.Phrase) == ""
}

// Key returns the node's structural identity.
func (n *Node) Key() Key {
	return Key{Role: n.Role, Type: n.Type, Phrase: n.Phrase}
}

// Equal compares nodes by Role, Type and Phrase only.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	return n.Key() == other.Key()
}

// Modifiers returns the node's modifiers in insertion order. The returned
// slice is a copy; the nodes are not.
func (n *Node) Modifiers() []*Node {
	out := make([]*Node, len(n.modifiers))
	copy(out, n.modifiers)
	return out
}

// TryModify attaches mod as a modifier of n and returns the node actually
// retained in the modifier set.
//
// A modifier equal to one already present is not added; the existing node is
// returned. With passthru set, a modifier whose Role matches an existing
// modifier is flattened: its own modifiers are merged into the existing node
// instead of nesting it. Attaching n to itself, or attaching any node from
// which n is reachable, is rejected and returns nil with the tree unchanged.
func (n *Node) TryModify(mod *Node, passthru bool) *Node {
	if n == nil || mod == nil {
		return nil
	}
	return n.attach(mod, passthru, 0)
}

// TryModifyAll applies TryModify to each modifier in order and returns the
// retained node for each (nil where rejected).
func (n *Node) TryModifyAll(passthru bool, mods ...*Node) []*Node {
	retained := make([]*Node, len(mods))
	for i, mod := range mods {
		retained[i] = n.TryModify(mod, passthru)
	}
	return retained
}

// Modify builds a new node from its parts and attaches it.
func (n *Node) Modify(t Type, role Role, phrase string, passthru bool) *Node {
	return n.TryModify(New(t, role, phrase), passthru)
}

func (n *Node) attach(mod *Node, passthru bool, depth int) *Node {
	if mod == n || mod.reaches(n) {
		return nil
	}

	if passthru {
		if existing := n.firstWithRole(mod.Role); existing != nil {
			if existing == mod || depth >= MaxDepth {
				return existing
			}
			for _, child := range mod.modifiers {
				existing.attach(child, true, depth+1)
			}
			return existing
		}
	}

	if existing := n.find(mod.Key()); existing != nil {
		return existing
	}
	n.modifiers = append(n.modifiers, mod)
	return mod
}

func (n *Node) firstWithRole(role Role) *Node {
	for _, m := range n.modifiers {
		if m.Role == role {
			return m
		}
	}
	return nil
}

func (n *Node) find(key Key) *Node {
	for _, m := range n.modifiers {
		if m.Key() == key {
			return m
		}
	}
	return nil
}

// reaches reports whether target is n or one of n's transitive modifiers,
// by reference.
func (n *Node) reaches(target *Node) bool {
	found := false
	n.Walk(func(cur *Node, _ int) bool {
		if cur == target {
			found = true
		}
		return !found
	})
	return found
}

// Contains reports whether target appears anywhere in the tree rooted at n.
func (n *Node) Contains(target *Node) bool {
	return n != nil && target != nil && n.reaches(target)
}

// Walk visits n and its modifiers depth-first. Each node is visited at most
// once and walking stops below MaxDepth. Returning false from fn stops the
// walk.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	visited := make(map[*Node]struct{})
	var walk func(cur *Node, depth int) bool
	walk = func(cur *Node, depth int) bool {
		if _, seen := visited[cur]; seen || depth > MaxDepth {
			return true
		}
		visited[cur] = struct{}{}
		if !fn(cur, depth) {
			return false
		}
		for _, m := range cur.modifiers {
			if !walk(m, depth+1) {
				return false
			}
		}
		return true
	}
	walk(n, 0)
}

// Clone returns a deep copy of the tree. Shared subtrees are copied once and
// remain shared in the copy.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	copies := make(map[*Node]*Node)
	var clone func(src *Node, depth int) *Node
	clone = func(src *Node, depth int) *Node {
		if dup, ok := copies[src]; ok {
			return dup
		}
		dup := &Node{Role: src.Role, Type: src.Type, Phrase: src.Phrase}
		copies[src] = dup
		if depth >= MaxDepth {
			return dup
		}
		dup.modifiers = make([]*Node, 0, len(src.modifiers))
		for _, m := range src.modifiers {
			dup.modifiers = append(dup.modifiers, clone(m, depth+1))
		}
		return dup
	}
	return clone(n, 0)
}

// Count returns the number of distinct nodes in the tree.
func (n *Node) Count() int {
	count := 0
	n.Walk(func(*Node, int) bool {
		count++
		return true
	})
	return count
}

// String renders the tree structure, e.g.
// "Subject:Noun(cat)[Descriptive:Adjective(small)]".
func (n *Node) String() string {
	var b strings.Builder
	n.dump(&b, 0)
	return b.String()
}

func (n *Node) dump(b *strings.Builder, depth int) {
	b.WriteString(n.Role.String())
	b.WriteByte(':')
	b.WriteString(n.Type.String())
	b.WriteByte('(')
	b.WriteString(n.Phrase)
	b.WriteByte(')')
	if len(n.modifiers) == 0 || depth >= MaxDepth {
		return
	}
	b.WriteByte('[')
	for i, m := range n.modifiers {
		if i > 0 {
			b.WriteString(", ")
		}
		m.dump(b, depth+1)
	}
	b.WriteByte(']')
}
