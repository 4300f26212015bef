package integrity

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// Node is the slice of an object the hierarchy needs.
type Node struct {
	ID       string
	ParentID *string
	Position int64
}

// Levels derives the dotted level of every node. Roots ranked by
// (position, id) get "1", "2", ...; a child gets "<parent level>.<rank>"
// with rank computed among its siblings the same way. Nodes not reachable
// from a root (dangling parent, cycle) get "".
func Levels(nodes []Node) map[string]string {
	children := make(map[string][]Node)
	known := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		known[n.ID] = true
	}

	var roots []Node
	for _, n := range nodes {
		if n.ParentID == nil {
			roots = append(roots, n)
			continue
		}
		if known[*n.ParentID] {
			children[*n.ParentID] = append(children[*n.ParentID], n)
		}
	}

	levels := make(map[string]string, len(nodes))
	for _, n := range nodes {
		levels[n.ID] = ""
	}

	type frame struct {
		prefix string
		nodes  []Node
	}
	stack := []frame{{nodes: roots}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		sortSiblings(f.nodes)
		for i, n := range f.nodes {
			level := strconv.Itoa(i + 1)
			if f.prefix != "" {
				level = f.prefix + "." + level
			}
			levels[n.ID] = level
			if kids := children[n.ID]; len(kids) > 0 {
				stack = append(stack, frame{prefix: level, nodes: kids})
			}
		}
	}
	return levels
}

func sortSiblings(nodes []Node) {
	slices.SortFunc(nodes, func(a, b Node) int {
		if c := cmp.Compare(a.Position, b.Position); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// WouldCycle reports whether making parent the parent of id would create
// a cycle (including parent == id).
func WouldCycle(nodes []Node, id string, parent *string) bool {
	if parent == nil {
		return false
	}
	parentOf := make(map[string]*string, len(nodes))
	for _, n := range nodes {
		parentOf[n.ID] = n.ParentID
	}

	seen := make(map[string]bool)
	for cur := parent; cur != nil; cur = parentOf[*cur] {
		if *cur == id {
			return true
		}
		if seen[*cur] {
			// Existing cycle above us that does not include id.
			return false
		}
		seen[*cur] = true
	}
	return false
}

// NextPosition returns the position that appends a node after its
// siblings under parent.
func NextPosition(nodes []Node, parent *string) int64 {
	next := int64(0)
	for _, n := range nodes {
		if sameParent(n.ParentID, parent) && n.Position >= next {
			next = n.Position + 1
		}
	}
	return next
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// CompareLevels orders dotted levels numerically segment by segment, so
// "1.2" sorts before "1.10". The empty level sorts last.
func CompareLevels(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	}
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		ai, aerr := strconv.Atoi(as[i])
		bi, berr := strconv.Atoi(bs[i])
		if aerr != nil || berr != nil {
			if c := strings.Compare(as[i], bs[i]); c != 0 {
				return c
			}
			continue
		}
		if c := cmp.Compare(ai, bi); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(as), len(bs))
}
