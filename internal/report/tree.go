package report

import (
	"sort"
	"strings"
)

// Node is one entry of the package hierarchy: the package root, a module or a symbol.
type Node struct {
	// ID is the fully qualified dotted name.
	ID string
	// Label is the last component of ID.
	Label string
	// Kind is "module" for modules and the symbol category for symbols.
	Kind string
	// Counts aggregates the node's own symbol and every symbol beneath it.
	Counts   SymbolCounts
	Parent   *Node
	Children []*Node

	own SymbolCounts
}

// Walk visits n and its descendants depth first, parents before children.
func (n *Node) Walk(fn func(node *Node, depth int)) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int), depth int) {
	fn(n, depth)
	for _, child := range n.Children {
		child.walk(fn, depth+1)
	}
}

// BuildTree arranges the modules and symbols of a report into a hierarchy rooted at the
// package's top-level module. Every symbol hangs off the longest dotted prefix that is
// itself a module or symbol.
func BuildTree(tc *TypeCompleteness) *Node {
	rootName := tc.ModuleName
	if rootName == "" {
		rootName = tc.PackageName
	}
	root := &Node{ID: rootName, Label: rootName, Kind: "module"}
	nodes := map[string]*Node{rootName: root}

	modules := make([]string, 0, len(tc.Modules))
	for _, m := range tc.Modules {
		modules = append(modules, m.Name)
	}
	sortByDepth(modules, func(s string) string { return s })
	for _, name := range modules {
		if _, ok := nodes[name]; ok {
			continue
		}
		nodes[name] = attach(nodes, root, name, "module")
	}

	symbols := append([]Symbol(nil), tc.Symbols...)
	sortByDepth(symbols, func(s Symbol) string { return s.Name })
	for _, sym := range symbols {
		node, ok := nodes[sym.Name]
		if !ok {
			node = attach(nodes, root, sym.Name, sym.Category)
			nodes[sym.Name] = node
		}
		node.own = node.own.Add(sym.Counts())
	}

	aggregate(root)
	return root
}

func attach(nodes map[string]*Node, root *Node, name, kind string) *Node {
	parent := root
	for prefix := name; ; {
		i := strings.LastIndexByte(prefix, '.')
		if i < 0 {
			break
		}
		prefix = prefix[:i]
		if p, ok := nodes[prefix]; ok {
			parent = p
			break
		}
	}
	label := name
	if strings.HasPrefix(name, parent.ID+".") {
		label = strings.TrimPrefix(name, parent.ID+".")
	}
	node := &Node{ID: name, Label: label, Kind: kind, Parent: parent}
	parent.Children = append(parent.Children, node)
	return node
}

func aggregate(n *Node) SymbolCounts {
	total := n.own
	for _, child := range n.Children {
		total = total.Add(aggregate(child))
	}
	n.Counts = total
	return total
}

// sortByDepth orders dotted names so that every prefix comes before its extensions.
func sortByDepth[T any](items []T, name func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := name(items[i]), name(items[j])
		da, db := strings.Count(a, "."), strings.Count(b, ".")
		if da != db {
			return da < db
		}
		return a < b
	})
}
