package toc

import "github.com/justyntemme/jianyue/pkg/models"

// ExpandState tracks which TOC branches are collapsed, keyed by href.
// Nodes are expanded unless told otherwise.
type ExpandState struct {
	collapsed map[string]bool
}

// NewExpandState creates an empty state with everything expanded
func NewExpandState() *ExpandState {
	return &ExpandState{collapsed: make(map[string]bool)}
}

// IsExpanded reports whether the branch at href is open
func (e *ExpandState) IsExpanded(href string) bool {
	if e == nil {
		return true
	}
	return !e.collapsed[href]
}

// Toggle flips the branch at href
func (e *ExpandState) Toggle(href string) {
	if e.collapsed[href] {
		delete(e.collapsed, href)
		return
	}
	e.collapsed[href] = true
}

// Row is one visible line of the TOC tree
type Row struct {
	Node        models.TocNode
	Depth       int
	HasChildren bool
	Expanded    bool
}

// Flatten lists the visible rows of the tree in display order
func Flatten(nodes []models.TocNode, state *ExpandState) []Row {
	var rows []Row
	var visit func(nodes []models.TocNode, depth int)
	visit = func(nodes []models.TocNode, depth int) {
		for _, n := range nodes {
			expanded := state.IsExpanded(n.Href)
			rows = append(rows, Row{
				Node:        n,
				Depth:       depth,
				HasChildren: len(n.Children) > 0,
				Expanded:    expanded,
			})
			if expanded {
				visit(n.Children, depth+1)
			}
		}
	}
	visit(nodes, 0)
	return rows
}
