package process

import (
	"iter"
)

type location struct {
	list  []*NodeSpec
	index int
	owner *NodeSpec
	order int
}

// Continuation is where traversal goes after a node. Node is nil when the
// document ends; Join is set when a parallel branch has run out of nodes.
type Continuation struct {
	Node *NodeSpec
	Join *NodeSpec
}

func newDefinition(id, version, filename string, header Header, nodes []*NodeSpec) *Definition {
	definition := &Definition{
		ID:       id,
		Version:  version,
		Filename: filename,
		Header:   header,
		Nodes:    nodes,
		index:    map[string]location{},
	}

	definition.indexBlock(nodes, nil)

	return definition
}

func (d *Definition) indexBlock(list []*NodeSpec, owner *NodeSpec) {
	for i, spec := range list {
		d.index[spec.ID] = location{list: list, index: i, owner: owner, order: len(d.order)}
		d.order = append(d.order, spec)

		d.indexBlock(spec.Block, spec)

		for _, branch := range spec.Branches {
			d.indexBlock(branch, spec)
		}
	}
}

// Iterate yields every node in document order, descending into blocks.
func (d *Definition) Iterate() iter.Seq[*NodeSpec] {
	return func(yield func(*NodeSpec) bool) {
		for _, spec := range d.order {
			if !yield(spec) {
				return
			}
		}
	}
}

// Find returns the first node in document order matching predicate.
func (d *Definition) Find(predicate func(*NodeSpec) bool) (*NodeSpec, error) {
	for spec := range d.Iterate() {
		if predicate(spec) {
			return spec, nil
		}
	}

	return nil, ErrElementNotFound
}

// Node returns the node with the given id.
func (d *Definition) Node(id string) (*NodeSpec, error) {
	if _, ok := d.index[id]; !ok {
		return nil, NewElementNotFoundError(d.Name(), id)
	}

	return d.index[id].list[d.index[id].index], nil
}

// Position returns the document-order index of a node, or -1.
func (d *Definition) Position(id string) int {
	loc, ok := d.index[id]
	if !ok {
		return -1
	}

	return loc.order
}

// Between returns the nodes from first to last inclusive in document order.
func (d *Definition) Between(first, last string) []*NodeSpec {
	from, to := d.Position(first), d.Position(last)
	if from < 0 || to < 0 || from > to {
		return nil
	}

	return d.order[from : to+1]
}

// Owner returns the pseudo-node whose block contains id, or nil at top level.
func (d *Definition) Owner(id string) *NodeSpec {
	return d.index[id].owner
}

// Contains reports whether node id lies anywhere inside the blocks of owner.
func (d *Definition) Contains(owner *NodeSpec, id string) bool {
	for parent := d.Owner(id); parent != nil; parent = d.Owner(parent.ID) {
		if parent == owner {
			return true
		}
	}

	return false
}

// First returns where traversal starts.
func (d *Definition) First() Continuation {
	if len(d.Nodes) == 0 {
		return Continuation{}
	}

	return Continuation{Node: d.Nodes[0]}
}

// Chain returns the if node of spec's chain followed by its elif and else
// members.
func (d *Definition) Chain(spec *NodeSpec) []*NodeSpec {
	loc := d.index[spec.ID]

	start := loc.index
	for start > 0 && (loc.list[start].Type == NodeTypeElif || loc.list[start].Type == NodeTypeElse) {
		start--
	}

	chain := []*NodeSpec{loc.list[start]}

	for i := start + 1; i < len(loc.list); i++ {
		if loc.list[i].Type != NodeTypeElif && loc.list[i].Type != NodeTypeElse {
			break
		}

		chain = append(chain, loc.list[i])
	}

	return chain
}

// Following resolves the graph-order successor of spec: the next sibling,
// skipping the rest of an if chain, or whatever follows the enclosing block
// once spec's block runs out.
func (d *Definition) Following(spec *NodeSpec) Continuation {
	loc := d.index[spec.ID]

	next := loc.index + 1
	if spec.Type == NodeTypeIf || spec.Type == NodeTypeElif || spec.Type == NodeTypeElse {
		for next < len(loc.list) && (loc.list[next].Type == NodeTypeElif || loc.list[next].Type == NodeTypeElse) {
			next++
		}
	}

	if next < len(loc.list) {
		return Continuation{Node: loc.list[next]}
	}

	switch {
	case loc.owner == nil:
		return Continuation{}
	case loc.owner.Type == NodeTypeParallel:
		return Continuation{Join: loc.owner}
	default:
		return d.Following(loc.owner)
	}
}
