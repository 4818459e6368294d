// Package state maintains the per-execution state projection: for every node
// of the definition, its validity and what each actor submitted.
package state

import (
	"encoding/json"
	"fmt"

	"github.com/dukex/pvm/pkg/models"
	"github.com/dukex/pvm/pkg/process"
)

type NodeState struct {
	ID      string                            `json:"id"`
	State   models.State                      `json:"state"`
	Comment string                            `json:"comment"`
	Actors  *models.OrderedMap[*models.Actor] `json:"actors"`
}

// Projection is the ordered node_id -> NodeState snapshot of an execution.
type Projection struct {
	nodes *models.OrderedMap[*NodeState]
}

// New returns a projection holding every concrete node of definition in
// document order, all unfilled.
func New(definition *process.Definition) *Projection {
	projection := &Projection{nodes: models.NewOrderedMap[*NodeState]()}

	for spec := range definition.Iterate() {
		if spec.Type.IsPseudo() {
			continue
		}

		projection.nodes.Set(spec.ID, &NodeState{
			ID:     spec.ID,
			State:  models.StateUnfilled,
			Actors: models.NewOrderedMap[*models.Actor](),
		})
	}

	return projection
}

func (p *Projection) Get(nodeID string) (*NodeState, bool) {
	return p.nodes.Get(nodeID)
}

func (p *Projection) Keys() []string {
	return p.nodes.Keys()
}

func (p *Projection) node(nodeID string) *NodeState {
	node, ok := p.nodes.Get(nodeID)
	if !ok {
		node = &NodeState{ID: nodeID, State: models.StateUnfilled, Actors: models.NewOrderedMap[*models.Actor]()}
		p.nodes.Set(nodeID, node)
	}

	if node.Actors == nil {
		node.Actors = models.NewOrderedMap[*models.Actor]()
	}

	return node
}

// Upsert records an actor contribution, replacing that actor's previous one.
func (p *Projection) Upsert(nodeID string, actor *models.Actor) {
	p.node(nodeID).Actors.Set(actor.User.Identifier, actor)
}

// Resolve sets the node state and comment.
func (p *Projection) Resolve(nodeID string, state models.State, comment string) {
	node := p.node(nodeID)
	node.State = state
	node.Comment = comment
}

// LastActor returns the most recent actor of a node.
func (p *Projection) LastActor(nodeID string) (*models.Actor, bool) {
	node, ok := p.nodes.Get(nodeID)
	if !ok {
		return nil, false
	}

	_, actor, ok := node.Actors.Last()

	return actor, ok
}

// LatestForm returns the last submitted instance of form ref at a node.
func (p *Projection) LatestForm(nodeID, ref string) (*models.Form, bool) {
	node, ok := p.nodes.Get(nodeID)
	if !ok {
		return nil, false
	}

	var latest *models.Form

	node.Actors.Each(func(_ string, actor *models.Actor) {
		for _, form := range actor.Forms {
			if form.Ref == ref {
				latest = form
			}
		}
	})

	return latest, latest != nil
}

// FormData collects every submitted form as form -> field -> value, later
// nodes overriding earlier ones.
func (p *Projection) FormData() map[string]map[string]any {
	data := map[string]map[string]any{}

	p.nodes.Each(func(_ string, node *NodeState) {
		node.Actors.Each(func(_ string, actor *models.Actor) {
			for _, form := range actor.Forms {
				data[form.Ref] = form.Values()
			}
		})
	})

	return data
}

// Clone returns a deep copy of the projection.
func (p *Projection) Clone() (*Projection, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to copy projection: %w", err)
	}

	clone := &Projection{}

	err = json.Unmarshal(data, clone)
	if err != nil {
		return nil, fmt.Errorf("failed to copy projection: %w", err)
	}

	return clone, nil
}

func (p *Projection) MarshalJSON() ([]byte, error) {
	return p.nodes.MarshalJSON()
}

func (p *Projection) UnmarshalJSON(data []byte) error {
	p.nodes = models.NewOrderedMap[*NodeState]()

	return p.nodes.UnmarshalJSON(data)
}
