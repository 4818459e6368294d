// Package nodes implements the behaviour of each node type of a process:
// input validation, whether it waits for people, and where execution goes
// once it resolves.
package nodes

import (
	"fmt"

	"github.com/dukex/pvm/pkg/condition"
	"github.com/dukex/pvm/pkg/models"
	"github.com/dukex/pvm/pkg/process"
	"github.com/dukex/pvm/pkg/state"
)

// Env is the execution context traversal reads and, on rejection, updates.
type Env interface {
	// Scope returns the condition scope visible at a node.
	Scope(at *process.NodeSpec) (*condition.Scope, error)
	// Reject applies a rejection to the execution's state projection.
	Reject(rejection state.Rejection) error
}

type Node interface {
	ID() string
	Spec() *process.NodeSpec
	// Validate checks submitted forms and returns them normalized in spec order.
	Validate(input []models.FormInput) ([]*models.Form, error)
	// Next returns the nodes execution continues with. actor is nil for
	// synchronous nodes.
	Next(definition *process.Definition, actor *models.Actor, env Env) ([]Node, error)
	IsEnd() bool
	// IsAsync reports whether the node waits for a person to act.
	IsAsync() bool
	// CanContinue reports whether enough actors have contributed to resolve.
	CanContinue(activity *models.Activity) bool
}

// Make builds the node for a concrete spec.
func Make(spec *process.NodeSpec) (Node, error) {
	switch spec.Type {
	case process.NodeTypeAction:
		return &Action{base{spec: spec}}, nil
	case process.NodeTypeValidation:
		return &Validation{base{spec: spec}}, nil
	case process.NodeTypeExit:
		return &Exit{base{spec: spec}}, nil
	case process.NodeTypeParallel:
		return &Join{base{spec: spec}}, nil
	}

	return nil, fmt.Errorf("node %s of type %s cannot be instantiated", spec.ID, spec.Type)
}

type base struct {
	spec *process.NodeSpec
}

func (b *base) ID() string {
	return b.spec.ID
}

func (b *base) Spec() *process.NodeSpec {
	return b.spec
}

func (b *base) IsEnd() bool {
	return false
}

func (b *base) canContinue(activity *models.Activity) bool {
	filter := b.spec.AuthFilter
	if filter == nil || !filter.All || len(activity.RequiredActors) == 0 {
		return true
	}

	for _, identifier := range activity.RequiredActors {
		if _, ok := activity.Actors.Get(identifier); !ok {
			return false
		}
	}

	return true
}

// Snapshot returns the node description stored in history.
func Snapshot(node Node) models.NodeSnapshot {
	spec := node.Spec()

	return models.NodeSnapshot{
		ID:          spec.ID,
		Type:        string(spec.Type),
		Name:        spec.Info.Name,
		Description: spec.Info.Description,
	}
}
