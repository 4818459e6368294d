package state

import (
	"github.com/dukex/pvm/pkg/condition"
	"github.com/dukex/pvm/pkg/models"
	"github.com/dukex/pvm/pkg/process"
)

// Scope builds the condition scope visible at node at: every form declared
// by the nodes before it, with blocks pushed and popped the way the
// definition nests them. Submitted values come from the projection; forms
// nobody filled yet expose their defaults.
func Scope(definition *process.Definition, projection *Projection, at *process.NodeSpec) (*condition.Scope, error) {
	scope := condition.NewScope()

	if !walk(definition.Nodes, at, projection, scope) {
		return nil, process.NewElementNotFoundError(definition.Name(), at.ID)
	}

	return scope, nil
}

func walk(list []*process.NodeSpec, at *process.NodeSpec, projection *Projection, scope *condition.Scope) bool {
	for _, spec := range list {
		if spec == at {
			return true
		}

		switch spec.Type {
		case process.NodeTypeIf, process.NodeTypeElif, process.NodeTypeElse:
			scope.Push()

			if walk(spec.Block, at, projection, scope) {
				return true
			}

			scope.Pop()
		case process.NodeTypeParallel:
			for _, branch := range spec.Branches {
				scope.Push()

				if walk(branch, at, projection, scope) {
					return true
				}

				scope.Pop()
			}
		default:
			bind(spec, projection, scope)
		}
	}

	return false
}

func bind(spec *process.NodeSpec, projection *Projection, scope *condition.Scope) {
	for _, form := range spec.Forms {
		values := form.Defaults()

		if submitted, ok := projection.LatestForm(spec.ID, form.ID); ok {
			submitted.Inputs.Each(func(name string, field *models.Field) {
				values[name] = field.Value
			})
		}

		scope.Set(form.ID, values)
	}
}
