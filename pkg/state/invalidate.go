package state

import (
	"github.com/dukex/pvm/pkg/models"
	"github.com/dukex/pvm/pkg/process"
)

// ApprovalForm is the implicit form every validation node collects.
const ApprovalForm = "approval"

// Rejection describes a validation node sending an execution back.
type Rejection struct {
	Target  string
	Current string
	Actor   string
	Comment string
	Refs    []Reference
}

// Invalidate returns a copy of projection where every node from the rewind
// target to the rejecting node is invalid and carries the comment. The
// referenced fields, their forms and actors are invalidated too, as is the
// rejecting actor's approval.
func Invalidate(projection *Projection, definition *process.Definition, rejection Rejection) (*Projection, error) {
	result, err := projection.Clone()
	if err != nil {
		return nil, err
	}

	for _, spec := range definition.Between(rejection.Target, rejection.Current) {
		if spec.Type.IsPseudo() {
			continue
		}

		result.Resolve(spec.ID, models.StateInvalid, rejection.Comment)
	}

	for _, ref := range rejection.Refs {
		result.invalidateField(ref)
	}

	current := result.node(rejection.Current)
	if actor, ok := current.Actors.Get(rejection.Actor); ok {
		actor.State = models.StateInvalid

		for _, form := range actor.Forms {
			if form.Ref != ApprovalForm {
				continue
			}

			form.State = models.StateInvalid

			if field, ok := form.Inputs.Get("response"); ok {
				field.State = models.StateInvalid
			}
		}
	}

	return result, nil
}

func (p *Projection) invalidateField(ref Reference) {
	node, ok := p.nodes.Get(ref.Node)
	if !ok {
		return
	}

	actor, ok := node.Actors.Get(ref.Actor)
	if !ok {
		return
	}

	form := instance(actor.Forms, ref)
	if form == nil {
		return
	}

	field, ok := form.Inputs.Get(ref.Field)
	if !ok {
		return
	}

	field.State = models.StateInvalid
	form.State = models.StateInvalid
	actor.State = models.StateInvalid
}

func instance(forms []*models.Form, ref Reference) *models.Form {
	if ref.Form == "" {
		if ref.Instance < len(forms) {
			return forms[ref.Instance]
		}

		return nil
	}

	seen := 0

	for _, form := range forms {
		if form.Ref != ref.Form {
			continue
		}

		if seen == ref.Instance {
			return form
		}

		seen++
	}

	return nil
}
