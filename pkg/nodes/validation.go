package nodes

import (
	"fmt"

	"github.com/dukex/pvm/pkg/models"
	"github.com/dukex/pvm/pkg/process"
	"github.com/dukex/pvm/pkg/state"
)

const (
	ResponseAccept = "accept"
	ResponseReject = "reject"

	inputTypeRefs = "refs"
)

// approvalForm is the form every validation node collects besides its own.
var approvalForm = &process.FormSpec{
	ID: state.ApprovalForm,
	Inputs: []*process.InputSpec{
		{
			Name:     "response",
			Type:     "select",
			Required: true,
			Options: []process.Option{
				{Value: ResponseAccept, Label: "Accept"},
				{Value: ResponseReject, Label: "Reject"},
			},
		},
		{Name: "comment", Type: "textarea"},
		{Name: "inputs", Type: inputTypeRefs},
	},
}

// Validation asks its actor to accept or reject the work done so far. A
// rejection lists the fields at fault and sends the execution back to the
// earliest node owning one of them.
type Validation struct {
	base
}

func (v *Validation) forms() []*process.FormSpec {
	return append([]*process.FormSpec{approvalForm}, v.spec.Forms...)
}

func (v *Validation) Validate(input []models.FormInput) ([]*models.Form, error) {
	forms, err := validateForms(v.forms(), input)
	if err != nil {
		return nil, err
	}

	approval := findForm(forms, state.ApprovalForm)
	if approval == nil || response(approval) != ResponseReject {
		return forms, nil
	}

	refs, _ := approval.Values()["inputs"].([]any)
	if len(refs) == 0 {
		return nil, &ValidationError{Errors: []FieldError{{
			Form:   state.ApprovalForm,
			Field:  "inputs",
			Code:   "required",
			Detail: "a rejection must point at the fields to fix",
		}}}
	}

	var errs []FieldError

	for _, raw := range refs {
		ref, _ := raw.(string)
		if _, err := state.ParseReference(ref); err != nil {
			errs = append(errs, FieldError{
				Form:   state.ApprovalForm,
				Field:  "inputs",
				Code:   "invalid",
				Detail: fmt.Sprintf("'%v' is not a field reference", raw),
			})
		}
	}

	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return forms, nil
}

func (v *Validation) Next(definition *process.Definition, actor *models.Actor, env Env) ([]Node, error) {
	if actor == nil {
		return advance(definition, v.spec, env)
	}

	approval := findForm(actor.Forms, state.ApprovalForm)
	if approval == nil || response(approval) != ResponseReject {
		return advance(definition, v.spec, env)
	}

	values := approval.Values()
	comment, _ := values["comment"].(string)
	raw, _ := values["inputs"].([]any)

	rejection := state.Rejection{
		Current: v.spec.ID,
		Actor:   actor.User.Identifier,
		Comment: comment,
	}

	current := definition.Position(v.spec.ID)
	earliest := -1

	for _, item := range raw {
		text, _ := item.(string)

		ref, err := state.ParseReference(text)
		if err != nil {
			return nil, &ValidationError{Errors: []FieldError{{
				Form:   state.ApprovalForm,
				Field:  "inputs",
				Code:   "invalid",
				Detail: fmt.Sprintf("'%s' is not a field reference", text),
			}}}
		}

		position := definition.Position(ref.Node)
		if position < 0 {
			return nil, &CannotMoveError{NodeID: v.spec.ID, Reason: fmt.Sprintf("referenced node %s does not exist", ref.Node)}
		}

		if position > current {
			return nil, &CannotMoveError{NodeID: v.spec.ID, Reason: fmt.Sprintf("referenced node %s comes after this node", ref.Node)}
		}

		if earliest < 0 || position < earliest {
			earliest = position
			rejection.Target = ref.Node
		}

		rejection.Refs = append(rejection.Refs, ref)
	}

	if rejection.Target == "" {
		return nil, &CannotMoveError{NodeID: v.spec.ID, Reason: "rejection does not reference any field"}
	}

	target, err := definition.Node(rejection.Target)
	if err != nil {
		return nil, err
	}

	if target.Type.IsPseudo() {
		return nil, &CannotMoveError{NodeID: v.spec.ID, Reason: fmt.Sprintf("cannot rewind to %s node %s", target.Type, target.ID)}
	}

	if err := env.Reject(rejection); err != nil {
		return nil, err
	}

	node, err := Make(target)
	if err != nil {
		return nil, err
	}

	return []Node{node}, nil
}

func (v *Validation) IsAsync() bool {
	return true
}

// CanContinue resolves immediately on a rejection; acceptance follows the
// auth filter's actor requirements.
func (v *Validation) CanContinue(activity *models.Activity) bool {
	rejected := false

	activity.Actors.Each(func(_ string, actor *models.Actor) {
		if Rejected(actor) {
			rejected = true
		}
	})

	return rejected || v.canContinue(activity)
}

// Rejected reports whether actor rejected the node's work.
func Rejected(actor *models.Actor) bool {
	if actor == nil {
		return false
	}

	approval := findForm(actor.Forms, state.ApprovalForm)

	return approval != nil && response(approval) == ResponseReject
}

func findForm(forms []*models.Form, ref string) *models.Form {
	for _, form := range forms {
		if form.Ref == ref {
			return form
		}
	}

	return nil
}

func response(approval *models.Form) string {
	value, _ := approval.Values()["response"].(string)

	return value
}
