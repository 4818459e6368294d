package nodes

import (
	"github.com/dukex/pvm/pkg/models"
	"github.com/dukex/pvm/pkg/process"
)

// Action collects forms and moves on to its graph-order successor.
type Action struct {
	base
}

func (a *Action) Validate(input []models.FormInput) ([]*models.Form, error) {
	return validateForms(a.spec.Forms, input)
}

func (a *Action) Next(definition *process.Definition, _ *models.Actor, env Env) ([]Node, error) {
	return advance(definition, a.spec, env)
}

func (a *Action) IsAsync() bool {
	return a.spec.AuthFilter != nil || len(a.spec.Forms) > 0
}

func (a *Action) CanContinue(activity *models.Activity) bool {
	return a.canContinue(activity)
}
