package nodes

import (
	"github.com/dukex/pvm/pkg/models"
	"github.com/dukex/pvm/pkg/process"
)

// Exit ends the branch that reaches it.
type Exit struct {
	base
}

func (e *Exit) Validate([]models.FormInput) ([]*models.Form, error) {
	return nil, nil
}

func (e *Exit) Next(*process.Definition, *models.Actor, Env) ([]Node, error) {
	return nil, nil
}

func (e *Exit) IsEnd() bool {
	return true
}

func (e *Exit) IsAsync() bool {
	return false
}

func (e *Exit) CanContinue(*models.Activity) bool {
	return true
}
