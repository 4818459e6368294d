package nodes

import (
	"github.com/dukex/pvm/pkg/models"
	"github.com/dukex/pvm/pkg/process"
)

// Join is reached when a branch of a parallel block runs out of nodes. The
// handler only follows it once no pointer is left inside the block.
type Join struct {
	base
}

func (j *Join) Validate([]models.FormInput) ([]*models.Form, error) {
	return nil, nil
}

func (j *Join) Next(definition *process.Definition, _ *models.Actor, env Env) ([]Node, error) {
	return advance(definition, j.spec, env)
}

func (j *Join) IsAsync() bool {
	return false
}

func (j *Join) CanContinue(*models.Activity) bool {
	return true
}
