package nodes

import (
	"strings"

	"github.com/dukex/pvm/pkg/condition"
	"github.com/dukex/pvm/pkg/models"
	"github.com/dukex/pvm/pkg/process"
)

// CheckDependencies verifies that every dependency of node resolves in the
// scope at the node, including the forms just submitted to it.
func CheckDependencies(node Node, forms []*models.Form, env Env) error {
	spec := node.Spec()
	if len(spec.Dependencies) == 0 {
		return nil
	}

	scope, err := env.Scope(spec)
	if err != nil {
		return err
	}

	for _, form := range forms {
		scope.Set(form.Ref, form.Values())
	}

	var errs []FieldError

	for _, dependency := range spec.Dependencies {
		if !resolves(scope, dependency) {
			errs = append(errs, FieldError{
				Form:   spec.ID,
				Field:  dependency.Ref,
				Code:   "dependency",
				Detail: "dependency is not available at this node",
			})
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}

	return nil
}

func resolves(scope *condition.Scope, dependency *process.Dependency) bool {
	form, field, ok := strings.Cut(dependency.Ref, ".")
	if !ok || form == "" || field == "" {
		return false
	}

	return scope.Has(form, field)
}
