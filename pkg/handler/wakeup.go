package handler

import (
	"fmt"
	"strings"

	"github.com/dukex/pvm/pkg/auth"
	"github.com/dukex/pvm/pkg/models"
	"github.com/dukex/pvm/pkg/nodes"
	"github.com/dukex/pvm/pkg/process"
)

// wakeUp assigns a new pointer to the users its auth-filter resolves to and
// queues their notifications. Provider failures are logged and the pointer
// is left unassigned.
func (tx *transaction) wakeUp(node nodes.Node, pointer *models.Pointer, activity *models.Activity) {
	filter := node.Spec().AuthFilter
	if filter == nil {
		return
	}

	logger := tx.logger.With("node_id", node.ID(), "backend", filter.Backend)

	provider, err := tx.hierarchy(filter)
	if err != nil {
		logger.WarnContext(tx.ctx, "Cannot wake up node", "error", err)

		return
	}

	users, err := provider.FindUsers(tx.ctx, tx.params(filter))
	if err != nil {
		logger.WarnContext(tx.ctx, "Failed to find users for node", "error", err)

		return
	}

	for _, user := range users {
		activity.NotifiedUsers = append(activity.NotifiedUsers, user.Snapshot())

		if filter.All {
			activity.RequiredActors = append(activity.RequiredActors, user.Identifier)
		}

		tx.assigned = append(tx.assigned, assignment{user: user, pointer: pointer, filter: filter})
	}

	logger.DebugContext(tx.ctx, "Node woken up", "pointer_id", pointer.ID, "users", len(users))
}

// authorize fails unless user may act on node.
func (tx *transaction) authorize(node nodes.Node, user *models.User) error {
	filter := node.Spec().AuthFilter
	if filter == nil {
		return nil
	}

	provider, err := tx.hierarchy(filter)
	if err != nil {
		return err
	}

	return provider.ValidateUser(tx.ctx, user, tx.params(filter))
}

// nolint:ireturn
func (tx *transaction) hierarchy(filter *process.AuthFilter) (auth.HierarchyProvider, error) {
	provider, err := tx.handler.config.Hierarchies.Get(filter.Backend)
	if err != nil {
		return nil, &auth.MisconfiguredProviderError{Provider: filter.Backend, Reason: err.Error()}
	}

	return provider, nil
}

// params resolves auth-filter params against the execution so far.
// "user#node" becomes the identifier of the node's last actor and
// "form#form.field" the last submitted value of that field.
func (tx *transaction) params(filter *process.AuthFilter) map[string]string {
	params := make(map[string]string, len(filter.Params))

	for _, param := range filter.Params {
		if param.Type != process.ParamTypeRef {
			params[param.Name] = param.Value

			continue
		}

		kind, target, _ := strings.Cut(param.Value, "#")

		switch kind {
		case process.RefKindUser:
			if actor, ok := tx.document.State.LastActor(target); ok {
				params[param.Name] = actor.User.Identifier
			}
		case process.RefKindForm:
			form, field, _ := strings.Cut(target, ".")
			if value, ok := tx.document.State.FormData()[form][field]; ok && value != nil {
				params[param.Name] = fmt.Sprint(value)
			}
		}
	}

	return params
}
