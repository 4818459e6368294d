package handler

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/dukex/pvm/pkg/condition"
	"github.com/dukex/pvm/pkg/docstore"
	"github.com/dukex/pvm/pkg/events"
	"github.com/dukex/pvm/pkg/models"
	"github.com/dukex/pvm/pkg/nodes"
	"github.com/dukex/pvm/pkg/process"
	"github.com/dukex/pvm/pkg/state"
)

type assignment struct {
	user    *models.User
	pointer *models.Pointer
	filter  *process.AuthFilter
}

// transaction stages every change one command makes to an execution.
// Nothing is written until commit, so an error anywhere before it leaves
// the execution as it was.
type transaction struct {
	handler    *Handler
	ctx        context.Context
	logger     *slog.Logger
	definition *process.Definition
	execution  *models.Execution
	document   *ExecutionDocument

	live     map[string]*models.Pointer
	created  []*models.Pointer
	deleted  []*models.Pointer
	touched  []*models.Activity
	assigned []assignment
	commands []events.Command
	joined   map[string]bool
}

func (h *Handler) newTransaction(
	ctx context.Context,
	definition *process.Definition,
	execution *models.Execution,
	document *ExecutionDocument,
	live []*models.Pointer,
) *transaction {
	tx := &transaction{
		handler:    h,
		ctx:        ctx,
		logger:     h.logger.With("execution_id", execution.ID, "process", execution.ProcessName),
		definition: definition,
		execution:  execution,
		document:   document,
		live:       map[string]*models.Pointer{},
		joined:     map[string]bool{},
	}

	for _, pointer := range live {
		tx.live[pointer.ID] = pointer
	}

	return tx
}

func (tx *transaction) Scope(at *process.NodeSpec) (*condition.Scope, error) {
	return state.Scope(tx.definition, tx.document.State, at)
}

func (tx *transaction) Reject(rejection state.Rejection) error {
	projection, err := state.Invalidate(tx.document.State, tx.definition, rejection)
	if err != nil {
		return err
	}

	tx.document.State = projection

	tx.logger.InfoContext(tx.ctx, "Execution sent back",
		"from", rejection.Current, "to", rejection.Target, "actor", rejection.Actor)

	return nil
}

func (tx *transaction) touch(activity *models.Activity) {
	if !slices.Contains(tx.touched, activity) {
		tx.touched = append(tx.touched, activity)
	}
}

func (tx *transaction) newActivity(node nodes.Node, pointer *models.Pointer) *models.Activity {
	activity := &models.Activity{
		ID:          uuid.NewString(),
		ExecutionID: tx.execution.ID,
		NodeID:      node.ID(),
		Node:        nodes.Snapshot(node),
		StartedAt:   tx.handler.now(),
		Actors:      models.NewOrderedMap[*models.Actor](),
	}

	if pointer != nil {
		activity.PointerID = pointer.ID
	}

	tx.touch(activity)

	return activity
}

// resolve finishes the node a pointer waited on.
func (tx *transaction) resolve(pointer *models.Pointer, activity *models.Activity, outcome models.PointerState) {
	activity.Close(tx.handler.now())
	tx.touch(activity)

	if outcome == models.PointerStateAdvanced {
		tx.document.State.Resolve(pointer.NodeID, models.StateValid, "")
	}

	delete(tx.live, pointer.ID)
	tx.deleted = append(tx.deleted, pointer)

	tx.handler.pointerTransition(outcome)
	tx.logger.DebugContext(tx.ctx, "Pointer resolved",
		"pointer_id", pointer.ID, "node_id", pointer.NodeID, "state", outcome)
}

// drain places execution on next, following every synchronous hop the
// definition allows without waiting for a command. Join points are held
// back until nothing else is left so that branches reached in this same
// transaction count as live.
func (tx *transaction) drain(next []nodes.Node) error {
	queue := slices.Clone(next)

	var joins []nodes.Node

	for len(queue) > 0 || len(joins) > 0 {
		if len(queue) == 0 {
			join := joins[0]
			joins = joins[1:]

			following, err := tx.join(join)
			if err != nil {
				return err
			}

			queue = append(queue, following...)

			continue
		}

		node := queue[0]
		queue = queue[1:]

		switch {
		case node.Spec().Type == process.NodeTypeParallel:
			joins = append(joins, node)
		case node.IsEnd():
			tx.exit(node)
		default:
			tx.enter(node)
		}
	}

	return nil
}

func (tx *transaction) join(node nodes.Node) ([]nodes.Node, error) {
	if tx.joined[node.ID()] {
		return nil, nil
	}

	for _, pointer := range tx.live {
		if tx.definition.Contains(node.Spec(), pointer.NodeID) {
			tx.logger.DebugContext(tx.ctx, "Join waiting for branches",
				"parallel", node.ID(), "waiting_on", pointer.NodeID)

			return nil, nil
		}
	}

	tx.joined[node.ID()] = true
	tx.logger.InfoContext(tx.ctx, "Parallel block joined", "parallel", node.ID())

	return node.Next(tx.definition, nil, tx)
}

func (tx *transaction) exit(node nodes.Node) {
	activity := tx.newActivity(node, nil)
	activity.Close(tx.handler.now())

	tx.document.State.Resolve(node.ID(), models.StateValid, "")
	tx.logger.InfoContext(tx.ctx, "Exit reached", "node_id", node.ID())
}

func (tx *transaction) enter(node nodes.Node) {
	pointer := &models.Pointer{
		ID:          uuid.NewString(),
		ExecutionID: tx.execution.ID,
		NodeID:      node.ID(),
		CreatedAt:   tx.handler.now(),
	}

	tx.live[pointer.ID] = pointer
	tx.created = append(tx.created, pointer)
	tx.handler.pointerTransition(models.PointerStatePending)

	activity := tx.newActivity(node, pointer)

	tx.wakeUp(node, pointer, activity)

	if !node.IsAsync() {
		tx.commands = append(tx.commands, events.Step{
			Command:   events.StepCommand,
			PointerID: pointer.ID,
		})
	}

	tx.handler.pointerTransition(models.PointerStateActive)
	tx.logger.DebugContext(tx.ctx, "Pointer created",
		"pointer_id", pointer.ID, "node_id", node.ID(), "async", node.IsAsync())
}

// commit writes the staged changes, finishing the execution when no pointer
// is left, and then publishes the continuations and notifications.
func (tx *transaction) commit() error {
	ctx := tx.ctx
	h := tx.handler

	if tx.execution.IsOngoing() && len(tx.live) == 0 {
		tx.execution.Finish(models.ExecutionStatusFinished, h.now())
		tx.logger.InfoContext(ctx, "Execution finished")
	}

	tx.render()
	tx.document.Execution = *tx.execution

	for _, activity := range tx.touched {
		if err := h.config.Documents.Put(ctx, docstore.History, activity.ID, activity); err != nil {
			return fmt.Errorf("failed to save activity %s: %w", activity.ID, err)
		}
	}

	if err := h.config.Documents.Put(ctx, docstore.Executions, tx.execution.ID, tx.document); err != nil {
		return fmt.Errorf("failed to save execution document %s: %w", tx.execution.ID, err)
	}

	pointers := h.config.Persistence.Pointers()
	users := h.config.Persistence.Users()

	for _, pointer := range tx.created {
		if err := pointers.Save(ctx, pointer); err != nil {
			return err
		}
	}

	for _, assigned := range tx.assigned {
		if err := users.AddTask(ctx, assigned.user.Identifier, assigned.pointer.ID); err != nil {
			return err
		}
	}

	if err := h.config.Persistence.Executions().Save(ctx, tx.execution); err != nil {
		return err
	}

	for _, pointer := range tx.deleted {
		if err := users.RemoveTask(ctx, pointer.ID); err != nil {
			return err
		}

		if err := pointers.Delete(ctx, pointer.ID); err != nil {
			return err
		}
	}

	if !tx.execution.IsOngoing() {
		h.executionReached(tx.execution.Status)
	}

	return tx.publish()
}

func (tx *transaction) render() {
	forms := tx.document.State.FormData()

	name, err := tx.definition.RenderName(forms)
	if err != nil {
		tx.logger.WarnContext(tx.ctx, "Failed to render execution name", "error", err)
	} else {
		tx.execution.Name = name
	}

	description, err := tx.definition.RenderDescription(forms)
	if err != nil {
		tx.logger.WarnContext(tx.ctx, "Failed to render execution description", "error", err)
	} else {
		tx.execution.Description = description
	}
}

func (tx *transaction) publish() error {
	for _, command := range tx.commands {
		if err := tx.handler.config.Publisher.PublishCommand(tx.ctx, command); err != nil {
			return fmt.Errorf("failed to publish continuation: %w", err)
		}
	}

	for _, assigned := range tx.assigned {
		notification := tx.notification(assigned)

		if err := tx.handler.config.Publisher.Notify(tx.ctx, notification); err != nil {
			tx.logger.ErrorContext(tx.ctx, "Failed to notify user",
				"user", assigned.user.Identifier, "pointer_id", assigned.pointer.ID, "error", err)
		}
	}

	return nil
}

func (tx *transaction) notification(assigned assignment) events.Notification {
	routingKey := tx.handler.config.NotifyBackend
	if assigned.filter.Notify != "" {
		routingKey = assigned.filter.Notify
	}

	return events.Notification{
		RoutingKey: routingKey,
		Body: map[string]any{
			"email": assigned.user.Email,
			"pointer": map[string]any{
				"id":      assigned.pointer.ID,
				"node_id": assigned.pointer.NodeID,
				"execution": map[string]any{
					"id":           tx.execution.ID,
					"process_name": tx.execution.ProcessName,
					"name":         tx.execution.Name,
				},
			},
		},
	}
}

// livePointers returns the execution's live pointers, oldest first.
func (tx *transaction) livePointers() []*models.Pointer {
	return slices.SortedFunc(maps.Values(tx.live), func(a, b *models.Pointer) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}
