// Package handler advances executions. Each command runs as one
// transaction under the execution's lock: it moves pointers through the
// process graph, records who did what in the history and keeps the state
// projection of the execution current.
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/pvm/pkg/auth"
	"github.com/dukex/pvm/pkg/docstore"
	"github.com/dukex/pvm/pkg/events"
	"github.com/dukex/pvm/pkg/lock"
	"github.com/dukex/pvm/pkg/metrics"
	"github.com/dukex/pvm/pkg/models"
	"github.com/dukex/pvm/pkg/nodes"
	"github.com/dukex/pvm/pkg/otelhelper"
	"github.com/dukex/pvm/pkg/persistence"
	"github.com/dukex/pvm/pkg/process"
	"github.com/dukex/pvm/pkg/registry"
	"github.com/dukex/pvm/pkg/state"
)

const (
	DefaultLockTTL       = 30 * time.Second
	DefaultNotifyBackend = "email"
)

// Publisher sends what a transaction produces once it is committed.
type Publisher interface {
	PublishCommand(ctx context.Context, command events.Command) error
	Notify(ctx context.Context, notification events.Notification) error
}

type Config struct {
	ProcessesPath string
	Persistence   persistence.Persistence
	Documents     docstore.Store
	Locker        lock.Locker
	LockTTL       time.Duration
	Hierarchies   *registry.Registry[auth.HierarchyProvider]
	Publisher     Publisher
	// NotifyBackend is the routing key of notifications whose auth-filter
	// names none.
	NotifyBackend string
	Metrics       *metrics.Metrics
	Tracer        trace.Tracer
}

type Handler struct {
	config Config
	logger *slog.Logger
	now    func() time.Time
}

func New(config Config, logger *slog.Logger) *Handler {
	if config.LockTTL <= 0 {
		config.LockTTL = DefaultLockTTL
	}

	if config.NotifyBackend == "" {
		config.NotifyBackend = DefaultNotifyBackend
	}

	if config.Hierarchies == nil {
		config.Hierarchies = registry.New[auth.HierarchyProvider](logger)
	}

	if config.Tracer == nil {
		config.Tracer = otelhelper.NewNoopTracer("pvm")
	}

	return &Handler{
		config: config,
		logger: logger.With("module", "handler"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Handle processes one queue message. It returns an error only when the
// message should be delivered again.
func (h *Handler) Handle(ctx context.Context, payload []byte) error {
	started := time.Now()

	command, err := events.Parse(payload)
	if err != nil {
		h.logger.ErrorContext(ctx, "Discarding malformed message", "error", err, "payload", string(payload))
		h.observe("unknown", metrics.OutcomeMalformed, started)

		return nil
	}

	name := string(command.GetCommand())

	ctx, span := otelhelper.StartSpan(ctx, h.config.Tracer, "pvm."+name,
		attribute.String(otelhelper.CommandKey, name))
	defer span.End()

	switch typed := command.(type) {
	case events.Start:
		span.SetAttributes(attribute.String(otelhelper.ProcessKey, typed.Process))
		_, err = h.Start(ctx, typed)
	case events.Step:
		span.SetAttributes(
			attribute.String(otelhelper.PointerIDKey, typed.PointerID),
			attribute.String(otelhelper.UserKey, typed.UserIdentifier),
		)
		err = h.Step(ctx, typed)
	case events.Cancel:
		span.SetAttributes(attribute.String(otelhelper.ExecutionIDKey, typed.ExecutionID))
		err = h.Cancel(ctx, typed)
	}

	outcome := h.classify(ctx, name, err)
	otelhelper.SetOutcome(span, outcome)
	h.observe(name, outcome, started)

	if outcome != metrics.OutcomeFailed {
		return nil
	}

	otelhelper.SetError(span, err)

	return err
}

func (h *Handler) classify(ctx context.Context, command string, err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeHandled
	case IsStale(err):
		h.logger.DebugContext(ctx, "Ignoring stale message", "command", command, "error", err)

		return metrics.OutcomeStale
	case IsClientError(err):
		h.logger.WarnContext(ctx, "Command rejected", "command", command, "error", err)

		return metrics.OutcomeRejected
	default:
		h.logger.ErrorContext(ctx, "Command failed", "command", command, "error", err)

		return metrics.OutcomeFailed
	}
}

// Start creates an execution of the named process and places it on its
// first nodes.
func (h *Handler) Start(ctx context.Context, start events.Start) (*models.Execution, error) {
	definition, err := process.Load(h.config.ProcessesPath, start.Process)
	if err != nil {
		return nil, err
	}

	execution := &models.Execution{
		ID:          uuid.NewString(),
		ProcessName: definition.Name(),
		Name:        definition.Header.Name,
		Description: definition.Header.Description,
		Status:      models.ExecutionStatusOngoing,
		StartedAt:   h.now(),
	}

	unlock, err := h.lock(ctx, execution.ID)
	if err != nil {
		return nil, err
	}
	defer h.unlock(ctx, unlock, execution.ID)

	document := &ExecutionDocument{Execution: *execution, State: state.New(definition)}
	tx := h.newTransaction(ctx, definition, execution, document, nil)

	first, err := nodes.Start(definition, tx)
	if err != nil {
		return nil, err
	}

	if err := tx.drain(first); err != nil {
		return nil, err
	}

	if err := tx.commit(); err != nil {
		return nil, err
	}

	h.executionReached(models.ExecutionStatusOngoing)

	tx.logger.InfoContext(ctx, "Execution started", "pointers", len(tx.live))

	return execution, nil
}

// Step submits a user's input to the node a pointer waits on and, once the
// node has every contribution it needs, moves the execution past it.
func (h *Handler) Step(ctx context.Context, step events.Step) error {
	pointers := h.config.Persistence.Pointers()

	pointer, err := pointers.GetByID(ctx, step.PointerID)
	if persistence.IsPointerNotFound(err) {
		return fmt.Errorf("%w: pointer %s", ErrStale, step.PointerID)
	}

	if err != nil {
		return err
	}

	unlock, err := h.lock(ctx, pointer.ExecutionID)
	if err != nil {
		return err
	}
	defer h.unlock(ctx, unlock, pointer.ExecutionID)

	// The pointer may have been resolved while waiting for the lock.
	pointer, err = pointers.GetByID(ctx, step.PointerID)
	if persistence.IsPointerNotFound(err) {
		return fmt.Errorf("%w: pointer %s", ErrStale, step.PointerID)
	}

	if err != nil {
		return err
	}

	tx, err := h.begin(ctx, pointer.ExecutionID)
	if err != nil {
		return err
	}

	spec, err := tx.definition.Node(pointer.NodeID)
	if err != nil {
		return err
	}

	node, err := nodes.Make(spec)
	if err != nil {
		return err
	}

	activity, err := h.openActivity(ctx, pointer)
	if err != nil {
		return err
	}

	if activity == nil {
		tx.logger.WarnContext(ctx, "Pointer had no open activity", "pointer_id", pointer.ID)
		activity = tx.newActivity(node, pointer)
	}

	var actor *models.Actor

	if node.IsAsync() {
		actor, err = tx.contribute(node, activity, step)
		if err != nil {
			return err
		}
	}

	if !node.CanContinue(activity) {
		tx.logger.InfoContext(ctx, "Node waiting for more actors",
			"node_id", node.ID(), "actors", activity.Actors.Len(), "required", len(activity.RequiredActors))

		return tx.commit()
	}

	outcome := models.PointerStateAdvanced
	if nodes.Rejected(actor) {
		outcome = models.PointerStateRejected
	}

	tx.resolve(pointer, activity, outcome)

	next, err := node.Next(tx.definition, actor, tx)
	if err != nil {
		return err
	}

	if err := tx.drain(next); err != nil {
		return err
	}

	return tx.commit()
}

// contribute records what user submitted to node.
func (tx *transaction) contribute(node nodes.Node, activity *models.Activity, step events.Step) (*models.Actor, error) {
	user, err := tx.handler.user(tx.ctx, step.UserIdentifier)
	if err != nil {
		return nil, err
	}

	if err := tx.authorize(node, user); err != nil {
		return nil, err
	}

	forms, err := node.Validate(step.Input)
	if err != nil {
		return nil, err
	}

	if err := nodes.CheckDependencies(node, forms, tx); err != nil {
		return nil, err
	}

	actor := &models.Actor{
		State: models.StateValid,
		User:  user.Snapshot(),
		Forms: forms,
	}

	activity.Actors.Set(user.Identifier, actor)
	tx.touch(activity)
	tx.document.State.Upsert(node.ID(), actor)

	tx.logger.InfoContext(tx.ctx, "Actor contributed", "node_id", node.ID(), "user", user.Identifier)

	return actor, nil
}

func (h *Handler) user(ctx context.Context, identifier string) (*models.User, error) {
	if identifier == "" {
		return nil, auth.NewMissingCredentialError("user_identifier")
	}

	user, err := h.config.Persistence.Users().GetByIdentifier(ctx, identifier)
	if persistence.IsUserNotFound(err) {
		return nil, &auth.AuthenticationError{
			Description: fmt.Sprintf("user %s does not exist", identifier),
			Code:        "auth.user_not_found",
			Where:       "request.body.user_identifier",
		}
	}

	if err != nil {
		return nil, err
	}

	return user, nil
}

// Cancel stops an ongoing execution, dropping every pointer it has left.
// Cancelling a terminal execution does nothing.
func (h *Handler) Cancel(ctx context.Context, cancel events.Cancel) error {
	unlock, err := h.lock(ctx, cancel.ExecutionID)
	if err != nil {
		return err
	}
	defer h.unlock(ctx, unlock, cancel.ExecutionID)

	tx, err := h.begin(ctx, cancel.ExecutionID)
	if err != nil {
		return err
	}

	activities, err := h.openActivities(ctx, cancel.ExecutionID)
	if err != nil {
		return err
	}

	now := h.now()

	for _, activity := range activities {
		activity.Close(now)
		tx.touch(activity)
	}

	for _, pointer := range tx.livePointers() {
		delete(tx.live, pointer.ID)
		tx.deleted = append(tx.deleted, pointer)
		h.pointerTransition(models.PointerStateTerminated)
	}

	tx.execution.Finish(models.ExecutionStatusCancelled, now)
	tx.logger.InfoContext(ctx, "Execution cancelled", "pointers", len(tx.deleted))

	return tx.commit()
}

// begin loads everything a command needs to change an ongoing execution.
func (h *Handler) begin(ctx context.Context, executionID string) (*transaction, error) {
	execution, err := h.config.Persistence.Executions().GetByID(ctx, executionID)
	if persistence.IsExecutionNotFound(err) {
		return nil, fmt.Errorf("%w: execution %s", ErrStale, executionID)
	}

	if err != nil {
		return nil, err
	}

	if !execution.IsOngoing() {
		return nil, fmt.Errorf("%w: execution %s is %s", ErrStale, executionID, execution.Status)
	}

	definition, err := process.Load(h.config.ProcessesPath, execution.ProcessName)
	if err != nil {
		return nil, err
	}

	document, err := h.loadDocument(ctx, execution, definition)
	if err != nil {
		return nil, err
	}

	live, err := h.config.Persistence.Pointers().ListByExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}

	return h.newTransaction(ctx, definition, execution, document, live), nil
}

func (h *Handler) lock(ctx context.Context, executionID string) (lock.UnlockFunc, error) {
	unlock, err := h.config.Locker.Lock(ctx, "execution:"+executionID, h.config.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to lock execution %s: %w", executionID, err)
	}

	return unlock, nil
}

func (h *Handler) unlock(ctx context.Context, unlock lock.UnlockFunc, executionID string) {
	if err := unlock(context.WithoutCancel(ctx)); err != nil {
		h.logger.WarnContext(ctx, "Failed to release execution lock", "execution_id", executionID, "error", err)
	}
}

func (h *Handler) observe(command, outcome string, started time.Time) {
	if h.config.Metrics != nil {
		h.config.Metrics.ObserveMessage(command, outcome, time.Since(started))
	}
}

func (h *Handler) pointerTransition(to models.PointerState) {
	if h.config.Metrics != nil {
		h.config.Metrics.PointerTransition(to)
	}
}

func (h *Handler) executionReached(status models.ExecutionStatus) {
	if h.config.Metrics != nil {
		h.config.Metrics.ExecutionReached(status)
	}
}
