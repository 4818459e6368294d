package handler

import (
	"context"
	"fmt"

	"github.com/dukex/pvm/pkg/docstore"
	"github.com/dukex/pvm/pkg/models"
	"github.com/dukex/pvm/pkg/process"
	"github.com/dukex/pvm/pkg/state"
)

// ExecutionDocument is what readers see of an execution in the executions
// collection. It is rewritten by every handled command and left untouched
// once the execution is terminal.
type ExecutionDocument struct {
	models.Execution

	State *state.Projection `json:"state"`
}

func (h *Handler) loadDocument(ctx context.Context, execution *models.Execution, definition *process.Definition) (*ExecutionDocument, error) {
	document := &ExecutionDocument{}

	err := h.config.Documents.Get(ctx, docstore.Executions, execution.ID, document)
	if docstore.IsNotFound(err) {
		h.logger.WarnContext(ctx, "Execution document missing, rebuilding its state",
			"execution_id", execution.ID)

		return &ExecutionDocument{Execution: *execution, State: state.New(definition)}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load execution document %s: %w", execution.ID, err)
	}

	if document.State == nil {
		document.State = state.New(definition)
	}

	return document, nil
}

// openActivity returns the unfinished activity of a pointer.
func (h *Handler) openActivity(ctx context.Context, pointer *models.Pointer) (*models.Activity, error) {
	var found []*models.Activity

	err := h.config.Documents.Query(ctx, docstore.History, docstore.Query{
		Filter: map[string]any{"pointer_id": pointer.ID, "finished_at": nil},
	}, &found)
	if err != nil {
		return nil, fmt.Errorf("failed to load activity of pointer %s: %w", pointer.ID, err)
	}

	if len(found) == 0 {
		return nil, nil
	}

	activity := found[0]
	if activity.Actors == nil {
		activity.Actors = models.NewOrderedMap[*models.Actor]()
	}

	return activity, nil
}

func (h *Handler) openActivities(ctx context.Context, executionID string) ([]*models.Activity, error) {
	var found []*models.Activity

	err := h.config.Documents.Query(ctx, docstore.History, docstore.Query{
		Filter: map[string]any{"execution_id": executionID, "finished_at": nil},
		SortBy: "started_at",
	}, &found)
	if err != nil {
		return nil, fmt.Errorf("failed to load open activities of execution %s: %w", executionID, err)
	}

	return found, nil
}

// History returns every activity of an execution in the order they began.
func (h *Handler) History(ctx context.Context, executionID string) ([]*models.Activity, error) {
	var found []*models.Activity

	err := h.config.Documents.Query(ctx, docstore.History, docstore.Query{
		Filter: map[string]any{"execution_id": executionID},
		SortBy: "started_at",
	}, &found)
	if err != nil {
		return nil, fmt.Errorf("failed to load history of execution %s: %w", executionID, err)
	}

	return found, nil
}

// Document returns the stored document of an execution.
func (h *Handler) Document(ctx context.Context, executionID string) (*ExecutionDocument, error) {
	document := &ExecutionDocument{}

	err := h.config.Documents.Get(ctx, docstore.Executions, executionID, document)
	if err != nil {
		return nil, fmt.Errorf("failed to load execution document %s: %w", executionID, err)
	}

	return document, nil
}
