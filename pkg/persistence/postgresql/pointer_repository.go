package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/dukex/pvm/pkg/models"
	"github.com/dukex/pvm/pkg/persistence"
)

// PointerRepository handles pointer-related database operations.
type PointerRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *PointerRepository) Save(ctx context.Context, pointer *models.Pointer) error {
	query := `
		INSERT INTO pointers (id, execution_id, node_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			execution_id = EXCLUDED.execution_id
		  , node_id = EXCLUDED.node_id
		  , created_at = EXCLUDED.created_at
	`

	_, err := r.db.ExecContext(ctx, query, pointer.ID, pointer.ExecutionID, pointer.NodeID, pointer.CreatedAt)
	if err != nil {
		return persistence.NewPointerError("Save", pointer.ID, err)
	}

	return nil
}

func (r *PointerRepository) GetByID(ctx context.Context, id string) (*models.Pointer, error) {
	query := `
		SELECT
			id
		  , execution_id
		  , node_id
		  , created_at
		FROM pointers
		WHERE id = $1
	`

	pointer, err := scanPointer(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewPointerError("GetByID", id, persistence.ErrPointerNotFound)
	}

	if err != nil {
		return nil, persistence.NewPointerError("GetByID", id, err)
	}

	return pointer, nil
}

// Delete removes a pointer. Deleting an absent pointer is not an error.
func (r *PointerRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM pointers WHERE id = $1", id)
	if err != nil {
		return persistence.NewPointerError("Delete", id, err)
	}

	return nil
}

// ListByExecution returns the live pointers of an execution, oldest first.
func (r *PointerRepository) ListByExecution(ctx context.Context, executionID string) ([]*models.Pointer, error) {
	query := `
		SELECT
			id
		  , execution_id
		  , node_id
		  , created_at
		FROM pointers
		WHERE execution_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, executionID)
	if err != nil {
		return nil, persistence.NewExecutionError("ListPointers", executionID, err)
	}

	defer closeRows(ctx, r.logger, rows)

	pointers := make([]*models.Pointer, 0)

	for rows.Next() {
		pointer, err := scanPointer(rows)
		if err != nil {
			return nil, persistence.NewExecutionError("ListPointers", executionID, err)
		}

		pointers = append(pointers, pointer)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewExecutionError("ListPointers", executionID, err)
	}

	return pointers, nil
}

func (r *PointerRepository) DeleteByExecution(ctx context.Context, executionID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM pointers WHERE execution_id = $1", executionID)
	if err != nil {
		return persistence.NewExecutionError("DeletePointers", executionID, err)
	}

	return nil
}

func scanPointer(row scanner) (*models.Pointer, error) {
	var pointer models.Pointer

	err := row.Scan(&pointer.ID, &pointer.ExecutionID, &pointer.NodeID, &pointer.CreatedAt)
	if err != nil {
		return nil, err
	}

	pointer.CreatedAt = pointer.CreatedAt.UTC()

	return &pointer, nil
}
