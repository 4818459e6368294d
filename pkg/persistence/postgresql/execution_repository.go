package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/pvm/pkg/models"
	"github.com/dukex/pvm/pkg/persistence"
)

// ExecutionRepository handles execution-related database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *ExecutionRepository) Save(ctx context.Context, execution *models.Execution) error {
	query := `
		INSERT INTO executions (id, process_name, name, description, status, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			process_name = EXCLUDED.process_name
		  , name = EXCLUDED.name
		  , description = EXCLUDED.description
		  , status = EXCLUDED.status
		  , started_at = EXCLUDED.started_at
		  , finished_at = EXCLUDED.finished_at
	`

	_, err := r.db.ExecContext(ctx, query,
		execution.ID,
		execution.ProcessName,
		execution.Name,
		execution.Description,
		string(execution.Status),
		execution.StartedAt,
		execution.FinishedAt,
	)
	if err != nil {
		return persistence.NewExecutionError("Save", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.Execution, error) {
	query := `
		SELECT
			id
		  , process_name
		  , name
		  , description
		  , status
		  , started_at
		  , finished_at
		FROM executions
		WHERE id = $1
	`

	execution, err := scanExecution(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
	}

	if err != nil {
		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	return execution, nil
}

// List returns every execution, most recently started first.
func (r *ExecutionRepository) List(ctx context.Context) ([]*models.Execution, error) {
	query := `
		SELECT
			id
		  , process_name
		  , name
		  , description
		  , status
		  , started_at
		  , finished_at
		FROM executions
		ORDER BY started_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	executions := make([]*models.Execution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

func scanExecution(row scanner) (*models.Execution, error) {
	var (
		execution  models.Execution
		status     string
		finishedAt sql.NullTime
	)

	err := row.Scan(
		&execution.ID,
		&execution.ProcessName,
		&execution.Name,
		&execution.Description,
		&status,
		&execution.StartedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	execution.Status = models.ExecutionStatus(status)
	execution.StartedAt = execution.StartedAt.UTC()

	if finishedAt.Valid {
		at := finishedAt.Time.UTC()
		execution.FinishedAt = &at
	}

	return &execution, nil
}
