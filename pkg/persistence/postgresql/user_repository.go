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

// UserRepository handles users and their task assignments.
type UserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *UserRepository) Save(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (identifier, email, fullname)
		VALUES ($1, $2, $3)
		ON CONFLICT (identifier) DO UPDATE SET
			email = EXCLUDED.email
		  , fullname = EXCLUDED.fullname
	`

	_, err := r.db.ExecContext(ctx, query, user.Identifier, user.Email, user.Fullname)
	if err != nil {
		return persistence.NewUserError("Save", user.Identifier, err)
	}

	return nil
}

func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	var user models.User

	err := r.db.QueryRowContext(ctx,
		"SELECT identifier, email, fullname FROM users WHERE identifier = $1", identifier,
	).Scan(&user.Identifier, &user.Email, &user.Fullname)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewUserError("GetByIdentifier", identifier, persistence.ErrUserNotFound)
	}

	if err != nil {
		return nil, persistence.NewUserError("GetByIdentifier", identifier, err)
	}

	return &user, nil
}

// List returns every user ordered by identifier.
func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT identifier, email, fullname FROM users ORDER BY identifier")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	users := make([]*models.User, 0)

	for rows.Next() {
		var user models.User

		if err := rows.Scan(&user.Identifier, &user.Email, &user.Fullname); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}

		users = append(users, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

func (r *UserRepository) AddTask(ctx context.Context, identifier, pointerID string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO user_tasks (identifier, pointer_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		identifier, pointerID,
	)
	if err != nil {
		return persistence.NewUserError("AddTask", identifier, err)
	}

	return nil
}

func (r *UserRepository) Tasks(ctx context.Context, identifier string) ([]string, error) {
	tasks, err := r.column(ctx,
		"SELECT pointer_id FROM user_tasks WHERE identifier = $1 ORDER BY pointer_id", identifier)
	if err != nil {
		return nil, persistence.NewUserError("Tasks", identifier, err)
	}

	return tasks, nil
}

func (r *UserRepository) Assignees(ctx context.Context, pointerID string) ([]string, error) {
	assignees, err := r.column(ctx,
		"SELECT identifier FROM user_tasks WHERE pointer_id = $1 ORDER BY identifier", pointerID)
	if err != nil {
		return nil, persistence.NewPointerError("Assignees", pointerID, err)
	}

	return assignees, nil
}

func (r *UserRepository) RemoveTask(ctx context.Context, pointerID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM user_tasks WHERE pointer_id = $1", pointerID)
	if err != nil {
		return persistence.NewPointerError("RemoveTask", pointerID, err)
	}

	return nil
}

// column reads a single text column from every row a query returns.
func (r *UserRepository) column(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer closeRows(ctx, r.logger, rows)

	values := make([]string, 0)

	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}

		values = append(values, value)
	}

	return values, rows.Err()
}
