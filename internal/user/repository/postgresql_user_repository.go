package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/identity/internal/database"
	apperrors "github.com/allisson/identity/internal/errors"
	"github.com/allisson/identity/internal/user/domain"
)

const postgresUserColumns = `id, email, password, is_active, roles, created_at, updated_at`

// PostgreSQLUserRepository handles user persistence for PostgreSQL
type PostgreSQLUserRepository struct {
	db *sql.DB
}

// NewPostgreSQLUserRepository creates a new PostgreSQLUserRepository
func NewPostgreSQLUserRepository(db *sql.DB) *PostgreSQLUserRepository {
	return &PostgreSQLUserRepository{
		db: db,
	}
}

// Create inserts a new user. A duplicate email yields domain.ErrUserAlreadyExists.
func (r *PostgreSQLUserRepository) Create(ctx context.Context, user *domain.User) error {
	querier := database.GetTx(ctx, r.db)

	roles, err := encodeRoles(user.Roles)
	if err != nil {
		return err
	}

	query := `INSERT INTO users (id, email, password, is_active, roles, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = querier.ExecContext(
		ctx,
		query,
		user.ID,
		user.Email,
		user.Password,
		user.IsActive,
		roles,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return domain.ErrUserAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create user")
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *PostgreSQLUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + postgresUserColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, "failed to get user by id", query, id)
}

// GetByEmail retrieves a user by its normalized email
func (r *PostgreSQLUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + postgresUserColumns + ` FROM users WHERE email = $1`
	return r.getOne(ctx, "failed to get user by email", query, email)
}

func (r *PostgreSQLUserRepository) getOne(
	ctx context.Context,
	errMsg string,
	query string,
	arg any,
) (*domain.User, error) {
	var user domain.User
	var roles string
	querier := database.GetTx(ctx, r.db)

	err := querier.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.Password,
		&user.IsActive,
		&roles,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, errMsg)
	}

	if user.Roles, err = decodeRoles(roles); err != nil {
		return nil, err
	}
	return &user, nil
}
