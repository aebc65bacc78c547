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

const mysqlUserColumns = `id, email, password, is_active, roles, created_at, updated_at`

// MySQLUserRepository handles user persistence for MySQL. IDs are stored as BINARY(16).
type MySQLUserRepository struct {
	db *sql.DB
}

// NewMySQLUserRepository creates a new MySQLUserRepository
func NewMySQLUserRepository(db *sql.DB) *MySQLUserRepository {
	return &MySQLUserRepository{
		db: db,
	}
}

// Create inserts a new user. A duplicate email yields domain.ErrUserAlreadyExists.
func (r *MySQLUserRepository) Create(ctx context.Context, user *domain.User) error {
	querier := database.GetTx(ctx, r.db)

	uuidBytes, err := user.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal UUID")
	}
	roles, err := encodeRoles(user.Roles)
	if err != nil {
		return err
	}

	query := `INSERT INTO users (id, email, password, is_active, roles, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		uuidBytes,
		user.Email,
		user.Password,
		user.IsActive,
		roles,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isMySQLUniqueViolation(err) {
			return domain.ErrUserAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create user")
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *MySQLUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	uuidBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal UUID")
	}

	query := `SELECT ` + mysqlUserColumns + ` FROM users WHERE id = ?`
	return r.getOne(ctx, "failed to get user by id", query, uuidBytes)
}

// GetByEmail retrieves a user by its normalized email
func (r *MySQLUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + mysqlUserColumns + ` FROM users WHERE email = ?`
	return r.getOne(ctx, "failed to get user by email", query, email)
}

func (r *MySQLUserRepository) getOne(
	ctx context.Context,
	errMsg string,
	query string,
	arg any,
) (*domain.User, error) {
	var user domain.User
	var idBytes []byte
	var roles string
	querier := database.GetTx(ctx, r.db)

	err := querier.QueryRowContext(ctx, query, arg).Scan(
		&idBytes,
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

	if err := user.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal UUID")
	}
	if user.Roles, err = decodeRoles(roles); err != nil {
		return nil, err
	}
	return &user, nil
}
