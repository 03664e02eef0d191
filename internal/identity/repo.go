package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aria-id/aria-id/internal/shared"
)

// CreateUserInput carries the fields persisted for a new account.
type CreateUserInput struct {
	Email           string
	PasswordHash    string
	Name            string
	AvatarURL       string
	Role            string
	EmailVerifiedAt *time.Time
}

// Repository defines the persistence contract the identity core needs from
// the durable store.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, input CreateUserInput) (*User, error)
	UpdatePassword(ctx context.Context, email, passwordHash string) error
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, email, COALESCE(password_hash, ''), COALESCE(name, ''), COALESCE(avatar_url, ''), role, email_verified_at, created_at, updated_at`

// FindByEmail fetches a user by email. A missing row returns (nil, nil) so
// callers decide how much to disclose.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: find user: %v", shared.ErrStorage, err)
	}
	return user, nil
}

// Create inserts a new user row. A duplicate email maps to
// shared.ErrEmailAlreadyRegistered so concurrent registrations stay safe.
func (r *PGRepository) Create(ctx context.Context, input CreateUserInput) (*User, error) {
	id := uuid.NewString()
	role := input.Role
	if role == "" {
		role = RoleUser
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, name, avatar_url, role, email_verified_at, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7, now(), now())
		RETURNING `+userColumns,
		id, input.Email, input.PasswordHash, input.Name, input.AvatarURL, role, input.EmailVerifiedAt,
	)
	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, shared.ErrEmailAlreadyRegistered
		}
		return nil, fmt.Errorf("%w: create user: %v", shared.ErrStorage, err)
	}
	return user, nil
}

// EmailExists reports whether an account with the given email is already
// registered.
func (r *PGRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: email exists: %v", shared.ErrStorage, err)
	}
	return exists, nil
}

// UpdatePassword replaces the stored hash for the given email. Updating a
// missing user is not an error; reset flows must not leak account existence.
func (r *PGRepository) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE email = $1`, email, passwordHash)
	if err != nil {
		return fmt.Errorf("%w: update password: %v", shared.ErrStorage, err)
	}
	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	var user User
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.AvatarURL,
		&user.Role,
		&user.EmailVerifiedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

var _ Repository = (*PGRepository)(nil)
