package vercode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aria-id/aria-id/internal/shared"
)

// Repository defines the persistence contract for verification codes. Every
// write is a single-row insert or conditional update; no transaction spans
// more than one statement.
type Repository interface {
	Insert(ctx context.Context, email, code string, purpose Purpose, expiresAt time.Time) error
	Find(ctx context.Context, email, code string, purpose Purpose, now time.Time) (*Code, error)
	Redeem(ctx context.Context, email, code string, purpose Purpose, now time.Time) (bool, error)
	PurgeExpired(ctx context.Context, olderThan time.Time) (int64, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Insert persists a fresh code row. Outstanding codes for the same
// (email, purpose) are left untouched; only redemption consumes a row.
func (r *PGRepository) Insert(ctx context.Context, email, code string, purpose Purpose, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO verification_codes (email, code, purpose, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, FALSE, now())`,
		email, code, string(purpose), expiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("%w: insert code: %v", shared.ErrStorage, err)
	}
	return nil
}

// Find returns the most recent unused, unexpired code matching the triple, or
// nil when nothing matches.
func (r *PGRepository) Find(ctx context.Context, email, code string, purpose Purpose, now time.Time) (*Code, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, code, purpose, expires_at, used, created_at
		FROM verification_codes
		WHERE email = $1 AND code = $2 AND purpose = $3 AND used = FALSE AND expires_at > $4
		ORDER BY created_at DESC
		LIMIT 1`,
		email, code, string(purpose), now.UTC(),
	)
	var rec Code
	if err := row.Scan(&rec.ID, &rec.Email, &rec.Code, &rec.Purpose, &rec.ExpiresAt, &rec.Used, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: find code: %v", shared.ErrStorage, err)
	}
	return &rec, nil
}

// Redeem atomically matches and consumes a code in a single conditional
// update, so a code can never be redeemed twice. The liveness predicate is
// repeated in the outer WHERE: under READ COMMITTED the row recheck after a
// conflicting commit re-evaluates only the outer qual, so without it two
// concurrent redeems of the same code could both report success.
func (r *PGRepository) Redeem(ctx context.Context, email, code string, purpose Purpose, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE verification_codes
		SET used = TRUE
		WHERE id = (
			SELECT id FROM verification_codes
			WHERE email = $1 AND code = $2 AND purpose = $3 AND used = FALSE AND expires_at > $4
			ORDER BY created_at DESC
			LIMIT 1
		) AND used = FALSE AND expires_at > $4`,
		email, code, string(purpose), now.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("%w: redeem code: %v", shared.ErrStorage, err)
	}
	return tag.RowsAffected() > 0, nil
}

// PurgeExpired deletes rows that are consumed or past expiry. Run from the
// background worker; lookups already exclude these rows.
func (r *PGRepository) PurgeExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM verification_codes
		WHERE used = TRUE OR expires_at < $1`,
		olderThan.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: purge codes: %v", shared.ErrStorage, err)
	}
	return tag.RowsAffected(), nil
}

var _ Repository = (*PGRepository)(nil)
