package vercode

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aria-id/aria-id/internal/mailer"
	"github.com/aria-id/aria-id/internal/shared"
)

// DefaultTTL is how long an issued code stays redeemable.
const DefaultTTL = 15 * time.Minute

// UserDirectory is the slice of the user store the engine needs: only the
// existence check that makes register requests fail for taken emails.
type UserDirectory interface {
	EmailExists(ctx context.Context, email string) (bool, error)
}

// Engine generates, persists, validates and invalidates one-time codes.
type Engine struct {
	repo     Repository
	users    UserDirectory
	sender   mailer.Sender
	limiter  *ResendLimiter
	ttl      time.Duration
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewEngine constructs an Engine. A nil limiter disables throttling and a
// non-positive ttl falls back to DefaultTTL.
func NewEngine(repo Repository, users UserDirectory, sender mailer.Sender, limiter *ResendLimiter, ttl time.Duration, logger *slog.Logger) *Engine {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		repo:     repo,
		users:    users,
		sender:   sender,
		limiter:  limiter,
		ttl:      ttl,
		logger:   logger,
		validate: validator.New(),
		now:      time.Now,
	}
}

// RequestCode issues a fresh code for (email, purpose) and hands it to the
// mail collaborator. Prior outstanding codes are never overwritten. A mail
// failure after the insert returns ErrDelivery while the stored code remains
// redeemable, so the caller may simply resend.
func (e *Engine) RequestCode(ctx context.Context, email string, purpose Purpose) (Issued, error) {
	if !purpose.Valid() {
		return Issued{}, fmt.Errorf("%w: unknown code type", shared.ErrValidation)
	}
	if err := e.validate.Var(email, "required,email"); err != nil {
		return Issued{}, fmt.Errorf("%w: invalid email format", shared.ErrValidation)
	}

	if e.limiter != nil && !e.limiter.Allow(ctx, email, purpose) {
		return Issued{}, shared.ErrCodeRateLimited
	}

	if purpose == PurposeRegister {
		exists, err := e.users.EmailExists(ctx, email)
		if err != nil {
			e.logger.Error("check email registration", slog.Any("error", err))
			return Issued{}, err
		}
		if exists {
			return Issued{}, shared.ErrEmailAlreadyRegistered
		}
	}

	code, err := generateCode()
	if err != nil {
		// Not a storage failure; the default 500 mapping applies.
		return Issued{}, fmt.Errorf("generate code: %w", err)
	}
	expiresAt := e.now().Add(e.ttl)
	if err := e.repo.Insert(ctx, email, code, purpose, expiresAt); err != nil {
		e.logger.Error("store verification code", slog.Any("error", err))
		return Issued{}, err
	}

	msg, err := mailer.RenderCodeEmail(string(purpose), mailer.CodeEmailData{
		Code:       code,
		Email:      email,
		ExpiryMins: int(e.ttl.Minutes()),
	})
	if err != nil {
		return Issued{}, fmt.Errorf("%w: %v", shared.ErrDelivery, err)
	}
	if err := e.sender.Send(ctx, msg); err != nil {
		// The code stays valid in storage; only the delivery failed.
		e.logger.Error("send verification code", slog.String("purpose", string(purpose)), slog.Any("error", err))
		return Issued{}, fmt.Errorf("%w: %v", shared.ErrDelivery, err)
	}

	return Issued{Email: email, Purpose: purpose, ExpiresAt: expiresAt}, nil
}

// VerifyCode checks that an unused, unexpired code matches the triple without
// consuming it. Wrong, expired, consumed and never-issued codes are
// indistinguishable by design.
func (e *Engine) VerifyCode(ctx context.Context, email, code string, purpose Purpose) error {
	if !purpose.Valid() {
		return fmt.Errorf("%w: unknown code type", shared.ErrValidation)
	}
	rec, err := e.repo.Find(ctx, email, code, purpose, e.now())
	if err != nil {
		e.logger.Error("lookup verification code", slog.Any("error", err))
		return err
	}
	if rec == nil {
		return shared.ErrInvalidOrExpiredCode
	}
	return nil
}

// RedeemCode consumes a matching code. Matching and marking happen in one
// conditional update, so exactly one redemption can succeed per code.
func (e *Engine) RedeemCode(ctx context.Context, email, code string, purpose Purpose) error {
	if !purpose.Valid() {
		return fmt.Errorf("%w: unknown code type", shared.ErrValidation)
	}
	redeemed, err := e.repo.Redeem(ctx, email, code, purpose, e.now())
	if err != nil {
		e.logger.Error("redeem verification code", slog.Any("error", err))
		return err
	}
	if !redeemed {
		return shared.ErrInvalidOrExpiredCode
	}
	return nil
}

var randReader io.Reader = rand.Reader

// generateCode draws a uniform 6-digit decimal code from [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(randReader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
