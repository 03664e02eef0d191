// Package account orchestrates the registration and password-reset
// finalizers that sit between the verification-code engine and the user
// store.
package account

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aria-id/aria-id/internal/identity"
	"github.com/aria-id/aria-id/internal/shared"
	"github.com/aria-id/aria-id/internal/vercode"
)

// WelcomeQueue enqueues the post-registration welcome mail. Enqueueing is
// best-effort; registration never fails because of it.
type WelcomeQueue interface {
	EnqueueWelcome(ctx context.Context, email string) error
}

// Service finalizes the two code-gated account flows.
type Service struct {
	codes   *vercode.Engine
	users   identity.Repository
	hasher  identity.PasswordHasher
	welcome WelcomeQueue
	logger  *slog.Logger
}

// NewService constructs a Service. welcome may be nil when no worker is
// wired (tests, single-binary deployments).
func NewService(codes *vercode.Engine, users identity.Repository, hasher identity.PasswordHasher, welcome WelcomeQueue, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{codes: codes, users: users, hasher: hasher, welcome: welcome, logger: logger}
}

// FinalizeRegistration redeems a register code and creates the account with
// the email marked verified. The caller sequences verify-then-create; the
// unique constraint on email backstops concurrent registrations.
func (s *Service) FinalizeRegistration(ctx context.Context, email, code, password string) error {
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return shared.ErrEmailAlreadyRegistered
	}

	if err := s.codes.RedeemCode(ctx, email, code, vercode.PurposeRegister); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("%w: unusable password", shared.ErrValidation)
	}
	now := time.Now().UTC()
	if _, err := s.users.Create(ctx, identity.CreateUserInput{
		Email:           email,
		PasswordHash:    hash,
		Role:            identity.RoleUser,
		EmailVerifiedAt: &now,
	}); err != nil {
		return err
	}

	if s.welcome != nil {
		if err := s.welcome.EnqueueWelcome(ctx, email); err != nil {
			s.logger.Warn("enqueue welcome mail", slog.Any("error", err))
		}
	}
	return nil
}

// FinalizeReset redeems a reset code and replaces the stored password hash.
// Updating an email with no account is still a success so the endpoint does
// not leak account existence.
func (s *Service) FinalizeReset(ctx context.Context, email, code, password string, purpose vercode.Purpose) error {
	if purpose == "" {
		purpose = vercode.PurposeReset
	}
	if err := s.codes.RedeemCode(ctx, email, code, purpose); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("%w: unusable password", shared.ErrValidation)
	}
	return s.users.UpdatePassword(ctx, email, hash)
}
