package identity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aria-id/aria-id/internal/shared"
)

// LinkPolicy controls how a provider sign-in is joined to an existing
// password-based account sharing the same email.
type LinkPolicy string

const (
	// LinkByEmailUnverified links by email match alone, without additional
	// proof of ownership. This mirrors the product's historical behaviour and
	// is a deliberate, security-relevant choice.
	LinkByEmailUnverified LinkPolicy = "link-by-email-unverified"
	// RequireExplicitLink refuses a provider sign-in when the email belongs
	// to a password-based account.
	RequireExplicitLink LinkPolicy = "require-explicit-link"
)

// Service implements the credential authentication decision procedure and
// provider account linking.
type Service struct {
	repo       Repository
	hasher     PasswordHasher
	linkPolicy LinkPolicy
	logger     *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, hasher PasswordHasher, linkPolicy LinkPolicy, logger *slog.Logger) *Service {
	if linkPolicy == "" {
		linkPolicy = LinkByEmailUnverified
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, hasher: hasher, linkPolicy: linkPolicy, logger: logger}
}

// Authorize validates email/password credentials. Unknown email and wrong
// password collapse into the same ErrCredentialsSignin; only a provider-only
// account yields the distinguishable ErrAccountNotLinked.
func (s *Service) Authorize(ctx context.Context, email, password string) (Identity, error) {
	identity, err := s.authorize(ctx, email, password)
	if err != nil {
		if recognized(err) {
			return Identity{}, err
		}
		// Unstructured failures must not reach the caller verbatim.
		s.logger.Error("authorize", slog.Any("error", err))
		return Identity{}, shared.ErrCredentialsSignin
	}
	return identity, nil
}

func (s *Service) authorize(ctx context.Context, email, password string) (Identity, error) {
	if email == "" || password == "" {
		return Identity{}, shared.ErrCredentialsSignin
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		s.logger.Error("find user by email", slog.Any("error", err))
		return Identity{}, err
	}
	if user == nil {
		return Identity{}, shared.ErrCredentialsSignin
	}
	if user.PasswordHash == "" {
		return Identity{}, shared.ErrAccountNotLinked
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return Identity{}, shared.ErrCredentialsSignin
	}
	return user.identity(), nil
}

// ProviderSignIn resolves a verified provider claim to a local account,
// creating one on first sign-in. The returned flag reports whether the
// account is brand new.
func (s *Service) ProviderSignIn(ctx context.Context, claim ProviderClaim) (Identity, bool, error) {
	if claim.Email == "" || claim.Provider == "" {
		return Identity{}, false, shared.ErrValidation
	}

	user, err := s.repo.FindByEmail(ctx, claim.Email)
	if err != nil {
		return Identity{}, false, err
	}
	if user != nil {
		if s.linkPolicy == RequireExplicitLink && user.PasswordHash != "" {
			return Identity{}, false, shared.ErrAccountNotLinked
		}
		return user.identity(), false, nil
	}

	now := time.Now().UTC()
	created, err := s.repo.Create(ctx, CreateUserInput{
		Email:           claim.Email,
		Name:            claim.Name,
		AvatarURL:       claim.AvatarURL,
		Role:            RoleUser,
		EmailVerifiedAt: &now,
	})
	if err != nil {
		if errors.Is(err, shared.ErrEmailAlreadyRegistered) {
			// Lost a race with a concurrent first sign-in; link to the winner.
			existing, findErr := s.repo.FindByEmail(ctx, claim.Email)
			if findErr == nil && existing != nil {
				return existing.identity(), false, nil
			}
		}
		return Identity{}, false, err
	}
	return created.identity(), true, nil
}

func recognized(err error) bool {
	for _, known := range []error{
		shared.ErrValidation,
		shared.ErrCredentialsSignin,
		shared.ErrAccountNotLinked,
		shared.ErrEmailAlreadyRegistered,
		shared.ErrInvalidOrExpiredCode,
		shared.ErrCodeRateLimited,
		shared.ErrStorage,
		shared.ErrDelivery,
		shared.ErrUnauthorized,
	} {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}
