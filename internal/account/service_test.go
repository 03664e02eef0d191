package account

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aria-id/aria-id/internal/identity"
	"github.com/aria-id/aria-id/internal/mailer"
	"github.com/aria-id/aria-id/internal/shared"
	"github.com/aria-id/aria-id/internal/vercode"
)

type fakeCodeRepo struct {
	rows   []vercode.Code
	nextID int64
}

func (r *fakeCodeRepo) Insert(ctx context.Context, email, code string, purpose vercode.Purpose, expiresAt time.Time) error {
	r.nextID++
	r.rows = append(r.rows, vercode.Code{
		ID:        r.nextID,
		Email:     email,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	})
	return nil
}

func (r *fakeCodeRepo) Find(ctx context.Context, email, code string, purpose vercode.Purpose, now time.Time) (*vercode.Code, error) {
	if i := r.match(email, code, purpose, now); i >= 0 {
		rec := r.rows[i]
		return &rec, nil
	}
	return nil, nil
}

func (r *fakeCodeRepo) Redeem(ctx context.Context, email, code string, purpose vercode.Purpose, now time.Time) (bool, error) {
	if i := r.match(email, code, purpose, now); i >= 0 {
		r.rows[i].Used = true
		return true, nil
	}
	return false, nil
}

func (r *fakeCodeRepo) PurgeExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeCodeRepo) match(email, code string, purpose vercode.Purpose, now time.Time) int {
	for i := len(r.rows) - 1; i >= 0; i-- {
		rec := r.rows[i]
		if rec.Email == email && rec.Code == code && rec.Purpose == purpose && !rec.Used && rec.ExpiresAt.After(now) {
			return i
		}
	}
	return -1
}

type fakeUserRepo struct {
	users  map[string]*identity.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*identity.User)}
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	user, ok := r.users[email]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) Create(ctx context.Context, input identity.CreateUserInput) (*identity.User, error) {
	if _, ok := r.users[input.Email]; ok {
		return nil, shared.ErrEmailAlreadyRegistered
	}
	r.nextID++
	user := &identity.User{
		ID:              fmt.Sprintf("u%d", r.nextID),
		Email:           input.Email,
		PasswordHash:    input.PasswordHash,
		Name:            input.Name,
		Role:            input.Role,
		EmailVerifiedAt: input.EmailVerifiedAt,
	}
	r.users[input.Email] = user
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	if user, ok := r.users[email]; ok {
		user.PasswordHash = passwordHash
	}
	return nil
}

func (r *fakeUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	_, ok := r.users[email]
	return ok, nil
}

type plainHasher struct{}

func (plainHasher) Hash(plaintext string) (string, error) { return "hashed:" + plaintext, nil }
func (plainHasher) Verify(plaintext, hash string) bool    { return hash == "hashed:"+plaintext }

type dropSender struct{}

func (dropSender) Send(ctx context.Context, msg mailer.Message) error { return nil }

type recordingWelcome struct {
	emails []string
	fail   error
}

func (w *recordingWelcome) EnqueueWelcome(ctx context.Context, email string) error {
	if w.fail != nil {
		return w.fail
	}
	w.emails = append(w.emails, email)
	return nil
}

type fixture struct {
	codes   *fakeCodeRepo
	users   *fakeUserRepo
	welcome *recordingWelcome
	engine  *vercode.Engine
	service *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	codes := &fakeCodeRepo{}
	users := newFakeUserRepo()
	welcome := &recordingWelcome{}
	engine := vercode.NewEngine(codes, users, dropSender{}, nil, 0, nil)
	return &fixture{
		codes:   codes,
		users:   users,
		welcome: welcome,
		engine:  engine,
		service: NewService(engine, users, plainHasher{}, welcome, nil),
	}
}

func (f *fixture) seedCode(t *testing.T, email, code string, purpose vercode.Purpose) {
	t.Helper()
	require.NoError(t, f.codes.Insert(context.Background(), email, code, purpose, time.Now().Add(10*time.Minute)))
}

func TestFinalizeRegistration(t *testing.T) {
	f := newFixture(t)
	f.seedCode(t, "alice@example.com", "482913", vercode.PurposeRegister)

	err := f.service.FinalizeRegistration(context.Background(), "alice@example.com", "482913", "hunter2secret")
	require.NoError(t, err)

	created := f.users.users["alice@example.com"]
	require.NotNil(t, created)
	require.Equal(t, "hashed:hunter2secret", created.PasswordHash)
	require.Equal(t, identity.RoleUser, created.Role)
	require.NotNil(t, created.EmailVerifiedAt)
	require.Equal(t, []string{"alice@example.com"}, f.welcome.emails)
}

func TestFinalizeRegistrationRejectsTakenEmail(t *testing.T) {
	f := newFixture(t)
	f.users.users["alice@example.com"] = &identity.User{ID: "u1", Email: "alice@example.com"}
	f.seedCode(t, "alice@example.com", "482913", vercode.PurposeRegister)

	err := f.service.FinalizeRegistration(context.Background(), "alice@example.com", "482913", "hunter2secret")
	require.ErrorIs(t, err, shared.ErrEmailAlreadyRegistered)
	// The code was not consumed by the refused attempt.
	require.False(t, f.codes.rows[0].Used)
}

func TestFinalizeRegistrationInvalidCode(t *testing.T) {
	f := newFixture(t)

	err := f.service.FinalizeRegistration(context.Background(), "alice@example.com", "000000", "hunter2secret")
	require.ErrorIs(t, err, shared.ErrInvalidOrExpiredCode)
	require.Empty(t, f.users.users)
}

func TestFinalizeRegistrationCodeSingleUse(t *testing.T) {
	f := newFixture(t)
	f.seedCode(t, "alice@example.com", "482913", vercode.PurposeRegister)

	require.NoError(t, f.service.FinalizeRegistration(context.Background(), "alice@example.com", "482913", "hunter2secret"))

	// Replaying the same code fails, regardless of which check fires first.
	err := f.service.FinalizeRegistration(context.Background(), "alice@example.com", "482913", "hunter2secret")
	require.Error(t, err)
	require.True(t, f.codes.rows[0].Used)
}

func TestFinalizeRegistrationSurvivesWelcomeFailure(t *testing.T) {
	f := newFixture(t)
	f.welcome.fail = errors.New("broker unavailable")
	f.seedCode(t, "alice@example.com", "482913", vercode.PurposeRegister)

	err := f.service.FinalizeRegistration(context.Background(), "alice@example.com", "482913", "hunter2secret")
	require.NoError(t, err)
	require.NotNil(t, f.users.users["alice@example.com"])
}

func TestFinalizeReset(t *testing.T) {
	f := newFixture(t)
	f.users.users["alice@example.com"] = &identity.User{ID: "u1", Email: "alice@example.com", PasswordHash: "hashed:old"}
	f.seedCode(t, "alice@example.com", "482913", vercode.PurposeReset)

	err := f.service.FinalizeReset(context.Background(), "alice@example.com", "482913", "newpassword1", "")
	require.NoError(t, err)
	require.Equal(t, "hashed:newpassword1", f.users.users["alice@example.com"].PasswordHash)

	// The code is consumed; a replay fails.
	err = f.service.FinalizeReset(context.Background(), "alice@example.com", "482913", "anotherpass1", vercode.PurposeReset)
	require.ErrorIs(t, err, shared.ErrInvalidOrExpiredCode)
}

func TestFinalizeResetUnknownEmailStillSucceeds(t *testing.T) {
	f := newFixture(t)
	f.seedCode(t, "ghost@example.com", "482913", vercode.PurposeReset)

	err := f.service.FinalizeReset(context.Background(), "ghost@example.com", "482913", "newpassword1", vercode.PurposeReset)
	require.NoError(t, err)
}

func TestFinalizeResetRejectsRegisterCode(t *testing.T) {
	f := newFixture(t)
	f.seedCode(t, "alice@example.com", "482913", vercode.PurposeRegister)

	err := f.service.FinalizeReset(context.Background(), "alice@example.com", "482913", "newpassword1", vercode.PurposeReset)
	require.ErrorIs(t, err, shared.ErrInvalidOrExpiredCode)
}
