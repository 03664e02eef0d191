package signin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/aria-id/aria-id/internal/identity"
	"github.com/aria-id/aria-id/internal/shared"
	_ "github.com/aria-id/aria-id/internal/testing/guard"
)

type stubUserRepo struct {
	users  map[string]*identity.User
	nextID int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*identity.User)}
}

func (r *stubUserRepo) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	user, ok := r.users[email]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (r *stubUserRepo) Create(ctx context.Context, input identity.CreateUserInput) (*identity.User, error) {
	if _, ok := r.users[input.Email]; ok {
		return nil, shared.ErrEmailAlreadyRegistered
	}
	r.nextID++
	user := &identity.User{
		ID:              fmt.Sprintf("u%d", r.nextID),
		Email:           input.Email,
		Name:            input.Name,
		Role:            input.Role,
		EmailVerifiedAt: input.EmailVerifiedAt,
	}
	r.users[input.Email] = user
	copied := *user
	return &copied, nil
}

func (r *stubUserRepo) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	return nil
}

type stubHasher struct{}

func (stubHasher) Hash(plaintext string) (string, error) { return "hashed:" + plaintext, nil }
func (stubHasher) Verify(plaintext, hash string) bool    { return hash == "hashed:"+plaintext }

const testBaseURL = "https://aria.example.com"

func newAuthServer(t *testing.T) (*stubUserRepo, *Enricher, *httptest.Server) {
	t.Helper()
	repo := newStubUserRepo()
	auth := identity.NewService(repo, stubHasher{}, "", nil)
	enricher := NewEnricher([]byte("0123456789abcdef0123456789abcdef"), 0, 0)
	handler := NewHandler(nil, auth, enricher, testBaseURL)
	r := chi.NewRouter()
	r.Route("/api/auth", handler.MountRoutes)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return repo, enricher, srv
}

func postAuthJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestSignInEndpoint(t *testing.T) {
	repo, enricher, srv := newAuthServer(t)
	repo.users["alice@example.com"] = &identity.User{
		ID:           "u1",
		Email:        "alice@example.com",
		PasswordHash: "hashed:hunter2secret",
		Name:         "Alice",
		Role:         "user",
	}

	resp := postAuthJSON(t, srv.URL+"/api/auth/signin", `{"email":"alice@example.com","password":"hunter2secret","callbackUrl":"/library"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Token       string `json:"token"`
		RedirectURL string `json:"redirectUrl"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, testBaseURL+"/library?signInSuccess=true", body.RedirectURL)

	sess, _, err := enricher.Reconstruct(body.Token)
	require.NoError(t, err)
	require.Equal(t, "u1", sess.UserID)
	require.Equal(t, "credentials", sess.Provider)
	require.Equal(t, "Alice", sess.DisplayName)
}

func TestSignInEndpointBadCredentials(t *testing.T) {
	repo, _, srv := newAuthServer(t)
	repo.users["alice@example.com"] = &identity.User{ID: "u1", Email: "alice@example.com", PasswordHash: "hashed:hunter2secret"}

	for _, payload := range []string{
		`{"email":"alice@example.com","password":"wrong"}`,
		`{"email":"nobody@example.com","password":"hunter2secret"}`,
		`{"email":"","password":""}`,
	} {
		resp := postAuthJSON(t, srv.URL+"/api/auth/signin", payload)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		var body struct {
			Error string `json:"error"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Equal(t, shared.ErrCredentialsSignin.Error(), body.Error)
	}
}

func TestSignInEndpointProviderOnlyAccount(t *testing.T) {
	repo, _, srv := newAuthServer(t)
	repo.users["oauth@example.com"] = &identity.User{ID: "u1", Email: "oauth@example.com"}

	resp := postAuthJSON(t, srv.URL+"/api/auth/signin", `{"email":"oauth@example.com","password":"whatever"}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, shared.ErrAccountNotLinked.Error(), body.Error)
}

func TestProviderEndpointCreatesAndSignsIn(t *testing.T) {
	repo, enricher, srv := newAuthServer(t)

	resp := postAuthJSON(t, srv.URL+"/api/auth/provider", `{"email":"new@example.com","name":"New User","provider":"github","accessToken":"gh-token","callbackUrl":"/"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Token       string `json:"token"`
		RedirectURL string `json:"redirectUrl"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Contains(t, body.RedirectURL, SuccessParam+"=true")
	require.NotNil(t, repo.users["new@example.com"])

	sess, _, err := enricher.Reconstruct(body.Token)
	require.NoError(t, err)
	require.Equal(t, "github", sess.Provider)
	require.Equal(t, "gh-token", sess.AccessToken)
	require.True(t, sess.NewSignIn)
}

func TestSessionEndpoint(t *testing.T) {
	_, enricher, srv := newAuthServer(t)
	token, err := enricher.Issue(identity.Identity{ID: "u1", Email: "abc@x.com", Role: "user"}, Meta{})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/auth/session", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, resp.Header.Get(SessionTokenHeader))
	var sess Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sess))
	require.Equal(t, "u1", sess.UserID)
	require.Equal(t, "abc", sess.DisplayName)
}

func TestSessionEndpointRefreshHeader(t *testing.T) {
	_, enricher, srv := newAuthServer(t)

	issuedAt := time.Now().Add(-(DefaultUpdateAge + time.Hour))
	enricher.now = func() time.Time { return issuedAt }
	token, err := enricher.Issue(identity.Identity{ID: "u1"}, Meta{})
	require.NoError(t, err)
	enricher.now = time.Now

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/auth/session", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	refreshed := resp.Header.Get(SessionTokenHeader)
	require.NotEmpty(t, refreshed)

	sess, _, err := enricher.Reconstruct(refreshed)
	require.NoError(t, err)
	require.Equal(t, "u1", sess.UserID)
}

func TestSessionEndpointUnauthorized(t *testing.T) {
	_, _, srv := newAuthServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/auth/session", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req.Header.Set("Authorization", "Bearer bogus")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
}

func TestSignOutEndpoint(t *testing.T) {
	_, _, srv := newAuthServer(t)

	resp := postAuthJSON(t, srv.URL+"/api/auth/signout", `{}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}
