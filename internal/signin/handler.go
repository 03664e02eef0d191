package signin

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aria-id/aria-id/internal/identity"
	"github.com/aria-id/aria-id/internal/platform/httpx"
	"github.com/aria-id/aria-id/internal/shared"
)

// SessionTokenHeader carries a re-signed token back to the client when the
// sliding refresh replaced the one it presented.
const SessionTokenHeader = "X-Session-Token"

// Handler wires the JSON sign-in surface: credential sign-in, provider
// sign-in, session reconstruction and sign-out.
type Handler struct {
	logger   *slog.Logger
	auth     *identity.Service
	enricher *Enricher
	baseURL  string
	validate *validator.Validate
}

// NewHandler constructs a Handler instance. baseURL anchors relative
// callback targets.
func NewHandler(logger *slog.Logger, auth *identity.Service, enricher *Enricher, baseURL string) *Handler {
	return &Handler{
		logger:   logger,
		auth:     auth,
		enricher: enricher,
		baseURL:  baseURL,
		validate: validator.New(),
	}
}

// MountRoutes registers the auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/signin", h.signIn)
	r.Post("/provider", h.providerSignIn)
	r.Get("/session", h.session)
	r.Post("/signout", h.signOut)
}

type signInRequest struct {
	Email       string `json:"email" validate:"required"`
	Password    string `json:"password" validate:"required"`
	CallbackURL string `json:"callbackUrl"`
}

type signInResponse struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirectUrl"`
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		// Missing credentials fail the same way wrong ones do.
		httpx.RespondError(w, shared.ErrCredentialsSignin)
		return
	}

	id, err := h.auth.Authorize(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	token, err := h.enricher.Issue(id, Meta{Provider: "credentials"})
	if err != nil {
		h.logger.Error("issue session token", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.JSON(w, http.StatusOK, signInResponse{
		Token:       token,
		RedirectURL: AnnotateRedirect(req.CallbackURL, h.baseURL, true),
	})
}

type providerSignInRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Name        string `json:"name"`
	AvatarURL   string `json:"avatarUrl"`
	Provider    string `json:"provider" validate:"required"`
	AccessToken string `json:"accessToken"`
	CallbackURL string `json:"callbackUrl"`
}

// providerSignIn serves the internal surface the provider collaborator calls
// once its own protocol has verified the claim.
func (h *Handler) providerSignIn(w http.ResponseWriter, r *http.Request) {
	var req providerSignInRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}

	id, newUser, err := h.auth.ProviderSignIn(r.Context(), identity.ProviderClaim{
		Email:       req.Email,
		Name:        req.Name,
		AvatarURL:   req.AvatarURL,
		Provider:    req.Provider,
		AccessToken: req.AccessToken,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	token, err := h.enricher.Issue(id, Meta{
		Provider:    req.Provider,
		AccessToken: req.AccessToken,
		NewUser:     newUser,
	})
	if err != nil {
		h.logger.Error("issue session token", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.JSON(w, http.StatusOK, signInResponse{
		Token:       token,
		RedirectURL: AnnotateRedirect(req.CallbackURL, h.baseURL, true),
	})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	sess, refreshed, err := h.enricher.Reconstruct(token)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if refreshed != "" {
		w.Header().Set(SessionTokenHeader, refreshed)
	}
	httpx.JSON(w, http.StatusOK, sess)
}

// signOut exists so clients have a uniform endpoint to hit; the token surface
// is stateless, so discarding the token is the whole operation.
func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
