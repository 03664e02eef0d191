package account

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aria-id/aria-id/internal/platform/httpx"
	"github.com/aria-id/aria-id/internal/shared"
	"github.com/aria-id/aria-id/internal/vercode"
)

// Handler wires the JSON endpoints for the code-gated email flows.
type Handler struct {
	logger   *slog.Logger
	codes    *vercode.Engine
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, codes *vercode.Engine, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		codes:    codes,
		service:  service,
		validate: validator.New(),
	}
}

// MountRoutes registers the email flow routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/code", h.requestCode)
	r.Post("/verify", h.verifyCode)
	r.Post("/register", h.register)
	r.Post("/reset", h.reset)
}

type codeRequest struct {
	Email string `json:"email" validate:"required"`
	Type  string `json:"type"`
}

func (h *Handler) requestCode(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "email is required")
		return
	}
	if req.Type == "" {
		req.Type = string(vercode.PurposeRegister)
	}

	if _, err := h.codes.RequestCode(r.Context(), req.Email, vercode.Purpose(req.Type)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Success(w, "Verification code sent")
}

type verifyRequest struct {
	Email string `json:"email" validate:"required"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
	Type  string `json:"type"`
}

func (h *Handler) verifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		// A malformed code can never match; keep the response
		// indistinguishable from a wrong one.
		httpx.RespondError(w, shared.ErrInvalidOrExpiredCode)
		return
	}
	if req.Type == "" {
		req.Type = string(vercode.PurposeRegister)
	}

	if err := h.codes.VerifyCode(r.Context(), req.Email, req.Code, vercode.Purpose(req.Type)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Success(w, "Verification successful")
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Code     string `json:"code" validate:"required,len=6,numeric"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid registration payload")
		return
	}

	if err := h.service.FinalizeRegistration(r.Context(), req.Email, req.Code, req.Password); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Success(w, "Registration successful")
}

type resetRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Code     string `json:"code" validate:"required,len=6,numeric"`
	Password string `json:"password" validate:"required,min=8"`
	Type     string `json:"type"`
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid reset payload")
		return
	}

	if err := h.service.FinalizeReset(r.Context(), req.Email, req.Code, req.Password, vercode.Purpose(req.Type)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Success(w, "Password reset successful")
}
