package httpx

import (
	"errors"
	"net/http"

	"github.com/aria-id/aria-id/internal/shared"
)

// RespondError maps the closed error taxonomy to HTTP responses. Errors
// outside the taxonomy surface as a generic 500 so internal detail never
// reaches the caller verbatim.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrValidation):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrEmailAlreadyRegistered):
		Error(w, http.StatusBadRequest, shared.ErrEmailAlreadyRegistered.Error())
	case errors.Is(err, shared.ErrInvalidOrExpiredCode):
		Error(w, http.StatusBadRequest, shared.ErrInvalidOrExpiredCode.Error())
	case errors.Is(err, shared.ErrCodeRateLimited):
		Error(w, http.StatusTooManyRequests, shared.ErrCodeRateLimited.Error())
	case errors.Is(err, shared.ErrCredentialsSignin):
		Error(w, http.StatusUnauthorized, shared.ErrCredentialsSignin.Error())
	case errors.Is(err, shared.ErrAccountNotLinked):
		Error(w, http.StatusUnauthorized, shared.ErrAccountNotLinked.Error())
	case errors.Is(err, shared.ErrUnauthorized):
		Error(w, http.StatusUnauthorized, shared.ErrUnauthorized.Error())
	case errors.Is(err, shared.ErrDelivery):
		Error(w, http.StatusInternalServerError, shared.ErrDelivery.Error())
	case errors.Is(err, shared.ErrStorage):
		Error(w, http.StatusInternalServerError, "internal error")
	default:
		Error(w, http.StatusInternalServerError, "internal error")
	}
}
