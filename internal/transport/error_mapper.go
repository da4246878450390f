package transport

import (
	"context"
	"errors"
	"net/http"

	"github.com/SARVESHVARADKAR123/dmsync/internal/domain"
	"github.com/SARVESHVARADKAR123/dmsync/internal/observability"
	"go.uber.org/zap"
)

// MapError converts a domain error into an HTTP status and error code.
func MapError(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, ""

	case errors.Is(err, domain.ErrConversationNotFound),
		errors.Is(err, domain.ErrMessageNotFound),
		errors.Is(err, domain.ErrUploadNotFound):
		return http.StatusNotFound, "not_found"

	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"

	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden, "forbidden"

	case errors.Is(err, domain.ErrPhaseOrder):
		return http.StatusConflict, "phase_order"

	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"

	case errors.Is(err, domain.ErrMimeNotAllowed):
		return http.StatusUnsupportedMediaType, "unsupported_media_type"

	case errors.Is(err, domain.ErrInvalidMessage),
		errors.Is(err, domain.ErrUnknownKind),
		errors.Is(err, domain.ErrEmptyMessage),
		errors.Is(err, domain.ErrNoAttachments),
		errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_argument"

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"

	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// Error writes err using MapError. Internal errors are logged and masked.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status, code := MapError(err)
	if status == http.StatusInternalServerError {
		observability.GetLogger(r.Context()).Error("internal_error", zap.Error(err))
		WriteError(w, status, code, "an unexpected error occurred")
		return
	}
	WriteError(w, status, code, err.Error())
}
