package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SARVESHVARADKAR123/dmsync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"nil error", nil, http.StatusOK},
		{"conversation not found", domain.ErrConversationNotFound, http.StatusNotFound},
		{"upload not found wrapped", fmt.Errorf("complete: %w", domain.ErrUploadNotFound), http.StatusNotFound},
		{"unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized},
		{"phase order", domain.ErrPhaseOrder, http.StatusConflict},
		{"file too large", domain.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{"mime", domain.ErrMimeNotAllowed, http.StatusUnsupportedMediaType},
		{"empty message", domain.ErrEmptyMessage, http.StatusBadRequest},
		{"unknown kind", domain.ErrUnknownKind, http.StatusBadRequest},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"unknown error", errors.New("something went wrong"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := MapError(tt.err)
			assert.Equal(t, tt.wantStatus, got)
		})
	}
}

func TestErrorMasksInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("db password is hunter2"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", body["error"])
	assert.NotContains(t, body["message"], "hunter2")
}
