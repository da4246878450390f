package devserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/SARVESHVARADKAR123/dmsync/internal/domain"
	"github.com/SARVESHVARADKAR123/dmsync/internal/middleware"
	"github.com/SARVESHVARADKAR123/dmsync/internal/observability"
	"github.com/SARVESHVARADKAR123/dmsync/internal/transport"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the messaging and upload API out of a State.
type Handler struct {
	state     *State
	publicURL string
	maxUpload int64
	tokens    *TokenIssuer
}

func NewHandler(state *State, publicURL string, maxUpload int64, tokens *TokenIssuer) *Handler {
	return &Handler{
		state:     state,
		publicURL: strings.TrimRight(publicURL, "/"),
		maxUpload: maxUpload,
		tokens:    tokens,
	}
}

// baseURL prefers the configured public URL and falls back to the request
// host, which is what httptest servers need.
func (h *Handler) baseURL(r *http.Request) string {
	if h.publicURL != "" {
		return h.publicURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// GetConversation GET /api/conversations/{id}
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := h.state.Conversation(chi.URLParam(r, "id"), middleware.UserID(r.Context()))
	if err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, conv)
}

// ListMessages GET /api/conversations/{id}/messages
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if val := q.Get("limit"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil || n <= 0 {
			transport.WriteError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	page, err := h.state.List(chi.URLParam(r, "id"), middleware.UserID(r.Context()), q.Get("cursor"), q.Get("after"), limit)
	if err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, page)
}

// CreateMessage POST /api/conversations/{id}/messages
func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type          domain.Kind `json:"type"`
		Text          string      `json:"text"`
		AttachmentIDs []string    `json:"attachmentIds"`
		VoiceID       string      `json:"voiceId"`
		ClientID      string      `json:"clientMessageId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid_body", "invalid json")
		return
	}

	base := h.baseURL(r)
	msg, created, err := h.state.Create(chi.URLParam(r, "id"), middleware.UserID(r.Context()), CreateInput{
		Type:          req.Type,
		Text:          req.Text,
		AttachmentIDs: req.AttachmentIDs,
		VoiceID:       req.VoiceID,
		ClientID:      req.ClientID,
	}, func(id string) string { return base + "/files/" + id })
	if err != nil {
		transport.Error(w, r, err)
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	transport.WriteJSON(w, status, msg)
}

// MarkRead POST /api/conversations/{id}/read
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if err := h.state.MarkRead(chi.URLParam(r, "id"), middleware.UserID(r.Context())); err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// InitUpload POST /api/uploads/init
func (h *Handler) InitUpload(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FileName   string `json:"fileName"`
		MimeType   string `json:"mimeType"`
		Size       int64  `json:"size"`
		IsVoice    bool   `json:"isVoice"`
		DurationMs int64  `json:"durationMs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid_body", "invalid json")
		return
	}

	id, err := h.state.InitUpload(middleware.UserID(r.Context()), InitInput(req))
	if err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, map[string]string{
		"attachmentId": id,
		"uploadUrl":    h.baseURL(r) + "/uploads/" + id,
	})
}

// PutUpload PUT /uploads/{id}
func (h *Handler) PutUpload(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUpload))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			transport.Error(w, r, domain.ErrFileTooLarge)
			return
		}
		transport.WriteError(w, http.StatusBadRequest, "invalid_body", "could not read upload body")
		return
	}

	if err := h.state.PutUpload(middleware.UserID(r.Context()), chi.URLParam(r, "id"), data); err != nil {
		transport.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// CompleteUpload POST /api/uploads/complete
func (h *Handler) CompleteUpload(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AttachmentID string `json:"attachmentId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AttachmentID == "" {
		transport.WriteError(w, http.StatusBadRequest, "invalid_body", "attachmentId is required")
		return
	}

	if err := h.state.CompleteUpload(middleware.UserID(r.Context()), req.AttachmentID); err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// File GET /files/{id}
func (h *Handler) File(w http.ResponseWriter, r *http.Request) {
	data, mimeType, err := h.state.File(chi.URLParam(r, "id"))
	if err != nil {
		transport.Error(w, r, err)
		return
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		observability.GetLogger(r.Context()).Debug("file write aborted", zap.Error(err))
	}
}

// IssueToken POST /api/dev/token
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		transport.WriteError(w, http.StatusBadRequest, "invalid_body", "userId is required")
		return
	}

	token, err := h.tokens.Issue(req.UserID)
	if err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, map[string]string{"token": token})
}
