package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/SARVESHVARADKAR123/dmsync/internal/domain"
)

type ListParams struct {
	Cursor string
	Limit  int
	After  string
}

type MessagePage struct {
	Messages   []domain.Message `json:"messages"`
	HasMore    bool             `json:"hasMore"`
	NextCursor *string          `json:"nextCursor"`
}

// CreateMessageRequest carries exactly one of Text, AttachmentIDs or VoiceID
// matching Type.
type CreateMessageRequest struct {
	Type          domain.Kind `json:"type"`
	Text          string      `json:"text,omitempty"`
	AttachmentIDs []string    `json:"attachmentIds,omitempty"`
	VoiceID       string      `json:"voiceId,omitempty"`
	ClientID      string      `json:"clientMessageId,omitempty"`
}

func (c *Client) GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := c.doJSON(ctx, "get_conversation", http.MethodGet,
		c.endpoint("/api/conversations/"+url.PathEscape(conversationID), nil), nil, &conv)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (c *Client) ListMessages(ctx context.Context, conversationID string, p ListParams) (*MessagePage, error) {
	q := url.Values{}
	if p.Cursor != "" {
		q.Set("cursor", p.Cursor)
	}
	if p.After != "" {
		q.Set("after", p.After)
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}

	var page MessagePage
	err := c.doJSON(ctx, "list_messages", http.MethodGet,
		c.endpoint("/api/conversations/"+url.PathEscape(conversationID)+"/messages", q), nil, &page)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) CreateMessage(ctx context.Context, conversationID string, req CreateMessageRequest) (*domain.Message, error) {
	var msg domain.Message
	err := c.doJSON(ctx, "create_message", http.MethodPost,
		c.endpoint("/api/conversations/"+url.PathEscape(conversationID)+"/messages", nil), req, &msg)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) MarkRead(ctx context.Context, conversationID string) error {
	return c.doJSON(ctx, "mark_read", http.MethodPost,
		c.endpoint("/api/conversations/"+url.PathEscape(conversationID)+"/read", nil), struct{}{}, nil)
}
