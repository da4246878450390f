package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

type InitUploadRequest struct {
	FileName   string `json:"fileName"`
	MimeType   string `json:"mimeType"`
	Size       int64  `json:"size"`
	IsVoice    bool   `json:"isVoice,omitempty"`
	DurationMs int64  `json:"durationMs,omitempty"`
}

type InitUploadResponse struct {
	AttachmentID string `json:"attachmentId"`
	UploadURL    string `json:"uploadUrl"`
}

func (c *Client) InitUpload(ctx context.Context, req InitUploadRequest) (*InitUploadResponse, error) {
	var resp InitUploadResponse
	if err := c.doJSON(ctx, "upload_init", http.MethodPost, c.endpoint("/api/uploads/init", nil), req, &resp); err != nil {
		return nil, err
	}
	if resp.AttachmentID == "" || resp.UploadURL == "" {
		return nil, fmt.Errorf("upload_init: incomplete response")
	}
	return &resp, nil
}

// PutUpload transfers raw bytes to the pre-authorized destination.
func (c *Client) PutUpload(ctx context.Context, uploadURL, mimeType string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("upload_transfer: build request: %w", err)
	}
	req.Header.Set("Content-Type", mimeType)
	req.ContentLength = int64(len(data))

	resp, err := c.do(ctx, "upload_transfer", req, c.sameOrigin(uploadURL))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) CompleteUpload(ctx context.Context, attachmentID string) error {
	body := struct {
		AttachmentID string `json:"attachmentId"`
	}{AttachmentID: attachmentID}

	var resp struct {
		OK bool `json:"ok"`
	}
	if err := c.doJSON(ctx, "upload_complete", http.MethodPost, c.endpoint("/api/uploads/complete", nil), body, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("upload_complete: server did not confirm %s", attachmentID)
	}
	return nil
}
