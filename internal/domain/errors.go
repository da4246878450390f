package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidMessage   = errors.New("invalid message")
	ErrUnknownKind      = errors.New("unknown message kind")
	ErrEmptyMessage     = errors.New("message is empty")
	ErrNoAttachments    = errors.New("no attachments")
	ErrFileTooLarge     = errors.New("file too large")
	ErrMimeNotAllowed   = errors.New("mime type not allowed")
	ErrPhaseOrder       = errors.New("upload phase out of order")
	ErrPermissionDenied = errors.New("microphone permission denied")
	ErrRecorderBusy     = errors.New("recorder busy")
	ErrNothingRecorded  = errors.New("nothing recorded")
	ErrNotFailed        = errors.New("message is not in failed state")

	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrUploadNotFound       = errors.New("upload not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrUnauthorized         = errors.New("unauthorized")
)

type UploadPhase string

const (
	PhaseInit     UploadPhase = "init"
	PhaseTransfer UploadPhase = "transfer"
	PhaseComplete UploadPhase = "complete"
)

// UploadError reports which phase of the three-phase upload failed.
// AttachmentID is empty when init never returned one.
type UploadError struct {
	Phase        UploadPhase
	AttachmentID string
	Err          error
}

func (e *UploadError) Error() string {
	if e.AttachmentID == "" {
		return fmt.Sprintf("upload %s: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("upload %s (attachment %s): %v", e.Phase, e.AttachmentID, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// SendError is a failed message-create request after any uploads succeeded.
type SendError struct {
	TempID string
	Err    error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send %s: %v", e.TempID, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }
