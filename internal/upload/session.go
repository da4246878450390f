package upload

import (
	"context"
	"fmt"
	"sync"

	"github.com/SARVESHVARADKAR123/dmsync/internal/api"
	"github.com/SARVESHVARADKAR123/dmsync/internal/domain"
)

type State string

const (
	StateNew         State = "new"
	StateInitiated   State = "initiated"
	StateTransferred State = "transferred"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
)

// Uploader is the server side of the three-phase protocol.
type Uploader interface {
	InitUpload(ctx context.Context, req api.InitUploadRequest) (*api.InitUploadResponse, error)
	PutUpload(ctx context.Context, uploadURL, mimeType string, data []byte) error
	CompleteUpload(ctx context.Context, attachmentID string) error
}

// Session drives one upload through init, transfer and complete. A failed
// phase moves it to StateFailed; sessions are never reused.
type Session struct {
	up Uploader

	mu           sync.Mutex
	state        State
	attachmentID string
	uploadURL    string
}

func NewSession(up Uploader) *Session {
	return &Session{up: up, state: StateNew}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) AttachmentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attachmentID
}

func (s *Session) advance(from State, phase domain.UploadPhase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return &domain.UploadError{
			Phase:        phase,
			AttachmentID: s.attachmentID,
			Err:          fmt.Errorf("state %s: %w", s.state, domain.ErrPhaseOrder),
		}
	}
	return nil
}

func (s *Session) settle(to State, phase domain.UploadPhase, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateFailed
		return &domain.UploadError{Phase: phase, AttachmentID: s.attachmentID, Err: err}
	}
	s.state = to
	return nil
}

func (s *Session) Init(ctx context.Context, req api.InitUploadRequest) error {
	if err := s.advance(StateNew, domain.PhaseInit); err != nil {
		return err
	}

	resp, err := s.up.InitUpload(ctx, req)
	if err == nil {
		s.mu.Lock()
		s.attachmentID = resp.AttachmentID
		s.uploadURL = resp.UploadURL
		s.mu.Unlock()
	}
	return s.settle(StateInitiated, domain.PhaseInit, err)
}

func (s *Session) Transfer(ctx context.Context, mimeType string, data []byte) error {
	if err := s.advance(StateInitiated, domain.PhaseTransfer); err != nil {
		return err
	}

	s.mu.Lock()
	target := s.uploadURL
	s.mu.Unlock()

	err := s.up.PutUpload(ctx, target, mimeType, data)
	return s.settle(StateTransferred, domain.PhaseTransfer, err)
}

func (s *Session) Complete(ctx context.Context) error {
	if err := s.advance(StateTransferred, domain.PhaseComplete); err != nil {
		return err
	}
	err := s.up.CompleteUpload(ctx, s.AttachmentID())
	return s.settle(StateCompleted, domain.PhaseComplete, err)
}
