package devserver

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/SARVESHVARADKAR123/dmsync/internal/domain"
	"github.com/SARVESHVARADKAR123/dmsync/internal/upload"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 30
	maxPageSize     = 100
)

type conversation struct {
	id      string
	members [2]domain.User

	messages []domain.Message
	pos      map[string]int
	// clientIDs maps sender+clientMessageId to the stored message id.
	clientIDs map[string]string
	readMarks map[string]string
}

func (c *conversation) has(userID string) bool {
	return c.members[0].ID == userID || c.members[1].ID == userID
}

func (c *conversation) other(userID string) domain.User {
	if c.members[0].ID == userID {
		return c.members[1]
	}
	return c.members[0]
}

type uploadState string

const (
	uploadInitiated   uploadState = "initiated"
	uploadTransferred uploadState = "transferred"
	uploadCompleted   uploadState = "completed"
)

type uploadRecord struct {
	id         string
	owner      string
	state      uploadState
	fileName   string
	mimeType   string
	size       int64
	isVoice    bool
	durationMs int64
	data       []byte
}

// Page is one slice of a conversation in ascending CreatedAt order.
type Page struct {
	Messages   []domain.Message `json:"messages"`
	HasMore    bool             `json:"hasMore"`
	NextCursor *string          `json:"nextCursor"`
}

type CreateInput struct {
	Type          domain.Kind
	Text          string
	AttachmentIDs []string
	VoiceID       string
	ClientID      string
}

type InitInput struct {
	FileName   string
	MimeType   string
	Size       int64
	IsVoice    bool
	DurationMs int64
}

// State is the whole in-memory backend. Every method is safe for
// concurrent use.
type State struct {
	validator upload.Validator
	now       func() time.Time

	mu            sync.RWMutex
	users         map[string]domain.User
	conversations map[string]*conversation
	uploads       map[string]*uploadRecord
	lastCreated   time.Time
}

func NewState(maxUploadBytes int64, now func() time.Time) *State {
	if now == nil {
		now = time.Now
	}
	return &State{
		validator:     upload.NewValidator(maxUploadBytes),
		now:           now,
		users:         make(map[string]domain.User),
		conversations: make(map[string]*conversation),
		uploads:       make(map[string]*uploadRecord),
	}
}

func (s *State) AddUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// OpenConversation creates the direct conversation between two known users.
func (s *State) OpenConversation(userA, userB string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, okA := s.users[userA]
	b, okB := s.users[userB]
	if !okA || !okB || userA == userB {
		return "", fmt.Errorf("open conversation %s/%s: %w", userA, userB, domain.ErrInvalidInput)
	}

	id := uuid.NewString()
	s.conversations[id] = &conversation{
		id:        id,
		members:   [2]domain.User{a, b},
		pos:       make(map[string]int),
		clientIDs: make(map[string]string),
		readMarks: make(map[string]string),
	}
	return id, nil
}

func (s *State) conversationFor(convID, userID string) (*conversation, error) {
	c, ok := s.conversations[convID]
	if !ok || !c.has(userID) {
		return nil, fmt.Errorf("conversation %s: %w", convID, domain.ErrConversationNotFound)
	}
	return c, nil
}

func (s *State) Conversation(convID, userID string) (domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.conversationFor(convID, userID)
	if err != nil {
		return domain.Conversation{}, err
	}
	return domain.Conversation{ID: c.id, OtherUser: c.other(userID)}, nil
}

// List pages a conversation. With after set it returns messages newer than
// that id (forward sync); otherwise it returns the newest page older than
// cursor, or the newest page overall when cursor is empty.
func (s *State) List(convID, userID, cursor, after string, limit int) (Page, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.conversationFor(convID, userID)
	if err != nil {
		return Page{}, err
	}

	if after != "" {
		i, ok := c.pos[after]
		if !ok {
			return Page{}, fmt.Errorf("after %s: %w", after, domain.ErrMessageNotFound)
		}
		start := i + 1
		end := min(start+limit, len(c.messages))
		page := Page{Messages: viewFor(userID, c.messages[start:end]), HasMore: end < len(c.messages)}
		if end > start {
			last := c.messages[end-1].ID
			page.NextCursor = &last
		}
		return page, nil
	}

	end := len(c.messages)
	if cursor != "" {
		i, ok := c.pos[cursor]
		if !ok {
			return Page{}, fmt.Errorf("cursor %s: %w", cursor, domain.ErrMessageNotFound)
		}
		end = i
	}
	start := max(end-limit, 0)

	page := Page{Messages: viewFor(userID, c.messages[start:end]), HasMore: start > 0}
	if start < end {
		oldest := c.messages[start].ID
		page.NextCursor = &oldest
	}
	return page, nil
}

// Create stores a message. A repeated clientMessageId from the same sender
// returns the message stored the first time.
func (s *State) Create(convID, senderID string, in CreateInput, fileURL func(id string) string) (domain.Message, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.conversationFor(convID, senderID)
	if err != nil {
		return domain.Message{}, false, err
	}

	dedupKey := senderID + "|" + in.ClientID
	if in.ClientID != "" {
		if id, ok := c.clientIDs[dedupKey]; ok {
			return c.messages[c.pos[id]].Clone(), false, nil
		}
	}

	payload, err := s.buildPayload(senderID, in, fileURL)
	if err != nil {
		return domain.Message{}, false, err
	}

	created := s.now().UTC()
	if !created.After(s.lastCreated) {
		created = s.lastCreated.Add(time.Microsecond)
	}
	s.lastCreated = created

	msg := domain.Message{
		ID:             uuid.NewString(),
		ConversationID: c.id,
		SenderID:       senderID,
		Payload:        payload,
		CreatedAt:      created,
		DeliveryState:  domain.StateSent,
		ClientID:       in.ClientID,
	}
	c.pos[msg.ID] = len(c.messages)
	c.messages = append(c.messages, msg)
	if in.ClientID != "" {
		c.clientIDs[dedupKey] = msg.ID
	}
	return msg.Clone(), true, nil
}

func (s *State) buildPayload(senderID string, in CreateInput, fileURL func(id string) string) (domain.Payload, error) {
	switch in.Type {
	case domain.KindText:
		if strings.TrimSpace(in.Text) == "" {
			return nil, domain.ErrEmptyMessage
		}
		return domain.TextPayload{Body: in.Text}, nil

	case domain.KindFile:
		if len(in.AttachmentIDs) == 0 {
			return nil, domain.ErrNoAttachments
		}
		atts := make([]domain.Attachment, 0, len(in.AttachmentIDs))
		for _, id := range in.AttachmentIDs {
			u, err := s.claim(senderID, id, false)
			if err != nil {
				return nil, err
			}
			atts = append(atts, domain.Attachment{
				ID: u.id, URL: fileURL(u.id), FileName: u.fileName, MimeType: u.mimeType, Size: u.size,
			})
		}
		return domain.FilePayload{Attachments: atts}, nil

	case domain.KindVoice:
		u, err := s.claim(senderID, in.VoiceID, true)
		if err != nil {
			return nil, err
		}
		return domain.VoicePayload{Voice: domain.Voice{
			ID: u.id, URL: fileURL(u.id), DurationMs: u.durationMs, MimeType: u.mimeType, Size: u.size,
		}}, nil

	default:
		return nil, fmt.Errorf("type %q: %w", in.Type, domain.ErrUnknownKind)
	}
}

func (s *State) claim(ownerID, uploadID string, voice bool) (*uploadRecord, error) {
	u, ok := s.uploads[uploadID]
	if !ok || u.owner != ownerID {
		return nil, fmt.Errorf("attachment %s: %w", uploadID, domain.ErrUploadNotFound)
	}
	if u.state != uploadCompleted {
		return nil, fmt.Errorf("attachment %s is %s: %w", uploadID, u.state, domain.ErrPhaseOrder)
	}
	if u.isVoice != voice {
		return nil, fmt.Errorf("attachment %s kind mismatch: %w", uploadID, domain.ErrInvalidInput)
	}
	return u, nil
}

func (s *State) MarkRead(convID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.conversationFor(convID, userID)
	if err != nil {
		return err
	}
	if len(c.messages) == 0 {
		return nil
	}
	for i := range c.messages {
		if c.messages[i].SenderID != userID {
			c.messages[i].DeliveryState = domain.StateRead
		}
	}
	c.readMarks[userID] = c.messages[len(c.messages)-1].ID
	return nil
}

// ReadMark is the last message id userID has acknowledged.
func (s *State) ReadMark(convID, userID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.conversations[convID]; ok {
		return c.readMarks[userID]
	}
	return ""
}

func (s *State) InitUpload(ownerID string, in InitInput) (string, error) {
	if err := s.validator.CheckDeclared(in.FileName, in.MimeType, in.Size, in.IsVoice); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.uploads[id] = &uploadRecord{
		id:         id,
		owner:      ownerID,
		state:      uploadInitiated,
		fileName:   in.FileName,
		mimeType:   in.MimeType,
		size:       in.Size,
		isVoice:    in.IsVoice,
		durationMs: in.DurationMs,
	}
	return id, nil
}

func (s *State) PutUpload(ownerID, uploadID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.uploads[uploadID]
	if !ok || u.owner != ownerID {
		return fmt.Errorf("upload %s: %w", uploadID, domain.ErrUploadNotFound)
	}
	if u.state != uploadInitiated {
		return fmt.Errorf("put on %s upload: %w", u.state, domain.ErrPhaseOrder)
	}
	if int64(len(data)) != u.size {
		return fmt.Errorf("declared %d bytes, received %d: %w", u.size, len(data), domain.ErrInvalidInput)
	}
	u.data = data
	u.state = uploadTransferred
	return nil
}

func (s *State) CompleteUpload(ownerID, uploadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.uploads[uploadID]
	if !ok || u.owner != ownerID {
		return fmt.Errorf("upload %s: %w", uploadID, domain.ErrUploadNotFound)
	}
	if u.state != uploadTransferred {
		return fmt.Errorf("complete on %s upload: %w", u.state, domain.ErrPhaseOrder)
	}
	u.state = uploadCompleted
	return nil
}

// File returns the bytes of a completed upload.
func (s *State) File(uploadID string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.uploads[uploadID]
	if !ok || u.state != uploadCompleted {
		return nil, "", fmt.Errorf("file %s: %w", uploadID, domain.ErrUploadNotFound)
	}
	return u.data, u.mimeType, nil
}

// viewFor copies msgs as userID sees them: delivery state is only reported
// to the sender.
func viewFor(userID string, msgs []domain.Message) []domain.Message {
	out := make([]domain.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
		if m.SenderID != userID {
			out[i].DeliveryState = ""
		}
	}
	return out
}
