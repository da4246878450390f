package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindText  Kind = "text"
	KindFile  Kind = "file"
	KindVoice Kind = "voice"
)

type DeliveryState string

const (
	StateSending   DeliveryState = "sending"
	StateSent      DeliveryState = "sent"
	StateDelivered DeliveryState = "delivered"
	StateRead      DeliveryState = "read"
	StateFailed    DeliveryState = "failed"
)

const TempIDPrefix = "temp_"

// NewTempID returns a client-side placeholder id, unique per call.
func NewTempID() string {
	return TempIDPrefix + uuid.NewString()
}

func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

type Attachment struct {
	ID       string `json:"id,omitempty"`
	URL      string `json:"url,omitempty"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

type Voice struct {
	ID         string `json:"id,omitempty"`
	URL        string `json:"url,omitempty"`
	DurationMs int64  `json:"durationMs"`
	MimeType   string `json:"mimeType"`
	Size       int64  `json:"size"`
}

// Payload is the closed set of message bodies. Only the three types in this
// file implement it.
type Payload interface {
	Kind() Kind
	isPayload()
}

type TextPayload struct {
	Body string
}

type FilePayload struct {
	Attachments []Attachment
}

type VoicePayload struct {
	Voice Voice
}

func (TextPayload) Kind() Kind  { return KindText }
func (FilePayload) Kind() Kind  { return KindFile }
func (VoicePayload) Kind() Kind { return KindVoice }

func (TextPayload) isPayload()  {}
func (FilePayload) isPayload()  {}
func (VoicePayload) isPayload() {}

// Message Invariants:
// 1. Identity: ID is either durable (server assigned) or a temp id (TempIDPrefix).
// 2. Payload: exactly one variant, Kind is derived from it.
// 3. DeliveryState is only tracked for messages authored locally.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Payload        Payload
	CreatedAt      time.Time
	DeliveryState  DeliveryState

	// ClientID is the temp id the message was submitted under, echoed back
	// by the server as clientMessageId.
	ClientID string
}

func (m Message) Kind() Kind {
	if m.Payload == nil {
		return ""
	}
	return m.Payload.Kind()
}

func (m Message) IsOptimistic() bool {
	return IsTempID(m.ID)
}

// Clone copies the message including the attachment slice so callers can
// hand out snapshots without sharing backing arrays.
func (m Message) Clone() Message {
	if fp, ok := m.Payload.(FilePayload); ok {
		atts := make([]Attachment, len(fp.Attachments))
		copy(atts, fp.Attachments)
		m.Payload = FilePayload{Attachments: atts}
	}
	return m
}

// Preview is a one-line rendering used by logs and the CLI.
func (m Message) Preview() string {
	switch p := m.Payload.(type) {
	case TextPayload:
		return p.Body
	case FilePayload:
		names := make([]string, 0, len(p.Attachments))
		for _, a := range p.Attachments {
			names = append(names, a.FileName)
		}
		return "[file] " + strings.Join(names, ", ")
	case VoicePayload:
		return fmt.Sprintf("[voice %.1fs]", float64(p.Voice.DurationMs)/1000)
	default:
		return ""
	}
}

type wireMessage struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversationId"`
	SenderID       string        `json:"senderId"`
	Type           Kind          `json:"type"`
	Text           string        `json:"text,omitempty"`
	Attachments    []Attachment  `json:"attachments,omitempty"`
	Voice          *Voice        `json:"voice,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	ClientID       string        `json:"clientMessageId,omitempty"`
	DeliveryState  DeliveryState `json:"deliveryState,omitempty"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	w := wireMessage{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		CreatedAt:      m.CreatedAt,
		ClientID:       m.ClientID,
		DeliveryState:  m.DeliveryState,
	}

	switch p := m.Payload.(type) {
	case TextPayload:
		w.Type = KindText
		w.Text = p.Body
	case FilePayload:
		w.Type = KindFile
		w.Attachments = p.Attachments
	case VoicePayload:
		w.Type = KindVoice
		v := p.Voice
		w.Voice = &v
	default:
		return nil, ErrUnknownKind
	}

	return json.Marshal(w)
}

func (m *Message) UnmarshalJSON(b []byte) error {
	var w wireMessage
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	var payload Payload
	switch w.Type {
	case KindText:
		payload = TextPayload{Body: w.Text}
	case KindFile:
		payload = FilePayload{Attachments: w.Attachments}
	case KindVoice:
		if w.Voice == nil {
			return fmt.Errorf("voice message %s without voice descriptor: %w", w.ID, ErrInvalidMessage)
		}
		payload = VoicePayload{Voice: *w.Voice}
	default:
		return fmt.Errorf("message %s type %q: %w", w.ID, w.Type, ErrUnknownKind)
	}

	*m = Message{
		ID:             w.ID,
		ConversationID: w.ConversationID,
		SenderID:       w.SenderID,
		Payload:        payload,
		CreatedAt:      w.CreatedAt,
		DeliveryState:  w.DeliveryState,
		ClientID:       w.ClientID,
	}
	return nil
}
