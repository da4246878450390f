package store

import (
	"sort"
	"sync"

	"github.com/SARVESHVARADKAR123/dmsync/internal/domain"
	"github.com/SARVESHVARADKAR123/dmsync/internal/observability"
	"go.uber.org/zap"
)

type Origin string

const (
	OriginOptimistic Origin = "optimistic"
	OriginPoll       Origin = "poll"
	OriginHistory    Origin = "history"
)

type entry struct {
	msg domain.Message
	seq int64
	// listed is set once the server returned this message in a list
	// response (poll or history).
	listed bool
}

// Store is the ordered, deduplicated message list of one conversation.
//
// Invariants, held after every exported call returns:
// 1. Ordering: entries are sorted by CreatedAt, ties by insertion sequence.
// 2. Identity: no two entries share an id.
// 3. Placeholders: a confirmation replaces its placeholder, it never appends.
type Store struct {
	conversationID string
	log            *zap.Logger
	onPollMerge    func()

	mu      sync.Mutex
	entries []entry
	index   map[string]int
	headSeq int64
	tailSeq int64
	subs    map[int]chan struct{}
	nextSub int
}

type Option func(*Store)

// WithReadReceipt registers the hook fired after a non-empty poll merge.
// It runs on its own goroutine and never inside the merge.
func WithReadReceipt(fn func()) Option {
	return func(s *Store) { s.onPollMerge = fn }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

func New(conversationID string, opts ...Option) *Store {
	s := &Store{
		conversationID: conversationID,
		log:            zap.NewNop(),
		index:          make(map[string]int),
		subs:           make(map[int]chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = observability.OrNop(s.log).With(zap.String("conversation_id", conversationID))
	return s
}

func (s *Store) ConversationID() string {
	return s.conversationID
}

// Merge folds incoming messages into the store and returns how many new
// entries were added.
func (s *Store) Merge(origin Origin, msgs ...domain.Message) int {
	s.mu.Lock()
	added := 0
	switch origin {
	case OriginOptimistic:
		for _, m := range msgs {
			if s.accept(m) {
				added += s.mergeOptimistic(m.Clone())
			}
		}
	case OriginPoll:
		for _, m := range msgs {
			if s.accept(m) {
				added += s.mergeTail(m.Clone())
			}
		}
	case OriginHistory:
		// Walk backwards so the batch keeps its relative order on
		// CreatedAt ties once prepended.
		for i := len(msgs) - 1; i >= 0; i-- {
			if s.accept(msgs[i]) {
				added += s.mergeHead(msgs[i].Clone())
			}
		}
	default:
		s.mu.Unlock()
		s.log.Warn("merge with unknown origin ignored", zap.String("origin", string(origin)))
		return 0
	}
	s.resort()
	s.mu.Unlock()

	observability.MergedMessagesTotal.WithLabelValues(string(origin)).Add(float64(added))
	s.notify()

	if origin == OriginPoll && len(msgs) > 0 && s.onPollMerge != nil {
		go s.onPollMerge()
	}
	return added
}

func (s *Store) accept(m domain.Message) bool {
	if m.ID == "" {
		s.log.Warn("dropping message without id")
		return false
	}
	if m.ConversationID != "" && m.ConversationID != s.conversationID {
		s.log.Warn("dropping message from another conversation",
			zap.String("message_id", m.ID),
			zap.String("message_conversation_id", m.ConversationID),
		)
		return false
	}
	return true
}

func (s *Store) mergeOptimistic(m domain.Message) int {
	key := m.ClientID
	if key == "" {
		key = m.ID
	}

	if i, ok := s.index[key]; ok && domain.IsTempID(key) {
		if m.ClientID == "" && domain.IsTempID(m.ID) {
			m.ClientID = m.ID
		}
		if j, dup := s.index[m.ID]; dup && j != i {
			// A poll delivered the durable copy before the confirmation
			// returned; keep the placeholder's slot and drop the copy.
			s.entries[i].msg = m
			s.entries[i].listed = s.entries[i].listed || s.entries[j].listed
			s.remove(j)
			return 0
		}
		s.entries[i].msg = m
		s.index[m.ID] = i
		return 0
	}

	if i, ok := s.index[m.ID]; ok {
		s.entries[i].msg = m
		return 0
	}

	if m.ClientID == "" && domain.IsTempID(m.ID) {
		m.ClientID = m.ID
	}
	s.tailSeq++
	s.append(entry{msg: m, seq: s.tailSeq})
	return 1
}

func (s *Store) mergeTail(m domain.Message) int {
	if i, ok := s.index[m.ID]; ok {
		s.entries[i].listed = true
		return 0
	}
	if i, ok := s.placeholderFor(m); ok {
		s.replaceFromServer(i, m)
		return 0
	}
	s.tailSeq++
	s.append(entry{msg: m, seq: s.tailSeq, listed: true})
	return 1
}

func (s *Store) mergeHead(m domain.Message) int {
	if i, ok := s.index[m.ID]; ok {
		s.entries[i].listed = true
		return 0
	}
	if i, ok := s.placeholderFor(m); ok {
		s.replaceFromServer(i, m)
		return 0
	}
	s.headSeq--
	s.append(entry{msg: m, seq: s.headSeq, listed: true})
	return 1
}

func (s *Store) placeholderFor(m domain.Message) (int, bool) {
	if m.ClientID == "" {
		return 0, false
	}
	i, ok := s.index[m.ClientID]
	if !ok || !domain.IsTempID(s.entries[i].msg.ID) {
		return 0, false
	}
	return i, true
}

func (s *Store) replaceFromServer(i int, m domain.Message) {
	if m.DeliveryState == "" {
		m.DeliveryState = domain.StateSent
	}
	delete(s.index, s.entries[i].msg.ID)
	s.entries[i].msg = m
	s.entries[i].listed = true
	s.index[m.ID] = i
}

func (s *Store) append(e entry) {
	s.entries = append(s.entries, e)
	s.index[e.msg.ID] = len(s.entries) - 1
}

func (s *Store) remove(i int) {
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	s.reindex()
}

func (s *Store) resort() {
	sort.SliceStable(s.entries, func(i, j int) bool {
		a, b := s.entries[i], s.entries[j]
		if !a.msg.CreatedAt.Equal(b.msg.CreatedAt) {
			return a.msg.CreatedAt.Before(b.msg.CreatedAt)
		}
		return a.seq < b.seq
	})
	s.reindex()
}

func (s *Store) reindex() {
	clear(s.index)
	for i, e := range s.entries {
		s.index[e.msg.ID] = i
		if e.msg.ClientID != "" && e.msg.ClientID != e.msg.ID && domain.IsTempID(e.msg.ID) {
			s.index[e.msg.ClientID] = i
		}
	}
}

// SetDeliveryState updates a message in place. Reports false when the id is
// unknown.
func (s *Store) SetDeliveryState(id string, state domain.DeliveryState) bool {
	s.mu.Lock()
	i, ok := s.index[id]
	if ok {
		s.entries[i].msg.DeliveryState = state
	}
	s.mu.Unlock()

	if ok {
		s.notify()
	}
	return ok
}

func (s *Store) MarkFailed(tempID string) bool {
	return s.SetDeliveryState(tempID, domain.StateFailed)
}

func (s *Store) Get(id string) (domain.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return domain.Message{}, false
	}
	return s.entries[i].msg.Clone(), true
}

// Messages returns a snapshot in render order.
func (s *Store) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Message, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.msg.Clone()
	}
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// LastDurableID is the newest server-confirmed id, or "" when only
// placeholders (or nothing) are loaded.
func (s *Store) LastDurableID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.entries) - 1; i >= 0; i-- {
		if id := s.entries[i].msg.ID; !domain.IsTempID(id) {
			return id
		}
	}
	return ""
}

// SyncCursor is the newest id the server has returned in a list response.
// Confirmations of local sends never move it, so a message the other
// participant wrote just before a local send is still picked up by the
// next forward sync. It is "" until a poll or history page lands.
func (s *Store) SyncCursor() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].listed {
			return s.entries[i].msg.ID
		}
	}
	return ""
}

// Subscribe returns a channel that receives a signal after every change.
// Signals coalesce; readers call Messages to see the current state.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan struct{}, 1)
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
