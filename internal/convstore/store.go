// Package convstore holds the in-memory conversation state the chat UI
// renders from. It is the single place where REST-fetched history and
// push-delivered messages meet.
package convstore

import (
	"sync"
	"time"

	"github.com/classchat/classchat/internal/bus"
	"github.com/classchat/classchat/internal/chat"
)

// Store maps a contact id to the ordered message history exchanged with
// that contact. Two mutations exist: Replace (wholesale, after a REST
// fetch, last fetch wins) and Append (de-duplicating upsert keyed by the
// server message id). Order is pure insertion order; no re-sort by SentAt.
type Store struct {
	mu            sync.RWMutex
	conversations map[string][]chat.Message
	index         map[string]map[string]int // contact id -> message id -> position
	bus           *bus.Bus
}

// New creates an empty conversation store. The bus is optional; when set,
// every mutation publishes a store.updated event carrying the contact id.
func New(b *bus.Bus) *Store {
	return &Store{
		conversations: make(map[string][]chat.Message),
		index:         make(map[string]map[string]int),
		bus:           b,
	}
}

// Replace discards whatever is held for contactID and installs msgs as the
// new history. A fetch that resolves after live messages were appended
// drops them; callers that care must re-append.
func (s *Store) Replace(contactID string, msgs []chat.Message) {
	s.mu.Lock()
	seq := make([]chat.Message, len(msgs))
	copy(seq, msgs)
	idx := make(map[string]int, len(seq))
	for i, m := range seq {
		if m.ID != "" {
			idx[m.ID] = i
		}
	}
	s.conversations[contactID] = seq
	s.index[contactID] = idx
	s.mu.Unlock()

	s.notify(contactID)
}

// Append upserts one message into contactID's history. A message whose id
// is already present overwrites the existing entry in place, so a send
// echoed back over the push channel never shows up twice. Returns true if
// the message was newly appended, false if it collapsed into an existing
// entry. Messages without an id are always appended.
func (s *Store) Append(contactID string, m chat.Message) bool {
	s.mu.Lock()
	idx, ok := s.index[contactID]
	if !ok {
		idx = make(map[string]int)
		s.index[contactID] = idx
	}
	appended := true
	if m.ID != "" {
		if pos, seen := idx[m.ID]; seen {
			s.conversations[contactID][pos] = m
			appended = false
		} else {
			idx[m.ID] = len(s.conversations[contactID])
			s.conversations[contactID] = append(s.conversations[contactID], m)
		}
	} else {
		s.conversations[contactID] = append(s.conversations[contactID], m)
	}
	s.mu.Unlock()

	s.notify(contactID)
	return appended
}

// Conversation returns a snapshot of the history for contactID, empty if
// the contact was never referenced.
func (s *Store) Conversation(contactID string) []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seq := s.conversations[contactID]
	out := make([]chat.Message, len(seq))
	copy(out, seq)
	return out
}

// LastMessage returns the most recently inserted message for contactID.
func (s *Store) LastMessage(contactID string) (chat.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seq := s.conversations[contactID]
	if len(seq) == 0 {
		return chat.Message{}, false
	}
	return seq[len(seq)-1], true
}

// Len returns the number of messages held for contactID.
func (s *Store) Len(contactID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations[contactID])
}

func (s *Store) notify(contactID string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(bus.Event{
		Kind:      bus.KindStoreUpdated,
		Timestamp: time.Now(),
		Payload:   contactID,
	})
}
