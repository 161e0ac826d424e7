package model

import (
	"context"
	"sync"
	"time"

	"github.com/classchat/classchat/internal/api"
	"github.com/classchat/classchat/internal/chat"
	"github.com/classchat/classchat/internal/composer"
	"github.com/classchat/classchat/internal/convstore"
	"github.com/classchat/classchat/internal/store"
	enginesync "github.com/classchat/classchat/internal/sync"
)

// ViewModel holds UI-facing state: the contact list, the active
// conversation and the search filter. Conversations themselves live in the
// conversation store; the view model only reads snapshots.
type ViewModel struct {
	mu sync.RWMutex

	api           *api.Client
	conversations *convstore.Store
	engine        *enginesync.Engine
	cache         *store.DB
	Composer      *composer.Composer
	Flash         Flash

	selfRole  chat.Role
	pageLimit int

	contacts []chat.Contact
	active   *chat.Contact
	query    string
}

// NewViewModel creates a view model over the given collaborators.
func NewViewModel(c *api.Client, conversations *convstore.Store, engine *enginesync.Engine, cache *store.DB, comp *composer.Composer, selfRole chat.Role, pageLimit int) *ViewModel {
	if pageLimit <= 0 {
		pageLimit = 50
	}
	return &ViewModel{
		api:           c,
		conversations: conversations,
		engine:        engine,
		cache:         cache,
		Composer:      comp,
		selfRole:      selfRole,
		pageLimit:     pageLimit,
	}
}

// SelfRole returns the signed-in user's role.
func (vm *ViewModel) SelfRole() chat.Role { return vm.selfRole }

// LoadContacts fetches the contact list, falling back to the cache when
// the server is unreachable.
func (vm *ViewModel) LoadContacts(ctx context.Context) error {
	contacts, err := vm.api.Contacts(ctx)
	if err != nil {
		cached, cerr := vm.cache.ListContacts()
		if cerr != nil || len(cached) == 0 {
			return err
		}
		contacts = make([]chat.Contact, 0, len(cached))
		for _, c := range cached {
			contacts = append(contacts, c.Domain())
		}
	} else {
		rows := make([]store.Contact, 0, len(contacts))
		for _, c := range contacts {
			rows = append(rows, store.NewContactRow(c))
		}
		_ = vm.cache.BulkUpsertContacts(rows)
	}

	vm.mu.Lock()
	vm.contacts = contacts
	vm.mu.Unlock()
	return nil
}

// SetSearchQuery updates the contact filter.
func (vm *ViewModel) SetSearchQuery(q string) {
	vm.mu.Lock()
	vm.query = q
	vm.mu.Unlock()
}

// Contacts returns the contact list with the current filter applied. The
// server's ordering is preserved.
func (vm *ViewModel) Contacts() []chat.Contact {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return chat.FilterContacts(vm.contacts, vm.query)
}

// OpenConversation makes contactID the active conversation and loads its
// history. A fetch failure falls back to cached history so old messages
// stay readable offline.
func (vm *ViewModel) OpenConversation(ctx context.Context, contactID string) error {
	var contact chat.Contact
	found := false
	vm.mu.RLock()
	for _, c := range vm.contacts {
		if c.ID == contactID {
			contact = c
			found = true
			break
		}
	}
	vm.mu.RUnlock()
	if !found {
		contact = chat.Contact{ID: contactID}
	}

	msgs, err := vm.api.Conversation(ctx, contactID, 1, vm.pageLimit)
	if err != nil {
		cached, cerr := vm.cache.ListMessages(contactID, 0, vm.pageLimit)
		if cerr != nil {
			return err
		}
		msgs = make([]chat.Message, 0, len(cached))
		for _, m := range cached {
			msgs = append(msgs, m.Domain())
		}
		vm.conversations.Replace(contactID, msgs)
	} else if ierr := vm.engine.IngestFetched(contactID, msgs); ierr != nil {
		return ierr
	}

	vm.mu.Lock()
	vm.active = &contact
	vm.mu.Unlock()
	vm.Composer.SetActiveContact(contact)
	return nil
}

// ActiveContact returns the open conversation's contact, if any.
func (vm *ViewModel) ActiveContact() (chat.Contact, bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if vm.active == nil {
		return chat.Contact{}, false
	}
	return *vm.active, true
}

// ActiveConversation returns the messages of the open conversation in
// arrival order.
func (vm *ViewModel) ActiveConversation() []chat.Message {
	vm.mu.RLock()
	active := vm.active
	vm.mu.RUnlock()
	if active == nil {
		return nil
	}
	return vm.conversations.Conversation(active.ID)
}

// Preview returns the last-message preview line and timestamp for a
// contact, preferring live state over the cache.
func (vm *ViewModel) Preview(contactID string) (string, time.Time) {
	if m, ok := vm.conversations.LastMessage(contactID); ok {
		return previewText(m), m.SentAt
	}
	cached, err := vm.cache.LastMessage(contactID)
	if err != nil || cached == nil {
		return "", time.Time{}
	}
	m := cached.Domain()
	return previewText(m), m.SentAt
}

// SearchMessages runs a full-text search over the cached history.
func (vm *ViewModel) SearchMessages(query string) ([]store.SearchResult, error) {
	return vm.cache.SearchMessages(query, "", 50)
}

// ContactName resolves a contact id to its display name, falling back to
// the id itself.
func (vm *ViewModel) ContactName(contactID string) string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	for _, c := range vm.contacts {
		if c.ID == contactID {
			return c.DisplayName()
		}
	}
	return contactID
}

func previewText(m chat.Message) string {
	if m.Attachment != nil && !m.HasText() {
		switch chat.Classify(*m.Attachment) {
		case chat.KindAudio:
			return chat.ContentVoiceMessage
		default:
			return chat.ContentFileAttachment
		}
	}
	return m.Content
}
