// Package sync routes messages into the conversation store and the local
// cache. Pushed messages are appended under the conversation partner;
// fetched history replaces a conversation wholesale.
package sync

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/classchat/classchat/internal/bus"
	"github.com/classchat/classchat/internal/chat"
	"github.com/classchat/classchat/internal/convstore"
	"github.com/classchat/classchat/internal/store"
)

// Engine handles idempotent ingestion of messages. It subscribes to
// "push." events on the bus and processes them.
type Engine struct {
	conversations *convstore.Store
	db            *store.DB
	bus           *bus.Bus
	logger        *zap.Logger
	selfID        string
	cancel        context.CancelFunc
}

// NewEngine creates a sync engine for the signed-in user. selfID decides
// which side of a message is the conversation partner.
func NewEngine(conversations *convstore.Store, db *store.DB, b *bus.Bus, logger *zap.Logger, selfID string) *Engine {
	return &Engine{
		conversations: conversations,
		db:            db,
		bus:           b,
		logger:        logger,
		selfID:        selfID,
	}
}

// Start subscribes to inbound push events on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	ch, unsub := e.bus.Subscribe("push.", 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				e.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Engine) handleEvent(evt bus.Event) {
	if evt.Kind != bus.KindPushMessage {
		return
	}
	msg, ok := evt.Payload.(chat.Message)
	if !ok {
		return
	}
	if err := e.IngestPush(msg); err != nil {
		e.logger.Error("failed to ingest pushed message",
			zap.Error(err), zap.String("msg_id", msg.ID))
	}
}

// IngestPush appends a live message to its conversation and caches it.
// Append is keyed by the conversation partner, so a pushed echo of our own
// send lands in the same conversation as the original.
func (e *Engine) IngestPush(msg chat.Message) error {
	contactID := msg.PartnerID(e.selfID)
	e.conversations.Append(contactID, msg)

	if msg.ID == "" {
		return nil
	}
	row := store.NewMessageRow(contactID, msg)
	if err := e.db.UpsertMessage(&row); err != nil {
		return fmt.Errorf("upsert message: %w", err)
	}
	return nil
}

// IngestFetched replaces a conversation with freshly fetched history. The
// newest fetch wins; whatever was in the conversation before is discarded.
func (e *Engine) IngestFetched(contactID string, msgs []chat.Message) error {
	e.conversations.Replace(contactID, msgs)

	rows := make([]store.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.ID == "" {
			continue
		}
		rows = append(rows, store.NewMessageRow(contactID, m))
	}
	if err := e.db.ReplaceConversation(contactID, rows); err != nil {
		return fmt.Errorf("replace conversation: %w", err)
	}
	e.logger.Info("conversation history ingested",
		zap.String("contact_id", contactID), zap.Int("messages", len(msgs)))
	return nil
}
