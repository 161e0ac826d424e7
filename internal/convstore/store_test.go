package convstore

import (
	"fmt"
	"testing"
	"time"

	"github.com/classchat/classchat/internal/bus"
	"github.com/classchat/classchat/internal/chat"
)

func msg(id, content string) chat.Message {
	return chat.Message{ID: id, Content: content, SentAt: time.Unix(1700000000, 0)}
}

func TestAppendPreservesOrder(t *testing.T) {
	s := New(nil)

	const n = 25
	for i := 0; i < n; i++ {
		s.Append("c1", msg(fmt.Sprintf("m%d", i), fmt.Sprintf("body %d", i)))
	}

	got := s.Conversation("c1")
	if len(got) != n {
		t.Fatalf("got %d messages, want %d", len(got), n)
	}
	for i, m := range got {
		if m.ID != fmt.Sprintf("m%d", i) {
			t.Fatalf("position %d holds %q, append order not preserved", i, m.ID)
		}
	}
}

func TestReplaceWins(t *testing.T) {
	s := New(nil)

	// Pre-existing junk that the replace must discard.
	s.Append("c1", msg("old1", "stale"))
	s.Append("c1", msg("old2", "stale"))

	fetched := []chat.Message{msg("f1", "one"), msg("f2", "two")}
	s.Replace("c1", fetched)
	s.Append("c1", msg("m3", "three"))

	got := s.Conversation("c1")
	if len(got) != 3 {
		t.Fatalf("got %d messages, want 3 (fetched + appended)", len(got))
	}
	if got[0].ID != "f1" || got[1].ID != "f2" || got[2].ID != "m3" {
		t.Errorf("sequence = [%s %s %s], want [f1 f2 m3]", got[0].ID, got[1].ID, got[2].ID)
	}
}

// A send echoed back by the push channel carries the same server id and
// must collapse into the existing entry instead of duplicating.
func TestAppendDeduplicatesOnEcho(t *testing.T) {
	s := New(nil)

	sent := msg("srv1", "hello")
	if !s.Append("c1", sent) {
		t.Fatal("first append reported as duplicate")
	}
	if s.Append("c1", sent) {
		t.Error("echoed append reported as new")
	}

	got := s.Conversation("c1")
	if len(got) != 1 {
		t.Fatalf("got %d messages, want 1 (echo deduplicated)", len(got))
	}
	if got[0].Content != "hello" {
		t.Errorf("content = %q, want hello", got[0].Content)
	}
}

func TestAppendUpsertOverwritesInPlace(t *testing.T) {
	s := New(nil)

	s.Append("c1", msg("m1", "v1"))
	s.Append("c1", msg("m2", "other"))
	s.Append("c1", msg("m1", "v2"))

	got := s.Conversation("c1")
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
	if got[0].ID != "m1" || got[0].Content != "v2" {
		t.Errorf("position 0 = {%s %s}, want m1 updated in place", got[0].ID, got[0].Content)
	}
}

// Documents the fetch/push race: a fetch that resolves after a live append
// replaces the whole sequence, dropping the pushed message.
func TestReplaceDropsConcurrentlyPushedMessage(t *testing.T) {
	s := New(nil)

	// Push delivers while the fetch is in flight.
	s.Append("c1", msg("live1", "pushed"))

	// The fetch resolves without the pushed message.
	s.Replace("c1", []chat.Message{msg("h1", "history")})

	got := s.Conversation("c1")
	if len(got) != 1 || got[0].ID != "h1" {
		t.Fatalf("conversation = %v, want only the fetched history", got)
	}
}

func TestConversationDefaultsEmpty(t *testing.T) {
	s := New(nil)
	if got := s.Conversation("never-seen"); len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
	if _, ok := s.LastMessage("never-seen"); ok {
		t.Error("LastMessage on empty conversation should report false")
	}
}

func TestLastMessage(t *testing.T) {
	s := New(nil)
	s.Append("c1", msg("m1", "first"))
	s.Append("c1", msg("m2", "second"))

	last, ok := s.LastMessage("c1")
	if !ok || last.ID != "m2" {
		t.Errorf("LastMessage = %v %v, want m2", last, ok)
	}
}

func TestMutationsPublishStoreUpdated(t *testing.T) {
	b := bus.New()
	s := New(b)

	ch, unsub := b.Subscribe("store.", 10)
	defer unsub()

	s.Append("c1", msg("m1", "hi"))

	select {
	case evt := <-ch:
		if evt.Kind != bus.KindStoreUpdated {
			t.Errorf("kind = %q, want %q", evt.Kind, bus.KindStoreUpdated)
		}
		if evt.Payload.(string) != "c1" {
			t.Errorf("payload = %v, want c1", evt.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for store.updated")
	}

	s.Replace("c1", nil)
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for store.updated after replace")
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s := New(nil)
	s.Append("c1", msg("m1", "hi"))

	snap := s.Conversation("c1")
	snap[0].Content = "mutated"

	if got := s.Conversation("c1"); got[0].Content != "hi" {
		t.Error("snapshot mutation leaked into the store")
	}
}
