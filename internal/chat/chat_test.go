package chat

import (
	"testing"
)

func TestFilterContacts(t *testing.T) {
	contacts := []Contact{
		{ID: "1", FirstName: "Amina", LastName: "Taleb"},
		{ID: "2", FirstName: "Omar", LastName: "Said"},
	}

	got := FilterContacts(contacts, "ami")
	if len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("FilterContacts(ami) = %v, want [Amina Taleb]", got)
	}

	// Case-insensitive, matches anywhere in the full name.
	got = FilterContacts(contacts, "SAID")
	if len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("FilterContacts(SAID) = %v, want [Omar Said]", got)
	}

	// Empty query returns everyone in server order.
	got = FilterContacts(contacts, "  ")
	if len(got) != 2 || got[0].ID != "1" {
		t.Fatalf("FilterContacts(empty) = %v, want full list in order", got)
	}

	if got := FilterContacts(contacts, "zz"); len(got) != 0 {
		t.Errorf("FilterContacts(zz) = %v, want empty", got)
	}
}

func TestPartnerID(t *testing.T) {
	m := Message{SenderID: "me", ReceiverID: "them"}
	if got := m.PartnerID("me"); got != "them" {
		t.Errorf("own send keyed by %q, want receiver", got)
	}
	if got := m.PartnerID("them"); got != "me" {
		t.Errorf("received message keyed by %q, want sender", got)
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		c    Contact
		want string
	}{
		{Contact{FirstName: "Amina", LastName: "Taleb"}, "Amina Taleb"},
		{Contact{FirstName: "Amina"}, "Amina"},
		{Contact{LastName: "Taleb"}, "Taleb"},
	}
	for _, tt := range tests {
		if got := tt.c.DisplayName(); got != tt.want {
			t.Errorf("DisplayName() = %q, want %q", got, tt.want)
		}
	}
}

func TestHasText(t *testing.T) {
	if (Message{Content: ContentFileAttachment}).HasText() {
		t.Error("file placeholder should not count as text")
	}
	if (Message{Content: ContentVoiceMessage}).HasText() {
		t.Error("voice placeholder should not count as text")
	}
	if !(Message{Content: "hello"}).HasText() {
		t.Error("regular content should count as text")
	}
}
