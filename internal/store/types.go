package store

import (
	"time"

	"github.com/classchat/classchat/internal/chat"
)

// Contact represents a cached contact row.
type Contact struct {
	ID         string
	FirstName  string
	LastName   string
	Role       string
	AvatarPath string
}

// Message represents a cached message row. ContactID is the conversation
// partner the message belongs to, regardless of direction.
type Message struct {
	ID             int64
	ContactID      string
	MsgID          string
	SenderID       string
	SenderRole     string
	ReceiverID     string
	ReceiverRole   string
	Content        string
	AttachmentPath string
	AttachmentName string
	AttachmentType string
	SentAt         int64
}

// SearchResult holds a message with a search snippet.
type SearchResult struct {
	Message Message
	Snippet string
}

// NewContactRow converts a domain contact for caching.
func NewContactRow(c chat.Contact) Contact {
	return Contact{
		ID:         c.ID,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
		Role:       string(c.Role),
		AvatarPath: c.AvatarPath,
	}
}

// Domain converts a cached contact back to the domain type.
func (c Contact) Domain() chat.Contact {
	return chat.Contact{
		ID:         c.ID,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
		Role:       chat.Role(c.Role),
		AvatarPath: c.AvatarPath,
	}
}

// NewMessageRow converts a domain message for caching under contactID.
func NewMessageRow(contactID string, m chat.Message) Message {
	row := Message{
		ContactID:    contactID,
		MsgID:        m.ID,
		SenderID:     m.SenderID,
		SenderRole:   string(m.SenderRole),
		ReceiverID:   m.ReceiverID,
		ReceiverRole: string(m.ReceiverRole),
		Content:      m.Content,
		SentAt:       m.SentAt.UnixMilli(),
	}
	if m.Attachment != nil {
		row.AttachmentPath = m.Attachment.Path
		row.AttachmentName = m.Attachment.Name
		row.AttachmentType = m.Attachment.Type
	}
	return row
}

// Domain converts a cached message back to the domain type.
func (m Message) Domain() chat.Message {
	msg := chat.Message{
		ID:           m.MsgID,
		SenderID:     m.SenderID,
		SenderRole:   chat.Role(m.SenderRole),
		ReceiverID:   m.ReceiverID,
		ReceiverRole: chat.Role(m.ReceiverRole),
		Content:      m.Content,
		SentAt:       time.UnixMilli(m.SentAt).UTC(),
	}
	if m.AttachmentPath != "" || m.AttachmentName != "" {
		msg.Attachment = &chat.Attachment{
			Path: m.AttachmentPath,
			Name: m.AttachmentName,
			Type: m.AttachmentType,
		}
	}
	return msg
}
