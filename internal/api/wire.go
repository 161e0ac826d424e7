package api

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/classchat/classchat/internal/chat"
)

// Wire shapes as the school platform's messaging API serves them. Role
// strings arrive with inconsistent casing ("Teacher" on sends, "teacher"
// in some fetches), so decoding normalizes to lowercase.

type wireContact struct {
	ID         string `json:"_id"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Type       string `json:"type"`
	ProfilePic string `json:"profilePic"`
}

type wireAttachment struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type wireMessage struct {
	ID           string          `json:"_id"`
	SenderID     string          `json:"senderId"`
	SenderType   string          `json:"senderType"`
	ReceiverID   string          `json:"receiverId"`
	ReceiverType string          `json:"receiverType"`
	Content      string          `json:"content"`
	Attachment   *wireAttachment `json:"attachment,omitempty"`
	SentAt       time.Time       `json:"sentAt"`
}

type wireError struct {
	Message string `json:"message"`
}

// sendEnvelope wraps the created message in the send response.
type sendEnvelope struct {
	Data wireMessage `json:"data"`
}

func toRole(s string) chat.Role {
	return chat.Role(strings.ToLower(s))
}

// toWireRole renders a role the way the send endpoint expects it.
func toWireRole(r chat.Role) string {
	switch r {
	case chat.RoleTeacher:
		return "Teacher"
	case chat.RoleStudent:
		return "Student"
	default:
		return string(r)
	}
}

func (w wireContact) toDomain() chat.Contact {
	return chat.Contact{
		ID:         w.ID,
		FirstName:  w.FirstName,
		LastName:   w.LastName,
		Role:       toRole(w.Type),
		AvatarPath: w.ProfilePic,
	}
}

func (w wireMessage) toDomain() chat.Message {
	m := chat.Message{
		ID:           w.ID,
		SenderID:     w.SenderID,
		SenderRole:   toRole(w.SenderType),
		ReceiverID:   w.ReceiverID,
		ReceiverRole: toRole(w.ReceiverType),
		Content:      w.Content,
		SentAt:       w.SentAt,
	}
	if w.Attachment != nil {
		m.Attachment = &chat.Attachment{
			Path: w.Attachment.Path,
			Name: w.Attachment.Name,
			Type: w.Attachment.Type,
		}
	}
	return m
}

// DecodeMessage parses a wire-format message payload, as delivered by both
// the REST API and the push channel.
func DecodeMessage(data []byte) (chat.Message, error) {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return chat.Message{}, err
	}
	return w.toDomain(), nil
}
