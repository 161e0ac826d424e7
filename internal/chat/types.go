package chat

import "time"

// Role identifies which side of the platform a user belongs to.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Placeholder contents the server uses for attachment-only messages.
const (
	ContentFileAttachment = "File attachment"
	ContentVoiceMessage   = "Voice message"
)

// Contact is a teacher or student the current user may message.
// Contacts are server-provided and never mutated locally.
type Contact struct {
	ID         string
	FirstName  string
	LastName   string
	Role       Role
	AvatarPath string
}

// DisplayName returns the contact's full name.
func (c Contact) DisplayName() string {
	if c.FirstName == "" {
		return c.LastName
	}
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// Attachment is an optional binary payload carried by a message.
// Path is server-relative and must be resolved against the API base URL.
type Attachment struct {
	Path string
	Name string
	Type string
}

// Message is an immutable snapshot received from the server.
type Message struct {
	ID           string
	SenderID     string
	SenderRole   Role
	ReceiverID   string
	ReceiverRole Role
	Content      string
	Attachment   *Attachment
	SentAt       time.Time
}

// PartnerID returns the id of the other party in the conversation this
// message belongs to, from selfID's point of view. Own sends key by the
// receiver, everything else by the sender.
func (m Message) PartnerID(selfID string) string {
	if m.SenderID == selfID {
		return m.ReceiverID
	}
	return m.SenderID
}

// SentBy reports whether the message was sent by a user with the given role.
// Roles on the wire vary in case, so comparison is normalized at decode time.
func (m Message) SentBy(role Role) bool {
	return m.SenderRole == role
}

// HasText reports whether the message carries user-typed text rather than
// one of the attachment placeholder contents.
func (m Message) HasText() bool {
	return m.Content != "" && m.Content != ContentFileAttachment && m.Content != ContentVoiceMessage
}
