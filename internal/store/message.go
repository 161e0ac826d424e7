package store

import "time"

// UpsertMessage inserts or updates a message (idempotent on contact_id + msg_id).
func (db *DB) UpsertMessage(m *Message) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO messages (contact_id, msg_id, sender_id, sender_role, receiver_id, receiver_role,
			content, attachment_path, attachment_name, attachment_type, sent_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(contact_id, msg_id) DO UPDATE SET
			content = excluded.content,
			attachment_path = excluded.attachment_path,
			attachment_name = excluded.attachment_name,
			attachment_type = excluded.attachment_type,
			sent_at = excluded.sent_at`,
		m.ContactID, m.MsgID, m.SenderID, m.SenderRole, m.ReceiverID, m.ReceiverRole,
		m.Content, m.AttachmentPath, m.AttachmentName, m.AttachmentType, m.SentAt, now)
	return err
}

// ReplaceConversation swaps the cached history for a contact with a freshly
// fetched page in a single transaction.
func (db *DB) ReplaceConversation(contactID string, msgs []Message) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM messages WHERE contact_id = ?`, contactID); err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	for _, m := range msgs {
		if _, err := tx.Exec(`
			INSERT INTO messages (contact_id, msg_id, sender_id, sender_role, receiver_id, receiver_role,
				content, attachment_path, attachment_name, attachment_type, sent_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(contact_id, msg_id) DO UPDATE SET
				content = excluded.content,
				sent_at = excluded.sent_at`,
			contactID, m.MsgID, m.SenderID, m.SenderRole, m.ReceiverID, m.ReceiverRole,
			m.Content, m.AttachmentPath, m.AttachmentName, m.AttachmentType, m.SentAt, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListMessages returns messages for a conversation using keyset pagination
// by sent_at, oldest first.
func (db *DB) ListMessages(contactID string, beforeTs int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if beforeTs <= 0 {
		beforeTs = time.Now().UnixMilli() + 1
	}
	rows, err := db.Query(`
		SELECT id, contact_id, msg_id, sender_id, sender_role, receiver_id, receiver_role,
		       content, attachment_path, attachment_name, attachment_type, sent_at
		FROM (
			SELECT * FROM messages
			WHERE contact_id = ? AND sent_at < ?
			ORDER BY sent_at DESC
			LIMIT ?
		)
		ORDER BY sent_at ASC`, contactID, beforeTs, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ContactID, &m.MsgID, &m.SenderID, &m.SenderRole,
			&m.ReceiverID, &m.ReceiverRole, &m.Content,
			&m.AttachmentPath, &m.AttachmentName, &m.AttachmentType, &m.SentAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// LastMessage returns the newest cached message for a contact, or nil.
func (db *DB) LastMessage(contactID string) (*Message, error) {
	msgs, err := db.ListMessages(contactID, 0, 1)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	return &msgs[len(msgs)-1], nil
}

// MessageCount returns the total number of cached messages.
func (db *DB) MessageCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}
