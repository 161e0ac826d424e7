package store

import (
	"database/sql"
	"fmt"
	"time"
)

// UpsertContact inserts or updates a contact.
func (db *DB) UpsertContact(c *Contact) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO contacts (id, first_name, last_name, role, avatar_path, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			role = excluded.role,
			avatar_path = CASE WHEN excluded.avatar_path != '' THEN excluded.avatar_path ELSE contacts.avatar_path END,
			updated_at = excluded.updated_at`,
		c.ID, c.FirstName, c.LastName, c.Role, c.AvatarPath, now)
	return err
}

// BulkUpsertContacts inserts or updates multiple contacts in a single transaction.
func (db *DB) BulkUpsertContacts(contacts []Contact) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	for _, c := range contacts {
		if _, err := tx.Exec(`
			INSERT INTO contacts (id, first_name, last_name, role, avatar_path, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				first_name = excluded.first_name,
				last_name = excluded.last_name,
				role = excluded.role,
				avatar_path = CASE WHEN excluded.avatar_path != '' THEN excluded.avatar_path ELSE contacts.avatar_path END,
				updated_at = excluded.updated_at`,
			c.ID, c.FirstName, c.LastName, c.Role, c.AvatarPath, now); err != nil {
			return fmt.Errorf("upsert contact %q: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// GetContact returns a contact by id, or nil when unknown.
func (db *DB) GetContact(id string) (*Contact, error) {
	var c Contact
	err := db.QueryRow(`SELECT id, first_name, last_name, role, avatar_path FROM contacts WHERE id = ?`, id).
		Scan(&c.ID, &c.FirstName, &c.LastName, &c.Role, &c.AvatarPath)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListContacts returns all cached contacts ordered by name.
func (db *DB) ListContacts() ([]Contact, error) {
	rows, err := db.Query(`
		SELECT id, first_name, last_name, role, avatar_path
		FROM contacts
		ORDER BY first_name, last_name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var contacts []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Role, &c.AvatarPath); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// ContactCount returns the total number of cached contacts.
func (db *DB) ContactCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM contacts`).Scan(&count)
	return count, err
}
