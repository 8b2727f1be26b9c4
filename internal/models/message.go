package models

import "time"

// MessageStatus is the triage state of a contact message.
type MessageStatus string

const (
	MessageUnread   MessageStatus = "UNREAD"
	MessageRead     MessageStatus = "READ"
	MessageArchived MessageStatus = "ARCHIVED"
)

// Message is a public contact-form submission.
type Message struct {
	ID        int64         `json:"id"`
	Email     string        `json:"email"`
	Name      string        `json:"name"`
	Title     string        `json:"title"`
	Message   string        `json:"message"`
	Status    MessageStatus `json:"status"`
	IPAddress string        `json:"ip_address,omitempty"`
	UserAgent string        `json:"user_agent,omitempty"`
	ReadAt    *time.Time    `json:"read_at"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
