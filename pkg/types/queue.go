package types

import (
	"encoding/json"
	"time"
)

// QueueStatus is the state of a durable queue item
type QueueStatus string

const (
	StatusPending    QueueStatus = "pending"
	StatusProcessing QueueStatus = "processing"
	StatusCompleted  QueueStatus = "completed"
	StatusFailed     QueueStatus = "failed"
)

// Valid reports whether the status is one of the four queue states
func (s QueueStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the status ends a job's lifecycle
func (s QueueStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// QueueItem is a durable unit of pending indexing work.
// The ID is the content fingerprint of the submitted payload, which makes it
// the idempotency key for admission.
type QueueItem struct {
	ID        string
	Payload   json.RawMessage
	Status    QueueStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IndexPayload is the opaque job input carried by a queue item
type IndexPayload struct {
	URL           string      `json:"url,omitempty"`
	Title         string      `json:"title,omitempty"`
	Content       string      `json:"content"`
	Type          ContextType `json:"type"`
	CategorySlug  string      `json:"category_slug,omitempty"` // Optional caller override
	MimeType      string      `json:"mime_type,omitempty"`     // Set for image payloads
	Data          []byte      `json:"data,omitempty"`          // Raw asset bytes for image payloads
	UserTriggered bool        `json:"user_triggered,omitempty"`
}

// Validate checks that the payload carries enough to index
func (p *IndexPayload) Validate() error {
	switch p.Type {
	case ContextPage:
		if p.URL == "" {
			return ErrMissingURL
		}
	case ContextText, ContextImage:
	default:
		return ErrInvalidContextType
	}

	if p.Content == "" {
		return ErrEmptyContent
	}

	return nil
}
