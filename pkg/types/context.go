package types

import "time"

// ContextType classifies the source of a saved context
type ContextType string

const (
	ContextPage  ContextType = "page"
	ContextText  ContextType = "text"
	ContextImage ContextType = "image"
)

// Context represents one saved, retrievable unit of knowledge
type Context struct {
	// Identification
	ID                 string
	Fingerprint        string // Hash of the normalized source URL
	ContentFingerprint string // Hash of the raw content

	// Classification
	CategorySlug string
	Type         ContextType

	// Content
	Title       string
	Description string
	Summary     string
	RawContent  string // Optional - full captured text
	AssetID     string // Optional - reference to a stored asset (images)

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks that the context has the minimum required fields
func (c *Context) Validate() error {
	if c.ID == "" {
		return ErrMissingID
	}

	if c.CategorySlug == "" {
		return ErrMissingCategory
	}

	switch c.Type {
	case ContextPage, ContextText, ContextImage:
	default:
		return ErrInvalidContextType
	}

	return nil
}

// Category is a user-visible bucket of contexts, keyed by slug
type Category struct {
	Slug      string // Derived deterministically from Label
	Label     string
	CreatedAt time.Time
}

// Asset holds binary payload data for image contexts
type Asset struct {
	ID        string
	MimeType  string
	Data      []byte
	CreatedAt time.Time
}

// EmbeddingType distinguishes whole-context vectors from sub-chunk vectors
type EmbeddingType string

const (
	EmbeddingParent EmbeddingType = "parent"
	EmbeddingChunk  EmbeddingType = "chunk"
)

// EmbeddingMetadata carries the context linkage stored alongside a vector
type EmbeddingMetadata struct {
	ContextID string
	Type      EmbeddingType
	Category  string
	URL       string
}

// EmbeddingRecord is a persisted vector tied to a context or one of its chunks.
// Parent embeddings reuse the context ID; chunk embeddings derive their ID as
// {contextID}-chunk-{hash(content)}.
type EmbeddingRecord struct {
	ID         string
	Vector     []float32
	RawContent string
	Metadata   EmbeddingMetadata
	CreatedAt  time.Time
}
