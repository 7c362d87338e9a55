// Package classifier turns captured content into a titled, summarized,
// categorized record. It is the one non-deterministic, failure-prone
// collaborator in the indexing pipeline, so both operations are wrapped in
// bounded retry with backoff by their providers.
package classifier

import (
	"context"
	"errors"
)

// Common errors
var (
	ErrEmptyText      = errors.New("text cannot be empty")
	ErrProviderFailed = errors.New("classification provider failed")
	ErrBadResponse    = errors.New("malformed classification response")
)

// CategoryChoice is the label the classifier picked or proposed
type CategoryChoice struct {
	Label string `json:"label"`
}

// Classification is the full result of classifying one batch of content
type Classification struct {
	Category    CategoryChoice `json:"category"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Summary     string         `json:"summary"`
}

// Classifier produces classifications for new content.
// Both operations are constrained to choose among the existing category
// labels or propose a single new one.
type Classifier interface {
	// Classify summarizes and titles the text and picks a category
	Classify(ctx context.Context, text string, existingCategories []string) (*Classification, error)

	// ChooseCategory picks only a category label for the text
	ChooseCategory(ctx context.Context, text string, existingCategories []string) (*CategoryChoice, error)

	// Provider returns the provider name
	Provider() string
}
