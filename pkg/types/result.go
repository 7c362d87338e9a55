package types

// SearchResult represents a single semantic search hit
type SearchResult struct {
	// Identification
	ID   string // Embedding ID (context ID for parents, derived ID for chunks)
	Rank int    // Position in result set (1-based)

	// Scoring
	Score float64 // Cosine similarity against the query vector

	// Payload
	Metadata   EmbeddingMetadata
	RawContent string
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.ID == "" {
		return ErrMissingID
	}

	if sr.Rank < 1 {
		return ErrInvalidRank
	}

	if sr.Score < -1 || sr.Score > 1 {
		return ErrInvalidScore
	}

	return nil
}

// ScoredContext pairs a context record with its search score, surfaced to the
// caller as the display half of a deep research response
type ScoredContext struct {
	Context *Context
	Score   float64
}

// InjectedContext is the model-ready half of a deep research response: the
// parent's content first, then its chunks in discovery order
type InjectedContext struct {
	Title       string
	Description string
	Fragments   []string
}
