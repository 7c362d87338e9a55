// Package tokenizer estimates token counts for budgeting text against
// model context windows.
//
// The primary estimator wraps tiktoken's cl100k_base encoding. Because
// tiktoken loads its vocabulary lazily (and may need network access the
// first time), NewWithFallback degrades to a chars/4 heuristic when the
// encoding cannot be initialized.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// EncodingName is the tiktoken encoding used for counting
const EncodingName = "cl100k_base"

// TokensPerChar is the heuristic divisor for estimating tokens (chars/4)
const TokensPerChar = 4

// Estimator counts tokens in a piece of text
type Estimator interface {
	// Count returns the estimated token count for text
	Count(text string) int

	// Name identifies the estimation strategy
	Name() string
}

// TiktokenEstimator counts tokens with a real BPE encoding
type TiktokenEstimator struct {
	encoding *tiktoken.Tiktoken
}

// New creates a tiktoken-backed estimator
func New() (*TiktokenEstimator, error) {
	encoding, err := tiktoken.GetEncoding(EncodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", EncodingName, err)
	}
	return &TiktokenEstimator{encoding: encoding}, nil
}

func (t *TiktokenEstimator) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(t.encoding.Encode(text, nil, nil))
}

func (t *TiktokenEstimator) Name() string {
	return "tiktoken/" + EncodingName
}

// HeuristicEstimator approximates tokens as len(text)/4
type HeuristicEstimator struct{}

// NewHeuristic creates the chars/4 estimator
func NewHeuristic() *HeuristicEstimator {
	return &HeuristicEstimator{}
}

func (h *HeuristicEstimator) Count(text string) int {
	if text == "" {
		return 0
	}
	count := len(text) / TokensPerChar
	if count == 0 {
		count = 1
	}
	return count
}

func (h *HeuristicEstimator) Name() string {
	return "heuristic"
}

// NewWithFallback returns the tiktoken estimator when its encoding loads,
// otherwise the heuristic one. It never fails.
func NewWithFallback() Estimator {
	est, err := New()
	if err != nil {
		return NewHeuristic()
	}
	return est
}
