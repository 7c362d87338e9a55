package chunker

import (
	"strings"

	"github.com/recallkit/recall-mcp/internal/tokenizer"
)

// DefaultMaxTokensPerBatch is the target maximum token count per batch
const DefaultMaxTokensPerBatch = 1000

// Chunker splits captured text into ordered, token-bounded batches.
// The first batch carries the lead of the document and is the one
// classified and embedded as the parent; the rest become chunk
// embeddings tied to the same context.
type Chunker struct {
	estimator tokenizer.Estimator
	maxTokens int
}

// New creates a Chunker with the default batch size
func New(estimator tokenizer.Estimator) *Chunker {
	return NewWithLimit(estimator, DefaultMaxTokensPerBatch)
}

// NewWithLimit creates a Chunker with a custom per-batch token limit
func NewWithLimit(estimator tokenizer.Estimator, maxTokens int) *Chunker {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokensPerBatch
	}
	return &Chunker{estimator: estimator, maxTokens: maxTokens}
}

// Split breaks content into ordered batches, each at most maxTokens.
// Paragraph boundaries are preferred, then sentences, then words, so a
// batch never cuts mid-word. Empty content yields no batches.
func (c *Chunker) Split(content string) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	if c.estimator.Count(content) <= c.maxTokens {
		return []string{content}
	}

	var batches []string
	var current strings.Builder
	currentTokens := 0

	flush := func() {
		if current.Len() > 0 {
			batches = append(batches, strings.TrimSpace(current.String()))
			current.Reset()
			currentTokens = 0
		}
	}

	for _, para := range splitParagraphs(content) {
		paraTokens := c.estimator.Count(para)

		if currentTokens+paraTokens > c.maxTokens {
			flush()
		}

		if paraTokens > c.maxTokens {
			// Paragraph alone exceeds the limit; break it down further
			for _, piece := range c.splitOversized(para) {
				batches = append(batches, piece)
			}
			continue
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
		currentTokens += paraTokens
	}
	flush()

	return batches
}

// splitOversized breaks a single oversized paragraph at sentence
// boundaries, falling back to word boundaries for run-on text
func (c *Chunker) splitOversized(para string) []string {
	var batches []string
	var current strings.Builder
	currentTokens := 0

	flush := func() {
		if current.Len() > 0 {
			batches = append(batches, strings.TrimSpace(current.String()))
			current.Reset()
			currentTokens = 0
		}
	}

	for _, sentence := range splitSentences(para) {
		tokens := c.estimator.Count(sentence)

		if currentTokens+tokens > c.maxTokens {
			flush()
		}

		if tokens > c.maxTokens {
			batches = append(batches, c.splitWords(sentence)...)
			continue
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
		currentTokens += tokens
	}
	flush()

	return batches
}

// splitWords is the last resort for text with no sentence boundaries
func (c *Chunker) splitWords(text string) []string {
	var batches []string
	var current strings.Builder
	currentTokens := 0

	for _, word := range strings.Fields(text) {
		tokens := c.estimator.Count(word)
		if current.Len() > 0 && currentTokens+tokens > c.maxTokens {
			batches = append(batches, current.String())
			current.Reset()
			currentTokens = 0
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
		currentTokens += tokens
	}
	if current.Len() > 0 {
		batches = append(batches, current.String())
	}
	return batches
}

func splitParagraphs(content string) []string {
	raw := strings.Split(content, "\n\n")
	paras := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			s := strings.TrimSpace(current.String())
			if s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
