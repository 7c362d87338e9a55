package classifier

import (
	"context"
	"strings"
	"unicode"
)

// ProviderLocal is the on-device classification provider name
const ProviderLocal = "local"

// localSummaryLen caps the extractive summary produced on device
const localSummaryLen = 280

// stopwords excluded when scoring category overlap and proposing labels
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true,
	"to": true, "in": true, "on": true, "for": true, "with": true, "is": true,
	"are": true, "was": true, "be": true, "this": true, "that": true,
	"it": true, "as": true, "at": true, "by": true, "from": true, "your": true,
	"you": true, "how": true, "what": true, "can": true, "will": true,
}

// LocalClassifier is the on-device fallback: extractive titles and
// summaries, and category choice by token overlap with existing labels.
// No network, no model - deliberately conservative output that the
// resolver's stricter on-device threshold compensates for.
type LocalClassifier struct{}

// NewLocalClassifier creates the on-device classifier
func NewLocalClassifier() *LocalClassifier {
	return &LocalClassifier{}
}

func (l *LocalClassifier) Classify(ctx context.Context, text string, existingCategories []string) (*Classification, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	choice, err := l.ChooseCategory(ctx, text, existingCategories)
	if err != nil {
		return nil, err
	}

	title := firstLine(text)
	summary := extractSummary(text)

	return &Classification{
		Category:    *choice,
		Title:       title,
		Description: summary,
		Summary:     summary,
	}, nil
}

func (l *LocalClassifier) ChooseCategory(ctx context.Context, text string, existingCategories []string) (*CategoryChoice, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	tokens := contentTokens(text)

	// Score each existing label by token overlap
	bestLabel := ""
	bestScore := 0
	for _, label := range existingCategories {
		score := 0
		for token := range contentTokens(label) {
			if tokens[token] > 0 {
				score += tokens[token]
			}
		}
		if score > bestScore {
			bestScore = score
			bestLabel = label
		}
	}
	if bestLabel != "" {
		return &CategoryChoice{Label: bestLabel}, nil
	}

	return &CategoryChoice{Label: proposeLabel(text)}, nil
}

func (l *LocalClassifier) Provider() string {
	return ProviderLocal
}

// proposeLabel builds a short label from the most frequent content words
func proposeLabel(text string) string {
	tokens := contentTokens(text)
	if len(tokens) == 0 {
		return "Unsorted"
	}

	// Pick the two most frequent tokens, preferring earlier occurrence on ties
	type scored struct {
		token string
		count int
		pos   int
	}
	order := make(map[string]int)
	pos := 0
	for _, token := range splitTokens(text) {
		if _, seen := order[token]; !seen && !stopwords[token] && len(token) > 2 {
			order[token] = pos
			pos++
		}
	}

	var ranked []scored
	for token, count := range tokens {
		ranked = append(ranked, scored{token: token, count: count, pos: order[token]})
	}
	for i := 0; i < len(ranked); i++ {
		for j := i + 1; j < len(ranked); j++ {
			if ranked[j].count > ranked[i].count ||
				(ranked[j].count == ranked[i].count && ranked[j].pos < ranked[i].pos) {
				ranked[i], ranked[j] = ranked[j], ranked[i]
			}
		}
	}

	words := make([]string, 0, 2)
	for _, s := range ranked {
		words = append(words, titleCase(s.token))
		if len(words) == 2 {
			break
		}
	}
	return strings.Join(words, " ")
}

// contentTokens counts meaningful lowercase tokens
func contentTokens(text string) map[string]int {
	counts := make(map[string]int)
	for _, token := range splitTokens(text) {
		if stopwords[token] || len(token) <= 2 {
			continue
		}
		counts[token]++
	}
	return counts
}

func splitTokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func firstLine(text string) string {
	line := strings.TrimSpace(text)
	if idx := strings.IndexAny(line, "\n.!?"); idx > 0 {
		line = line[:idx]
	}
	if len(line) > 80 {
		line = strings.TrimSpace(line[:80])
	}
	return line
}

func extractSummary(text string) string {
	summary := strings.Join(strings.Fields(text), " ")
	if len(summary) > localSummaryLen {
		summary = strings.TrimSpace(summary[:localSummaryLen])
	}
	return summary
}

func titleCase(token string) string {
	if token == "" {
		return token
	}
	return strings.ToUpper(token[:1]) + token[1:]
}
