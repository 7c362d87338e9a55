// Package category assigns a category to new content.
//
// Resolution tries nearest-neighbor inheritance first: if stored content
// close enough to the new text already has a category, the new content
// joins it and no category is created. Only when nothing is close enough
// does the classifier get to pick or propose a label. This closed loop
// bounds category sprawl while still letting novel topics form their own
// bucket.
package category

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/recallkit/recall-mcp/internal/classifier"
	"github.com/recallkit/recall-mcp/internal/searcher"
	"github.com/recallkit/recall-mcp/internal/storage"
	"github.com/recallkit/recall-mcp/pkg/types"
)

// ErrUnresolvable is returned when neither inheritance nor
// classification produced a usable category
var ErrUnresolvable = errors.New("could not resolve a category")

// Resolver picks the category slug for new content
type Resolver struct {
	store       storage.Storage
	searcher    *searcher.Searcher
	classifier  classifier.Classifier
	threshold   float64
	searchLimit int
	logger      *slog.Logger
}

// NewResolver creates a Resolver. The threshold is mode-dependent:
// stricter for on-device embeddings, looser for online ones.
func NewResolver(store storage.Storage, s *searcher.Searcher, c classifier.Classifier, threshold float64, searchLimit int, logger *slog.Logger) *Resolver {
	if searchLimit <= 0 {
		searchLimit = 5
	}
	return &Resolver{
		store:       store,
		searcher:    s,
		classifier:  c,
		threshold:   threshold,
		searchLimit: searchLimit,
		logger:      logger,
	}
}

// Resolve returns the category slug for the given content. A non-empty
// override slug wins unconditionally and is created lazily if absent.
func (r *Resolver) Resolve(ctx context.Context, text, overrideSlug string) (string, error) {
	if overrideSlug != "" {
		if err := r.ensureCategory(ctx, overrideSlug, LabelFromSlug(overrideSlug)); err != nil {
			return "", err
		}
		return overrideSlug, nil
	}

	slug, ok, err := r.inherit(ctx, text)
	if err != nil {
		return "", err
	}
	if ok {
		return slug, nil
	}

	return r.classify(ctx, text)
}

// inherit probes the nearest neighbors and adopts the best match's
// category when its score clears the threshold
func (r *Resolver) inherit(ctx context.Context, text string) (string, bool, error) {
	resp, err := r.searcher.Search(ctx, searcher.SearchRequest{
		Query: text,
		Limit: r.searchLimit,
	})
	if err != nil {
		return "", false, fmt.Errorf("neighbor search failed: %w", err)
	}

	for _, result := range resp.Results {
		if result.Score < r.threshold {
			continue
		}
		if result.Metadata.Category == "" {
			continue
		}
		r.logger.Debug("inherited category from neighbor",
			"category", result.Metadata.Category,
			"neighbor", result.ID,
			"score", result.Score)
		return result.Metadata.Category, true, nil
	}
	return "", false, nil
}

// classify asks the classifier to choose among existing labels or
// propose a new one, then creates the category if needed
func (r *Resolver) classify(ctx context.Context, text string) (string, error) {
	categories, err := r.store.ListCategories(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list categories: %w", err)
	}
	labels := make([]string, 0, len(categories))
	for _, c := range categories {
		labels = append(labels, c.Label)
	}

	choice, err := r.classifier.ChooseCategory(ctx, text, labels)
	if err != nil {
		return "", fmt.Errorf("classifier could not choose a category: %w", err)
	}

	slug := Slugify(choice.Label)
	if slug == "" {
		return "", fmt.Errorf("%w: classifier returned label %q", ErrUnresolvable, choice.Label)
	}

	if err := r.ensureCategory(ctx, slug, choice.Label); err != nil {
		return "", err
	}
	return slug, nil
}

// ensureCategory creates the category, treating a concurrent creator's
// win as success
func (r *Resolver) ensureCategory(ctx context.Context, slug, label string) error {
	err := r.store.CreateCategory(ctx, &types.Category{Slug: slug, Label: label})
	if err != nil && !errors.Is(err, storage.ErrAlreadyExists) {
		return fmt.Errorf("failed to create category %q: %w", slug, err)
	}
	return nil
}
