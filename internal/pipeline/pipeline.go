// Package pipeline orchestrates indexing: gating, queue admission,
// content batching, classification, category resolution, persistence,
// and FIFO queue drain. It is the only writer of contexts and
// embeddings; everything else reads.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/recallkit/recall-mcp/internal/category"
	"github.com/recallkit/recall-mcp/internal/chunker"
	"github.com/recallkit/recall-mcp/internal/classifier"
	"github.com/recallkit/recall-mcp/internal/config"
	"github.com/recallkit/recall-mcp/internal/embedder"
	"github.com/recallkit/recall-mcp/internal/fingerprint"
	"github.com/recallkit/recall-mcp/internal/queue"
	"github.com/recallkit/recall-mcp/internal/storage"
	"github.com/recallkit/recall-mcp/pkg/types"
)

var (
	// ErrNoClassifier means no classification backend is configured, so
	// nothing can be indexed
	ErrNoClassifier = errors.New("no classifier configured")

	// ErrEmptyContent means batching produced nothing to index
	ErrEmptyContent = errors.New("no indexable content")
)

// Outcome is the caller-visible result of a submission
type Outcome string

const (
	// OutcomeIndexed means the job ran to completion in this call
	OutcomeIndexed Outcome = "indexed"
	// OutcomeQueued means the job waits behind the in-flight one
	OutcomeQueued Outcome = "queued"
	// OutcomeDuplicate means an equivalent job is in flight or done
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeSkipped means a gating rule declined the submission
	OutcomeSkipped Outcome = "skipped"
)

// Pipeline wires the indexing collaborators together
type Pipeline struct {
	store      storage.Storage
	queue      *queue.Queue
	embedder   embedder.Embedder
	classifier classifier.Classifier
	resolver   *category.Resolver
	chunker    *chunker.Chunker
	cfg        config.Config
	logger     *slog.Logger
}

// New creates a Pipeline
func New(store storage.Storage, q *queue.Queue, emb embedder.Embedder, cls classifier.Classifier, resolver *category.Resolver, ch *chunker.Chunker, cfg config.Config, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		store:      store,
		queue:      q,
		embedder:   emb,
		classifier: cls,
		resolver:   resolver,
		chunker:    ch,
		cfg:        cfg,
		logger:     logger,
	}
}

// SubmitForIndexing runs the gating rules and, if they pass, admits the
// payload to the queue. When the processing slot is free the job runs to
// a terminal status before this call returns, followed by a drain of the
// pending backlog. Gating failures are reported as OutcomeSkipped, not
// errors.
func (p *Pipeline) SubmitForIndexing(ctx context.Context, payload types.IndexPayload) (Outcome, error) {
	if reason := p.gate(payload); reason != "" {
		p.logger.Debug("submission skipped", "reason", reason, "url", payload.URL)
		return OutcomeSkipped, nil
	}

	key := fingerprintFor(payload)
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}

	admission, err := p.queue.Admit(ctx, key, raw)
	if err != nil {
		return "", fmt.Errorf("queue admission failed: %w", err)
	}

	switch admission {
	case queue.AdmissionDuplicate:
		return OutcomeDuplicate, nil
	case queue.AdmissionQueued:
		return OutcomeQueued, nil
	}

	if err := p.runJob(ctx, key, payload); err != nil {
		p.drain(ctx)
		return "", err
	}
	p.drain(ctx)
	return OutcomeIndexed, nil
}

// SaveSnippet indexes a user-selected piece of text. Snippets are always
// user-triggered, so they pass the manual indexing mode.
func (p *Pipeline) SaveSnippet(ctx context.Context, content, sourceURL, categorySlug string) (Outcome, error) {
	return p.SubmitForIndexing(ctx, types.IndexPayload{
		URL:           sourceURL,
		Content:       content,
		Type:          types.ContextText,
		CategorySlug:  categorySlug,
		UserTriggered: true,
	})
}

// DeleteContext removes a context, its embeddings, and its asset
func (p *Pipeline) DeleteContext(ctx context.Context, id string) error {
	return p.store.DeleteContext(ctx, id)
}

// RenameCategory re-keys a category and migrates every dependent context
func (p *Pipeline) RenameCategory(ctx context.Context, oldSlug, newSlug string) error {
	if oldSlug == "" || newSlug == "" {
		return fmt.Errorf("both slugs are required")
	}
	if got := category.Slugify(newSlug); got != newSlug {
		return fmt.Errorf("invalid slug %q, want %q", newSlug, got)
	}
	return p.store.RenameCategory(ctx, oldSlug, newSlug, category.LabelFromSlug(newSlug))
}

// gate applies the admission rules. A non-empty return is the refusal
// reason; the submission is dropped silently, never queued.
func (p *Pipeline) gate(payload types.IndexPayload) string {
	if err := payload.Validate(); err != nil {
		return err.Error()
	}
	if p.classifier == nil {
		return ErrNoClassifier.Error()
	}

	switch p.cfg.IndexingMode {
	case config.IndexingDisabled:
		return "indexing disabled"
	case config.IndexingManual:
		if !payload.UserTriggered {
			return "manual mode requires a user trigger"
		}
	}

	if payload.URL != "" {
		if host := hostOf(payload.URL); host != "" && p.cfg.Blocked(host) {
			return "domain is blacklisted"
		}
	}
	return ""
}

// runJob executes one queue item and always writes a terminal status
// before returning, so the queue is never left with a phantom
// processing item.
func (p *Pipeline) runJob(ctx context.Context, key string, payload types.IndexPayload) error {
	err := p.process(ctx, key, payload)

	status := types.StatusCompleted
	if err != nil {
		status = types.StatusFailed
		p.logger.Error("indexing job failed", "key", key, "error", err)
	}
	if serr := p.queue.UpdateStatus(ctx, key, status); serr != nil {
		p.logger.Error("failed to finalize queue item", "key", key, "status", status, "error", serr)
		if err == nil {
			err = serr
		}
	}
	return err
}

// process does the actual indexing work for one payload
func (p *Pipeline) process(ctx context.Context, key string, payload types.IndexPayload) error {
	// Short-circuit: already indexed content is a success, not duplicate work
	if existing, err := p.findExisting(ctx, payload); err != nil {
		return fmt.Errorf("dedup lookup failed: %w", err)
	} else if existing != nil {
		p.logger.Debug("content already indexed", "key", key, "context_id", existing.ID)
		return nil
	}

	batches := p.chunker.Split(payload.Content)
	if len(batches) == 0 {
		return ErrEmptyContent
	}

	labels, err := p.categoryLabels(ctx)
	if err != nil {
		return err
	}

	classification, err := p.classifier.Classify(ctx, batches[0], labels)
	if err != nil {
		return fmt.Errorf("classification failed: %w", err)
	}

	// A provider may return a valid label with no summary; fall back to the
	// lead batch as the representative text
	representative := classification.Summary
	if representative == "" {
		representative = batches[0]
	}

	slug, err := p.resolver.Resolve(ctx, representative, payload.CategorySlug)
	if err != nil {
		return fmt.Errorf("category resolution failed: %w", err)
	}

	record := &types.Context{
		ID:                 uuid.NewString(),
		Fingerprint:        sourceFingerprint(payload),
		ContentFingerprint: fingerprint.Content(payload.Content),
		CategorySlug:       slug,
		Type:               payload.Type,
		Title:              payload.Title,
		Description:        classification.Description,
		Summary:            classification.Summary,
		RawContent:         payload.Content,
	}
	if record.Title == "" {
		record.Title = classification.Title
	}

	if payload.Type == types.ContextImage && len(payload.Data) > 0 {
		asset := &types.Asset{
			ID:       uuid.NewString(),
			MimeType: payload.MimeType,
			Data:     payload.Data,
		}
		if err := p.store.CreateAsset(ctx, asset); err != nil {
			return fmt.Errorf("failed to store asset: %w", err)
		}
		record.AssetID = asset.ID
	}

	if err := p.store.CreateContext(ctx, record); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			// A concurrent job indexed the same content first
			p.logger.Debug("context already created elsewhere", "key", key)
			return nil
		}
		return fmt.Errorf("failed to store context: %w", err)
	}

	sourceURL := ""
	if payload.URL != "" {
		sourceURL = fingerprint.NormalizeURL(payload.URL)
	}

	if err := p.storeParentEmbedding(ctx, record, representative, sourceURL); err != nil {
		return err
	}
	return p.storeChunkEmbeddings(ctx, record, batches[1:], sourceURL)
}

// storeParentEmbedding embeds the representative text (summary, or the
// lead batch when no summary was produced) as the whole-context vector
func (p *Pipeline) storeParentEmbedding(ctx context.Context, record *types.Context, text, sourceURL string) error {
	vector, err := p.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to embed context %s: %w", record.ID, err)
	}

	err = p.store.UpsertEmbedding(ctx, &types.EmbeddingRecord{
		ID:         record.ID,
		Vector:     vector,
		RawContent: text,
		Metadata: types.EmbeddingMetadata{
			ContextID: record.ID,
			Type:      types.EmbeddingParent,
			Category:  record.CategorySlug,
			URL:       sourceURL,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to store parent embedding: %w", err)
	}
	return nil
}

// storeChunkEmbeddings persists one chunk embedding per remaining batch
func (p *Pipeline) storeChunkEmbeddings(ctx context.Context, record *types.Context, batches []string, sourceURL string) error {
	for _, batch := range batches {
		vector, err := p.embedder.Embed(ctx, batch)
		if err != nil {
			return fmt.Errorf("failed to embed chunk of %s: %w", record.ID, err)
		}

		id := fmt.Sprintf("%s-chunk-%s", record.ID, fingerprint.Content(batch))
		err = p.store.UpsertEmbedding(ctx, &types.EmbeddingRecord{
			ID:         id,
			Vector:     vector,
			RawContent: batch,
			Metadata: types.EmbeddingMetadata{
				ContextID: record.ID,
				Type:      types.EmbeddingChunk,
				Category:  record.CategorySlug,
				URL:       sourceURL,
			},
		})
		if err != nil {
			return fmt.Errorf("failed to store chunk embedding %s: %w", id, err)
		}
	}
	return nil
}

// drain runs pending jobs one at a time until the backlog is empty.
// A failed job never stalls the loop; its item is already terminal.
func (p *Pipeline) drain(ctx context.Context) {
	for {
		item, err := p.queue.AcquireNext(ctx)
		if err != nil {
			p.logger.Error("queue drain failed", "error", err)
			return
		}
		if item == nil {
			return
		}

		var payload types.IndexPayload
		if err := json.Unmarshal(item.Payload, &payload); err != nil {
			p.logger.Error("unreadable queue payload", "key", item.ID, "error", err)
			if serr := p.queue.UpdateStatus(ctx, item.ID, types.StatusFailed); serr != nil {
				p.logger.Error("failed to fail queue item", "key", item.ID, "error", serr)
				return
			}
			continue
		}

		// Errors are already logged and the item is terminal; keep draining
		_ = p.runJob(ctx, item.ID, payload)
	}
}

// findExisting returns the context already indexed for this payload, if any
func (p *Pipeline) findExisting(ctx context.Context, payload types.IndexPayload) (*types.Context, error) {
	var existing *types.Context
	var err error

	switch payload.Type {
	case types.ContextPage:
		existing, err = p.store.GetContextByFingerprint(ctx, fingerprint.URL(payload.URL))
	default:
		existing, err = p.store.GetContextByContentFingerprint(ctx, fingerprint.Content(payload.Content))
	}
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return existing, nil
}

func (p *Pipeline) categoryLabels(ctx context.Context) ([]string, error) {
	categories, err := p.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	labels := make([]string, 0, len(categories))
	for _, c := range categories {
		labels = append(labels, c.Label)
	}
	return labels, nil
}

// fingerprintFor derives the queue idempotency key for a payload
func fingerprintFor(payload types.IndexPayload) string {
	if payload.Type == types.ContextPage {
		return fingerprint.URL(payload.URL)
	}
	return fingerprint.Content(payload.Content)
}

// sourceFingerprint is the URL fingerprint for pages, empty otherwise
func sourceFingerprint(payload types.IndexPayload) string {
	if payload.URL == "" {
		return ""
	}
	return fingerprint.URL(payload.URL)
}

// hostOf extracts the lowercase host from a URL, tolerating missing schemes
func hostOf(rawURL string) string {
	raw := rawURL
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
}
