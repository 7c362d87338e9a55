// Package embedder generates vector embeddings for saved content.
//
// Two providers are supported: OpenAI (online mode, 1536 dimensions) and a
// deterministic on-device token-hash embedding (offline fallback, 256
// dimensions). The on-device vectors are noisier, which is why the category
// resolver applies a stricter similarity threshold in that mode.
//
// Provider selection is explicit; the runtime mode lives in config:
//
//	emb, err := embedder.New(embedder.Config{Provider: embedder.ProviderLocal})
//
// Embeddings are cached in-memory by content hash (LRU) because the same
// content is embedded repeatedly: once when indexed and again whenever it is
// the subject of a category-resolution search.
package embedder
