// Package storage provides SQLite-based persistence for saved contexts and
// the durable indexing queue.
//
// The storage layer manages:
//   - Context records (pages, snippets, images) with their fingerprints
//   - Categories and the atomic rename cascade
//   - Vector embeddings (parent and chunk level)
//   - Binary assets for image contexts
//   - Durable queue items driving indexing work
//
// # Database Schema
//
// Tables:
//   - contexts: saved knowledge units keyed by opaque ID, deduplicated by
//     fingerprint (pages) or content fingerprint (snippets) via partial
//     unique indexes
//   - categories: user-visible buckets keyed by slug
//   - embeddings: little-endian float32 vector blobs plus context metadata
//   - assets: binary payloads for image contexts
//   - queue_items: pending work keyed by content fingerprint; a partial
//     unique index guarantees at most one item in the processing state
//
// # Vector Search
//
// SearchVector is a brute-force scan: every stored vector is compared with
// cosine similarity in Go and the top results returned. The corpus is one
// user's personal collection, so a full scan stays well under interactive
// latency and avoids an index that could drift from the source of truth.
//
// # Cascades
//
// DeleteContext and RenameCategory are the only multi-record operations and
// each runs in a single transaction: deleting a context removes its parent
// and chunk embeddings and its asset; renaming a category migrates every
// dependent context and embedding before the old slug is dropped.
//
// # Build Tags
//
// Default build uses the pure Go driver (modernc.org/sqlite). Building with
// -tags sqlite_cgo selects github.com/mattn/go-sqlite3 instead.
package storage
