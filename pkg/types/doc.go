// Package types provides shared type definitions for the Recall MCP server.
//
// This package defines the domain records used across components: saved
// Contexts, their Categories, vector Embeddings (parent and chunk level),
// stored Assets, and the durable queue items that drive indexing work.
//
// # Core Types
//
// Context is one saved, retrievable unit of knowledge (a page, text snippet,
// or image) with a title, summary, and category:
//
//	ctx := &types.Context{
//	    Type:         types.ContextPage,
//	    Title:        "Sourdough starter guide",
//	    CategorySlug: "recipes",
//	}
//
// EmbeddingRecord ties a vector to either a whole Context (parent) or one
// sub-chunk of its content:
//
//	emb := &types.EmbeddingRecord{
//	    ID:     ctx.ID, // parent embeddings share the context ID
//	    Vector: vector,
//	    Metadata: types.EmbeddingMetadata{
//	        ContextID: ctx.ID,
//	        Type:      types.EmbeddingParent,
//	    },
//	}
//
// QueueItem is a durable unit of pending indexing work, keyed by content
// fingerprint. The queue allows at most one item in the processing state;
// everything else waits in pending and is drained in FIFO order.
package types
