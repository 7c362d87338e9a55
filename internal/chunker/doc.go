// Package chunker splits captured text into ordered, token-bounded batches
// for embedding.
//
// The first batch stands in for the whole document: it is the text that gets
// classified and embedded as the parent. Every later batch becomes a chunk
// embedding tied back to the same context.
//
// # Basic Usage
//
//	c := chunker.New(tokenizer.NewWithFallback())
//	batches := c.Split(pageText)
//
//	// batches[0]  -> classify + parent embedding
//	// batches[1:] -> chunk embeddings
//
// # Batching Strategy
//
// Batches are cut at natural text boundaries, in order of preference:
//   - Paragraphs (blank-line separated)
//   - Sentences, when a single paragraph exceeds the limit
//   - Words, as a last resort for run-on text
//
// A batch never splits mid-word, and batch order always follows document
// order, so chunk embeddings can be replayed in reading order at
// assembly time.
package chunker
