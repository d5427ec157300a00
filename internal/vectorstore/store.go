// Package vectorstore keeps chunk embeddings and answers nearest-neighbour
// queries by cosine similarity.
package vectorstore

import "context"

// Chunk is one piece of a document ready to be indexed.
type Chunk struct {
	Index     int
	Content   string
	Filename  string
	FileType  string
	Embedding []float32
}

// Hit is a chunk returned by a similarity search, best first.
type Hit struct {
	ID          string
	DocumentKey string
	Filename    string
	FileType    string
	ChunkIndex  int
	Content     string
	Score       float32
}

type Store interface {
	// Add indexes the chunks of one document. Re-adding a chunk id replaces it.
	Add(ctx context.Context, documentKey string, chunks []Chunk) error
	// Search returns up to limit chunks closest to the query vector. An
	// empty store yields no hits and no error.
	Search(ctx context.Context, query []float32, limit int) ([]Hit, error)
	// DeleteDocument removes every chunk stored under documentKey.
	DeleteDocument(ctx context.Context, documentKey string) error
	Ping(ctx context.Context) error
}
