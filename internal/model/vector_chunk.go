package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// VectorChunk stores a text chunk and its embedding for retrieval when the
// relational database doubles as the vector store.
// Embedding is stored as JSON array of float32 for portability.
type VectorChunk struct {
	ID          string    `gorm:"primaryKey;size:512" json:"id"`
	DocumentKey string    `gorm:"size:512;not null;index" json:"document_key"`
	Filename    string    `gorm:"size:255;not null" json:"filename"`
	FileType    string    `gorm:"size:16" json:"file_type"`
	ChunkIndex  int       `gorm:"not null" json:"chunk_index"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	Embedding   string    `gorm:"type:mediumtext" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

func (VectorChunk) TableName() string {
	return "vector_chunks"
}

// ChunkID is the id of the i-th chunk of a document, e.g. "doc_a.txt_chunk_0".
func ChunkID(documentKey string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", documentKey, index)
}

// EmbeddingVector returns the parsed embedding slice; empty on parse error.
func (c *VectorChunk) EmbeddingVector() []float32 {
	if c.Embedding == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(c.Embedding), &v)
	return v
}

// SetEmbedding stores the embedding as JSON.
func (c *VectorChunk) SetEmbedding(vec []float32) {
	if len(vec) == 0 {
		c.Embedding = "[]"
		return
	}
	b, _ := json.Marshal(vec)
	c.Embedding = string(b)
}
