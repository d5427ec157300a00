package vectorstore

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"knowledge-base/internal/model"
)

const insertBatchSize = 100

// GormStore keeps embeddings in the relational database and scores every
// stored chunk on each search.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Add(ctx context.Context, documentKey string, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	records := make([]model.VectorChunk, len(chunks))
	for i, c := range chunks {
		records[i] = model.VectorChunk{
			ID:          model.ChunkID(documentKey, c.Index),
			DocumentKey: documentKey,
			Filename:    c.Filename,
			FileType:    c.FileType,
			ChunkIndex:  c.Index,
			Content:     c.Content,
		}
		records[i].SetEmbedding(c.Embedding)
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(&records, insertBatchSize).Error
	if err != nil {
		return fmt.Errorf("insert vector chunks failed: %w", err)
	}
	return nil
}

func (s *GormStore) Search(ctx context.Context, query []float32, limit int) ([]Hit, error) {
	if limit <= 0 || len(query) == 0 {
		return nil, nil
	}
	var records []model.VectorChunk
	if err := s.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load vector chunks failed: %w", err)
	}

	hits := make([]Hit, 0, len(records))
	for i := range records {
		vec := records[i].EmbeddingVector()
		if len(vec) != len(query) {
			// chunks embedded by a different model can not be compared
			continue
		}
		hits = append(hits, Hit{
			ID:          records[i].ID,
			DocumentKey: records[i].DocumentKey,
			Filename:    records[i].Filename,
			FileType:    records[i].FileType,
			ChunkIndex:  records[i].ChunkIndex,
			Content:     records[i].Content,
			Score:       cosineSimilarity(query, vec),
		})
	}
	return topK(hits, limit), nil
}

func (s *GormStore) DeleteDocument(ctx context.Context, documentKey string) error {
	err := s.db.WithContext(ctx).
		Where("document_key = ?", documentKey).
		Delete(&model.VectorChunk{}).Error
	if err != nil {
		return fmt.Errorf("delete vector chunks failed: %w", err)
	}
	return nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
