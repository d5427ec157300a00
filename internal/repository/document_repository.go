package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"knowledge-base/internal/model"
)

var (
	// ErrDuplicateFilename is returned by Create when the filename is taken.
	ErrDuplicateFilename = errors.New("duplicate document filename")
	ErrDocumentGone      = errors.New("document row no longer exists")
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *model.Document) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("create document failed: %w", ErrDuplicateFilename)
		}
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

// MarkIndexed records where the file landed and how many chunks were indexed.
// A row deleted in the meantime yields ErrDocumentGone.
func (r *DocumentRepository) MarkIndexed(ctx context.Context, id uint, filePath string, numChunks int) error {
	res := r.db.WithContext(ctx).Model(&model.Document{}).Where("id = ?", id).Updates(map[string]interface{}{
		"file_path":  filePath,
		"num_chunks": numChunks,
	})
	if res.Error != nil {
		return fmt.Errorf("mark document indexed failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("mark document indexed failed: %w", ErrDocumentGone)
	}
	return nil
}

func (r *DocumentRepository) List(ctx context.Context) ([]model.Document, error) {
	var docs []model.Document
	if err := r.db.WithContext(ctx).Order("upload_date ASC").Order("id ASC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) GetByFilename(ctx context.Context, filename string) (*model.Document, error) {
	var doc model.Document
	if err := r.db.WithContext(ctx).Where("filename = ?", filename).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document by filename failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) DeleteByID(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&model.Document{}, id).Error; err != nil {
		return fmt.Errorf("delete document failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Document{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count documents failed: %w", err)
	}
	return n, nil
}
