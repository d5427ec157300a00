package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"knowledge-base/internal/model"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// NormalizeHistoryLimit maps out of range limits to DefaultHistoryLimit.
func NormalizeHistoryLimit(limit int) int {
	if limit <= 0 || limit > MaxHistoryLimit {
		return DefaultHistoryLimit
	}
	return limit
}

type ChatHistoryRepository struct {
	db *gorm.DB
}

func NewChatHistoryRepository(db *gorm.DB) *ChatHistoryRepository {
	return &ChatHistoryRepository{db: db}
}

func (r *ChatHistoryRepository) Create(ctx context.Context, entry *model.ChatHistory) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("create chat history failed: %w", err)
	}
	return nil
}

// ListRecent returns the newest entries first.
func (r *ChatHistoryRepository) ListRecent(ctx context.Context, limit int) ([]model.ChatHistory, error) {
	limit = NormalizeHistoryLimit(limit)

	var entries []model.ChatHistory
	if err := r.db.WithContext(ctx).Order("timestamp DESC").Order("id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list chat history failed: %w", err)
	}
	return entries, nil
}
