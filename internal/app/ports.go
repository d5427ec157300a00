package app

import (
	"context"

	"knowledge-base/internal/model"
)

type DocumentRepository interface {
	Create(ctx context.Context, doc *model.Document) error
	MarkIndexed(ctx context.Context, id uint, filePath string, numChunks int) error
	List(ctx context.Context) ([]model.Document, error)
	GetByID(ctx context.Context, id uint) (*model.Document, error)
	GetByFilename(ctx context.Context, filename string) (*model.Document, error)
	DeleteByID(ctx context.Context, id uint) error
}

type HistoryReader interface {
	ListRecent(ctx context.Context, limit int) ([]model.ChatHistory, error)
}

// HistoryRecorder persists answered questions, synchronously or through a queue.
type HistoryRecorder interface {
	Record(ctx context.Context, entry *model.ChatHistory) error
}

type HistoryCache interface {
	GetHistory(ctx context.Context, limit int) ([]model.HistoryEntry, bool, error)
	Generation(ctx context.Context) (int64, error)
	SetHistory(ctx context.Context, generation int64, limit int, entries []model.HistoryEntry) error
	Invalidate(ctx context.Context) error
	MarkDirty(ctx context.Context) error
	ClearDirty(ctx context.Context) error
	IsDirty(ctx context.Context) (bool, error)
}

