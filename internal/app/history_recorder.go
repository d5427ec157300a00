package app

import (
	"context"

	"knowledge-base/internal/model"
	"knowledge-base/internal/pkg/logger"
)

type HistoryWriter interface {
	Create(ctx context.Context, entry *model.ChatHistory) error
}

type HistoryPublisher interface {
	Publish(ctx context.Context, entry model.HistoryEntry) error
}

// DirectHistoryRecorder writes history rows in the request path.
type DirectHistoryRecorder struct {
	repo  HistoryWriter
	cache HistoryCache
}

// NewDirectHistoryRecorder returns a recorder that invalidates cache, if non-nil, after each write.
func NewDirectHistoryRecorder(repo HistoryWriter, cache HistoryCache) *DirectHistoryRecorder {
	return &DirectHistoryRecorder{repo: repo, cache: cache}
}

func (r *DirectHistoryRecorder) Record(ctx context.Context, entry *model.ChatHistory) error {
	if err := r.repo.Create(ctx, entry); err != nil {
		return err
	}
	if r.cache != nil {
		if err := r.cache.Invalidate(ctx); err != nil {
			logger.Warnf("invalidate history cache failed: %v", err)
		}
	}
	return nil
}

// QueuedHistoryRecorder hands history rows to a broker; a worker persists them.
// The cache stays dirty until the worker has written the row.
type QueuedHistoryRecorder struct {
	publisher HistoryPublisher
	cache     HistoryCache
}

func NewQueuedHistoryRecorder(publisher HistoryPublisher, cache HistoryCache) *QueuedHistoryRecorder {
	return &QueuedHistoryRecorder{publisher: publisher, cache: cache}
}

func (r *QueuedHistoryRecorder) Record(ctx context.Context, entry *model.ChatHistory) error {
	e, err := entry.Entry()
	if err != nil {
		return err
	}
	if r.cache != nil {
		if err := r.cache.MarkDirty(ctx); err != nil {
			logger.Warnf("mark history cache dirty failed: %v", err)
		}
	}
	return r.publisher.Publish(ctx, e)
}
