package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"knowledge-base/internal/model"
	"knowledge-base/internal/pkg/logger"
	"knowledge-base/internal/platform/rabbitmq"
)

type HistoryWriter interface {
	Create(ctx context.Context, entry *model.ChatHistory) error
}

type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
	ClearDirty(ctx context.Context) error
}

// HistoryPersistWorker consumes queued chat history and writes it to the database.
type HistoryPersistWorker struct {
	conn      *amqp.Connection
	repo      HistoryWriter
	cache     CacheInvalidator
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHistoryPersistWorker creates the worker; cache may be nil.
func NewHistoryPersistWorker(conn *amqp.Connection, repo HistoryWriter, cache CacheInvalidator, queueName string) *HistoryPersistWorker {
	return &HistoryPersistWorker{
		conn:      conn,
		repo:      repo,
		cache:     cache,
		queueName: queueName,
	}
}

func (w *HistoryPersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				if err := w.handle(workerCtx, d.Body); err != nil {
					logger.Errorf("worker persist history failed: %v", err)
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *HistoryPersistWorker) handle(ctx context.Context, body []byte) error {
	var entry model.HistoryEntry
	if err := json.Unmarshal(body, &entry); err != nil {
		return fmt.Errorf("decode history failed: %w", err)
	}
	row, err := model.ChatHistoryFromEntry(entry)
	if err != nil {
		return fmt.Errorf("encode sources failed: %w", err)
	}
	row.ID = 0
	if err := w.repo.Create(ctx, row); err != nil {
		return err
	}
	if w.cache != nil {
		if err := w.cache.Invalidate(ctx); err != nil {
			logger.Warnf("invalidate history cache failed: %v", err)
		}
		if err := w.cache.ClearDirty(ctx); err != nil {
			logger.Warnf("clear history dirty marker failed: %v", err)
		}
	}
	return nil
}

func (w *HistoryPersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
