package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"knowledge-base/internal/ai"
	appsvc "knowledge-base/internal/app"
	"knowledge-base/internal/cache"
	"knowledge-base/internal/config"
	"knowledge-base/internal/docproc"
	"knowledge-base/internal/model"
	"knowledge-base/internal/pkg/logger"
	"knowledge-base/internal/pkg/metrics"
	"knowledge-base/internal/platform/database"
	rabbitmqClient "knowledge-base/internal/platform/rabbitmq"
	redisClient "knowledge-base/internal/platform/redis"
	"knowledge-base/internal/repository"
	"knowledge-base/internal/storage"
	"knowledge-base/internal/vectorstore"
	"knowledge-base/internal/worker"
)

type App struct {
	Config        *config.Config
	DB            *gorm.DB
	Redis         *redis.Client
	MQConn        *amqp.Connection
	HistoryWorker *worker.HistoryPersistWorker
	Files         storage.FileStore
	Vectors       vectorstore.Store
	Metrics       *prometheus.Registry

	Documents *appsvc.DocumentService
	Chat      *appsvc.ChatService

	StartedAt time.Time
}

// Options trims what New starts. The CLI runs without the queue worker.
type Options struct {
	DisableWorker bool
}

func New(ctx context.Context, opts Options) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	return NewWithConfig(ctx, cfg, opts)
}

func NewWithConfig(ctx context.Context, cfg *config.Config, opts Options) (_ *App, err error) {
	a := &App{Config: cfg, StartedAt: time.Now()}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.DB, err = database.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	tables := []interface{}{&model.Document{}, &model.ChatHistory{}}
	if cfg.VectorStore.Driver == "gorm" {
		tables = append(tables, &model.VectorChunk{})
	}
	if err := a.DB.AutoMigrate(tables...); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	a.Files, err = storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	switch cfg.VectorStore.Driver {
	case "weaviate":
		a.Vectors, err = vectorstore.NewWeaviateStore(ctx, cfg.VectorStore.Weaviate)
		if err != nil {
			return nil, err
		}
	default:
		a.Vectors = vectorstore.NewGormStore(a.DB)
	}

	embedder, err := ai.NewEmbedder(cfg.Embedding)
	if err != nil {
		return nil, err
	}
	llm, err := ai.NewLLM(cfg.LLM)
	if err != nil {
		return nil, err
	}

	a.Redis, err = redisClient.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	var historyCache appsvc.HistoryCache
	var redisCache *cache.HistoryCache
	if a.Redis != nil {
		redisCache = cache.NewHistoryCache(a.Redis, time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second, 0)
		historyCache = redisCache
		logger.Infof("chat history cache enabled at %s", cfg.Redis.Addr)
	}

	docRepo := repository.NewDocumentRepository(a.DB)
	historyRepo := repository.NewChatHistoryRepository(a.DB)

	var recorder appsvc.HistoryRecorder = appsvc.NewDirectHistoryRecorder(historyRepo, historyCache)
	if cfg.RabbitMQ.URL != "" {
		a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
		if err != nil {
			return nil, err
		}
		publisher := rabbitmqClient.NewHistoryPublisher(a.MQConn, cfg.RabbitMQ.HistoryQueue)
		recorder = appsvc.NewQueuedHistoryRecorder(publisher, historyCache)
		if !opts.DisableWorker {
			var invalidator worker.CacheInvalidator
			if redisCache != nil {
				invalidator = redisCache
			}
			a.HistoryWorker = worker.NewHistoryPersistWorker(a.MQConn, historyRepo, invalidator, cfg.RabbitMQ.HistoryQueue)
			if err := a.HistoryWorker.Start(ctx); err != nil {
				return nil, fmt.Errorf("start history worker failed: %w", err)
			}
		}
		logger.Infof("chat history persisted through queue %s", cfg.RabbitMQ.HistoryQueue)
	}

	splitter := docproc.NewSplitter(cfg.Chunking.Size, cfg.Chunking.Overlap)
	a.Documents = appsvc.NewDocumentService(docRepo, a.Files, a.Vectors, embedder, splitter)
	a.Chat = appsvc.NewChatService(embedder, a.Vectors, llm, historyRepo, recorder, historyCache)

	a.Metrics = prometheus.NewRegistry()
	a.Metrics.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.RegisterCollectors(a.Metrics)

	logger.Infof("knowledge base ready: db=%s vectors=%s storage=%s embeddings=%s llm=%s/%s",
		cfg.Database.Driver, cfg.VectorStore.Driver, cfg.Storage.Driver, cfg.Embedding.Provider, cfg.LLM.Provider, cfg.LLM.Model)
	return a, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.HistoryWorker != nil {
		a.HistoryWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if err := database.Close(a.DB); err != nil {
		closeErr = err
	}
	return closeErr
}
