package app

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"knowledge-base/internal/ai"
	"knowledge-base/internal/model"
	"knowledge-base/internal/pkg/logger"
	"knowledge-base/internal/pkg/metrics"
	"knowledge-base/internal/repository"
	"knowledge-base/internal/vectorstore"
)

const (
	DefaultNumSources = 5
	MaxNumSources     = 20

	previewLength     = 200
	noDocumentsAnswer = "I don't have any documents to answer this question. Please upload some documents first."
)

type ChatService struct {
	embedder ai.Embedder
	vectors  vectorstore.Store
	llm      ai.LLM
	history  HistoryReader
	recorder HistoryRecorder
	cache    HistoryCache
	now      func() time.Time
}

// NewChatService wires the query pipeline. cache may be nil.
func NewChatService(
	embedder ai.Embedder,
	vectors vectorstore.Store,
	llm ai.LLM,
	history HistoryReader,
	recorder HistoryRecorder,
	cache HistoryCache,
) *ChatService {
	return &ChatService{
		embedder: embedder,
		vectors:  vectors,
		llm:      llm,
		history:  history,
		recorder: recorder,
		cache:    cache,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type QueryInput struct {
	Question   string
	NumSources int
}

type QueryResult struct {
	Answer  string         `json:"answer"`
	Sources []model.Source `json:"sources"`
}

func (s *ChatService) Query(ctx context.Context, input QueryInput) (*QueryResult, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, ErrInvalidInput
	}
	n := input.NumSources
	if n <= 0 {
		n = DefaultNumSources
	}
	if n > MaxNumSources {
		n = MaxNumSources
	}

	result, err := s.answer(ctx, question, n)
	if err != nil {
		metrics.Queries.WithLabelValues("error").Inc()
		logger.Errorf("query failed: %v", err)
		return nil, err
	}
	return result, nil
}

func (s *ChatService) answer(ctx context.Context, question string, n int) (*QueryResult, error) {
	queryVec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}
	hits, err := s.vectors.Search(ctx, queryVec, n)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		metrics.Queries.WithLabelValues("no_documents").Inc()
		return &QueryResult{Answer: noDocumentsAnswer, Sources: []model.Source{}}, nil
	}

	contents := make([]string, len(hits))
	for i := range hits {
		contents[i] = hits[i].Content
	}
	prompt := ai.BuildPrompt(question, contents)

	started := time.Now()
	answer, err := s.llm.Generate(ctx, prompt)
	metrics.LLMLatency.Observe(time.Since(started).Seconds())
	if err != nil {
		return nil, err
	}
	sources := buildSources(hits)

	entry := &model.ChatHistory{
		Question:  question,
		Answer:    answer,
		Timestamp: s.now(),
	}
	if err := entry.SetSources(sources); err != nil {
		return nil, fmt.Errorf("encode sources failed: %w", err)
	}
	if err := s.recorder.Record(ctx, entry); err != nil {
		return nil, err
	}

	metrics.Queries.WithLabelValues("answered").Inc()
	return &QueryResult{Answer: answer, Sources: sources}, nil
}

func buildSources(hits []vectorstore.Hit) []model.Source {
	sources := make([]model.Source, len(hits))
	for i, h := range hits {
		sources[i] = model.Source{
			SourceNumber:   i + 1,
			Filename:       h.Filename,
			ChunkIndex:     h.ChunkIndex,
			ContentPreview: preview(h.Content),
		}
	}
	return sources
}

// preview keeps the first 200 characters, suffixed with "..." when cut.
func preview(content string) string {
	if utf8.RuneCountInString(content) <= previewLength {
		return content
	}
	return string([]rune(content)[:previewLength]) + "..."
}

// History returns the most recent entries, newest first.
func (s *ChatService) History(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	limit = repository.NormalizeHistoryLimit(limit)

	cacheable := false
	var generation int64
	if s.cache != nil {
		dirty, err := s.cache.IsDirty(ctx)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.cache.GetHistory(ctx, limit); cacheErr == nil && hit {
				return cached, nil
			}
			// taken before the read so a concurrent Invalidate orphans this page
			if gen, genErr := s.cache.Generation(ctx); genErr == nil {
				generation, cacheable = gen, true
			}
		}
	}

	rows, err := s.history.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]model.HistoryEntry, 0, len(rows))
	for i := range rows {
		e, err := rows[i].Entry()
		if err != nil {
			return nil, fmt.Errorf("decode sources of history %d failed: %w", rows[i].ID, err)
		}
		entries = append(entries, e)
	}

	if cacheable {
		if dirty, dirtyErr := s.cache.IsDirty(ctx); dirtyErr == nil && !dirty {
			if err := s.cache.SetHistory(ctx, generation, limit, entries); err != nil {
				logger.Warnf("set history cache failed: %v", err)
			}
		}
	}
	return entries, nil
}
