package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"knowledge-base/internal/config"
	"knowledge-base/internal/model"
)

const weaviateBatchSize = 200

// WeaviateStore keeps chunks in a Weaviate class with externally supplied vectors.
type WeaviateStore struct {
	client    *weaviate.Client
	className string
}

func NewWeaviateStore(ctx context.Context, cfg config.WeaviateConfig) (*WeaviateStore, error) {
	scheme := cfg.Scheme
	host := cfg.Host
	for _, prefix := range []string{"https://", "http://"} {
		if strings.HasPrefix(host, prefix) {
			scheme = strings.TrimSuffix(prefix, "://")
			host = strings.TrimPrefix(host, prefix)
		}
	}
	if scheme == "" {
		scheme = "http"
	}
	wcfg := weaviate.Config{Host: host, Scheme: scheme}
	if cfg.APIKey != "" {
		wcfg.AuthConfig = auth.ApiKey{Value: cfg.APIKey}
	}
	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, fmt.Errorf("create weaviate client failed: %w", err)
	}
	s := &WeaviateStore{client: client, className: cfg.Class}
	if err := s.ensureClass(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *WeaviateStore) classDefinition() *models.Class {
	return &models.Class{
		Class:      s.className,
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "content", DataType: []string{"text"}},
			{Name: "documentKey", DataType: []string{"text"}, Tokenization: models.PropertyTokenizationField},
			{Name: "filename", DataType: []string{"text"}, Tokenization: models.PropertyTokenizationField},
			{Name: "fileType", DataType: []string{"text"}, Tokenization: models.PropertyTokenizationField},
			{Name: "chunkIndex", DataType: []string{"int"}},
			{Name: "chunkId", DataType: []string{"text"}, Tokenization: models.PropertyTokenizationField},
		},
		VectorIndexType:   "hnsw",
		VectorIndexConfig: map[string]interface{}{"distance": "cosine"},
	}
}

func (s *WeaviateStore) ensureClass(ctx context.Context) error {
	exists, err := s.client.Schema().ClassExistenceChecker().WithClassName(s.className).Do(ctx)
	if err != nil {
		return fmt.Errorf("check weaviate class failed: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.Schema().ClassCreator().WithClass(s.classDefinition()).Do(ctx); err != nil {
		return fmt.Errorf("create weaviate class failed: %w", err)
	}
	return nil
}

// objectID derives a stable uuid from the chunk id so re-adding a chunk overwrites it.
func objectID(chunkID string) strfmt.UUID {
	return strfmt.UUID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(chunkID)).String())
}

func (s *WeaviateStore) Add(ctx context.Context, documentKey string, chunks []Chunk) error {
	for i := 0; i < len(chunks); i += weaviateBatchSize {
		end := i + weaviateBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batcher := s.client.Batch().ObjectsBatcher()
		for _, c := range chunks[i:end] {
			id := model.ChunkID(documentKey, c.Index)
			batcher = batcher.WithObjects(&models.Object{
				Class: s.className,
				ID:    objectID(id),
				Properties: map[string]interface{}{
					"content":     c.Content,
					"documentKey": documentKey,
					"filename":    c.Filename,
					"fileType":    c.FileType,
					"chunkIndex":  c.Index,
					"chunkId":     id,
				},
				Vector: c.Embedding,
			})
		}
		resp, err := batcher.Do(ctx)
		if err != nil {
			return fmt.Errorf("insert weaviate batch %d-%d failed: %w", i, end, err)
		}
		for _, r := range resp {
			if r.Result != nil && r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
				return fmt.Errorf("insert weaviate object %s failed: %s", r.ID, r.Result.Errors.Error[0].Message)
			}
		}
	}
	return nil
}

func (s *WeaviateStore) Search(ctx context.Context, query []float32, limit int) ([]Hit, error) {
	if limit <= 0 || len(query) == 0 {
		return nil, nil
	}
	fields := []graphql.Field{
		{Name: "content"},
		{Name: "documentKey"},
		{Name: "filename"},
		{Name: "fileType"},
		{Name: "chunkIndex"},
		{Name: "chunkId"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
	}
	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(query)
	result, err := s.client.GraphQL().Get().
		WithClassName(s.className).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate search failed: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("weaviate search failed: %s", result.Errors[0].Message)
	}
	return parseHits(result.Data, s.className), nil
}

func parseHits(data map[string]models.JSONObject, className string) []Hit {
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	items, ok := get[className].([]interface{})
	if !ok {
		return nil
	}
	hits := make([]Hit, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		hit := Hit{
			ID:          stringField(obj, "chunkId"),
			DocumentKey: stringField(obj, "documentKey"),
			Filename:    stringField(obj, "filename"),
			FileType:    stringField(obj, "fileType"),
			Content:     stringField(obj, "content"),
		}
		if idx, ok := obj["chunkIndex"].(float64); ok {
			hit.ChunkIndex = int(idx)
		}
		if additional, ok := obj["_additional"].(map[string]interface{}); ok {
			if d, ok := additional["distance"].(float64); ok {
				hit.Score = float32(1 - d)
			}
		}
		hits = append(hits, hit)
	}
	return hits
}

func stringField(obj map[string]interface{}, key string) string {
	v, _ := obj[key].(string)
	return v
}

func (s *WeaviateStore) DeleteDocument(ctx context.Context, documentKey string) error {
	where := filters.Where().
		WithPath([]string{"documentKey"}).
		WithOperator(filters.Equal).
		WithValueText(documentKey)
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(s.className).
		WithWhere(where).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("delete weaviate objects failed: %w", err)
	}
	return nil
}

func (s *WeaviateStore) Ping(ctx context.Context) error {
	ready, err := s.client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return err
	}
	if !ready {
		return errors.New("weaviate is not ready")
	}
	return nil
}
