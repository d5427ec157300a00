package app

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"knowledge-base/internal/model"
	"knowledge-base/internal/platform/database/dbtest"
	"knowledge-base/internal/repository"
	"knowledge-base/internal/storage"
	"knowledge-base/internal/vectorstore"
)

// letterEmbedder maps text to letter frequencies so related texts score higher.
type letterEmbedder struct {
	err error
}

func (e *letterEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	vec := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			vec[r-'a']++
		}
	}
	return vec, nil
}

func (e *letterEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

type fakeLLM struct {
	mu      sync.Mutex
	prompts []string
	answer  string
	err     error
}

func (l *fakeLLM) Generate(_ context.Context, prompt string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompts = append(l.prompts, prompt)
	return l.answer, l.err
}

type failingStore struct {
	vectorstore.Store
	addErr  error
	deleted []string
}

func (s *failingStore) Add(context.Context, string, []vectorstore.Chunk) error { return s.addErr }

func (s *failingStore) DeleteDocument(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

type env struct {
	docs     *DocumentService
	chat     *ChatService
	docRepo  *repository.DocumentRepository
	histRepo *repository.ChatHistoryRepository
	files    *storage.LocalStore
	vectors  *vectorstore.GormStore
	llm      *fakeLLM
	dir      string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := dbtest.Open(t, &model.Document{}, &model.ChatHistory{}, &model.VectorChunk{})
	dir := t.TempDir()
	files, err := storage.NewLocalStore(dir)
	require.NoError(t, err)

	e := &env{
		docRepo:  repository.NewDocumentRepository(db),
		histRepo: repository.NewChatHistoryRepository(db),
		files:    files,
		vectors:  vectorstore.NewGormStore(db),
		llm:      &fakeLLM{answer: "According to Source 1, cats purr."},
		dir:      dir,
	}
	embedder := &letterEmbedder{}
	e.docs = NewDocumentService(e.docRepo, files, e.vectors, embedder, nil)
	e.chat = NewChatService(embedder, e.vectors, e.llm, e.histRepo, NewDirectHistoryRecorder(e.histRepo, nil), nil)
	return e
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestUploadListDelete(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	res, err := e.docs.Upload(ctx, UploadInput{Filename: "cats.txt", Data: []byte("Cats purr when they are happy.")})
	require.NoError(t, err)
	require.Equal(t, &UploadResult{Message: "Document uploaded successfully", Filename: "cats.txt", Chunks: 1}, res)

	docs, err := e.docs.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "txt", docs[0].FileType)
	require.Equal(t, 1, docs[0].NumChunks)
	require.False(t, docs[0].UploadDate.IsZero())
	require.Equal(t, 1, countFiles(t, e.dir))

	del, err := e.docs.Delete(ctx, docs[0].ID)
	require.NoError(t, err)
	require.Equal(t, "Document deleted successfully", del.Message)

	docs, err = e.docs.List(ctx)
	require.NoError(t, err)
	require.Empty(t, docs)
	require.Equal(t, 0, countFiles(t, e.dir))
	hits, err := e.vectors.Search(ctx, make([]float32, 26), 5)
	require.NoError(t, err)
	require.Empty(t, hits)

	_, err = e.docs.Delete(ctx, 999)
	require.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestUploadRejections(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.docs.Upload(ctx, UploadInput{Filename: "virus.exe", Data: []byte("x")})
	require.ErrorIs(t, err, ErrUnsupportedFileType)

	_, err = e.docs.Upload(ctx, UploadInput{Filename: "", Data: []byte("x")})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.docs.Upload(ctx, UploadInput{Filename: "blank.md", Data: []byte("  \n\n ")})
	require.ErrorIs(t, err, ErrEmptyDocument)
	require.Equal(t, 0, countFiles(t, e.dir))

	_, err = e.docs.Upload(ctx, UploadInput{Filename: "a.txt", Data: []byte("first")})
	require.NoError(t, err)
	_, err = e.docs.Upload(ctx, UploadInput{Filename: "dir/a.txt", Data: []byte("second")})
	require.ErrorIs(t, err, ErrDocumentExists)
}

func TestUploadRollsBackOnVectorFailure(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	store := &failingStore{addErr: errors.New("vector db down")}
	svc := NewDocumentService(e.docRepo, e.files, store, &letterEmbedder{}, nil)

	_, err := svc.Upload(ctx, UploadInput{Filename: "a.txt", Data: []byte("some text")})
	require.Error(t, err)
	require.Equal(t, []string{"doc_a.txt"}, store.deleted)
	require.Equal(t, 0, countFiles(t, e.dir))

	docs, err := e.docRepo.List(ctx)
	require.NoError(t, err)
	require.Empty(t, docs)
}

func TestUploadRollsBackOnEmbeddingFailure(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	svc := NewDocumentService(e.docRepo, e.files, e.vectors, &letterEmbedder{err: errors.New("ollama down")}, nil)

	_, err := svc.Upload(ctx, UploadInput{Filename: "a.txt", Data: []byte("some text")})
	require.Error(t, err)
	require.Equal(t, 0, countFiles(t, e.dir))
}

// gatedEmbedder blocks its first EmbedBatch call until release is closed.
type gatedEmbedder struct {
	letterEmbedder
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedEmbedder() *gatedEmbedder {
	return &gatedEmbedder{entered: make(chan struct{}), release: make(chan struct{})}
}

func (e *gatedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	first := false
	e.once.Do(func() { first = true })
	if first {
		close(e.entered)
		<-e.release
	}
	return e.letterEmbedder.EmbedBatch(ctx, texts)
}

// blindLookupRepo hides existing rows from GetByFilename so only the unique
// index can catch a duplicate.
type blindLookupRepo struct {
	*repository.DocumentRepository
}

func (blindLookupRepo) GetByFilename(context.Context, string) (*model.Document, error) {
	return nil, nil
}

func TestConcurrentUploadOfSameFilename(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	gated := newGatedEmbedder()
	svc := NewDocumentService(blindLookupRepo{e.docRepo}, e.files, e.vectors, gated, nil)

	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Upload(ctx, UploadInput{Filename: "a.txt", Data: []byte("alpha beta gamma")})
		firstErr <- err
	}()
	<-gated.entered

	_, err := svc.Upload(ctx, UploadInput{Filename: "a.txt", Data: []byte("other content")})
	require.ErrorIs(t, err, ErrDocumentExists)

	close(gated.release)
	require.NoError(t, <-firstErr)

	docs, err := e.docRepo.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, 1, docs[0].NumChunks)
	require.NotEmpty(t, docs[0].FilePath)
	require.Equal(t, 1, countFiles(t, e.dir))

	hits, err := e.vectors.Search(ctx, make([]float32, 26), 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "alpha beta gamma", hits[0].Content)
}

func TestUploadRollsBackWhenRowDeletedDuringIngest(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	gated := newGatedEmbedder()
	svc := NewDocumentService(e.docRepo, e.files, e.vectors, gated, nil)

	uploadErr := make(chan error, 1)
	go func() {
		_, err := svc.Upload(ctx, UploadInput{Filename: "a.txt", Data: []byte("alpha")})
		uploadErr <- err
	}()
	<-gated.entered

	docs, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Zero(t, docs[0].NumChunks)
	_, err = svc.Delete(ctx, docs[0].ID)
	require.NoError(t, err)

	close(gated.release)
	require.ErrorIs(t, <-uploadErr, repository.ErrDocumentGone)

	hits, err := e.vectors.Search(ctx, make([]float32, 26), 5)
	require.NoError(t, err)
	require.Empty(t, hits)
	require.Equal(t, 0, countFiles(t, e.dir))
}

func TestQueryWithoutDocuments(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	res, err := e.chat.Query(ctx, QueryInput{Question: "anything?"})
	require.NoError(t, err)
	require.Equal(t, "I don't have any documents to answer this question. Please upload some documents first.", res.Answer)
	require.Empty(t, res.Sources)
	require.Empty(t, e.llm.prompts)

	history, err := e.chat.History(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestQueryAnswersAndRecordsHistory(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.docs.Upload(ctx, UploadInput{Filename: "cats.txt", Data: []byte("Cats purr when they are happy.")})
	require.NoError(t, err)
	_, err = e.docs.Upload(ctx, UploadInput{Filename: "dogs.md", Data: []byte("Dogs bark at the mailman.")})
	require.NoError(t, err)

	res, err := e.chat.Query(ctx, QueryInput{Question: "Why do cats purr?", NumSources: 1})
	require.NoError(t, err)
	require.Equal(t, "According to Source 1, cats purr.", res.Answer)
	require.Len(t, res.Sources, 1)
	require.Equal(t, model.Source{SourceNumber: 1, Filename: "cats.txt", ChunkIndex: 0, ContentPreview: "Cats purr when they are happy."}, res.Sources[0])

	require.Len(t, e.llm.prompts, 1)
	require.Contains(t, e.llm.prompts[0], "Source 1:\nCats purr when they are happy.")
	require.Contains(t, e.llm.prompts[0], "Question: Why do cats purr?")

	history, err := e.chat.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "Why do cats purr?", history[0].Question)
	require.Equal(t, res.Sources, history[0].Sources)
}

func TestQueryValidationAndErrors(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.chat.Query(ctx, QueryInput{Question: "   "})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.docs.Upload(ctx, UploadInput{Filename: "a.txt", Data: []byte("text")})
	require.NoError(t, err)
	e.llm.err = errors.New("llm api error: boom")
	_, err = e.chat.Query(ctx, QueryInput{Question: "q"})
	require.EqualError(t, err, "llm api error: boom")

	history, err := e.chat.History(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestPreview(t *testing.T) {
	short := strings.Repeat("a", 200)
	require.Equal(t, short, preview(short))
	long := strings.Repeat("é", 201)
	require.Equal(t, strings.Repeat("é", 200)+"...", preview(long))
}
