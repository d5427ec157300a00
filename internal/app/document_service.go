package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"knowledge-base/internal/ai"
	"knowledge-base/internal/docproc"
	"knowledge-base/internal/model"
	"knowledge-base/internal/pkg/logger"
	"knowledge-base/internal/pkg/metrics"
	"knowledge-base/internal/repository"
	"knowledge-base/internal/storage"
	"knowledge-base/internal/vectorstore"
)

const (
	msgDocumentUploaded = "Document uploaded successfully"
	msgDocumentDeleted  = "Document deleted successfully"
)

type DocumentService struct {
	docs     DocumentRepository
	files    storage.FileStore
	vectors  vectorstore.Store
	embedder ai.Embedder
	splitter *docproc.Splitter
	now      func() time.Time
}

func NewDocumentService(
	docs DocumentRepository,
	files storage.FileStore,
	vectors vectorstore.Store,
	embedder ai.Embedder,
	splitter *docproc.Splitter,
) *DocumentService {
	if splitter == nil {
		splitter = docproc.NewSplitter(docproc.DefaultChunkSize, docproc.DefaultChunkOverlap)
	}
	return &DocumentService{
		docs:     docs,
		files:    files,
		vectors:  vectors,
		embedder: embedder,
		splitter: splitter,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type UploadInput struct {
	Filename string
	Data     []byte
}

type UploadResult struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Chunks   int    `json:"chunks"`
}

type DeleteResult struct {
	Message string `json:"message"`
}

// Upload reserves the filename, stores the file, indexes its chunks and
// completes the document row. On failure nothing written along the way is
// left behind.
func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	filename, err := storage.CleanName(input.Filename)
	if err != nil {
		return nil, ErrInvalidInput
	}
	fileType := docproc.FileType(filename)
	if !docproc.SupportedFileType(fileType) {
		metrics.DocumentsUploaded.WithLabelValues(fileType, "rejected").Inc()
		return nil, fmt.Errorf("%w: .%s", ErrUnsupportedFileType, fileType)
	}

	existing, err := s.docs.GetByFilename(ctx, filename)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		metrics.DocumentsUploaded.WithLabelValues(fileType, "rejected").Inc()
		return nil, ErrDocumentExists
	}

	// the unique filename index decides which concurrent upload owns the name
	doc := &model.Document{
		Filename:   filename,
		FileType:   fileType,
		UploadDate: s.now(),
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		if errors.Is(err, repository.ErrDuplicateFilename) {
			metrics.DocumentsUploaded.WithLabelValues(fileType, "rejected").Inc()
			return nil, ErrDocumentExists
		}
		return nil, err
	}

	result, err := s.ingest(ctx, doc, input.Data)
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrEmptyDocument) {
			outcome = "rejected"
		}
		metrics.DocumentsUploaded.WithLabelValues(fileType, outcome).Inc()
		logger.Warnf("upload %s failed: %v", filename, err)
		return nil, err
	}
	metrics.DocumentsUploaded.WithLabelValues(fileType, "success").Inc()
	metrics.ChunksIngested.Add(float64(result.Chunks))
	logger.Infof("uploaded %s: %d chunks", filename, result.Chunks)
	return result, nil
}

// ingest fills a reserved document row. It only ever rolls back state keyed
// by that reservation.
func (s *DocumentService) ingest(ctx context.Context, doc *model.Document, data []byte) (_ *UploadResult, err error) {
	var (
		location     string
		vectorsAdded bool
	)
	defer func() {
		if err == nil {
			return
		}
		// cleanup must run even if the request context is gone
		cleanupCtx := context.WithoutCancel(ctx)
		if vectorsAdded {
			if derr := s.vectors.DeleteDocument(cleanupCtx, doc.VectorKey()); derr != nil {
				logger.Errorf("rollback vectors for %s failed: %v", doc.Filename, derr)
			}
		}
		if location != "" {
			if derr := s.files.Delete(cleanupCtx, location); derr != nil {
				logger.Errorf("rollback file %s failed: %v", location, derr)
			}
		}
		if derr := s.docs.DeleteByID(cleanupCtx, doc.ID); derr != nil {
			logger.Errorf("rollback document %s failed: %v", doc.Filename, derr)
		}
	}()

	location, err = s.files.Save(ctx, doc.Filename, data)
	if err != nil {
		return nil, err
	}

	text, err := docproc.ExtractText(data, doc.FileType)
	if err != nil {
		return nil, err
	}
	chunks, err := s.splitter.Split(text, map[string]string{
		docproc.MetaFilename: doc.Filename,
		docproc.MetaFileType: doc.FileType,
	})
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, ErrEmptyDocument
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(embeddings) != len(chunks) {
		return nil, errors.New("embedding count mismatch")
	}

	records := make([]vectorstore.Chunk, len(chunks))
	for i := range chunks {
		records[i] = vectorstore.Chunk{
			Index:     chunks[i].Index,
			Content:   chunks[i].Content,
			Filename:  doc.Filename,
			FileType:  doc.FileType,
			Embedding: embeddings[i],
		}
	}
	vectorsAdded = true
	if err := s.vectors.Add(ctx, doc.VectorKey(), records); err != nil {
		return nil, err
	}

	if err := s.docs.MarkIndexed(ctx, doc.ID, location, len(chunks)); err != nil {
		return nil, err
	}

	return &UploadResult{
		Message:  msgDocumentUploaded,
		Filename: doc.Filename,
		Chunks:   len(chunks),
	}, nil
}

func (s *DocumentService) List(ctx context.Context) ([]model.Document, error) {
	docs, err := s.docs.List(ctx)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []model.Document{}
	}
	return docs, nil
}

// Delete removes the document's vectors, its stored file and finally the row.
func (s *DocumentService) Delete(ctx context.Context, id uint) (*DeleteResult, error) {
	if id == 0 {
		return nil, ErrDocumentNotFound
	}
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}

	if err := s.vectors.DeleteDocument(ctx, doc.VectorKey()); err != nil {
		return nil, err
	}
	// rows still being ingested have no stored path yet
	if doc.FilePath != "" {
		if err := s.files.Delete(ctx, doc.FilePath); err != nil {
			return nil, err
		}
	}
	if err := s.docs.DeleteByID(ctx, doc.ID); err != nil {
		return nil, err
	}
	logger.Infof("deleted document %d (%s)", doc.ID, doc.Filename)
	return &DeleteResult{Message: msgDocumentDeleted}, nil
}
