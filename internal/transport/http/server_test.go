package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"knowledge-base/internal/app"
	"knowledge-base/internal/model"
	"knowledge-base/internal/pkg/metrics"
	"knowledge-base/internal/transport/http/handler"
)

type stubDocs struct {
	uploadErr error
	uploaded  []app.UploadInput
	docs      []model.Document
}

func (s *stubDocs) Upload(_ context.Context, in app.UploadInput) (*app.UploadResult, error) {
	if s.uploadErr != nil {
		return nil, s.uploadErr
	}
	s.uploaded = append(s.uploaded, in)
	return &app.UploadResult{Message: "Document uploaded successfully", Filename: in.Filename, Chunks: 1}, nil
}

func (s *stubDocs) List(context.Context) ([]model.Document, error) { return s.docs, nil }

func (s *stubDocs) Delete(_ context.Context, id uint) (*app.DeleteResult, error) {
	if id != 1 {
		return nil, app.ErrDocumentNotFound
	}
	return &app.DeleteResult{Message: "Document deleted successfully"}, nil
}

type stubChat struct {
	queryErr  error
	lastInput app.QueryInput
	lastLimit int
}

func (s *stubChat) Query(_ context.Context, in app.QueryInput) (*app.QueryResult, error) {
	s.lastInput = in
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return &app.QueryResult{Answer: "42", Sources: []model.Source{{SourceNumber: 1, Filename: "a.txt", ChunkIndex: 0, ContentPreview: "x"}}}, nil
}

func (s *stubChat) History(_ context.Context, limit int) ([]model.HistoryEntry, error) {
	s.lastLimit = limit
	return []model.HistoryEntry{{ID: 1, Question: "q", Answer: "a", Sources: []model.Source{}}}, nil
}

func newTestRouter(docs *stubDocs, chat *stubChat, deps []handler.Dependency, mutate func(*Options)) *gin.Engine {
	reg := prometheus.NewRegistry()
	metrics.RegisterCollectors(reg)
	opts := Options{
		GinMode:        gin.TestMode,
		AllowedOrigins: []string{"http://localhost:5173"},
		MaxUploadBytes: 1 << 10,
		Documents:      docs,
		Chat:           chat,
		Health:         handler.NewHealthHandler("kb", "test", time.Now(), deps),
		Gatherer:       reg,
	}
	if mutate != nil {
		mutate(&opts)
	}
	return New(opts)
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRootAndHealth(t *testing.T) {
	r := newTestRouter(&stubDocs{}, &stubChat{}, nil, nil)

	w := do(r, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"message":"AI Knowledge Base API"}`, w.Body.String())

	w = do(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestHealthzReportsDependencies(t *testing.T) {
	deps := []handler.Dependency{
		{Name: "database", Ping: func(context.Context) error { return nil }},
		{Name: "redis", Ping: func(context.Context) error { return errors.New("connection refused") }},
	}
	r := newTestRouter(&stubDocs{}, &stubChat{}, deps, nil)

	w := do(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode(t, w)
	dependencies := body["dependencies"].(map[string]interface{})
	require.Equal(t, true, dependencies["database"].(map[string]interface{})["ok"])
	require.Equal(t, "connection refused", dependencies["redis"].(map[string]interface{})["message"])
}

func TestUpload(t *testing.T) {
	docs := &stubDocs{}
	r := newTestRouter(docs, &stubChat{}, nil, nil)

	body, ct := multipartBody(t, "notes.txt", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", body)
	req.Header.Set("Content-Type", ct)
	w := do(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"message":"Document uploaded successfully","filename":"notes.txt","chunks":1}`, w.Body.String())
	require.Equal(t, []byte("hello"), docs.uploaded[0].Data)
}

func TestUploadErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"unsupported", app.ErrUnsupportedFileType, http.StatusBadRequest, "File type not supported. Allowed: pdf, docx, txt, md"},
		{"empty", app.ErrEmptyDocument, http.StatusBadRequest, app.ErrEmptyDocument.Error()},
		{"exists", app.ErrDocumentExists, http.StatusConflict, "Document with this filename already exists"},
		{"internal", errors.New("disk full"), http.StatusInternalServerError, "Error processing document: disk full"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(&stubDocs{uploadErr: tc.err}, &stubChat{}, nil, nil)
			body, ct := multipartBody(t, "a.txt", []byte("x"))
			req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", body)
			req.Header.Set("Content-Type", ct)
			w := do(r, req)
			require.Equal(t, tc.status, w.Code)
			resp := decode(t, w)
			require.Equal(t, tc.msg, resp["message"])
			require.Equal(t, tc.msg, resp["detail"])
		})
	}
}

func TestUploadMissingFileAndTooLarge(t *testing.T) {
	r := newTestRouter(&stubDocs{}, &stubChat{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")
	w := do(r, req)
	require.Equal(t, http.StatusBadRequest, w.Code)

	body, ct := multipartBody(t, "big.txt", bytes.Repeat([]byte("a"), 2<<10))
	req = httptest.NewRequest(http.MethodPost, "/api/documents/upload", body)
	req.Header.Set("Content-Type", ct)
	w = do(r, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestListAndDeleteDocuments(t *testing.T) {
	docs := &stubDocs{docs: []model.Document{{ID: 1, Filename: "a.txt", FilePath: "uploads/a.txt", FileType: "txt", NumChunks: 2}}}
	r := newTestRouter(docs, &stubChat{}, nil, nil)

	for _, path := range []string{"/api/documents", "/api/documents/"} {
		w := do(r, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, w.Code, path)
		var list []map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
		require.Len(t, list, 1)
		require.Equal(t, "a.txt", list[0]["filename"])
		require.NotContains(t, list[0], "file_path")
		require.EqualValues(t, 2, list[0]["num_chunks"])
	}

	w := do(r, httptest.NewRequest(http.MethodDelete, "/api/documents/1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"message":"Document deleted successfully"}`, w.Body.String())

	w = do(r, httptest.NewRequest(http.MethodDelete, "/api/documents/7", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "Document not found", decode(t, w)["message"])

	w = do(r, httptest.NewRequest(http.MethodDelete, "/api/documents/abc", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuery(t *testing.T) {
	chat := &stubChat{}
	r := newTestRouter(&stubDocs{}, chat, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/query", bytes.NewBufferString(`{"question":"why?","num_sources":3}`))
	req.Header.Set("Content-Type", "application/json")
	w := do(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"answer":"42","sources":[{"source_number":1,"filename":"a.txt","chunk_index":0,"content_preview":"x"}]}`, w.Body.String())
	require.Equal(t, app.QueryInput{Question: "why?", NumSources: 3}, chat.lastInput)

	req = httptest.NewRequest(http.MethodPost, "/api/chat/query", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w = do(r, req)
	require.Equal(t, http.StatusBadRequest, w.Code)

	chat.queryErr = errors.New("llm api error: down")
	req = httptest.NewRequest(http.MethodPost, "/api/chat/query", bytes.NewBufferString(`{"question":"why?"}`))
	req.Header.Set("Content-Type", "application/json")
	w = do(r, req)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "Error processing query: llm api error: down", decode(t, w)["message"])
}

func TestHistory(t *testing.T) {
	chat := &stubChat{}
	r := newTestRouter(&stubDocs{}, chat, nil, nil)

	w := do(r, httptest.NewRequest(http.MethodGet, "/api/chat/history?limit=5", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 5, chat.lastLimit)
	var entries []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	require.Equal(t, []interface{}{}, entries[0]["sources"])

	w = do(r, httptest.NewRequest(http.MethodGet, "/api/chat/history", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 0, chat.lastLimit)

	w = do(r, httptest.NewRequest(http.MethodGet, "/api/chat/history?limit=x", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCORS(t *testing.T) {
	r := newTestRouter(&stubDocs{}, &stubChat{}, nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/chat/query", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := do(r, req)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.test")
	w = do(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestQueryRateLimit(t *testing.T) {
	r := newTestRouter(&stubDocs{}, &stubChat{}, nil, func(o *Options) {
		o.RateLimitRPS = 0.001
		o.RateLimitBurst = 2
	})
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/chat/query", bytes.NewBufferString(`{"question":"q"}`))
		req.Header.Set("Content-Type", "application/json")
		codes = append(codes, do(r, req).Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// other routes are not limited
	w := do(r, httptest.NewRequest(http.MethodGet, "/api/chat/history", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(&stubDocs{}, &stubChat{}, nil, nil)
	metrics.Queries.WithLabelValues("answered").Inc()
	w := do(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "knowledge_base_queries_total")
}
