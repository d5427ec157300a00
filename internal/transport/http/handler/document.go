package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"knowledge-base/internal/app"
	"knowledge-base/internal/model"
	"knowledge-base/internal/transport/http/response"
)

// multipartOverhead is allowed on top of the file size for headers and boundaries.
const multipartOverhead = 1 << 20

type DocumentService interface {
	Upload(ctx context.Context, input app.UploadInput) (*app.UploadResult, error)
	List(ctx context.Context) ([]model.Document, error)
	Delete(ctx context.Context, id uint) (*app.DeleteResult, error)
}

type DocumentHandler struct {
	docs          DocumentService
	maxUploadSize int64
}

func NewDocumentHandler(docs DocumentService, maxUploadSize int64) *DocumentHandler {
	return &DocumentHandler{docs: docs, maxUploadSize: maxUploadSize}
}

// Upload accepts a multipart form with a single "file" field.
func (h *DocumentHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize+multipartOverhead)

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.tooLarge(c)
			return
		}
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > h.maxUploadSize {
		h.tooLarge(c)
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}

	result, err := h.docs.Upload(c.Request.Context(), app.UploadInput{
		Filename: file.Filename,
		Data:     data,
	})
	if err != nil {
		writeError(c, err, "Error processing document: ")
		return
	}
	response.OK(c, result)
}

func (h *DocumentHandler) tooLarge(c *gin.Context) {
	response.Error(c, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge,
		fmt.Sprintf("file too large (max %dMB)", h.maxUploadSize>>20))
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.docs.List(c.Request.Context())
	if err != nil {
		writeError(c, err, "Error listing documents: ")
		return
	}
	response.OK(c, docs)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}
	result, err := h.docs.Delete(c.Request.Context(), uint(id))
	if err != nil {
		writeError(c, err, "Error deleting document: ")
		return
	}
	response.OK(c, result)
}
