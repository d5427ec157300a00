package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"knowledge-base/internal/app"
	"knowledge-base/internal/transport/http/response"
)

const allowedTypesMessage = "File type not supported. Allowed: pdf, docx, txt, md"

// writeError maps service errors to HTTP statuses. Unknown errors become 500
// with the given prefix.
func writeError(c *gin.Context, err error, prefix string) {
	switch {
	case errors.Is(err, app.ErrUnsupportedFileType):
		response.Error(c, http.StatusBadRequest, response.CodeUnsupportedFileType, allowedTypesMessage)
	case errors.Is(err, app.ErrEmptyDocument):
		response.Error(c, http.StatusBadRequest, response.CodeEmptyDocument, err.Error())
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrDocumentNotFound):
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, "Document not found")
	case errors.Is(err, app.ErrDocumentExists):
		response.Error(c, http.StatusConflict, response.CodeDocumentExists, "Document with this filename already exists")
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, prefix+err.Error())
	}
}
