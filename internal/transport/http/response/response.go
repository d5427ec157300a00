package response

import "github.com/gin-gonic/gin"

const (
	CodeBadRequest          = 40000
	CodeUnsupportedFileType = 40001
	CodeEmptyDocument       = 40002
	CodeDocumentNotFound    = 40401
	CodeNotFound            = 40400
	CodeDocumentExists      = 40901
	CodePayloadTooLarge     = 41300
	CodeTooManyRequests     = 42900
	CodeInternalServer      = 50000
)

// APIError is the error body. Detail repeats Message for clients that read
// the `detail` field.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// OK writes data as the response body unchanged.
func OK(c *gin.Context, data interface{}) {
	c.JSON(200, data)
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIError{
		Code:    code,
		Message: message,
		Detail:  message,
	})
}

// Abort writes the error and stops the handler chain.
func Abort(c *gin.Context, httpStatus, code int, message string) {
	c.AbortWithStatusJSON(httpStatus, APIError{
		Code:    code,
		Message: message,
		Detail:  message,
	})
}
