package handlers

import (
	"errors"
	"io"

	"auscultify/internal/middleware"
	contextutils "auscultify/internal/utils"

	"github.com/gin-gonic/gin"
)

const msgInvalidBody = "Datos de entrada inválidos"

// HandleAppError records err on the gin context for the tracing and request-log middleware
// and writes the JSON error response
func HandleAppError(c *gin.Context, err error) {
	_ = c.Error(err)
	middleware.WriteError(c, err)
}

// bindJSON decodes the request body into req. An empty body leaves req at its zero value so
// the service reports the missing fields itself.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityInfo,
			msgInvalidBody,
			"",
			err,
		))
		return false
	}
	return true
}
