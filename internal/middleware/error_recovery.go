package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"auscultify/internal/observability"
	contextutils "auscultify/internal/utils"

	"github.com/gin-gonic/gin"
)

// ErrorRecoveryMiddleware turns panics into a logged 500 response
func ErrorRecoveryMiddleware(logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}

			panicErr, ok := recovered.(error)
			if !ok {
				panicErr = fmt.Errorf("panic: %v", recovered)
			}

			logger.Error(c.Request.Context(), "Panic recovered", panicErr, map[string]interface{}{
				"method":     c.Request.Method,
				"path":       c.Request.URL.Path,
				"request_id": c.GetString(RequestIDKey),
				"stacktrace": string(debug.Stack()),
			})

			appErr := contextutils.NewAppErrorWithCause(
				contextutils.ErrorCodeInternalError,
				contextutils.SeverityFatal,
				"panic while handling request",
				"",
				panicErr,
			)
			_ = c.Error(appErr)
			WriteError(c, appErr)
			c.Abort()
		}()

		c.Next()
	}
}

// HTTPStatus maps an error code onto the response status
func HTTPStatus(code contextutils.ErrorCode) int {
	switch code {
	case contextutils.ErrorCodeInvalidInput,
		contextutils.ErrorCodeMissingRequired,
		contextutils.ErrorCodeInvalidFormat,
		contextutils.ErrorCodeValidationFailed,
		contextutils.ErrorCodeForeignKeyViolation:
		return http.StatusBadRequest
	case contextutils.ErrorCodeRecordNotFound:
		return http.StatusNotFound
	case contextutils.ErrorCodeRecordExists, contextutils.ErrorCodeConflict:
		return http.StatusConflict
	case contextutils.ErrorCodeUnauthorized, contextutils.ErrorCodeInvalidCredentials:
		return http.StatusUnauthorized
	case contextutils.ErrorCodeForbidden:
		return http.StatusForbidden
	case contextutils.ErrorCodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case contextutils.ErrorCodeServiceUnavailable, contextutils.ErrorCodeDatabaseConnection:
		return http.StatusServiceUnavailable
	case contextutils.ErrorCodeTimeout:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse builds the status and JSON body for err. Server errors always carry the
// generic catalog message.
func ErrorResponse(err error, locale contextutils.Locale) (int, gin.H) {
	code := contextutils.GetErrorCode(err)
	status := HTTPStatus(code)

	severity := contextutils.GetErrorSeverity(err)
	mensaje := contextutils.ClientMessage(err, locale)
	if status >= http.StatusInternalServerError {
		mensaje = contextutils.GetLocalizedMessage(code, locale)
	}

	retryable := false
	if appErr := contextutils.RootAppError(err); appErr != nil {
		retryable = contextutils.IsRetryable(appErr)
	}

	return status, gin.H{
		"mensaje":   mensaje,
		"code":      string(code),
		"severity":  string(severity),
		"retryable": retryable,
	}
}

// WriteError writes the JSON error response for err
func WriteError(c *gin.Context, err error) {
	status, body := ErrorResponse(err, contextutils.ParseLocale(c.GetHeader("Accept-Language")))
	c.JSON(status, body)
}
