package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"auscultify/internal/observability"
	contextutils "auscultify/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// maxJSONBodyBytes bounds the JSON bodies read for validation
const maxJSONBodyBytes = 1 << 20

// RequestValidationMiddleware validates a JSON request body against schemaName before the
// handler runs. The body is restored for binding. Empty bodies pass through so handlers can
// report missing fields with their own messages.
func RequestValidationMiddleware(loader *SchemaLoader, schemaName string, logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "request_validation",
			attribute.String("schema.name", schemaName),
		)
		defer span.End()

		contentType := c.ContentType()
		if c.Request.Body == nil || (contentType != "" && !strings.HasPrefix(contentType, gin.MIMEJSON)) {
			c.Next()
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxJSONBodyBytes+1))
		if err != nil {
			WriteError(c, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeInvalidInput, contextutils.SeverityInfo, msgInvalidBody, "", err))
			c.Abort()
			return
		}
		if len(body) > maxJSONBodyBytes {
			WriteError(c, contextutils.NewAppError(contextutils.ErrorCodePayloadTooLarge, contextutils.SeverityInfo, "El cuerpo de la petición es demasiado grande", ""))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if len(bytes.TrimSpace(body)) == 0 {
			c.Next()
			return
		}

		if err := loader.ValidateJSON(body, schemaName); err != nil {
			span.SetAttributes(attribute.Bool("schema.valid", false))
			fields := map[string]interface{}{
				"method": c.Request.Method,
				"path":   c.Request.URL.Path,
				"schema": schemaName,
			}
			if appErr := contextutils.RootAppError(err); appErr != nil && appErr.Details != "" {
				fields["violations"] = appErr.Details
			}
			logger.Warn(ctx, "Request body rejected by schema", fields)

			_ = c.Error(err)
			status, payload := ErrorResponse(err, contextutils.ParseLocale(c.GetHeader("Accept-Language")))
			if status == http.StatusInternalServerError {
				logger.Error(ctx, "Request schema unavailable", err, fields)
			}
			c.AbortWithStatusJSON(status, payload)
			return
		}

		span.SetAttributes(attribute.Bool("schema.valid", true))
		c.Next()
	}
}
