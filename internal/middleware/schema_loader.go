package middleware

import (
	"embed"
	"fmt"
	"path"
	"strings"

	contextutils "auscultify/internal/utils"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFiles embed.FS

// Request body schemas
const (
	SchemaSessionRequest   = "session_request"
	SchemaSelectionRequest = "selection_request"
	SchemaFollowRequest    = "follow_request"
)

const msgInvalidBody = "Datos de entrada inválidos"

// SchemaLoader holds the compiled request body schemas
type SchemaLoader struct {
	schemas map[string]*gojsonschema.Schema
}

// NewSchemaLoader compiles every embedded schema, keyed by file name without extension
func NewSchemaLoader() (*SchemaLoader, error) {
	entries, err := schemaFiles.ReadDir("schemas")
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list embedded schemas")
	}

	sl := &SchemaLoader{schemas: make(map[string]*gojsonschema.Schema, len(entries))}
	for _, entry := range entries {
		raw, err := schemaFiles.ReadFile(path.Join("schemas", entry.Name()))
		if err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to read schema %s", entry.Name())
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to compile schema %s", entry.Name())
		}
		sl.schemas[strings.TrimSuffix(entry.Name(), path.Ext(entry.Name()))] = schema
	}
	return sl, nil
}

// Has reports whether a schema with that name was loaded
func (sl *SchemaLoader) Has(schemaName string) bool {
	_, ok := sl.schemas[schemaName]
	return ok
}

// ValidateJSON validates a raw JSON document. Documents that do not match come back as a
// ValidationFailed error listing the offending fields in its details.
func (sl *SchemaLoader) ValidateJSON(document []byte, schemaName string) error {
	schema, exists := sl.schemas[schemaName]
	if !exists {
		return contextutils.ErrorWithContextf("schema %s not found", schemaName)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeInvalidFormat, contextutils.SeverityInfo, msgInvalidBody, "", err)
	}

	if !result.Valid() {
		violations := make([]string, 0, len(result.Errors()))
		for _, violation := range result.Errors() {
			violations = append(violations, fmt.Sprintf("%s: %s", violation.Field(), violation.Description()))
		}
		return contextutils.NewAppError(contextutils.ErrorCodeValidationFailed, contextutils.SeverityInfo, msgInvalidBody, strings.Join(violations, "; "))
	}
	return nil
}
