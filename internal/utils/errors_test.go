package contextutils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	t.Run("with details", func(t *testing.T) {
		err := &AppError{
			Code:    ErrorCodeInvalidInput,
			Message: "Datos de entrada inválidos",
			Details: "campo correctas",
		}
		assert.Equal(t, "INVALID_INPUT: Datos de entrada inválidos - campo correctas", err.Error())
	})

	t.Run("without details", func(t *testing.T) {
		err := &AppError{Code: ErrorCodeRecordNotFound, Message: "Usuario no encontrado"}
		assert.Equal(t, "RECORD_NOT_FOUND: Usuario no encontrado", err.Error())
	})
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := &AppError{Code: ErrorCodeStorage, Cause: cause}
	assert.Equal(t, cause, err.Unwrap())
}

func TestAppError_Is(t *testing.T) {
	err := NewAppError(ErrorCodeRecordNotFound, SeverityInfo, "Categoría no encontrada", "")

	assert.True(t, errors.Is(err, ErrRecordNotFound))
	assert.False(t, errors.Is(err, ErrForbidden))
	assert.False(t, errors.Is(err, errors.New("other")))
}

func TestNewAppErrorWithCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewAppErrorWithCause(ErrorCodeDatabaseConnection, SeverityError, "db down", "dial tcp", cause)

	assert.Equal(t, ErrorCodeDatabaseConnection, err.Code)
	assert.Equal(t, SeverityError, err.Severity)
	assert.Equal(t, "db down", err.Message)
	assert.Equal(t, "dial tcp", err.Details)
	assert.Equal(t, cause, err.Cause)
}

func TestWrapError(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.Nil(t, WrapError(nil, "context"))
	})

	t.Run("AppError keeps code and severity", func(t *testing.T) {
		original := NewAppError(ErrorCodeRecordNotFound, SeverityInfo, "Pregunta no encontrada", "")

		wrapped := WrapError(original, "failed to delete question")

		appErr, ok := wrapped.(*AppError)
		require.True(t, ok)
		assert.Equal(t, ErrorCodeRecordNotFound, appErr.Code)
		assert.Equal(t, SeverityInfo, appErr.Severity)
		assert.Equal(t, "failed to delete question", appErr.Message)
		assert.Contains(t, appErr.Details, "Pregunta no encontrada")
		assert.Equal(t, original, appErr.Cause)
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		original := errors.New("driver: bad connection")
		appErr, ok := WrapError(original, "context").(*AppError)
		require.True(t, ok)
		assert.Equal(t, ErrorCodeInternalError, appErr.Code)
		assert.Equal(t, SeverityError, appErr.Severity)
		assert.Equal(t, "driver: bad connection", appErr.Details)
	})
}

func TestWrapErrorf(t *testing.T) {
	t.Run("formats context", func(t *testing.T) {
		original := errors.New("database error")
		appErr, ok := WrapErrorf(original, "failed to load category %d", 7).(*AppError)
		require.True(t, ok)
		assert.Equal(t, ErrorCodeInternalError, appErr.Code)
		assert.Equal(t, "failed to load category 7", appErr.Message)
		assert.Equal(t, "database error", appErr.Details)
	})

	t.Run("%w keeps the chain walkable", func(t *testing.T) {
		wrapped := WrapErrorf(ErrForbidden, "follow rejected: %w", ErrForbidden)
		assert.True(t, errors.Is(wrapped, ErrForbidden))
		assert.Equal(t, ErrorCodeForbidden, GetErrorCode(wrapped))
	})
}

func TestErrorWithContextf(t *testing.T) {
	appErr, ok := ErrorWithContextf("user not found: %s", "ana@example.com").(*AppError)
	require.True(t, ok)
	assert.Equal(t, ErrorCodeInternalError, appErr.Code)
	assert.Equal(t, "user not found: ana@example.com", appErr.Message)
}

func TestIsErrorAndAsError(t *testing.T) {
	err := WrapError(NewAppError(ErrorCodeInvalidInput, SeverityWarn, "x", ""), "outer")

	assert.True(t, IsError(err, ErrInvalidInput))
	assert.False(t, IsError(err, ErrRecordNotFound))
	assert.False(t, IsError(errors.New("regular error"), ErrInvalidInput))

	var target *AppError
	assert.True(t, AsError(err, &target))
	assert.Equal(t, ErrorCodeInvalidInput, target.Code)

	var none *AppError
	assert.False(t, AsError(errors.New("plain"), &none))
	assert.Nil(t, none)
}

func TestRootAppError(t *testing.T) {
	inner := NewAppError(ErrorCodeForbidden, SeverityWarn, "No puedes seguir a un usuario privado", "")
	err := WrapErrorf(WrapError(inner, "follow"), "handler")

	root := RootAppError(err)
	require.NotNil(t, root)
	assert.Same(t, inner, root)

	assert.Nil(t, RootAppError(errors.New("plain")))
	assert.Nil(t, RootAppError(nil))
}

func TestGetErrorCodeAndSeverity(t *testing.T) {
	appErr := &AppError{Code: ErrorCodeInvalidInput, Severity: SeverityWarn}
	regular := errors.New("regular error")

	assert.Equal(t, ErrorCodeInvalidInput, GetErrorCode(appErr))
	assert.Equal(t, ErrorCodeInvalidInput, GetErrorCode(fmt.Errorf("outer: %w", appErr)))
	assert.Equal(t, ErrorCodeInternalError, GetErrorCode(regular))

	assert.Equal(t, SeverityWarn, GetErrorSeverity(appErr))
	assert.Equal(t, SeverityError, GetErrorSeverity(regular))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"timeout", &AppError{Code: ErrorCodeTimeout, Severity: SeverityWarn}, true},
		{"service unavailable", &AppError{Code: ErrorCodeServiceUnavailable, Severity: SeverityError}, true},
		{"database connection", &AppError{Code: ErrorCodeDatabaseConnection, Severity: SeverityError}, true},
		{"validation", &AppError{Code: ErrorCodeInvalidInput, Severity: SeverityWarn}, false},
		{"fatal", &AppError{Code: ErrorCodeTimeout, Severity: SeverityFatal}, false},
		{"regular", errors.New("regular error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestAppError_ToJSON(t *testing.T) {
	err := &AppError{
		Code:     ErrorCodeInvalidInput,
		Severity: SeverityWarn,
		Message:  "Datos de entrada inválidos",
		Details:  "correctas > total",
		Cause:    errors.New("underlying"),
	}

	json := err.ToJSON()

	assert.Equal(t, "INVALID_INPUT", json["code"])
	assert.Equal(t, "Datos de entrada inválidos", json["mensaje"])
	assert.Equal(t, "warn", json["severity"])
	assert.Equal(t, "correctas > total", json["details"])
	assert.Equal(t, false, json["retryable"])
	assert.NotContains(t, json, "cause")
}

func TestClientMessage(t *testing.T) {
	t.Run("specific client message", func(t *testing.T) {
		err := WrapError(NewAppError(ErrorCodeForbidden, SeverityWarn, "Este perfil es privado", ""), "follow")
		assert.Equal(t, "Este perfil es privado", ClientMessage(err, LocaleSpanish))
	})

	t.Run("sentinel gets the catalog text", func(t *testing.T) {
		err := WrapErrorf(ErrInvalidInput, "bad body")
		assert.Equal(t, "Datos de entrada inválidos", ClientMessage(err, LocaleSpanish))
	})

	t.Run("server failures are generic", func(t *testing.T) {
		err := NewAppErrorWithCause(ErrorCodeDatabaseQuery, SeverityError, "SELECT failed on Usuario", "", errors.New("boom"))
		assert.Equal(t, "Error en el servidor", ClientMessage(err, LocaleSpanish))
	})

	t.Run("plain error", func(t *testing.T) {
		assert.Equal(t, "Error en el servidor", ClientMessage(errors.New("x"), LocaleSpanish))
	})
}
