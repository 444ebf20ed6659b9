package contextutils

import (
	"strings"
)

// Locale represents a language locale (e.g., "es", "en")
type Locale string

const (
	// LocaleSpanish is the default locale; the web client is Spanish-only
	LocaleSpanish Locale = "es"
	// LocaleEnglish represents English language
	LocaleEnglish Locale = "en"
)

// LocalizedMessages contains generic client-facing messages per error code and locale
type LocalizedMessages struct {
	messages map[ErrorCode]map[Locale]string
}

// NewLocalizedMessages creates a new instance of localized messages
func NewLocalizedMessages() *LocalizedMessages {
	return &LocalizedMessages{
		messages: make(map[ErrorCode]map[Locale]string),
	}
}

// AddMessage adds a localized message for a specific error code and locale
func (lm *LocalizedMessages) AddMessage(code ErrorCode, locale Locale, message string) {
	if lm.messages[code] == nil {
		lm.messages[code] = make(map[Locale]string)
	}
	lm.messages[code][locale] = message
}

// GetMessage returns the localized message for an error code and locale, falling back to Spanish
func (lm *LocalizedMessages) GetMessage(code ErrorCode, locale Locale) string {
	if localeMessages, exists := lm.messages[code]; exists {
		if message, exists := localeMessages[locale]; exists {
			return message
		}
		if message, exists := localeMessages[LocaleSpanish]; exists {
			return message
		}
	}
	return lm.messages[ErrorCodeInternalError][LocaleSpanish]
}

// ParseLocale picks the first supported locale out of an Accept-Language style value
func ParseLocale(localeStr string) Locale {
	for _, part := range strings.Split(localeStr, ",") {
		tag := strings.ToLower(strings.TrimSpace(strings.SplitN(part, ";", 2)[0]))
		switch {
		case strings.HasPrefix(tag, "es"):
			return LocaleSpanish
		case strings.HasPrefix(tag, "en"):
			return LocaleEnglish
		}
	}
	return LocaleSpanish
}

var globalMessages = defaultMessages()

func defaultMessages() *LocalizedMessages {
	lm := NewLocalizedMessages()

	add := func(code ErrorCode, es, en string) {
		lm.AddMessage(code, LocaleSpanish, es)
		lm.AddMessage(code, LocaleEnglish, en)
	}

	add(ErrorCodeInternalError, "Error en el servidor", "Server error")
	add(ErrorCodeDatabaseConnection, "Error en el servidor", "Server error")
	add(ErrorCodeDatabaseQuery, "Error en el servidor", "Server error")
	add(ErrorCodeDatabaseTransaction, "Error en el servidor", "Server error")
	add(ErrorCodeStorage, "Error al guardar los archivos de audio", "Could not store audio files")
	add(ErrorCodeServiceUnavailable, "Servicio no disponible", "Service unavailable")
	add(ErrorCodeTimeout, "Tiempo de espera agotado", "Request timed out")
	add(ErrorCodeRecordNotFound, "Recurso no encontrado", "Resource not found")
	add(ErrorCodeRecordExists, "El recurso ya existe", "Resource already exists")
	add(ErrorCodeForeignKeyViolation, "No se puede completar la operación porque existen datos relacionados", "The operation conflicts with related data")
	add(ErrorCodeInvalidInput, "Datos de entrada inválidos", "Invalid input")
	add(ErrorCodeMissingRequired, "Faltan campos obligatorios", "Missing required field")
	add(ErrorCodeInvalidFormat, "Formato inválido", "Invalid format")
	add(ErrorCodeValidationFailed, "Datos de entrada inválidos", "Validation failed")
	add(ErrorCodePayloadTooLarge, "El archivo es demasiado grande", "Payload too large")
	add(ErrorCodeUnauthorized, "Autenticación requerida", "Authentication required")
	add(ErrorCodeForbidden, "Operación no permitida", "Forbidden")
	add(ErrorCodeInvalidCredentials, "Credenciales incorrectas", "Invalid credentials")
	add(ErrorCodeConflict, "La operación entra en conflicto con el estado actual", "Operation conflicts with current state")

	return lm
}

// GetLocalizedMessage returns the generic message for an error code in the given locale
func GetLocalizedMessage(code ErrorCode, locale Locale) string {
	return globalMessages.GetMessage(code, locale)
}

// SetGlobalLocalizedMessages replaces the message catalog (used by tests)
func SetGlobalLocalizedMessages(messages *LocalizedMessages) {
	globalMessages = messages
}
