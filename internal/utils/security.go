package contextutils

import (
	"strings"

	"github.com/go-sql-driver/mysql"
)

// MaskDatabaseURL hides the password of a MySQL DSN (user:pass@tcp(host:port)/db) for display
func MaskDatabaseURL(dsn string) string {
	if dsn == "" {
		return "[EMPTY]"
	}

	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		// Not a parsable DSN, fall back to hiding everything before the host part
		if idx := strings.LastIndex(dsn, "@"); idx != -1 {
			return "***:***" + dsn[idx:]
		}
		return dsn
	}

	if cfg.Passwd != "" {
		cfg.Passwd = strings.Repeat("*", 3)
	}
	return cfg.FormatDSN()
}

// MaskEmail keeps the first character and the domain of an address for logging
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return strings.Repeat("*", len(email))
	}
	return email[:1] + strings.Repeat("*", at-1) + email[at:]
}
