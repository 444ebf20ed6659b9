package services

import (
	"database/sql"
	"time"

	contextutils "auscultify/internal/utils"
)

// NextStreak applies the daily streak rules for a session answered on day.
// The caller always stores day as the new last answer date, back-dated sessions included.
func NextStreak(current int, last sql.NullTime, day time.Time, anyCorrect bool) int {
	restart := 0
	if anyCorrect {
		restart = 1
	}
	if !last.Valid {
		return restart
	}

	switch gap := contextutils.DaysBetween(last.Time, day); {
	case gap <= 0:
		return current
	case gap == 1:
		if anyCorrect {
			return current + 1
		}
		return 0
	default:
		return restart
	}
}
