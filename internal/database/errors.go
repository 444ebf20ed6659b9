package database

import (
	"database/sql"
	"errors"

	contextutils "auscultify/internal/utils"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers the services react to
const (
	ErrNumDuplicateEntry     uint16 = 1062
	ErrNumDataTooLong        uint16 = 1406
	ErrNumRowIsReferenced    uint16 = 1451
	ErrNumNoReferencedRow    uint16 = 1452
	ErrNumRowIsReferencedOld uint16 = 1217
	ErrNumNoReferencedRowOld uint16 = 1216
)

// ClassifyError turns a driver error into an AppError with a code the HTTP layer can map.
// AppErrors pass through untouched; sql.ErrNoRows becomes RecordNotFound.
func ClassifyError(err error, context string) error {
	if err == nil {
		return nil
	}

	var appErr *contextutils.AppError
	if errors.As(err, &appErr) {
		return err
	}

	if errors.Is(err, sql.ErrNoRows) {
		return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeRecordNotFound, contextutils.SeverityInfo, context, err.Error(), err)
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case ErrNumDuplicateEntry:
			return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeRecordExists, contextutils.SeverityInfo, context, myErr.Message, err)
		case ErrNumDataTooLong:
			return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeInvalidInput, contextutils.SeverityWarn, context, myErr.Message, err)
		case ErrNumRowIsReferenced, ErrNumNoReferencedRow, ErrNumRowIsReferencedOld, ErrNumNoReferencedRowOld:
			return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeForeignKeyViolation, contextutils.SeverityWarn, context, myErr.Message, err)
		}
	}

	return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeDatabaseQuery, contextutils.SeverityError, context, err.Error(), err)
}

// IsDuplicate reports whether err is a MySQL duplicate-key error
func IsDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == ErrNumDuplicateEntry
}
