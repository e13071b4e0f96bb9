// Package datastore provides error handling helpers for database operations
package datastore

import (
	stderrors "errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"github.com/tphakala/surveygen/internal/errors"
)

const mysqlDuplicateEntry = 1062

// dbError creates a properly categorized database error with context
func dbError(err error, operation string, context ...any) error {
	if isUniqueViolation(err) {
		return conflictError(err, operation, context...)
	}

	builder := errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation)

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// notFoundError creates a not-found error for a missing record
func notFoundError(resource string, key any) error {
	return errors.NotFoundError("datastore", resource, key)
}

// conflictError reports a unique constraint violation
func conflictError(err error, operation string, context ...any) error {
	builder := errors.New(fmt.Errorf("%s: duplicate record: %w", operation, err)).
		Component("datastore").
		Category(errors.CategoryConflict).
		Context("operation", operation)

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// validationError creates a validation error for a rejected field value
func validationError(message, field string, value any) error {
	return errors.Newf("%s", message).
		Component("datastore").
		Category(errors.CategoryValidation).
		Context("field", field).
		Context("value", fmt.Sprintf("%v", value)).
		Build()
}

// isUniqueViolation recognizes duplicate key errors of both supported drivers
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var sqliteErr sqlite3.Error
	if stderrors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	var mysqlErr *mysql.MySQLError
	if stderrors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}

	return false
}

// IsConflict reports whether err is a duplicate record error from the store
func IsConflict(err error) bool {
	return errors.IsCategory(err, errors.CategoryConflict)
}
