// Package repository provides data persistence implementations for user entities.
package repository

import (
	"encoding/json"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	apperrors "github.com/allisson/identity/internal/errors"
)

// Roles are stored as a JSON array in a text column so both drivers share one format.
func encodeRoles(roles []string) (string, error) {
	if roles == nil {
		roles = []string{}
	}
	data, err := json.Marshal(roles)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to encode roles")
	}
	return string(data), nil
}

func decodeRoles(raw string) ([]string, error) {
	roles := []string{}
	if raw == "" {
		return roles, nil
	}
	if err := json.Unmarshal([]byte(raw), &roles); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode roles")
	}
	return roles, nil
}

// isPostgreSQLUniqueViolation reports a unique_violation (SQLSTATE 23505).
func isPostgreSQLUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// isMySQLUniqueViolation reports ER_DUP_ENTRY (1062).
func isMySQLUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1062
}
