// Package sqldb implements the core repository interfaces over sqlx.
// Queries are written with `?` placeholders and rebound per driver, so
// the same repositories serve postgres and mysql.
package sqldb

import (
	"encoding/json"
	"fmt"
	"strings"
)

// isDuplicate detects unique-constraint violations without driver
// imports. Postgres says "duplicate key", mysql says "Duplicate entry".
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "Duplicate entry")
}

// encodeJSON serializes a value into a TEXT column.
func encodeJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode column: %w", err)
	}
	return string(raw), nil
}

// decodeJSON deserializes a TEXT column. Empty columns decode to the
// zero value.
func decodeJSON(raw string, v any) error {
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to decode column: %w", err)
	}
	return nil
}
