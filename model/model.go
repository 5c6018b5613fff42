package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrRecordNotFound = errors.New("email not found in subscription table")
	ErrTeamNotFound   = errors.New("team not found in admin table")
	ErrNoCredentials  = errors.New("no usable team credentials in admin table")
	ErrNoReplacement  = errors.New("no replacement team found")
)

// GenerateUUIDWithSuffix generates a UUID with a given module name as a suffix.
// This is useful for creating unique identifiers with context-specific prefixes.
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New() // Generate a new UUID.
	uuidStr := id.String()
	idWithSuffix := fmt.Sprintf("%s_%s", module, uuidStr) // Append the module as a suffix to the UUID.
	return idWithSuffix
}

// Cell returns the trimmed value at index i of a sheet row. Sheets omits trailing empty
// cells, so short rows are common and read as blank.
func Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// SameText reports whether two sheet values match case-insensitively. Blank never matches.
func SameText(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}
