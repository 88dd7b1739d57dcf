package misc

import (
	"strconv"
	"strings"
)

// Unknown marks a field that was absent or could not be decoded
const Unknown = "?"

// Field trims whitespace and surrounding quotes from a comma separated modem field
func Field(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"`)
}

// FieldAt returns the trimmed field at index i or Unknown if the record is too short
func FieldAt(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return Unknown
	}

	f := Field(fields[i])
	if f == "" {
		return Unknown
	}
	return f
}

// Atoi is the strict variant of ParseInt that reports whether the value was numeric
func Atoi(inStr string) (int, bool) {
	v, err := strconv.Atoi(Field(inStr))
	return v, err == nil
}
