package dialect

import (
	"strings"
)

// Placeholders builds a comma-separated placeholder list using the
// dialect's placeholder function, offset by start for dialects with
// positional parameters ($1, @p1, :1).
func Placeholders(count, start int, placeholderFunc func(int) string) string {
	out := make([]string, count)
	for i := 0; i < count; i++ {
		out[i] = placeholderFunc(start + i)
	}
	return strings.Join(out, ", ")
}

// DefaultGetSchemaName is the identity fallback for dialects without a
// conventional default schema.
func DefaultGetSchemaName(input string) string {
	return input
}

// parseEnumValues extracts labels from a MySQL-style column type such as
// enum('a','b','c') or set('x','y'). Returns nil when the type carries none.
func parseEnumValues(columnType string) []string {
	lower := strings.ToLower(columnType)
	if !strings.HasPrefix(lower, "enum(") && !strings.HasPrefix(lower, "set(") {
		return nil
	}
	open := strings.Index(columnType, "(")
	close := strings.LastIndex(columnType, ")")
	if open < 0 || close <= open {
		return nil
	}
	var values []string
	for _, part := range strings.Split(columnType[open+1:close], ",") {
		part = strings.TrimSpace(part)
		part = strings.Trim(part, "'")
		part = strings.ReplaceAll(part, "''", "'")
		values = append(values, part)
	}
	return values
}

// quoteWith wraps an identifier in the given quote runes, doubling any
// embedded closing quote. Identifiers come from catalog discovery, but we
// still never splice them into statements unquoted.
func quoteWith(ident string, open, closeQ string) string {
	return open + strings.ReplaceAll(ident, closeQ, closeQ+closeQ) + closeQ
}
