package statemachine

import "strconv"

// formatKey renders an integer key as the decimal string required by the
// wire format (JSON forbids non-string object keys).
func formatKey(key int64) string {
	return strconv.FormatInt(key, 10)
}

// parseKey is the inverse of formatKey.
func parseKey(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
