package util

import (
	"strconv"
	"strings"
)

// ParseInt parses a string to an integer, returning defaultValue if parsing fails
func ParseInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(s); err == nil {
		return val
	}
	return defaultValue
}

// ParseInt64 parses a string to an int64, returning defaultValue if parsing fails
func ParseInt64(s string, defaultValue int64) int64 {
	if val, err := strconv.ParseInt(s, 10, 64); err == nil {
		return val
	}
	return defaultValue
}

// ParsePagination reads limit/offset query values with bounds applied.
// limit defaults to defLimit and is capped at maxLimit; offset floors at 0.
func ParsePagination(limitStr, offsetStr string, defLimit, maxLimit int) (limit, offset int) {
	limit = ParseInt(limitStr, defLimit)
	if limit <= 0 {
		limit = defLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset = ParseInt(offsetStr, 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ParseTagList parses a comma-separated tag string into a cleaned slice
func ParseTagList(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.ToLower(p))
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
