package router

import (
	"strconv"
	"strings"
)

// LimitOrDefault returns a sanitized page size. Invalid or non-positive values
// fall back to def, values above maxLimit are capped.
func LimitOrDefault(raw string, def int, maxLimit int) int {
	if def <= 0 {
		def = 50
	}
	if maxLimit <= 0 {
		maxLimit = 500
	}
	val, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || val <= 0 {
		return def
	}
	if val > maxLimit {
		return maxLimit
	}
	return val
}
