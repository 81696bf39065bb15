package handler

import (
	"context"
	"sort"

	"github.com/gonsw/gonsw/internal/api/middleware"
)

// GetDeviceID retrieves the authenticated device ID from the context.
// This is a convenience wrapper around middleware.GetDeviceID.
func GetDeviceID(ctx context.Context) string {
	return middleware.GetDeviceID(ctx)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
