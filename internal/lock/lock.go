// Package lock serialises booking writers that touch the same provider or customer.
package lock

import (
	"context"
	"errors"
	"sort"
	"strconv"
)

var ErrNotAcquired = errors.New("lock not acquired")

// Locker takes every key or none. The returned release func is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, keys ...string) (release func(), err error)
}

func ProviderKey(id int64) string { return "provider:" + strconv.FormatInt(id, 10) }
func CustomerKey(id int64) string { return "customer:" + strconv.FormatInt(id, 10) }

// normalize sorts and dedupes keys so that two writers sharing keys always lock in the
// same order.
func normalize(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok || k == "" {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
