// Package resultcache keeps serialized analysis results between requests.
package resultcache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"
)

const keyPrefix = "seo:result:"

// Cache stores serialized results by key. Implementations are safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte)
	Stats() Stats
	Close() error
}

// Stats reports cache effectiveness.
type Stats struct {
	Backend string `json:"backend"`
	Entries int    `json:"entries"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
}

// Key builds the cache key of an analysis of normalizedURL for keyword. Keywords differing only in
// case or spacing share a key.
func Key(normalizedURL, keyword string) string {
	keyword = strings.ToLower(strings.Join(strings.Fields(keyword), " "))
	hash := md5.Sum([]byte(normalizedURL + "\x00" + keyword))
	return keyPrefix + hex.EncodeToString(hash[:])
}
