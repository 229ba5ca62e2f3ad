package websearch

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	pebble "github.com/cockroachdb/pebble"

	"github.com/PabloGalante/minidxo/internal/domain"
	"github.com/PabloGalante/minidxo/internal/observability"
)

const cachePrefix = "web:"

// CachedSearch keeps successful web answers in a pebble database for ttl.
// Failures and empty answers are never cached.
type CachedSearch struct {
	next domain.WebSearch
	db   *pebble.DB
	ttl  time.Duration
	now  func() time.Time
}

// NewCachedSearch opens (or creates) the cache at path.
func NewCachedSearch(next domain.WebSearch, path string, ttl time.Duration) (*CachedSearch, error) {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return nil, fmt.Errorf("create web cache dir: %w", err)
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open web cache: %w", err)
	}
	return &CachedSearch{next: next, db: db, ttl: ttl, now: time.Now}, nil
}

func (c *CachedSearch) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *CachedSearch) Search(ctx context.Context, query string) (string, error) {
	log := observability.LoggerFromContext(ctx)
	key := cacheKey(query)

	if text, ok := c.get(key); ok {
		log.Debug("web cache hit", "query", query)
		return text, nil
	}

	text, err := c.next.Search(ctx, query)
	if err != nil || strings.TrimSpace(text) == "" {
		return text, err
	}

	if err := c.put(key, text); err != nil {
		log.Warn("web cache write failed", "error", err)
	}
	return text, nil
}

func (c *CachedSearch) get(key []byte) (string, bool) {
	v, closer, err := c.db.Get(key)
	if err != nil {
		return "", false
	}
	defer closer.Close()

	if len(v) < 8 {
		return "", false
	}
	expires := time.Unix(0, int64(binary.BigEndian.Uint64(v[:8])))
	if c.ttl > 0 && c.now().After(expires) {
		return "", false
	}
	// copy value
	out := make([]byte, len(v)-8)
	copy(out, v[8:])
	return string(out), true
}

func (c *CachedSearch) put(key []byte, text string) error {
	buf := make([]byte, 8+len(text))
	binary.BigEndian.PutUint64(buf[:8], uint64(c.now().Add(c.ttl).UnixNano()))
	copy(buf[8:], text)
	return c.db.Set(key, buf, pebble.Sync)
}

func cacheKey(query string) []byte {
	return []byte(cachePrefix + strings.ToLower(strings.Join(strings.Fields(query), " ")))
}

// Purge drops expired entries.
func (c *CachedSearch) Purge() (int, error) {
	it, err := c.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(cachePrefix),
		UpperBound: []byte("web;"),
	})
	if err != nil {
		return 0, err
	}

	now := c.now()
	var stale [][]byte
	for ok := it.First(); ok; ok = it.Next() {
		v := it.Value()
		if len(v) < 8 || now.After(time.Unix(0, int64(binary.BigEndian.Uint64(v[:8])))) {
			k := make([]byte, len(it.Key()))
			copy(k, it.Key())
			stale = append(stale, k)
		}
	}
	if err := it.Close(); err != nil {
		return 0, err
	}

	var errs []error
	for _, k := range stale {
		if err := c.db.Delete(k, pebble.Sync); err != nil {
			errs = append(errs, err)
		}
	}
	return len(stale) - len(errs), errors.Join(errs...)
}
