package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dennisdiepolder/activations/backend/internal/metrics"
	"github.com/dennisdiepolder/activations/backend/internal/types"
	"github.com/dennisdiepolder/activations/backend/internal/upstream"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTTL is how long an upstream payload is served from cache
	DefaultTTL = 5 * time.Minute

	// DefaultFetchTimeout bounds a shared upstream fetch once its callers are gone
	DefaultFetchTimeout = 30 * time.Second

	sheetListKey   = "sheetList"
	sheetDataKeyFn = "sheetData_%s"
)

// CachedSource is an upstream.Source that serves recent payloads from a Store
type CachedSource struct {
	source       upstream.Source
	store        Store
	ttl          time.Duration
	fetchTimeout time.Duration
	now          Clock
	group        singleflight.Group
	logger       zerolog.Logger

	// epoch advances on every Invalidate; fetches started in an older epoch are not stored
	epoch atomic.Uint64
	mu    sync.RWMutex
}

// Option configures a CachedSource
type Option func(*CachedSource)

// WithClock replaces the wall clock used for expiry
func WithClock(clock Clock) Option {
	return func(c *CachedSource) { c.now = clock }
}

// WithFetchTimeout bounds each shared upstream fetch
func WithFetchTimeout(d time.Duration) Option {
	return func(c *CachedSource) { c.fetchTimeout = d }
}

// WithStore replaces the default in-memory store
func WithStore(store Store) Option {
	return func(c *CachedSource) { c.store = store }
}

// NewCachedSource wraps source with a read cache of the given TTL
func NewCachedSource(source upstream.Source, ttl time.Duration, logger zerolog.Logger, opts ...Option) *CachedSource {
	c := &CachedSource{
		source:       source,
		store:        NewMemoryStore(),
		ttl:          ttl,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
		logger:       logger.With().Str("component", "read_cache").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListSources returns the sheet list, cached under "sheetList"
func (c *CachedSource) ListSources(ctx context.Context) ([]types.SheetDescriptor, error) {
	var sheets []types.SheetDescriptor
	err := c.load(ctx, sheetListKey, &sheets, func(ctx context.Context) (any, error) {
		return c.source.ListSources(ctx)
	})
	if err != nil {
		return nil, err
	}
	return sheets, nil
}

// FetchRows returns a sheet's rows, cached under "sheetData_<name>"
func (c *CachedSource) FetchRows(ctx context.Context, sheetName string) ([]types.RawRow, error) {
	var rows []types.RawRow
	err := c.load(ctx, fmt.Sprintf(sheetDataKeyFn, sheetName), &rows, func(ctx context.Context) (any, error) {
		return c.source.FetchRows(ctx, sheetName)
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Invalidate drops every cached payload. Fetches still in flight are not stored.
func (c *CachedSource) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch.Add(1)
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear read cache: %w", err)
	}
	c.logger.Info().Msg("read cache invalidated")
	return nil
}

func (c *CachedSource) load(ctx context.Context, key string, out any, fetch func(context.Context) (any, error)) error {
	m := metrics.Get()

	if payload, ok := c.lookup(ctx, key); ok {
		if err := json.Unmarshal(payload, out); err == nil {
			m.RecordCacheLookup(true)
			return nil
		}
		c.logger.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	}
	m.RecordCacheLookup(false)

	// one flight per key and epoch, detached from the caller that started it
	epoch := c.epoch.Load()
	ch := c.group.DoChan(fmt.Sprintf("%s@%d", key, epoch), func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		data, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		payload, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode cache entry %s: %w", key, err)
		}
		c.put(fctx, key, epoch, payload)
		return payload, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return ctx.Err()
	}
	if res.Err != nil {
		return res.Err
	}

	if res.Shared {
		c.logger.Debug().Str("key", key).Msg("joined in-flight upstream fetch")
	}
	return json.Unmarshal(res.Val.([]byte), out)
}

// put stores payload unless the cache was invalidated since epoch
func (c *CachedSource) put(ctx context.Context, key string, epoch uint64, payload []byte) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.epoch.Load() != epoch {
		c.logger.Debug().Str("key", key).Msg("cache invalidated during fetch, entry not stored")
		return
	}
	if err := c.store.Put(ctx, key, Entry{Payload: payload, StoredAt: c.now()}); err != nil {
		// best effort
		c.logger.Warn().Err(err).Str("key", key).Msg("failed to store cache entry")
	}
}

func (c *CachedSource) lookup(ctx context.Context, key string) ([]byte, bool) {
	entry, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache lookup failed")
		return nil, false
	}
	if !ok || c.now().Sub(entry.StoredAt) >= c.ttl {
		return nil, false
	}
	return entry.Payload, true
}
