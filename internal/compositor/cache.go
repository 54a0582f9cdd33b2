package compositor

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/alitto/pond"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

// RasterState describes a cache lookup outcome.
type RasterState int

const (
	RasterReady RasterState = iota
	RasterLoading
	RasterFailed
)

func (s RasterState) String() string {
	switch s {
	case RasterReady:
		return "ready"
	case RasterLoading:
		return "loading"
	default:
		return "failed"
	}
}

type rasterEntry struct {
	uri  string
	done chan struct{}
	img  image.Image
	err  error
}

func (e *rasterEntry) ready() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// RasterCache decodes sources on a bounded worker pool and keeps the
// results in an LRU keyed by media id.
type RasterCache struct {
	decoder Decoder
	pool    *pond.WorkerPool
	entries *lru.Cache[string, *rasterEntry]
	logger  zerolog.Logger

	mu sync.Mutex
}

// NewRasterCache creates a cache holding up to size rasters, decoded by at
// most workers goroutines.
func NewRasterCache(decoder Decoder, size, workers int, logger zerolog.Logger) (*RasterCache, error) {
	if size <= 0 {
		size = 64
	}
	if workers <= 0 {
		workers = 4
	}
	entries, err := lru.New[string, *rasterEntry](size)
	if err != nil {
		return nil, fmt.Errorf("create raster cache: %w", err)
	}
	return &RasterCache{
		decoder: decoder,
		pool:    pond.New(workers, size*4),
		entries: entries,
		logger:  logger,
	}, nil
}

// Get returns the raster for key. Without wait a miss starts a background
// decode and reports RasterLoading. With wait the call blocks until the
// decode finishes or ctx is done.
func (c *RasterCache) Get(ctx context.Context, key, uri string, wait bool) (image.Image, RasterState, error) {
	entry := c.lookup(key, uri)
	if wait {
		select {
		case <-entry.done:
		case <-ctx.Done():
			return nil, RasterLoading, ctx.Err()
		}
	} else if !entry.ready() {
		return nil, RasterLoading, nil
	}
	if entry.err != nil {
		return nil, RasterFailed, entry.err
	}
	return entry.img, RasterReady, nil
}

func (c *RasterCache) lookup(key, uri string) *rasterEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries.Get(key); ok && entry.uri == uri {
		return entry
	}
	entry := &rasterEntry{uri: uri, done: make(chan struct{})}
	c.entries.Add(key, entry)
	c.pool.Submit(func() {
		defer close(entry.done)
		img, err := c.decoder.Decode(context.Background(), uri)
		if err != nil {
			entry.err = wrapDecode(uri, err)
			c.logger.Warn().Err(err).Str("key", key).Msg("decode raster")
			return
		}
		entry.img = img
		c.logger.Debug().Str("key", key).Msg("raster decoded")
	})
	return entry
}

// Source names a raster to preload.
type Source struct {
	Key string
	URI string
}

// Preload decodes every source and waits for all of them. Failures are
// counted, not returned, since a failed raster renders as empty.
func (c *RasterCache) Preload(ctx context.Context, sources []Source) (failed int, err error) {
	for _, src := range sources {
		c.lookup(src.Key, src.URI)
	}
	for _, src := range sources {
		if _, state, err := c.Get(ctx, src.Key, src.URI, true); err != nil {
			if state == RasterLoading {
				return failed, err
			}
			failed++
		}
	}
	return failed, nil
}

// Invalidate drops a cached raster, used when media is removed.
func (c *RasterCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Remove(key)
}

// Len returns the number of cached entries, including in-flight decodes.
func (c *RasterCache) Len() int {
	return c.entries.Len()
}

// Close waits for in-flight decodes and stops the worker pool.
func (c *RasterCache) Close() {
	c.pool.StopAndWait()
}
