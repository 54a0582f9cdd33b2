package compositor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/nfnt/resize"
	"github.com/rs/zerolog"

	"reelcut/internal/clip"
)

// BaselineWidth is the surface width at which text sizes apply unscaled.
const BaselineWidth = 1920

// MediaResolver reports whether a media id still exists. Clips pointing at
// removed media render as empty.
type MediaResolver interface {
	Has(id string) bool
}

// Options tunes a single Render call.
type Options struct {
	// Wait blocks on raster decodes instead of skipping loading clips.
	Wait bool
	// TextScale multiplies font sizes. Zero derives it from the surface
	// width relative to BaselineWidth.
	TextScale float64
	Media     MediaResolver
}

// Stats summarises a rendered frame.
type Stats struct {
	Painted  int `json:"painted"`
	Loading  int `json:"loading"`
	Failed   int `json:"failed"`
	Dangling int `json:"dangling"`
}

// Compositor paints timeline clips onto a raster surface.
type Compositor struct {
	rasters *RasterCache
	fonts   *FontSet
	layers  *lru.Cache[string, *image.RGBA]
	logger  zerolog.Logger

	mu     sync.Mutex
	warned map[string]bool
}

// New builds a compositor over a raster cache.
func New(rasters *RasterCache, logger zerolog.Logger) (*Compositor, error) {
	layers, err := lru.New[string, *image.RGBA](32)
	if err != nil {
		return nil, fmt.Errorf("create layer cache: %w", err)
	}
	return &Compositor{
		rasters: rasters,
		fonts:   NewFontSet(),
		layers:  layers,
		logger:  logger,
		warned:  make(map[string]bool),
	}, nil
}

// Rasters exposes the raster cache for preloading and invalidation.
func (c *Compositor) Rasters() *RasterCache { return c.rasters }

// Invalidate drops every cached raster and layer for a media key.
func (c *Compositor) Invalidate(key string) {
	c.rasters.Invalidate(key)
	for _, k := range c.layers.Keys() {
		if layerOwner(k) == key {
			c.layers.Remove(k)
		}
	}
	c.mu.Lock()
	delete(c.warned, key)
	c.mu.Unlock()
}

// Render clears dst to black and paints clips in the given order. Per-clip
// failures are logged and skipped; the rest of the frame still paints.
func (c *Compositor) Render(ctx context.Context, dst *image.RGBA, clips []clip.Clip, opts Options) Stats {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	scale := opts.TextScale
	if scale <= 0 {
		scale = float64(dst.Bounds().Dx()) / BaselineWidth
	}

	var stats Stats
	for _, cl := range clips {
		if ctx.Err() != nil {
			return stats
		}
		switch cl.Kind {
		case clip.KindImage, clip.KindVideo:
			if cl.MediaID != "" && opts.Media != nil && !opts.Media.Has(cl.MediaID) {
				stats.Dangling++
				continue
			}
			state, err := c.paintRaster(ctx, dst, cl, opts.Wait)
			switch state {
			case RasterReady:
				stats.Painted++
			case RasterLoading:
				stats.Loading++
			case RasterFailed:
				stats.Failed++
				c.warnOnce(cl.RasterKey(), err)
			}
		case clip.KindText:
			if cl.Text == nil {
				continue
			}
			if err := c.fonts.DrawText(dst, *cl.Text, scale); err != nil {
				stats.Failed++
				c.warnOnce("text:"+cl.ID, err)
				continue
			}
			stats.Painted++
		}
	}
	return stats
}

func (c *Compositor) paintRaster(ctx context.Context, dst *image.RGBA, cl clip.Clip, wait bool) (RasterState, error) {
	if cl.SourceURI == "" {
		return RasterFailed, &DecodeError{URI: cl.Name, Err: errors.New("clip has no source")}
	}
	src, state, err := c.rasters.Get(ctx, cl.RasterKey(), cl.SourceURI, wait)
	if state != RasterReady {
		return state, err
	}

	bounds := dst.Bounds()
	chain := BuildFilterChain(cl.Effects)
	key := layerKey(cl.RasterKey(), bounds.Dx(), bounds.Dy(), chain)
	layer, ok := c.layers.Get(key)
	if !ok {
		layer = CoverFit(src, bounds.Dx(), bounds.Dy())
		chain.Apply(layer)
		c.layers.Add(key, layer)
	}
	draw.Draw(dst, bounds, layer, image.Point{}, draw.Over)
	return RasterReady, nil
}

func (c *Compositor) warnOnce(key string, err error) {
	c.mu.Lock()
	seen := c.warned[key]
	c.warned[key] = true
	c.mu.Unlock()
	if !seen {
		c.logger.Warn().Err(err).Str("key", key).Msg("clip rendered as empty")
	}
}

// Close stops background decoding and releases fonts.
func (c *Compositor) Close() {
	c.rasters.Close()
	c.fonts.Close()
}

// CoverFit scales src to fill a w×h surface preserving aspect ratio,
// centred, cropping the overflow.
func CoverFit(src image.Image, w, h int) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	sb := src.Bounds()
	if sb.Empty() || w <= 0 || h <= 0 {
		return out
	}
	scale := math.Max(float64(w)/float64(sb.Dx()), float64(h)/float64(sb.Dy()))
	sw := int(math.Ceil(float64(sb.Dx()) * scale))
	sh := int(math.Ceil(float64(sb.Dy()) * scale))
	scaled := resize.Resize(uint(sw), uint(sh), src, resize.Bilinear)

	x := (w - sw) / 2
	y := (h - sh) / 2
	draw.Draw(out, out.Bounds(), scaled, scaled.Bounds().Min.Sub(image.Pt(x, y)), draw.Src)
	return out
}

func layerKey(owner string, w, h int, chain Chain) string {
	return fmt.Sprintf("%s\x00%dx%d\x00%s", owner, w, h, chain.String())
}

func layerOwner(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == 0 {
			return key[:i]
		}
	}
	return key
}
