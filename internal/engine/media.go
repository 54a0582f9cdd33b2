package engine

import (
	"context"
	"errors"

	"reelcut/internal/clip"
	"reelcut/internal/compositor"
	"reelcut/internal/media"
)

// ImportMedia adds an asset to the library. Duplicates return the existing
// asset together with media.ErrDuplicate.
func (e *Engine) ImportMedia(a media.Asset) (media.Asset, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	added, err := e.lib.Add(a)
	if err != nil {
		return added, err
	}
	e.revision++
	e.logger.Info().Str("media", added.ID).Str("name", added.Name).Str("kind", string(added.Kind)).Msg("media imported")
	return added, nil
}

// ImportFiles probes local files in parallel and imports them in argument
// order. A file that cannot be probed aborts the import before anything is
// added. Duplicates are skipped and reported in the skipped count.
func (e *Engine) ImportFiles(in media.Ingester, paths []string) (added []media.Asset, skipped int, err error) {
	assets, err := in.ProbeAll(paths)
	if err != nil {
		return nil, 0, err
	}
	for _, asset := range assets {
		imported, err := e.ImportMedia(asset)
		if errors.Is(err, media.ErrDuplicate) {
			skipped++
			continue
		}
		if err != nil {
			return added, skipped, err
		}
		added = append(added, imported)
	}
	return added, skipped, nil
}

// Media lists library assets, optionally filtered by kind.
func (e *Engine) Media(kind clip.Kind) []media.Asset {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lib.List(kind)
}

// MediaAsset returns one library asset.
func (e *Engine) MediaAsset(id string) (media.Asset, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lib.Get(id)
}

// RemoveMedia deletes an asset and drops its cached rasters. Clips that
// reference it stay on the timeline and render as empty.
func (e *Engine) RemoveMedia(id string) (media.Asset, error) {
	e.mu.Lock()
	removed, err := e.lib.Remove(id)
	var dangling []string
	if err == nil {
		dangling = e.tl.ReferencingMedia(id)
		e.revision++
	}
	e.mu.Unlock()
	if err != nil {
		return media.Asset{}, err
	}

	e.comp.Invalidate(id)
	e.logger.Info().Str("media", id).Int("dangling_clips", len(dangling)).Msg("media removed")
	return removed, nil
}

// Preload decodes every image asset in the library and waits for the
// results. Failures are counted; they render as empty.
func (e *Engine) Preload(ctx context.Context) (loaded, failed int, err error) {
	assets := e.Media(clip.KindImage)
	sources := make([]compositor.Source, 0, len(assets))
	for _, a := range assets {
		sources = append(sources, compositor.Source{Key: a.ID, URI: a.SourceURI})
	}
	failed, err = e.comp.Rasters().Preload(ctx, sources)
	if err != nil {
		return 0, failed, err
	}
	loaded = len(sources) - failed
	e.logger.Debug().Int("loaded", loaded).Int("failed", failed).Msg("rasters preloaded")
	return loaded, failed, nil
}
