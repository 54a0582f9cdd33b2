package media

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// settleDelay gives writers a moment to finish before a new file is probed.
const settleDelay = 100 * time.Millisecond

// Watch ingests files created in dir until ctx is cancelled. Each probed
// asset is passed to onAsset; unsupported files are ignored.
func Watch(ctx context.Context, dir string, in Ingester, onAsset func(Asset), logger zerolog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch media dir: %w", err)
	}
	logger.Info().Str("dir", dir).Msg("watching for new media")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if _, known := DetectKind(event.Name); !known {
				continue
			}
			time.Sleep(settleDelay)
			if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
				continue
			}
			asset, err := in.Probe(event.Name)
			if err != nil {
				logger.Warn().Err(err).Str("path", event.Name).Msg("probe new media")
				continue
			}
			onAsset(asset)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("media watcher error")
		}
	}
}
