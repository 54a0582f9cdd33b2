package media

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/alitto/pond"
	"github.com/dhowden/tag"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"reelcut/internal/clip"
)

var extensionKinds = map[string]clip.Kind{
	".png":  clip.KindImage,
	".jpg":  clip.KindImage,
	".jpeg": clip.KindImage,
	".gif":  clip.KindImage,
	".webp": clip.KindImage,
	".bmp":  clip.KindImage,
	".mp4":  clip.KindVideo,
	".webm": clip.KindVideo,
	".mov":  clip.KindVideo,
	".mkv":  clip.KindVideo,
	".mp3":  clip.KindAudio,
	".m4a":  clip.KindAudio,
	".ogg":  clip.KindAudio,
	".flac": clip.KindAudio,
	".wav":  clip.KindAudio,
}

// DetectKind guesses the media kind of a path from its extension, falling
// back to the registered mime type.
func DetectKind(path string) (clip.Kind, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if kind, ok := extensionKinds[ext]; ok {
		return kind, true
	}
	mt := mime.TypeByExtension(ext)
	switch {
	case strings.HasPrefix(mt, "image/"):
		return clip.KindImage, true
	case strings.HasPrefix(mt, "video/"):
		return clip.KindVideo, true
	case strings.HasPrefix(mt, "audio/"):
		return clip.KindAudio, true
	}
	return "", false
}

// Ingester turns files on disk into library assets.
type Ingester struct {
	// Workers bounds concurrent probes in ProbeAll. Zero uses one per CPU.
	Workers int
	Logger  zerolog.Logger
}

// Probe inspects a file and returns an asset ready for Library.Add. Image
// dimensions and audio tags are best-effort; failures only log.
func (in Ingester) Probe(path string) (Asset, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Asset{}, fmt.Errorf("resolve media path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Asset{}, fmt.Errorf("stat media: %w", err)
	}
	if info.IsDir() {
		return Asset{}, fmt.Errorf("media path %s is a directory", abs)
	}
	kind, ok := DetectKind(abs)
	if !ok {
		return Asset{}, fmt.Errorf("unsupported media type: %s", filepath.Base(abs))
	}

	asset := Asset{
		Kind:      kind,
		Name:      filepath.Base(abs),
		SourceURI: abs,
	}

	switch kind {
	case clip.KindImage:
		w, h, err := imageSize(abs)
		if err != nil {
			in.Logger.Warn().Err(err).Str("path", abs).Msg("read image dimensions")
			break
		}
		asset.Width, asset.Height = w, h
	case clip.KindAudio:
		meta, err := audioTags(abs)
		if err != nil {
			in.Logger.Debug().Err(err).Str("path", abs).Msg("read audio tags")
			break
		}
		asset.Meta = meta
	}
	return asset, nil
}

// ProbeAll probes every path on a worker pool and returns the assets in
// input order, skipping failures. The returned error lists the files that
// could not be probed.
func (in Ingester) ProbeAll(paths []string) ([]Asset, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	workers := in.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pool := pond.New(min(workers, len(paths)), len(paths))
	defer pool.StopAndWait()

	results := make([]Asset, len(paths))
	errs := make([]error, len(paths))
	group := pool.Group()
	for i, p := range paths {
		i, p := i, p
		group.Submit(func() {
			results[i], errs[i] = in.Probe(p)
		})
	}
	group.Wait()

	var (
		assets []Asset
		failed []string
	)
	for i, p := range paths {
		if errs[i] != nil {
			in.Logger.Warn().Err(errs[i]).Str("path", p).Msg("skip media")
			failed = append(failed, filepath.Base(p))
			continue
		}
		assets = append(assets, results[i])
	}
	if len(failed) > 0 {
		return assets, fmt.Errorf("could not ingest %d file(s): %s", len(failed), strings.Join(failed, ", "))
	}
	return assets, nil
}

func imageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

func audioTags(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	md, err := tag.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("read tags: %w", err)
	}
	meta := map[string]string{}
	if v := strings.TrimSpace(md.Title()); v != "" {
		meta["title"] = v
	}
	if v := strings.TrimSpace(md.Artist()); v != "" {
		meta["artist"] = v
	}
	if v := strings.TrimSpace(md.Album()); v != "" {
		meta["album"] = v
	}
	if len(meta) == 0 {
		return nil, nil
	}
	return meta, nil
}
