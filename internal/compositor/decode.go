package compositor

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"reelcut/internal/runner"
)

// ErrVideoUnsupported is wrapped by DecodeError when a video source is
// referenced and no frame extractor is configured.
var ErrVideoUnsupported = errors.New("video frames unavailable")

// DecodeError reports an asset that failed to rasterize.
type DecodeError struct {
	URI string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", displayURI(e.URI), e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decoder turns a source URI into a raster.
type Decoder interface {
	Decode(ctx context.Context, uri string) (image.Image, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(ctx context.Context, uri string) (image.Image, error)

func (f DecoderFunc) Decode(ctx context.Context, uri string) (image.Image, error) {
	return f(ctx, uri)
}

// URIDecoder reads images from local paths, file://, data: and http(s)
// URIs. Video sources are handed to Video when set.
type URIDecoder struct {
	Client *http.Client
	Video  Decoder
}

var videoExtensions = map[string]bool{".mp4": true, ".webm": true, ".mov": true, ".mkv": true}

func (d URIDecoder) Decode(ctx context.Context, uri string) (image.Image, error) {
	if isVideoURI(uri) {
		if d.Video == nil {
			return nil, &DecodeError{URI: uri, Err: ErrVideoUnsupported}
		}
		img, err := d.Video.Decode(ctx, uri)
		if err != nil {
			return nil, wrapDecode(uri, err)
		}
		return img, nil
	}

	rc, err := d.open(ctx, uri)
	if err != nil {
		return nil, wrapDecode(uri, err)
	}
	defer rc.Close()

	img, _, err := image.Decode(rc)
	if err != nil {
		return nil, wrapDecode(uri, err)
	}
	return img, nil
}

func (d URIDecoder) open(ctx context.Context, uri string) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(uri, "data:"):
		data, err := decodeDataURI(uri)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		client := d.Client
		if client == nil {
			client = http.DefaultClient
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status %s", resp.Status)
		}
		return resp.Body, nil
	default:
		return os.Open(localPath(uri))
	}
}

// FFmpegFrameDecoder extracts the first frame of a video with ffmpeg.
type FFmpegFrameDecoder struct {
	Runner runner.Runner
	FFmpeg string
}

func (d FFmpegFrameDecoder) Decode(ctx context.Context, uri string) (image.Image, error) {
	bin := d.FFmpeg
	if bin == "" {
		bin = "ffmpeg"
	}
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", localPath(uri),
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	}
	res, err := d.Runner.Run(ctx, bin, args, runner.Options{})
	if err != nil {
		msg := strings.TrimSpace(string(res.Stderr))
		if msg != "" {
			return nil, fmt.Errorf("extract frame: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("extract frame: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(res.Stdout))
	if err != nil {
		return nil, fmt.Errorf("decode extracted frame: %w", err)
	}
	return img, nil
}

func decodeDataURI(uri string) ([]byte, error) {
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, errors.New("malformed data URI")
	}
	header, payload := uri[len("data:"):comma], uri[comma+1:]
	if strings.HasSuffix(header, ";base64") {
		return base64.StdEncoding.DecodeString(payload)
	}
	unescaped, err := url.PathUnescape(payload)
	if err != nil {
		return nil, err
	}
	return []byte(unescaped), nil
}

func isVideoURI(uri string) bool {
	if strings.HasPrefix(uri, "data:video/") {
		return true
	}
	if strings.HasPrefix(uri, "data:") {
		return false
	}
	p := uri
	if u, err := url.Parse(uri); err == nil && u.Scheme != "" {
		p = u.Path
	}
	return videoExtensions[strings.ToLower(filepath.Ext(p))]
}

func localPath(uri string) string {
	if strings.HasPrefix(uri, "file://") {
		if u, err := url.Parse(uri); err == nil {
			return u.Path
		}
		return strings.TrimPrefix(uri, "file://")
	}
	return uri
}

func wrapDecode(uri string, err error) error {
	var de *DecodeError
	if errors.As(err, &de) {
		return err
	}
	return &DecodeError{URI: uri, Err: err}
}

func displayURI(uri string) string {
	if strings.HasPrefix(uri, "data:") && len(uri) > 32 {
		return uri[:32] + "..."
	}
	return uri
}
