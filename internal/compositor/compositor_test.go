package compositor

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"reelcut/internal/clip"
)

type solidDecoder struct {
	calls atomic.Int32
	fail  map[string]bool
	gate  chan struct{}
}

func (d *solidDecoder) Decode(ctx context.Context, uri string) (image.Image, error) {
	d.calls.Add(1)
	if d.gate != nil {
		<-d.gate
	}
	if d.fail[uri] {
		return nil, errors.New("corrupt file")
	}
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 200, 100, 50, 255
	}
	return img, nil
}

type mediaSet map[string]bool

func (m mediaSet) Has(id string) bool { return m[id] }

func newTestCompositor(t *testing.T, dec Decoder) *Compositor {
	t.Helper()
	cache, err := NewRasterCache(dec, 8, 2, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRasterCache: %v", err)
	}
	comp, err := New(cache, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(comp.Close)
	return comp
}

func imageClip(id, mediaID, uri string) clip.Clip {
	return clip.Clip{ID: id, Kind: clip.KindImage, Track: clip.TrackVideo, MediaID: mediaID, SourceURI: uri, Duration: 5}
}

func TestBuildFilterChain(t *testing.T) {
	tests := []struct {
		name    string
		effects clip.Effects
		want    string
	}{
		{name: "neutral", effects: clip.Effects{}, want: "none"},
		{name: "all", effects: clip.Effects{Brightness: 20, Contrast: -10, Saturation: 50, Blur: 4}, want: "brightness(1.2) contrast(0.9) saturate(1.5) blur(4px)"},
		{name: "zero omitted", effects: clip.Effects{Saturation: -100}, want: "saturate(0)"},
		{name: "clamped", effects: clip.Effects{Brightness: 400}, want: "brightness(2)"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildFilterChain(tt.effects).String(); got != tt.want {
				t.Fatalf("chain = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFilterPixelMath(t *testing.T) {
	px := func() *image.RGBA {
		img := image.NewRGBA(image.Rect(0, 0, 1, 1))
		img.Pix[0], img.Pix[1], img.Pix[2], img.Pix[3] = 100, 150, 200, 255
		return img
	}

	img := px()
	BuildFilterChain(clip.Effects{Brightness: 50}).Apply(img)
	if img.Pix[0] != 150 || img.Pix[1] != 225 || img.Pix[2] != 255 {
		t.Fatalf("brightness result %v", img.Pix[:3])
	}

	img = px()
	BuildFilterChain(clip.Effects{Saturation: -100}).Apply(img)
	if img.Pix[0] != img.Pix[1] || img.Pix[1] != img.Pix[2] {
		t.Fatalf("full desaturation should be grey, got %v", img.Pix[:3])
	}

	img = px()
	BuildFilterChain(clip.Effects{}).Apply(img)
	if img.Pix[0] != 100 || img.Pix[1] != 150 || img.Pix[2] != 200 {
		t.Fatalf("neutral chain changed pixels: %v", img.Pix[:3])
	}
}

func TestGaussianBlurKeepsUniformImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	gaussianBlur(img, 3)
	for i, v := range img.Pix {
		if v != 128 {
			t.Fatalf("pixel %d changed to %d", i, v)
		}
	}
}

func TestCoverFit(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i+3] = 255
		src.Pix[i] = 255
	}
	out := CoverFit(src, 30, 30)
	if out.Bounds().Dx() != 30 || out.Bounds().Dy() != 30 {
		t.Fatalf("bounds = %v", out.Bounds())
	}
	for _, pt := range []image.Point{{0, 0}, {29, 29}, {15, 15}} {
		if c := out.RGBAAt(pt.X, pt.Y); c.A != 255 || c.R == 0 {
			t.Fatalf("pixel %v not covered: %+v", pt, c)
		}
	}
}

func TestRenderWaitPaintsImage(t *testing.T) {
	comp := newTestCompositor(t, &solidDecoder{})
	dst := image.NewRGBA(image.Rect(0, 0, 64, 36))

	stats := comp.Render(context.Background(), dst, []clip.Clip{imageClip("a", "m1", "/a.png")}, Options{Wait: true})
	if stats.Painted != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if c := dst.RGBAAt(32, 18); c.R != 200 || c.G != 100 {
		t.Fatalf("center pixel = %+v", c)
	}
}

func TestRenderSkipsLoadingClip(t *testing.T) {
	dec := &solidDecoder{gate: make(chan struct{})}
	comp := newTestCompositor(t, dec)
	dst := image.NewRGBA(image.Rect(0, 0, 16, 16))
	clips := []clip.Clip{imageClip("a", "m1", "/a.png")}

	stats := comp.Render(context.Background(), dst, clips, Options{})
	if stats.Loading != 1 || stats.Painted != 0 {
		t.Fatalf("first frame stats = %+v", stats)
	}
	if c := dst.RGBAAt(8, 8); c != (color.RGBA{A: 255}) {
		t.Fatalf("loading frame should be black, got %+v", c)
	}

	close(dec.gate)
	deadline := time.Now().Add(2 * time.Second)
	for {
		stats = comp.Render(context.Background(), dst, clips, Options{})
		if stats.Painted == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("raster never became ready: %+v", stats)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if n := dec.calls.Load(); n != 1 {
		t.Fatalf("decoder called %d times, want 1", n)
	}
}

func TestRenderIsolatesFailures(t *testing.T) {
	dec := &solidDecoder{fail: map[string]bool{"/bad.png": true}}
	comp := newTestCompositor(t, dec)
	dst := image.NewRGBA(image.Rect(0, 0, 32, 18))

	clips := []clip.Clip{
		imageClip("good", "m1", "/good.png"),
		imageClip("bad", "m2", "/bad.png"),
		imageClip("gone", "m3", "/gone.png"),
		{ID: "song", Kind: clip.KindAudio, Track: clip.TrackAudio, SourceURI: "/a.mp3", Duration: 5},
	}
	stats := comp.Render(context.Background(), dst, clips, Options{Wait: true, Media: mediaSet{"m1": true, "m2": true}})
	if stats.Painted != 1 || stats.Failed != 1 || stats.Dangling != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	var de *DecodeError
	_, _, err := comp.Rasters().Get(context.Background(), "m2", "/bad.png", true)
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestRenderText(t *testing.T) {
	comp := newTestCompositor(t, &solidDecoder{})
	dst := image.NewRGBA(image.Rect(0, 0, 320, 180))
	text := clip.Clip{
		ID: "t", Kind: clip.KindText, Track: clip.TrackText, Duration: 5,
		Text: &clip.TextStyle{Text: "Hello", FontSize: 72, Color: "#ffd700", FontFamily: "Inter", PositionY: clip.YPercent(50)},
	}
	stats := comp.Render(context.Background(), dst, []clip.Clip{text}, Options{TextScale: 1})
	if stats.Painted != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	lit := 0
	for y := 0; y < 180; y++ {
		for x := 0; x < 320; x++ {
			if c := dst.RGBAAt(x, y); c.R > 200 && c.G > 150 {
				lit++
			}
		}
	}
	if lit == 0 {
		t.Fatal("no text pixels painted")
	}
	if c := dst.RGBAAt(2, 2); c.R != 0 || c.G != 0 {
		t.Fatalf("corner should stay black, got %+v", c)
	}
}

func TestURIDecoderDataURI(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 2))); err != nil {
		t.Fatal(err)
	}
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
	img, err := URIDecoder{}.Decode(context.Background(), uri)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
}

func TestURIDecoderVideoWithoutExtractor(t *testing.T) {
	_, err := URIDecoder{}.Decode(context.Background(), "/clips/intro.mp4")
	if !errors.Is(err, ErrVideoUnsupported) {
		t.Fatalf("err = %v, want ErrVideoUnsupported", err)
	}
}

func TestInvalidateForcesRedecode(t *testing.T) {
	dec := &solidDecoder{}
	comp := newTestCompositor(t, dec)
	dst := image.NewRGBA(image.Rect(0, 0, 8, 8))
	clips := []clip.Clip{imageClip("a", "m1", "/a.png")}

	comp.Render(context.Background(), dst, clips, Options{Wait: true})
	comp.Invalidate("m1")
	comp.Render(context.Background(), dst, clips, Options{Wait: true})
	if n := dec.calls.Load(); n != 2 {
		t.Fatalf("decoder called %d times, want 2", n)
	}
}
