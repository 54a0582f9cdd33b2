package compositor

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"reelcut/internal/clip"
)

// Text shadow parameters shared by preview and export.
const (
	shadowBlur    = 10.0
	shadowOffsetX = 2
	shadowOffsetY = 2
)

var shadowColor = color.RGBA{A: 178} // rgba(0,0,0,0.7)

// familyFonts maps editor font families to the embedded Go fonts.
var familyFonts = map[string][]byte{
	"inter":   goregular.TTF,
	"arial":   gomedium.TTF,
	"georgia": goitalic.TTF,
	"impact":  gobold.TTF,
}

// FontSet parses fonts once and caches faces per family and size.
type FontSet struct {
	mu    sync.Mutex
	fonts map[string]*opentype.Font
	faces map[string]font.Face
}

// NewFontSet returns an empty font set.
func NewFontSet() *FontSet {
	return &FontSet{
		fonts: make(map[string]*opentype.Font),
		faces: make(map[string]font.Face),
	}
}

// Face returns a face for family at the given pixel size. Unknown families
// fall back to Inter.
func (fs *FontSet) Face(family string, size float64) (font.Face, error) {
	family = strings.ToLower(strings.TrimSpace(family))
	if _, ok := familyFonts[family]; !ok {
		family = "inter"
	}
	size = math.Round(size*2) / 2
	key := fmt.Sprintf("%s@%.1f", family, size)

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if face, ok := fs.faces[key]; ok {
		return face, nil
	}
	f, ok := fs.fonts[family]
	if !ok {
		parsed, err := opentype.Parse(familyFonts[family])
		if err != nil {
			return nil, fmt.Errorf("parse font %s: %w", family, err)
		}
		fs.fonts[family] = parsed
		f = parsed
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	fs.faces[key] = face
	return face, nil
}

// DrawText paints a text clip centred horizontally with its vertical centre
// at PositionY percent of the surface height, over a blurred drop shadow.
func (fs *FontSet) DrawText(dst *image.RGBA, style clip.TextStyle, scale float64) error {
	if strings.TrimSpace(style.Text) == "" {
		return nil
	}
	if scale <= 0 {
		scale = 1
	}
	face, err := fs.Face(style.FontFamily, style.FontSize*scale)
	if err != nil {
		return err
	}
	fill, err := clip.ParseColor(style.Color)
	if err != nil {
		fill = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	}

	bounds := dst.Bounds()
	fs.mu.Lock()
	width := font.MeasureString(face, style.Text)
	metrics := face.Metrics()
	fs.mu.Unlock()

	centerY := fixed.I(bounds.Min.Y) + fixed.Int26_6(float64(bounds.Dy())*style.Y()/100*64)
	baseline := centerY + (metrics.Ascent-metrics.Descent)/2
	origin := fixed.Point26_6{
		X: fixed.I(bounds.Min.X) + (fixed.I(bounds.Dx())-width)/2,
		Y: baseline,
	}

	fs.drawShadow(dst, face, style.Text, origin, scale)
	fs.drawString(dst, face, style.Text, origin, image.NewUniform(fill))
	return nil
}

func (fs *FontSet) drawShadow(dst *image.RGBA, face font.Face, text string, origin fixed.Point26_6, scale float64) {
	offset := fixed.Point26_6{
		X: origin.X + fixed.I(int(math.Round(shadowOffsetX*scale))),
		Y: origin.Y + fixed.I(int(math.Round(shadowOffsetY*scale))),
	}
	fs.mu.Lock()
	box, _ := font.BoundString(face, text)
	fs.mu.Unlock()

	margin := int(math.Ceil(shadowBlur*scale*1.5)) + 2
	area := image.Rect(
		(offset.X+box.Min.X).Floor()-margin,
		(offset.Y+box.Min.Y).Floor()-margin,
		(offset.X+box.Max.X).Ceil()+margin,
		(offset.Y+box.Max.Y).Ceil()+margin,
	).Intersect(dst.Bounds())
	if area.Empty() {
		return
	}

	layer := image.NewRGBA(area)
	fs.drawString(layer, face, text, offset, image.NewUniform(shadowColor))
	// canvas shadowBlur is twice the Gaussian sigma
	gaussianBlur(layer, shadowBlur*scale/2)
	draw.Draw(dst, area, layer, area.Min, draw.Over)
}

func (fs *FontSet) drawString(dst draw.Image, face font.Face, text string, origin fixed.Point26_6, src image.Image) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	d := &font.Drawer{
		Dst:  dst,
		Src:  src,
		Face: face,
		Dot:  origin,
	}
	d.DrawString(text)
}

// Close releases cached faces.
func (fs *FontSet) Close() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for key, face := range fs.faces {
		face.Close()
		delete(fs.faces, key)
	}
}
