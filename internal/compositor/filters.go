package compositor

import (
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"

	"reelcut/internal/clip"
)

// Filter is a single pixel operation in a clip's effect chain.
type Filter interface {
	// CSS renders the filter in canvas filter syntax.
	CSS() string
	Apply(img *image.RGBA)
}

// Chain is an ordered list of filters.
type Chain []Filter

// BuildFilterChain converts clip effects to filters in the fixed order
// brightness, contrast, saturation, blur. Zero values are omitted.
func BuildFilterChain(e clip.Effects) Chain {
	e = e.Clamp()
	var chain Chain
	if e.Brightness != 0 {
		chain = append(chain, brightness(1+e.Brightness/100))
	}
	if e.Contrast != 0 {
		chain = append(chain, contrast(1+e.Contrast/100))
	}
	if e.Saturation != 0 {
		chain = append(chain, saturate(1+e.Saturation/100))
	}
	if e.Blur > 0 {
		chain = append(chain, blur(e.Blur))
	}
	return chain
}

// String renders the chain in canvas filter syntax, "none" when empty.
func (c Chain) String() string {
	if len(c) == 0 {
		return "none"
	}
	parts := make([]string, len(c))
	for i, f := range c {
		parts[i] = f.CSS()
	}
	return strings.Join(parts, " ")
}

// Apply runs every filter in order on img.
func (c Chain) Apply(img *image.RGBA) {
	for _, f := range c {
		f.Apply(img)
	}
}

type brightness float64

func (b brightness) CSS() string { return fmt.Sprintf("brightness(%s)", formatFloat(float64(b))) }

func (b brightness) Apply(img *image.RGBA) {
	k := float64(b)
	mapRGB(img, func(v float64) float64 { return v * k })
}

type contrast float64

func (c contrast) CSS() string { return fmt.Sprintf("contrast(%s)", formatFloat(float64(c))) }

func (c contrast) Apply(img *image.RGBA) {
	k := float64(c)
	intercept := 127.5 * (1 - k)
	mapRGB(img, func(v float64) float64 { return v*k + intercept })
}

type saturate float64

func (s saturate) CSS() string { return fmt.Sprintf("saturate(%s)", formatFloat(float64(s))) }

func (s saturate) Apply(img *image.RGBA) {
	k := float64(s)
	m := [9]float64{
		0.213 + 0.787*k, 0.715 - 0.715*k, 0.072 - 0.072*k,
		0.213 - 0.213*k, 0.715 + 0.285*k, 0.072 - 0.072*k,
		0.213 - 0.213*k, 0.715 - 0.715*k, 0.072 + 0.928*k,
	}
	pix := img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		r, g, b := float64(pix[i]), float64(pix[i+1]), float64(pix[i+2])
		pix[i] = clamp8(m[0]*r + m[1]*g + m[2]*b)
		pix[i+1] = clamp8(m[3]*r + m[4]*g + m[5]*b)
		pix[i+2] = clamp8(m[6]*r + m[7]*g + m[8]*b)
	}
}

type blur float64

func (b blur) CSS() string { return fmt.Sprintf("blur(%spx)", formatFloat(float64(b))) }

func (b blur) Apply(img *image.RGBA) {
	gaussianBlur(img, float64(b))
}

// mapRGB applies fn to the colour channels through a lookup table.
func mapRGB(img *image.RGBA, fn func(float64) float64) {
	var lut [256]uint8
	for i := range lut {
		lut[i] = clamp8(fn(float64(i)))
	}
	pix := img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i] = lut[pix[i]]
		pix[i+1] = lut[pix[i+1]]
		pix[i+2] = lut[pix[i+2]]
	}
}

// gaussianBlur approximates a Gaussian with standard deviation sigma using
// three successive box blurs.
func gaussianBlur(img *image.RGBA, sigma float64) {
	if sigma <= 0 {
		return
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return
	}
	tmp := make([]uint8, len(img.Pix))
	for _, box := range boxSizes(sigma, 3) {
		r := (box - 1) / 2
		if r < 1 {
			continue
		}
		boxBlurH(img.Pix, tmp, w, h, img.Stride, r)
		boxBlurV(tmp, img.Pix, w, h, img.Stride, r)
	}
}

// boxSizes returns n box widths whose successive application approximates
// a Gaussian of the given sigma.
func boxSizes(sigma float64, n int) []int {
	ideal := math.Sqrt(12*sigma*sigma/float64(n) + 1)
	wl := int(math.Floor(ideal))
	if wl%2 == 0 {
		wl--
	}
	wu := wl + 2
	mIdeal := (12*sigma*sigma - float64(n*wl*wl) - 4*float64(n*wl) - 3*float64(n)) / (-4*float64(wl) - 4)
	m := int(math.Round(mIdeal))
	sizes := make([]int, n)
	for i := range sizes {
		if i < m {
			sizes[i] = wl
		} else {
			sizes[i] = wu
		}
	}
	return sizes
}

func boxBlurH(src, dst []uint8, w, h, stride, r int) {
	div := float64(2*r + 1)
	for y := 0; y < h; y++ {
		row := y * stride
		for c := 0; c < 4; c++ {
			first := float64(src[row+c])
			last := float64(src[row+(w-1)*4+c])
			acc := first * float64(r)
			for x := 0; x < r; x++ {
				acc += float64(src[row+min(x, w-1)*4+c])
			}
			for x := 0; x < w; x++ {
				right := x + r
				if right < w {
					acc += float64(src[row+right*4+c])
				} else {
					acc += last
				}
				dst[row+x*4+c] = clamp8(acc / div)
				left := x - r
				if left >= 0 {
					acc -= float64(src[row+left*4+c])
				} else {
					acc -= first
				}
			}
		}
	}
}

func boxBlurV(src, dst []uint8, w, h, stride, r int) {
	div := float64(2*r + 1)
	for x := 0; x < w; x++ {
		col := x * 4
		for c := 0; c < 4; c++ {
			first := float64(src[col+c])
			last := float64(src[(h-1)*stride+col+c])
			acc := first * float64(r)
			for y := 0; y < r; y++ {
				acc += float64(src[min(y, h-1)*stride+col+c])
			}
			for y := 0; y < h; y++ {
				below := y + r
				if below < h {
					acc += float64(src[below*stride+col+c])
				} else {
					acc += last
				}
				dst[y*stride+col+c] = clamp8(acc / div)
				above := y - r
				if above >= 0 {
					acc -= float64(src[above*stride+col+c])
				} else {
					acc -= first
				}
			}
		}
	}
}

func clamp8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
