// Package texture decodes background images and samples them as
// equirectangular environment maps.
package texture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/achilleasa/mirage/asset"
	"github.com/achilleasa/mirage/log"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var logger = log.New("texture")

var ErrEmptyImage = errors.New("texture: image has no pixels")

// A Texture is an 8-bit RGBA image with straight alpha.
type Texture struct {
	Width  int
	Height int

	img *image.NRGBA
}

// Options control how a loaded image is prepared.
type Options struct {
	// Images wider than this are downscaled, keeping their aspect ratio.
	// Zero disables the limit.
	MaxWidth int
}

// Load opens the resource at path (a local file or http/https URL,
// relative paths resolved against relTo) and decodes it. PNG, JPEG, GIF,
// BMP, TIFF and WebP images are supported.
func Load(ctx context.Context, path, relTo string, opts Options) (*Texture, error) {
	res, err := asset.NewResource(ctx, path, relTo)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	img, format, err := image.Decode(res)
	if err != nil {
		return nil, fmt.Errorf("texture: could not decode %s: %w", res.Path(), err)
	}
	logger.Infof("decoded %s image %s (%dx%d)", format, res.Name(), img.Bounds().Dx(), img.Bounds().Dy())

	return FromImage(img, opts)
}

// FromImage converts img into a texture.
func FromImage(img image.Image, opts Options) (*Texture, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, ErrEmptyImage
	}

	var nrgba *image.NRGBA
	if opts.MaxWidth > 0 && b.Dx() > opts.MaxWidth {
		logger.Debugf("downscaling %dx%d image to width %d", b.Dx(), b.Dy(), opts.MaxWidth)
		nrgba = imaging.Resize(img, opts.MaxWidth, 0, imaging.Lanczos)
	} else {
		nrgba = imaging.Clone(img)
	}
	return wrap(nrgba), nil
}

// Gradient creates a vertical gradient from top to bottom. It stands in
// for the environment when no background image is configured.
func Gradient(width, height int, top, bottom color.NRGBA) *Texture {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		t := float64(y) / math.Max(1, float64(height-1))
		c := color.NRGBA{
			R: lerp8(top.R, bottom.R, t),
			G: lerp8(top.G, bottom.G, t),
			B: lerp8(top.B, bottom.B, t),
			A: lerp8(top.A, bottom.A, t),
		}
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return wrap(img)
}

func lerp8(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

func wrap(img *image.NRGBA) *Texture {
	return &Texture{
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
		img:    img,
	}
}

// Blurred returns a copy scaled down to width pixels and blurred with a
// gaussian of the given sigma.
func (t *Texture) Blurred(width int, sigma float64) *Texture {
	img := t.img
	if width > 0 && width < t.Width {
		img = imaging.Resize(img, width, 0, imaging.Box)
	}
	if sigma > 0 {
		img = imaging.Blur(img, sigma)
	} else {
		img = imaging.Clone(img)
	}
	return wrap(img)
}

// Image returns the underlying pixels.
func (t *Texture) Image() *image.NRGBA {
	return t.img
}

// Upload scales the texture into dst, converting to premultiplied alpha.
func (t *Texture) Upload(dst *image.RGBA) {
	draw.BiLinear.Scale(dst, dst.Bounds(), t.img, t.img.Bounds(), draw.Src, nil)
}

// At returns the texel at (x, y) with wrap-around addressing on x and
// clamping on y.
func (t *Texture) At(x, y int) color.NRGBA {
	x %= t.Width
	if x < 0 {
		x += t.Width
	}
	y = min(max(y, 0), t.Height-1)

	offset := y*t.img.Stride + x*4
	p := t.img.Pix[offset : offset+4 : offset+4]
	return color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
}

// Sample bilinearly filters the texture at normalized coordinates (u, v).
// u wraps around; v is clamped. Channels are returned in [0, 1].
func (t *Texture) Sample(u, v float32) [4]float32 {
	fx := float64(u)*float64(t.Width) - 0.5
	fy := float64(v)*float64(t.Height) - 0.5
	x0, y0 := math.Floor(fx), math.Floor(fy)
	tx, ty := float32(fx-x0), float32(fy-y0)

	ix, iy := int(x0), int(y0)
	c00, c10 := t.At(ix, iy), t.At(ix+1, iy)
	c01, c11 := t.At(ix, iy+1), t.At(ix+1, iy+1)

	var out [4]float32
	for ch := 0; ch < 4; ch++ {
		top := channel(c00, ch)*(1-tx) + channel(c10, ch)*tx
		bottom := channel(c01, ch)*(1-tx) + channel(c11, ch)*tx
		out[ch] = (top*(1-ty) + bottom*ty) / 255
	}
	return out
}

func channel(c color.NRGBA, ch int) float32 {
	switch ch {
	case 0:
		return float32(c.R)
	case 1:
		return float32(c.G)
	case 2:
		return float32(c.B)
	}
	return float32(c.A)
}

// SampleDirection samples the texture as an equirectangular map along the
// unit direction (x, y, z). -Z is the center of the image, +Y is up.
func (t *Texture) SampleDirection(x, y, z float32) [4]float32 {
	u, v := EquirectUV(x, y, z)
	return t.Sample(u, v)
}

// EquirectUV maps a unit direction to equirectangular texture coordinates.
// Longitude is undefined at the poles; they map to the center column.
func EquirectUV(x, y, z float32) (u, v float32) {
	var lon float64
	if x != 0 || z != 0 {
		lon = math.Atan2(float64(x), -float64(z))
	}
	lat := math.Asin(math.Max(-1, math.Min(1, float64(y))))
	u = float32(0.5 + lon/(2*math.Pi))
	v = float32(0.5 - lat/math.Pi)
	return u, v
}
