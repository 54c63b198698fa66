package derivative

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	"github.com/cenkalti/dominantcolor"
	"github.com/chai2010/webp"
	"github.com/nfnt/resize"
	"github.com/spf13/afero"

	// Decoders for supported originals
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// ErrDecode is returned when a source image cannot be decoded.
var ErrDecode = errors.New("image could not be decoded")

// Kind identifies a derivative flavor.
type Kind string

const (
	// Preview is the large derivative shown in detail views.
	Preview Kind = "preview"
	// Thumbnail is the small derivative shown in listings.
	Thumbnail Kind = "thumbnail"
)

// Options bounds a derivative. The output fits in Width x Height preserving aspect ratio.
type Options struct {
	Width   uint    `mapstructure:"width"`
	Height  uint    `mapstructure:"height"`
	Quality float32 `mapstructure:"quality"`
}

// DefaultOptions returns the bounds used when none are configured.
func DefaultOptions() map[Kind]Options {
	return map[Kind]Options{
		Preview:   {Width: 2000, Height: 2000, Quality: 80},
		Thumbnail: {Width: 500, Height: 1000, Quality: 70},
	}
}

// Info summarizes an original.
type Info struct {
	Width         int
	Height        int
	DominantColor string
}

// Name returns the derivative filename for an image page.
func Name(imageID, part int) string {
	return fmt.Sprintf("%d_p%d.webp", imageID, part)
}

// Generator produces WebP derivatives from originals.
type Generator struct {
	fs      afero.Fs
	options map[Kind]Options
}

// NewGenerator creates a generator. Missing kinds in options use DefaultOptions.
func NewGenerator(fs afero.Fs, options map[Kind]Options) *Generator {
	merged := DefaultOptions()
	for k, o := range options {
		if o.Width == 0 || o.Height == 0 {
			continue
		}
		if o.Quality <= 0 {
			o.Quality = merged[k].Quality
		}
		merged[k] = o
	}
	return &Generator{fs: fs, options: merged}
}

// Options returns the bounds applied to kind.
func (g *Generator) Options(kind Kind) Options {
	return g.options[kind]
}

// Generate writes a derivative of src to dst.
// An existing dst is left untouched unless overwrite is set; written reports whether dst changed.
func (g *Generator) Generate(src, dst string, kind Kind, overwrite bool) (written bool, err error) {
	opts, ok := g.options[kind]
	if !ok {
		return false, fmt.Errorf("unknown derivative kind %q", kind)
	}
	if !overwrite {
		exists, err := afero.Exists(g.fs, dst)
		if err != nil {
			return false, err
		}
		if exists {
			return false, nil
		}
	}

	img, err := g.decode(src)
	if err != nil {
		return false, err
	}

	scaled := resize.Thumbnail(opts.Width, opts.Height, flatten(img), resize.Lanczos3)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, scaled, &webp.Options{Quality: opts.Quality}); err != nil {
		return false, fmt.Errorf("failed to encode %s: %w", dst, err)
	}
	if err := afero.WriteFile(g.fs, dst, buf.Bytes(), 0o644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return true, nil
}

// Inspect decodes src and returns its dimensions and dominant colour.
func (g *Generator) Inspect(src string) (Info, error) {
	img, err := g.decode(src)
	if err != nil {
		return Info{}, err
	}
	b := img.Bounds()
	return Info{Width: b.Dx(), Height: b.Dy(), DominantColor: DominantColor(img)}, nil
}

// Verify fully decodes the image at path on fs. Truncated or corrupt files
// return an error wrapping ErrDecode.
func Verify(fs afero.Fs, path string) error {
	_, err := decode(fs, path)
	return err
}

// Remove deletes a derivative if present.
func (g *Generator) Remove(path string) error {
	err := g.fs.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (g *Generator) decode(src string) (image.Image, error) {
	return decode(g.fs, src)
}

func decode(fs afero.Fs, src string) (image.Image, error) {
	f, err := fs.Open(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, src, err)
	}
	return img, nil
}

// DominantColor returns the most prominent colour of img as "#RRGGBB".
func DominantColor(img image.Image) string {
	small := resize.Thumbnail(256, 256, flatten(img), resize.Bilinear)
	return dominantcolor.Hex(dominantcolor.Find(small))
}

// flatten draws img onto an opaque white canvas so that transparent and
// palette images encode the same way as RGB sources.
func flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(canvas, canvas.Bounds(), img, b.Min, draw.Over)
	return canvas
}
