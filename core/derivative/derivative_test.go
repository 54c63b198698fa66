package derivative

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, fs afero.Fs, path string, w, h int, c color.Color) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, afero.WriteFile(fs, path, buf.Bytes(), 0o644))
}

func decodeSize(t *testing.T, fs afero.Fs, path string) (int, int) {
	t.Helper()
	f, err := fs.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "webp", format)
	return cfg.Width, cfg.Height
}

func decodeCenter(t *testing.T, fs afero.Fs, path string) (r, g, b uint8) {
	t.Helper()
	f, err := fs.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, format, err := image.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, "webp", format)
	bounds := img.Bounds()
	c := color.RGBAModel.Convert(img.At(bounds.Min.X+bounds.Dx()/2, bounds.Min.Y+bounds.Dy()/2)).(color.RGBA)
	return c.R, c.G, c.B
}

func TestName(t *testing.T) {
	assert.Equal(t, "123_p4.webp", Name(123, 4))
}

func TestNewGenerator_MergesOptions(t *testing.T) {
	g := NewGenerator(afero.NewMemMapFs(), map[Kind]Options{
		Preview:   {Width: 100, Height: 50},
		Thumbnail: {},
	})
	assert.Equal(t, Options{Width: 100, Height: 50, Quality: 80}, g.Options(Preview))
	assert.Equal(t, DefaultOptions()[Thumbnail], g.Options(Thumbnail))
}

func TestGenerate_FitsBounds(t *testing.T) {
	fs := afero.NewMemMapFs()
	writePNG(t, fs, "/orig/1_p0.png", 400, 200, color.RGBA{R: 200, A: 255})

	g := NewGenerator(fs, map[Kind]Options{
		Preview:   {Width: 100, Height: 100, Quality: 80},
		Thumbnail: {Width: 20, Height: 40, Quality: 70},
	})

	written, err := g.Generate("/orig/1_p0.png", "/preview/1_p0.webp", Preview, false)
	require.NoError(t, err)
	assert.True(t, written)
	w, h := decodeSize(t, fs, "/preview/1_p0.webp")
	assert.Equal(t, 100, w)
	assert.Equal(t, 50, h)

	written, err = g.Generate("/orig/1_p0.png", "/thumb/1_p0.webp", Thumbnail, false)
	require.NoError(t, err)
	assert.True(t, written)
	w, h = decodeSize(t, fs, "/thumb/1_p0.webp")
	assert.Equal(t, 20, w)
	assert.Equal(t, 10, h)
}

func TestGenerate_NeverUpscales(t *testing.T) {
	fs := afero.NewMemMapFs()
	writePNG(t, fs, "/orig/1_p0.png", 30, 10, color.White)

	g := NewGenerator(fs, nil)
	_, err := g.Generate("/orig/1_p0.png", "/preview/1_p0.webp", Preview, false)
	require.NoError(t, err)

	w, h := decodeSize(t, fs, "/preview/1_p0.webp")
	assert.Equal(t, 30, w)
	assert.Equal(t, 10, h)
}

func TestGenerate_TransparentBecomesWhite(t *testing.T) {
	fs := afero.NewMemMapFs()
	writePNG(t, fs, "/orig/1_p0.png", 32, 32, color.NRGBA{R: 0, G: 0, B: 0, A: 0})
	g := NewGenerator(fs, nil)

	_, err := g.Generate("/orig/1_p0.png", "/preview/1_p0.webp", Preview, false)
	require.NoError(t, err)

	r, gr, b := decodeCenter(t, fs, "/preview/1_p0.webp")
	assert.GreaterOrEqual(t, r, uint8(245))
	assert.GreaterOrEqual(t, gr, uint8(245))
	assert.GreaterOrEqual(t, b, uint8(245))
}

func TestGenerate_PalettedSource(t *testing.T) {
	fs := afero.NewMemMapFs()
	palette := color.Palette{color.Transparent, color.RGBA{R: 220, A: 255}}
	src := image.NewPaletted(image.Rect(0, 0, 40, 20), palette)
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			src.SetColorIndex(x, y, 1)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))
	require.NoError(t, afero.WriteFile(fs, "/orig/2_p0.png", buf.Bytes(), 0o644))

	g := NewGenerator(fs, map[Kind]Options{Thumbnail: {Width: 20, Height: 20, Quality: 90}})
	written, err := g.Generate("/orig/2_p0.png", "/thumb/2_p0.webp", Thumbnail, false)
	require.NoError(t, err)
	assert.True(t, written)

	w, h := decodeSize(t, fs, "/thumb/2_p0.webp")
	assert.Equal(t, 20, w)
	assert.Equal(t, 10, h)

	r, gr, b := decodeCenter(t, fs, "/thumb/2_p0.webp")
	assert.InDelta(t, 220, int(r), 20)
	assert.Less(t, gr, uint8(40))
	assert.Less(t, b, uint8(40))
}

func TestGenerate_Idempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	writePNG(t, fs, "/orig/1_p0.png", 40, 40, color.Black)
	g := NewGenerator(fs, nil)

	written, err := g.Generate("/orig/1_p0.png", "/preview/1_p0.webp", Preview, false)
	require.NoError(t, err)
	require.True(t, written)

	require.NoError(t, afero.WriteFile(fs, "/preview/1_p0.webp", []byte("sentinel"), 0o644))

	written, err = g.Generate("/orig/1_p0.png", "/preview/1_p0.webp", Preview, false)
	require.NoError(t, err)
	assert.False(t, written)
	data, err := afero.ReadFile(fs, "/preview/1_p0.webp")
	require.NoError(t, err)
	assert.Equal(t, "sentinel", string(data))

	written, err = g.Generate("/orig/1_p0.png", "/preview/1_p0.webp", Preview, true)
	require.NoError(t, err)
	assert.True(t, written)
	decodeSize(t, fs, "/preview/1_p0.webp")
}

func TestGenerate_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/orig/bad_p0.png", []byte("not an image"), 0o644))
	g := NewGenerator(fs, nil)

	_, err := g.Generate("/orig/bad_p0.png", "/preview/bad.webp", Preview, false)
	assert.ErrorIs(t, err, ErrDecode)

	_, err = g.Generate("/orig/missing.png", "/preview/missing.webp", Preview, false)
	assert.Error(t, err)

	_, err = g.Generate("/orig/bad_p0.png", "/preview/bad.webp", Kind("poster"), false)
	assert.Error(t, err)

	exists, _ := afero.Exists(fs, "/preview/bad.webp")
	assert.False(t, exists)
}

func TestInspect(t *testing.T) {
	fs := afero.NewMemMapFs()
	writePNG(t, fs, "/orig/1_p0.png", 64, 32, color.RGBA{R: 255, A: 255})
	g := NewGenerator(fs, nil)

	info, err := g.Inspect("/orig/1_p0.png")
	require.NoError(t, err)
	assert.Equal(t, 64, info.Width)
	assert.Equal(t, 32, info.Height)
	assert.Regexp(t, `^#[0-9A-Fa-f]{6}$`, info.DominantColor)

	assert.NoError(t, Verify(fs, "/orig/1_p0.png"))
}

func TestVerify_RejectsTruncated(t *testing.T) {
	fs := afero.NewMemMapFs()
	writePNG(t, fs, "/orig/1_p0.png", 64, 64, color.Black)
	data, err := afero.ReadFile(fs, "/orig/1_p0.png")
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, "/orig/1_p0.png", data[:len(data)/2], 0o644))

	assert.ErrorIs(t, Verify(fs, "/orig/1_p0.png"), ErrDecode)
}

func TestRemove(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/preview/1_p0.webp", []byte("x"), 0o644))
	g := NewGenerator(fs, nil)

	assert.NoError(t, g.Remove("/preview/1_p0.webp"))
	assert.NoError(t, g.Remove("/preview/1_p0.webp"))
}
