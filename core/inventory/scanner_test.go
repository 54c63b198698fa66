package inventory

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, fs afero.Fs, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, afero.WriteFile(fs, path, buf.Bytes(), 0o644))
}

func TestParseName(t *testing.T) {
	tests := []struct {
		name    string
		id      int
		part    int
		ext     string
		wantErr bool
	}{
		{"12345_p0.jpg", 12345, 0, "jpg", false},
		{"7_p12.png", 7, 12, "png", false},
		{"7_p1.tar.gz", 0, 0, "", true},
		{"7_p.png", 0, 0, "", true},
		{"abc_p0.png", 0, 0, "", true},
		{"7_p0", 0, 0, "", true},
		{"7_p0.", 0, 0, "", true},
		{"7-p0.png", 0, 0, "", true},
		{"0_p0.png", 0, 0, "", true},
		{"042_p0.jpg", 0, 0, "", true},
		{"+42_p0.jpg", 0, 0, "", true},
		{"42_p00.jpg", 0, 0, "", true},
		{"42_p+1.jpg", 0, 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, part, ext, err := ParseName(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, id)
			assert.Equal(t, tt.part, part)
			assert.Equal(t, tt.ext, ext)
		})
	}
}

func TestScan(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := "/original"
	writePNG(t, fs, filepath.Join(dir, "5_p1.png"), 4, 4)
	writePNG(t, fs, filepath.Join(dir, "5_p0.png"), 4, 4)
	writePNG(t, fs, filepath.Join(dir, "3_p0.png"), 2, 2)
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, ".DS_Store"), []byte("x"), 0o644))
	require.NoError(t, fs.MkdirAll(filepath.Join(dir, "sub"), 0o755))

	inv, err := NewScanner(fs).Scan(dir)
	require.NoError(t, err)

	var names []string
	for _, e := range inv.Entries {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"3_p0.png", "5_p0.png", "5_p1.png"}, names)
	assert.Equal(t, []string{"notes.txt"}, inv.Invalid)
	assert.Empty(t, inv.Conflicts)
}

func TestScan_MissingDirectory(t *testing.T) {
	_, err := NewScanner(afero.NewMemMapFs()).Scan("/nowhere")
	assert.Error(t, err)
}

func TestScan_DetectsConflict(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := "/original"
	writePNG(t, fs, filepath.Join(dir, "42_p0.jpg"), 10, 10)
	writePNG(t, fs, filepath.Join(dir, "42_p0.png"), 30, 20)
	writePNG(t, fs, filepath.Join(dir, "42_p1.png"), 5, 5)

	inv, err := NewScanner(fs).Scan(dir)
	require.NoError(t, err)

	require.Len(t, inv.Conflicts, 1)
	c := inv.Conflicts[0]
	assert.Equal(t, 42, c.ImageID)
	assert.Equal(t, 0, c.Part)
	require.Len(t, c.Candidates, 2)
	assert.Equal(t, "42_p0.jpg", c.Candidates[0].Name)
	assert.Equal(t, 10, c.Candidates[0].Width)
	assert.Equal(t, 30, c.Candidates[1].Width)
	assert.Equal(t, 20, c.Candidates[1].Height)
	assert.Positive(t, c.Candidates[1].Bytes)

	require.Len(t, inv.Entries, 1)
	assert.Equal(t, "42_p1.png", inv.Entries[0].Name)
}

func TestResolve_KeepsExactlyOne(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := "/original"
	writePNG(t, fs, filepath.Join(dir, "42_p0.jpg"), 10, 10)
	writePNG(t, fs, filepath.Join(dir, "42_p0.png"), 300, 200)

	s := NewScanner(fs)
	inv, err := s.Scan(dir)
	require.NoError(t, err)
	require.Len(t, inv.Conflicts, 1)

	kept, removed, err := s.Resolve(dir, inv.Conflicts[0], LargestFile)
	require.NoError(t, err)
	assert.Equal(t, "42_p0.png", kept.Name)
	require.Len(t, removed, 1)
	assert.Equal(t, "42_p0.jpg", removed[0].Name)

	after, err := s.Scan(dir)
	require.NoError(t, err)
	assert.Empty(t, after.Conflicts)
	require.Len(t, after.Entries, 1)
	assert.Equal(t, "42_p0.png", after.Entries[0].Name)
}

func TestResolve_OutOfRangeFallsBackToFirst(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := "/original"
	writePNG(t, fs, filepath.Join(dir, "1_p0.jpg"), 1, 1)
	writePNG(t, fs, filepath.Join(dir, "1_p0.png"), 1, 1)

	s := NewScanner(fs)
	inv, err := s.Scan(dir)
	require.NoError(t, err)

	kept, _, err := s.Resolve(dir, inv.Conflicts[0], ResolverFunc(func(Conflict) int { return 7 }))
	require.NoError(t, err)
	assert.Equal(t, "1_p0.jpg", kept.Name)
}

func TestResolvers(t *testing.T) {
	c := Conflict{ImageID: 1, Candidates: []Candidate{
		{Entry: Entry{Name: "1_p0.jpg", Bytes: 10}},
		{Entry: Entry{Name: "1_p0.png", Bytes: 30}},
		{Entry: Entry{Name: "1_p0.webp", Bytes: 30}},
	}}

	assert.Equal(t, 1, LargestFile.Resolve(c))
	assert.Equal(t, 0, FirstCandidate.Resolve(c))

	tests := []struct {
		input string
		want  int
	}{
		{"2\n", 2},
		{" 1 \n", 1},
		{"\n", 0},
		{"", 0},
		{"abc\n", 0},
		{"9\n", 0},
		{"-1\n", 0},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		p := NewPrompt(strings.NewReader(tt.input), &out)
		assert.Equal(t, tt.want, p.Resolve(c), "input %q", tt.input)
		assert.Contains(t, out.String(), "1_p0.webp")
	}
}

func TestNewResolver(t *testing.T) {
	for _, policy := range []string{"", "largest", "first", "interactive", "LARGEST"} {
		r, err := NewResolver(policy, strings.NewReader(""), &bytes.Buffer{})
		require.NoError(t, err, policy)
		assert.NotNil(t, r)
	}
	_, err := NewResolver("coinflip", nil, nil)
	assert.Error(t, err)
}

func TestScan_IgnorePatterns(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := "/original"
	writePNG(t, fs, filepath.Join(dir, "1_p0.png"), 2, 2)
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, "2_p0.png.part"), []byte("x"), 0o644))

	inv, err := NewScanner(fs, "*.part").Scan(dir)
	require.NoError(t, err)
	require.Len(t, inv.Entries, 1)
	assert.Equal(t, []string{"2_p0.png.part"}, inv.Ignored)
	assert.Empty(t, inv.Invalid)
}
