package reconcile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"collection-manager/core/inventory"
	"collection-manager/core/paths"
	"collection-manager/core/remote"
	"collection-manager/core/store"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRemote serves details, bookmark pages and downloads from memory.
type fakeRemote struct {
	fs afero.Fs

	mu            sync.Mutex
	details       map[int]*remote.Illust
	pages         map[string]*remote.BookmarkPage
	downloads     map[string][]byte
	detailCalls   int
	downloadCalls int
	remembered    []int
	onDetail      func(id int)
	listed        []string
}

func newFakeRemote(fs afero.Fs) *fakeRemote {
	return &fakeRemote{
		fs:        fs,
		details:   make(map[int]*remote.Illust),
		pages:     make(map[string]*remote.BookmarkPage),
		downloads: make(map[string][]byte),
	}
}

func (f *fakeRemote) IllustDetail(_ context.Context, id int) (*remote.Illust, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls++
	if f.onDetail != nil {
		f.onDetail(id)
	}
	d, ok := f.details[id]
	if !ok {
		return nil, fmt.Errorf("illust %d: %w", id, remote.ErrNotFound)
	}
	return d, nil
}

// BookmarkPage serves pages keyed "visibility:cursor" first, then by cursor alone.
func (f *fakeRemote) BookmarkPage(_ context.Context, _ int, visibility string, cursor string) (*remote.BookmarkPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed = append(f.listed, visibility)
	page, ok := f.pages[visibility+":"+cursor]
	if !ok {
		page, ok = f.pages[cursor]
	}
	if !ok {
		return nil, errors.New("no such page")
	}
	return page, nil
}

func (f *fakeRemote) Download(_ context.Context, rawURL, dir string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloadCalls++
	data, ok := f.downloads[rawURL]
	if !ok {
		return "", errors.New("download failed")
	}
	name := remote.FileName(rawURL)
	if err := afero.WriteFile(f.fs, filepath.Join(dir, name), data, 0o644); err != nil {
		return "", err
	}
	return name, nil
}

func (f *fakeRemote) Remember(illust *remote.Illust) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remembered = append(f.remembered, illust.ID)
}

func strPtr(s string) *string { return &s }

func illust(id, authorID int, tags ...string) *remote.Illust {
	d := &remote.Illust{
		ID:             id,
		Title:          fmt.Sprintf("work %d", id),
		Type:           remote.TypeIllust,
		User:           remote.User{ID: authorID, Name: fmt.Sprintf("author %d", authorID), Account: "acc"},
		CreateDate:     "2024-01-01T00:00:00+09:00",
		PageCount:      1,
		SanityLevel:    2,
		TotalView:      10,
		TotalBookmarks: 5,
		MetaSinglePage: remote.MetaSinglePage{OriginalImageURL: fmt.Sprintf("https://i.pximg.net/img/%d_p0.png", id)},
	}
	for _, t := range tags {
		d.Tags = append(d.Tags, remote.Tag{Name: t, TranslatedName: strPtr(t + "-en")})
	}
	return d
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 30, G: 120, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type fixture struct {
	engine *Engine
	fs     afero.Fs
	store  *store.Store
	remote *fakeRemote
	paths  paths.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	p := paths.Config{
		Original:  "/img/original",
		Preview:   "/img/preview",
		Thumbnail: "/img/thumbnail",
		Ignore:    "*.part",
	}
	require.NoError(t, p.Ensure(fs))

	st := store.New(fs)
	st.SetClock(func() time.Time { return time.Unix(1700000000, 0) })
	rc := newFakeRemote(fs)

	engine := New(fs, st, rc, Options{
		Paths:    p,
		Config:   Config{Workers: 2},
		Resolver: inventory.LargestFile,
	}, zap.NewNop())

	return &fixture{engine: engine, fs: fs, store: st, remote: rc, paths: p}
}

func (f *fixture) writeOriginal(t *testing.T, name string, w, h int) {
	t.Helper()
	require.NoError(t, afero.WriteFile(f.fs, filepath.Join(f.paths.Original, name), pngBytes(t, w, h), 0o644))
}

func (f *fixture) writeDerivatives(t *testing.T, id, part int) {
	t.Helper()
	name := fmt.Sprintf("%d_p%d.webp", id, part)
	require.NoError(t, afero.WriteFile(f.fs, filepath.Join(f.paths.Preview, name), []byte("preview"), 0o644))
	require.NoError(t, afero.WriteFile(f.fs, filepath.Join(f.paths.Thumbnail, name), []byte("thumb"), 0o644))
}

func (f *fixture) derivativesExist(t *testing.T, id, part int) (bool, bool) {
	t.Helper()
	name := fmt.Sprintf("%d_p%d.webp", id, part)
	preview, err := afero.Exists(f.fs, filepath.Join(f.paths.Preview, name))
	require.NoError(t, err)
	thumb, err := afero.Exists(f.fs, filepath.Join(f.paths.Thumbnail, name))
	require.NoError(t, err)
	return preview, thumb
}

func (f *fixture) seedImage(id, authorID int, tags ...string) {
	f.store.UpsertAuthor(store.Author{ID: authorID, Name: "a", Account: "acc"})
	for _, tag := range tags {
		f.store.UpsertTag(store.Tag{Name: tag})
	}
	f.store.UpsertImage(store.Image{ID: id, AuthorID: authorID, Title: "t", Tags: tags, Bookmark: 1, View: 1})
}

// assertIntegrity checks that every record is grounded bottom-up and every file exists on disk.
func (f *fixture) assertIntegrity(t *testing.T) {
	t.Helper()
	for _, entry := range f.store.Files() {
		exists, err := afero.Exists(f.fs, filepath.Join(f.paths.Original, entry.Name))
		require.NoError(t, err)
		assert.True(t, exists, "record %s has no original", entry.Name)
		_, ok := f.store.Image(entry.Record.Data.ID)
		assert.True(t, ok, "record %s has no image", entry.Name)
	}
	ids := f.store.FileImageIDs()
	for _, img := range f.store.Images() {
		_, ok := ids[img.ID]
		assert.True(t, ok, "image %d has no file", img.ID)
		_, ok = f.store.Author(img.AuthorID)
		assert.True(t, ok, "image %d has no author", img.ID)
		for _, tag := range img.Tags {
			_, ok := f.store.Tag(tag)
			assert.True(t, ok, "image %d misses tag %s", img.ID, tag)
		}
	}
}

func TestNew_Defaults(t *testing.T) {
	e := New(afero.NewMemMapFs(), store.New(afero.NewMemMapFs()), nil, Options{}, nil)
	assert.Equal(t, 1, e.cfg.Workers)
	assert.NotNil(t, e.resolver)
	assert.NotNil(t, e.logger)
}

func TestPruneOrphans_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.seedImage(1, 10, "kept")
	f.seedImage(2, 20, "dropped")
	f.store.UpsertFile("1_p0.png", store.File{ID: 1, Ext: "png", Size: store.Size{1, 1}})

	first := f.engine.PruneOrphans()
	assert.Equal(t, []string{"2"}, first.Images)
	assert.Equal(t, []string{"20"}, first.Authors)
	assert.Equal(t, []string{"dropped"}, first.Tags)

	second := f.engine.PruneOrphans()
	assert.True(t, second.Empty())
}
