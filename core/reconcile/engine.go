package reconcile

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"collection-manager/core/derivative"
	"collection-manager/core/inventory"
	"collection-manager/core/paths"
	"collection-manager/core/remote"
	"collection-manager/core/store"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Remote is the subset of the remote client used by the engine.
type Remote interface {
	IllustDetail(ctx context.Context, id int) (*remote.Illust, error)
	BookmarkPage(ctx context.Context, userID int, visibility, cursor string) (*remote.BookmarkPage, error)
	Download(ctx context.Context, rawURL, dir string) (string, error)
	Remember(illust *remote.Illust)
}

// Options bundles what an Engine needs besides its collaborators.
type Options struct {
	Paths    paths.Config
	Config   Config
	Resolver inventory.Resolver
}

// Engine runs reconciliation passes over one store.
type Engine struct {
	fs        afero.Fs
	store     *store.Store
	remote    Remote
	scanner   *inventory.Scanner
	generator *derivative.Generator
	resolver  inventory.Resolver
	paths     paths.Config
	cfg       Config
	logger    *zap.Logger
}

// New creates an engine. rc may be nil for passes that never reach the remote.
func New(fs afero.Fs, st *store.Store, rc Remote, opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Resolver == nil {
		opts.Resolver = inventory.LargestFile
	}
	if opts.Config.Workers < 1 {
		opts.Config.Workers = 1
	}
	return &Engine{
		fs:      fs,
		store:   st,
		remote:  rc,
		scanner: inventory.NewScanner(fs, opts.Paths.IgnorePatterns()...),
		generator: derivative.NewGenerator(fs, map[derivative.Kind]derivative.Options{
			derivative.Preview:   opts.Config.Preview,
			derivative.Thumbnail: opts.Config.Thumbnail,
		}),
		resolver: opts.Resolver,
		paths:    opts.Paths,
		cfg:      opts.Config,
		logger:   logger,
	}
}

// Store returns the store the engine operates on.
func (e *Engine) Store() *store.Store {
	return e.store
}

// PruneOrphans removes images, authors and tags no longer referenced.
// Running it twice in a row is a no-op the second time.
func (e *Engine) PruneOrphans() store.PruneResult {
	result := e.store.Prune()
	for _, id := range result.Images {
		e.logger.Info("Pruned image", zap.String("image_id", id))
	}
	for _, id := range result.Authors {
		e.logger.Info("Pruned author", zap.String("author_id", id))
	}
	for _, name := range result.Tags {
		e.logger.Info("Pruned tag", zap.String("tag", name))
	}
	return result
}

func (e *Engine) originalPath(name string) string {
	return filepath.Join(e.paths.Original, name)
}

func (e *Engine) derivativePath(kind derivative.Kind, imageID, part int) string {
	dir := e.paths.Preview
	if kind == derivative.Thumbnail {
		dir = e.paths.Thumbnail
	}
	return filepath.Join(dir, derivative.Name(imageID, part))
}

// removeDerivatives deletes both derivatives of a file, ignoring missing ones.
func (e *Engine) removeDerivatives(imageID, part int) {
	for _, kind := range []derivative.Kind{derivative.Preview, derivative.Thumbnail} {
		path := e.derivativePath(kind, imageID, part)
		if err := e.generator.Remove(path); err != nil {
			e.logger.Warn("Failed to remove derivative", zap.String("path", path), zap.Error(err))
		}
	}
}

// ingest writes the records grounded by one original, bottom-up.
func (e *Engine) ingest(entry inventory.Entry, info derivative.Info, d *remote.Illust) {
	e.store.UpsertAuthor(store.Author{ID: d.User.ID, Name: d.User.Name, Account: d.User.Account})
	for _, tag := range d.Tags {
		e.store.UpsertTag(store.Tag{Name: tag.Name, TranslatedName: tag.TranslatedName})
	}
	e.store.UpsertImage(store.Image{
		ID:          entry.ImageID,
		AuthorID:    d.User.ID,
		Title:       d.Title,
		Tags:        d.TagNames(),
		CreatedAt:   d.CreateDate,
		SanityLevel: d.SanityLevel,
		XRestrict:   d.XRestrict,
		Bookmark:    d.TotalBookmarks,
		View:        d.TotalView,
	})
	e.store.UpsertFile(entry.Name, store.File{
		ID:            entry.ImageID,
		Part:          entry.Part,
		Size:          store.Size{info.Width, info.Height},
		Ext:           entry.Ext,
		DominantColor: info.DominantColor,
	})
}

// forEach runs fn for every item through a worker group bounded by reconcile.workers.
// It stops scheduling once ctx is done and returns ctx.Err() in that case.
func forEach[T any](ctx context.Context, workers int, items []T, fn func(T)) error {
	var g errgroup.Group
	g.SetLimit(workers)
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() == nil {
				fn(item)
			}
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

// collector appends strings from concurrent workers.
type collector struct {
	mu    sync.Mutex
	items []string
}

func (c *collector) add(s string) {
	c.mu.Lock()
	c.items = append(c.items, s)
	c.mu.Unlock()
}

func (c *collector) sorted() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := append([]string(nil), c.items...)
	sort.Strings(out)
	return out
}
