package collection

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"collection-manager/core/paths"
	"collection-manager/core/reconcile"
	"collection-manager/core/store"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Service serves read-only views of the persisted collection.
type Service struct {
	fs     afero.Fs
	paths  paths.Config
	cfg    reconcile.Config
	logger *zap.Logger

	mu       sync.Mutex
	engine   *reconcile.Engine
	modTime  time.Time
	size     int64
	hasCache bool
}

// NewService creates a collection service reading the snapshot at p.DataFile.
func NewService(fsys afero.Fs, p paths.Config, cfg reconcile.Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{fs: fsys, paths: p, cfg: cfg, logger: logger}
}

// current returns an engine over the latest snapshot, reloading it when the
// data file changed. A missing data file yields an empty collection.
func (s *Service) current() (*reconcile.Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.fs.Stat(s.paths.DataFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat collection %s: %w", s.paths.DataFile, err)
	}

	var modTime time.Time
	var size int64 = -1
	if info != nil {
		modTime, size = info.ModTime(), info.Size()
	}
	if s.hasCache && modTime.Equal(s.modTime) && size == s.size {
		return s.engine, nil
	}

	st := store.New(s.fs)
	if info != nil {
		if err := st.Load(s.paths.DataFile); err != nil {
			return nil, err
		}
	}
	s.logger.Info("Collection loaded", zap.String("path", s.paths.DataFile), zap.Any("stats", st.Stats()))

	s.engine = reconcile.New(s.fs, st, nil, reconcile.Options{Paths: s.paths, Config: s.cfg}, s.logger)
	s.modTime, s.size, s.hasCache = modTime, size, true
	return s.engine, nil
}

// Records returns the export view filtered by maxSanityLevel.
func (s *Service) Records(ctx context.Context, maxSanityLevel int) ([]reconcile.ExportRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, err := s.current()
	if err != nil {
		return nil, err
	}
	return e.Records(maxSanityLevel), nil
}

// Check runs a read-only check; repair mode is never enabled here.
func (s *Service) Check(ctx context.Context, opts reconcile.CheckOptions) (*reconcile.CheckReport, error) {
	e, err := s.current()
	if err != nil {
		return nil, err
	}
	opts.Fix = false
	return e.Check(ctx, opts)
}

// Stats returns entity counts of the snapshot.
func (s *Service) Stats(ctx context.Context) (store.Stats, error) {
	if err := ctx.Err(); err != nil {
		return store.Stats{}, err
	}
	e, err := s.current()
	if err != nil {
		return store.Stats{}, err
	}
	return e.Store().Stats(), nil
}

// DefaultMaxSanity is the filter applied when a request does not set one.
func (s *Service) DefaultMaxSanity() int {
	return s.cfg.MaxSanityLevel
}
