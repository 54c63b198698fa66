package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"collection-manager/core/config"
	"collection-manager/core/inventory"
	"collection-manager/core/logger"
	"collection-manager/core/reconcile"
	"collection-manager/core/remote"
	"collection-manager/core/store"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// remoteMode tells newEngine whether a command talks to the remote API.
type remoteMode int

const (
	remoteNone remoteMode = iota
	// remoteOptional connects only when a refresh token is configured.
	remoteOptional
	remoteRequired
)

// session bundles what every batch command needs: configuration, a run-scoped
// logger, the OS filesystem and the loaded snapshot.
type session struct {
	cfg    *config.Config
	logger *zap.Logger
	fs     afero.Fs
	store  *store.Store
}

func newSession() (*session, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	base, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	l, _ := logger.WithRunID(base)

	osFs := afero.NewOsFs()
	if err := cfg.Paths.Ensure(osFs); err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, logger: l, fs: osFs, store: store.New(osFs)}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// load reads the snapshot. A missing snapshot starts an empty collection.
func (s *session) load() error {
	path := s.cfg.Paths.DataFile
	if err := s.store.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("No collection snapshot found, starting empty", zap.String("path", path))
			return nil
		}
		return fmt.Errorf("failed to load collection: %w", err)
	}
	logStats(s.logger, "Collection loaded", path, s.store.Stats())
	return nil
}

func (s *session) save() error {
	path := s.cfg.Paths.DataFile
	if err := s.store.Save(path); err != nil {
		return fmt.Errorf("failed to save collection: %w", err)
	}
	logStats(s.logger, "Collection saved", path, s.store.Stats())
	return nil
}

// keep saves the snapshot after a run that may have stopped early.
func (s *session) keep(runErr error) error {
	return errors.Join(runErr, s.save())
}

func (s *session) close() {
	_ = s.logger.Sync()
}

// newEngine builds the reconciliation engine, connecting to the remote per mode.
func (s *session) newEngine(ctx context.Context, mode remoteMode) (*reconcile.Engine, error) {
	resolver, err := inventory.NewResolver(s.cfg.Reconcile.ConflictPolicy, os.Stdin, os.Stdout)
	if err != nil {
		return nil, err
	}

	var rc reconcile.Remote
	switch {
	case mode == remoteNone:
	case s.cfg.Remote.RefreshToken == "" && mode == remoteOptional:
		s.logger.Warn("No refresh token configured, running without remote lookups")
	default:
		client, err := remote.NewClient(ctx, s.cfg.Remote, s.fs, s.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to remote: %w", err)
		}
		rc = client
	}

	return reconcile.New(s.fs, s.store, rc, reconcile.Options{
		Paths:    s.cfg.Paths,
		Config:   s.cfg.Reconcile,
		Resolver: resolver,
	}, s.logger), nil
}

func logStats(l *zap.Logger, msg, path string, st store.Stats) {
	l.Info(msg,
		zap.String("path", path),
		zap.Int("files", st.Files),
		zap.Int("images", st.Images),
		zap.Int("authors", st.Authors),
		zap.Int("tags", st.Tags),
	)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
