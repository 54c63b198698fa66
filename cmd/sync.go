package cmd

import (
	"context"
	"fmt"

	"collection-manager/core/reconcile"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	skipBookmarks  bool
	skipMatch      bool
	skipDiff       bool
	skipPreviews   bool
	skipThumbnails bool
	skipExport     bool
	syncPages      int
	syncUserID     int
	syncVisibility string
	syncOverwrite  bool
)

// syncCmd runs the full pipeline.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run the full synchronization pipeline",
	Long: `Runs every pass in order:

  1. bookmarks   download new bookmarked originals
  2. match       record originals that have no file record yet
  3. diff        reconcile the snapshot with the originals on disk
  4. previews    generate missing preview derivatives
  5. thumbnails  generate missing thumbnail derivatives
  6. prune       drop images, authors and tags nothing references
  7. save        write the snapshot
  8. export      write the export view

Examples:
  # Everything, three bookmark pages
  collection-manager sync --pages 3

  # Public and private bookmarks in one run
  collection-manager sync --visibility both

  # Only local work, no network
  collection-manager sync --skip-bookmarks --skip-match`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&skipBookmarks, "skip-bookmarks", false, "Skip downloading new bookmarks")
	syncCmd.Flags().BoolVar(&skipMatch, "skip-match", false, "Skip matching unrecorded originals")
	syncCmd.Flags().BoolVar(&skipDiff, "skip-diff", false, "Skip the diff pass")
	syncCmd.Flags().BoolVar(&skipPreviews, "skip-previews", false, "Skip preview generation")
	syncCmd.Flags().BoolVar(&skipThumbnails, "skip-thumbnails", false, "Skip thumbnail generation")
	syncCmd.Flags().BoolVar(&skipExport, "skip-export", false, "Skip writing the export view")
	syncCmd.Flags().IntVar(&syncPages, "pages", 0, "Bookmark pages to walk (default from config)")
	syncCmd.Flags().IntVar(&syncUserID, "user", 0, "Bookmark owner (default from config)")
	syncCmd.Flags().StringVar(&syncVisibility, "visibility", "", "Bookmark listing to walk: public, private or both (default from config)")
	syncCmd.Flags().BoolVar(&syncOverwrite, "overwrite", false, "Regenerate derivatives that already exist")

	RootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	mode := remoteOptional
	if !skipBookmarks || !skipMatch {
		mode = remoteRequired
	}
	engine, err := s.newEngine(ctx, mode)
	if err != nil {
		return err
	}

	runErr := runPipeline(ctx, s, engine)

	// Partial progress is kept
	if err := s.keep(runErr); err != nil {
		return err
	}

	if !skipExport {
		if _, err := engine.Export(ctx, s.cfg.Paths.ExportFile, s.cfg.Reconcile.MaxSanityLevel); err != nil {
			return err
		}
	}

	s.logger.Info("Sync finished")
	return nil
}

func runPipeline(ctx context.Context, s *session, engine *reconcile.Engine) error {
	l := s.logger

	if !skipBookmarks {
		opts := reconcile.SyncOptions{
			UserID:     s.cfg.Remote.UserID,
			Visibility: s.cfg.Reconcile.Visibility,
			MaxPages:   s.cfg.Reconcile.MaxPages,
		}
		if syncUserID > 0 {
			opts.UserID = syncUserID
		}
		if syncPages > 0 {
			opts.MaxPages = syncPages
		}
		if syncVisibility != "" {
			opts.Visibility = syncVisibility
		}
		if opts.UserID <= 0 {
			return fmt.Errorf("no bookmark owner configured, set REMOTE_USER_ID or --user")
		}

		report, err := engine.SyncBookmarks(ctx, opts)
		if err != nil {
			return err
		}
		l.Info("Bookmarks synced",
			zap.Int("pages", report.Pages),
			zap.Int("seen", report.Seen),
			zap.Int("queued", report.Queued),
			zap.Int("downloaded", len(report.Downloaded)),
			zap.Int("failed", len(report.Failed)),
			zap.String("page_error", report.PageError),
		)
	}

	if !skipMatch {
		report, err := engine.MatchLocalFiles(ctx)
		if err != nil {
			return err
		}
		l.Info("Local files matched",
			zap.Int("matched", len(report.Matched)),
			zap.Int("unmatched", len(report.Unmatched)),
			zap.Int("deferred", len(report.Deferred)),
			zap.Int("invalid", len(report.Invalid)),
			zap.Int("conflicts", report.Conflicts),
		)
	}

	if !skipDiff {
		plan, report, err := engine.Diff(ctx, reconcile.DiffOptions{})
		if err != nil {
			return err
		}
		logPlan(l, plan)
		logDiffReport(l, report)
	}

	if !skipPreviews {
		report, err := engine.GeneratePreviews(ctx, syncOverwrite)
		if err != nil {
			return err
		}
		logGenerateReport(l, report)
	}

	if !skipThumbnails {
		report, err := engine.GenerateThumbnails(ctx, syncOverwrite)
		if err != nil {
			return err
		}
		logGenerateReport(l, report)
	}

	pruned := engine.PruneOrphans()
	l.Info("Pruned orphans",
		zap.Int("images", len(pruned.Images)),
		zap.Int("authors", len(pruned.Authors)),
		zap.Int("tags", len(pruned.Tags)),
	)
	return nil
}

func logGenerateReport(l *zap.Logger, r *reconcile.GenerateReport) {
	l.Info("Derivatives generated",
		zap.String("kind", r.Kind),
		zap.Int("generated", len(r.Generated)),
		zap.Int("skipped", r.Skipped),
		zap.Int("failed", len(r.Failed)),
	)
}
