package cmd

import (
	"collection-manager/core/reconcile"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	checkFix      bool
	checkTags     bool
	checkTitle    bool
	checkBookmark bool
	checkView     bool
)

// checkCmd reports data quality problems and optionally repairs them.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check file records against their originals",
	Long: `Walks every file record and reports size mismatches, unreadable originals,
missing dominant colours and dangling references. Optional checks flag images
without tags, title, bookmarks or views.

With --fix, size mismatches are refreshed (both derivatives regenerated) and
missing colours are filled in; the snapshot is saved afterwards.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkFix, "fix", false, "Repair size mismatches and missing colours")
	checkCmd.Flags().BoolVar(&checkTags, "tag", false, "Report images without tags")
	checkCmd.Flags().BoolVar(&checkTitle, "title", false, "Report images without a title")
	checkCmd.Flags().BoolVar(&checkBookmark, "bookmark", false, "Report images without bookmarks")
	checkCmd.Flags().BoolVar(&checkView, "view", false, "Report images without views")
	RootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	engine, err := s.newEngine(ctx, remoteNone)
	if err != nil {
		return err
	}

	report, err := engine.Check(ctx, reconcile.CheckOptions{
		Tags:     checkTags,
		Title:    checkTitle,
		Bookmark: checkBookmark,
		View:     checkView,
		Fix:      checkFix,
	})
	if err != nil {
		if !checkFix {
			return err
		}
		return s.keep(err)
	}

	fixed := 0
	for _, issue := range report.Issues {
		if issue.Fixed {
			fixed++
		}
	}
	s.logger.Info("Check report",
		zap.Int("checked", report.Checked),
		zap.Int("issues", len(report.Issues)),
		zap.Int("fixed", fixed),
		zap.Int("size_mismatch", report.Count(reconcile.IssueSizeMismatch)),
		zap.Int("unreadable", report.Count(reconcile.IssueUnreadable)),
		zap.Int("missing_color", report.Count(reconcile.IssueMissingColor)),
		zap.Int("missing_image", report.Count(reconcile.IssueMissingImage)),
	)

	if !checkFix {
		return nil
	}
	return s.save()
}
