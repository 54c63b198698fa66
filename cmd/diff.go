package cmd

import (
	"collection-manager/core/reconcile"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var diffDryRun bool

// diffCmd reconciles the snapshot with the originals on disk.
var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Reconcile the snapshot with the originals on disk",
	Long: `Compares file records with the originals directory and repairs the snapshot:
records without an original are deleted, originals without a record are
created, and records whose size no longer matches are refreshed. Name
conflicts (same image and page, different extension) are resolved first.

Examples:
  # Report only
  collection-manager diff --dry-run

  # Apply
  collection-manager diff`,
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().BoolVar(&diffDryRun, "dry-run", false, "Plan only, change nothing")
	RootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	engine, err := s.newEngine(ctx, remoteOptional)
	if err != nil {
		return err
	}

	plan, report, err := engine.Diff(ctx, reconcile.DiffOptions{DryRun: diffDryRun})
	if plan != nil {
		logPlan(s.logger, plan)
	}
	if err != nil {
		if diffDryRun {
			return err
		}
		logDiffReport(s.logger, report)
		return s.keep(err)
	}

	if diffDryRun {
		s.logger.Info("Dry-run mode: No changes were made.")
		return nil
	}
	logDiffReport(s.logger, report)
	return s.save()
}

// logPlan prints a plan summary plus a sample of its actions.
func logPlan(l *zap.Logger, plan *reconcile.Plan) {
	sum := plan.Summary
	l.Info("Diff plan",
		zap.Int("total_items", sum.TotalItems),
		zap.Int("missing_disk", sum.MissingDisk),
		zap.Int("missing_store", sum.MissingStore),
		zap.Int("mismatches", sum.Mismatches),
		zap.Int("conflicts", sum.Conflicts),
		zap.Int("invalid", len(plan.Invalid)),
	)

	maxShow := min(5, len(plan.Actions))
	for _, action := range plan.Actions[:maxShow] {
		l.Info("Sample action",
			zap.String("type", string(action.Type)),
			zap.String("key", action.Key),
			zap.String("reason", action.Reason),
		)
	}
	if len(plan.Actions) > maxShow {
		l.Info("Additional actions not shown", zap.Int("count", len(plan.Actions)-maxShow))
	}
}

func logDiffReport(l *zap.Logger, r *reconcile.DiffReport) {
	if r == nil {
		return
	}
	l.Info("Diff applied",
		zap.Int("created", len(r.Created)),
		zap.Int("deleted", len(r.Deleted)),
		zap.Int("refreshed", len(r.Refreshed)),
		zap.Int("unmatched", len(r.Unmatched)),
		zap.Int("removed", len(r.Removed)),
		zap.Int("failed", len(r.Failed)),
		zap.Int("pruned_images", len(r.Pruned.Images)),
	)
}
