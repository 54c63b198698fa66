package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// historyCmd repairs placeholder images from a downloader history export.
var historyCmd = &cobra.Command{
	Use:   "fix-history <history.json>",
	Short: "Restore metadata of remotely deleted works from download history",
	Long: `Images recorded with author id 0 lost their metadata because the work was
deleted remotely. This command looks each of them up in a history export of a
browser downloader (records with idNum, title, userId, user, tags, date, sl and
xRestrict) and restores title, author, tags, date and ratings.

Examples:
  collection-manager fix-history ./download-history.json`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

func init() {
	RootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
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

	report, err := engine.FixFromHistory(ctx, args[0])
	if report == nil {
		return err
	}
	s.logger.Info("History repair report",
		zap.Int("candidates", report.Candidates),
		zap.Int("fixed", len(report.Fixed)),
		zap.Int("pruned_authors", len(report.Pruned.Authors)),
	)
	return s.keep(err)
}
