package cmd

import (
	"fmt"

	"collection-manager/core/storage"
	"collection-manager/feature/publish"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// publishCmd mirrors derivatives and the export view into object storage.
var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Upload derivatives and the export view to object storage",
	Long: `Mirrors the preview and thumbnail directories and the export file into the
configured bucket. Unchanged objects are skipped, the export is always
re-uploaded and derivatives deleted locally are removed from the bucket.`,
	RunE: runPublish,
}

func init() {
	RootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	client, err := storage.NewClient(s.cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to connect to storage: %w", err)
	}

	report, err := publish.NewPublisher(client, s.cfg.Storage, s.fs, s.cfg.Paths, s.logger).Publish(ctx)
	if err != nil {
		return err
	}
	if len(report.Failed) > 0 {
		s.logger.Warn("Some objects failed to publish", zap.Strings("keys", report.Failed))
	}
	return nil
}
