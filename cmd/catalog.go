package cmd

import (
	"fmt"

	"collection-manager/core/database"
	"collection-manager/feature/catalog"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	catalogMigrate   bool
	catalogMaxSanity int
)

// catalogCmd writes the export view into the catalog database.
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Write the export view into the catalog database",
	Long: `Upserts every exported record into the collection_items table and deletes
rows that are no longer exported. The table is migrated first unless
--migrate=false, in which case the live schema is verified instead.`,
	RunE: runCatalog,
}

func init() {
	catalogCmd.Flags().BoolVar(&catalogMigrate, "migrate", true, "Create or update the table before syncing")
	catalogCmd.Flags().IntVar(&catalogMaxSanity, "max-sanity", -1, "Maximum sanity level to write, -1 keeps all (default from config)")
	RootCmd.AddCommand(catalogCmd)
}

func runCatalog(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	db, err := database.Connect(s.cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	s.logger.Info("Connected to catalog database", zap.String("driver", db.Dialector.Name()))

	cat := catalog.New(db, s.logger)
	if catalogMigrate {
		if err := cat.Migrate(ctx); err != nil {
			return err
		}
	} else {
		missing, err := cat.Verify(ctx)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return fmt.Errorf("catalog table is missing columns %v, rerun with --migrate", missing)
		}
	}

	engine, err := s.newEngine(ctx, remoteNone)
	if err != nil {
		return err
	}
	maxSanity := s.cfg.Reconcile.MaxSanityLevel
	if cmd.Flags().Changed("max-sanity") {
		maxSanity = catalogMaxSanity
	}

	if _, err := cat.Sync(ctx, engine.Records(maxSanity)); err != nil {
		return err
	}
	count, err := cat.Count(ctx)
	if err != nil {
		return err
	}
	s.logger.Info("Catalog rows", zap.Int64("count", count))
	return nil
}
