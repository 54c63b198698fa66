package cmd

import (
	"github.com/spf13/cobra"
)

var (
	exportMaxSanity int
	exportOutput    string
)

// exportCmd writes the denormalized export view.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the export view",
	Long: `Writes every file joined with its image, author and tags as one JSON array,
newest image first. Images above --max-sanity are omitted (-1 keeps all).`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().IntVar(&exportMaxSanity, "max-sanity", -1, "Maximum sanity level to export, -1 keeps all (default from config)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default from config)")
	RootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
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

	maxSanity := s.cfg.Reconcile.MaxSanityLevel
	if cmd.Flags().Changed("max-sanity") {
		maxSanity = exportMaxSanity
	}
	path := s.cfg.Paths.ExportFile
	if exportOutput != "" {
		path = exportOutput
	}

	_, err = engine.Export(ctx, path, maxSanity)
	return err
}
