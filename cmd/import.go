package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/courtline/content-cli/internal/ingest"
	"github.com/courtline/content-cli/internal/store"
)

var (
	importPath  string
	importSheet string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a topic backlog from an XLSX spreadsheet",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		topics, skipped, err := ingest.ReadTopicsXLSX(importPath, ingest.Options{SheetName: importSheet})
		if err != nil {
			return err
		}
		if len(topics) == 0 {
			return eris.Errorf("no usable topics in %s", importPath)
		}

		// Postgres gets the COPY fast path for large backlogs.
		var seeded int
		if ps, ok := st.(*store.PostgresStore); ok && len(topics) > 100 {
			seeded, err = ps.BulkSeedTopics(ctx, topics)
		} else {
			seeded, err = st.SeedTopics(ctx, topics)
		}
		if err != nil {
			return eris.Wrap(err, "seed topics")
		}

		zap.L().Info("import complete",
			zap.String("file", importPath),
			zap.Int("seeded", seeded),
			zap.Int("skipped_rows", skipped),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importPath, "xlsx", "", "path to XLSX file (required)")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "sheet name (default: first sheet)")
	_ = importCmd.MarkFlagRequired("xlsx")
	rootCmd.AddCommand(importCmd)
}
