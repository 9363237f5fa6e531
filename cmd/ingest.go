package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hbukhari/ragcite/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index document folders into the vector database",
	Long: `Scans the documents directory for folders containing markdown and
metadata files, chunks them by heading structure, embeds the chunks, and
persists the vector index. Folders already recorded in the ingestion log
are skipped, so re-running only picks up new documents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		embedder, err := createEmbedderFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}

		ctx := context.Background()
		store, err := openVectorStore(ctx, cfg, embedder)
		if err != nil {
			return err
		}

		pipeline := ingest.NewPipeline(store, cfg.DocsDir, cfg.DataDir, ingest.NewReporter())
		report, err := pipeline.Run(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Ingestion complete: %d folder(s) processed, %d skipped, %d chunk(s) added\n",
			report.FoldersProcessed, report.FoldersSkipped, report.ChunksAdded)
		fmt.Fprintf(os.Stderr, "Total chunks indexed: %d\n", store.Count())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
