package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a one-shot question over the indexed documents",
	Long: `Runs a single question through the full pipeline: retrieval, answer
generation, and citation resolution. Citation pages are written to the
citations directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().String("session", "", "session id for conversation memory")
	queryCmd.Flags().Bool("json", false, "output the full result as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	question := args[0]

	sessionID, _ := cmd.Flags().GetString("session")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	orch, store, _, err := buildOrchestrator(ctx, cfg)
	if err != nil {
		return err
	}

	if store.Count() == 0 {
		fmt.Println("Vector store is empty. Run `ragcite ingest` first.")
		return nil
	}

	result, err := orch.ProcessQuery(ctx, question, sessionID)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if result.Answer == "" {
		fmt.Println("No answer could be produced for this question.")
		return nil
	}

	fmt.Println(result.Answer)

	if len(result.Citations) > 0 {
		fmt.Printf("\nCitations (%d):\n", len(result.Citations))
		for i, c := range result.Citations {
			chunks := c.ChunkID
			if chunks == "" {
				chunks = strings.Join(c.ChunkIDs, ", ")
			}
			fmt.Printf("  %d. file %s, chunk(s) %s\n", i+1, c.FileID, chunks)
			if c.Path != "" {
				fmt.Printf("     %s\n", c.Path)
			}
		}
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "\nChunks retrieved: %d, citation mode: %s\n", result.ChunksRetrieved, cfg.CitationMode)
	}
	return nil
}
