package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ragcite",
	Short: "Retrieval-augmented question answering with verifiable citations",
	Long: `Ragcite indexes markdown document libraries into a semantic vector
database and answers questions over them with an LLM. Every answer is
grounded in retrieved chunks and backed by rendered HTML citation pages
pointing at the exact source passages.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".ragcite.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
