package cmd

import (
	"github.com/spf13/cobra"

	"github.com/hbukhari/ragcite/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize ragcite configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure ragcite for your document library and generates a .ragcite.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
