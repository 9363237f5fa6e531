package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hbukhari/ragcite/internal/chat"
	"github.com/hbukhari/ragcite/internal/db"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored chat sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		limit, _ := cmd.Flags().GetInt("limit")

		database, err := db.Open(databasePath(cfg))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		store := chat.NewStore(database)
		ctx := context.Background()
		sessions, err := store.AllSessions(ctx, limit, 0)
		if err != nil {
			return fmt.Errorf("listing sessions: %w", err)
		}

		if len(sessions) == 0 {
			fmt.Println("No chat sessions found.")
			return nil
		}

		for _, s := range sessions {
			count, err := store.MessageCount(ctx, s.SessionID)
			if err != nil {
				return fmt.Errorf("counting messages for %s: %w", s.SessionID, err)
			}
			fmt.Printf("%s  %-40s  %3d message(s)  last active %s\n",
				s.SessionID, s.SessionName, count, chat.TimeAgo(s.UpdatedAt))
		}
		return nil
	},
}

func init() {
	sessionsCmd.Flags().Int("limit", 20, "maximum number of sessions to list")
	rootCmd.AddCommand(sessionsCmd)
}
