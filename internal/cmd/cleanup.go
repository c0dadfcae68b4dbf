package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwinters/go-spotify-muse/internal/db"
	"github.com/cwinters/go-spotify-muse/internal/history"
)

var cleanupRetentionDays int

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove expired sessions and old recommendation history",
	Long: `Remove expired web sessions and recommendation records older than the
retention period. Requires DATABASE_URL. Intended to run from cron.`,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)

	cleanupCmd.Flags().IntVar(&cleanupRetentionDays, "retention-days", 30, "How many days of recommendation history to keep")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("cleanup requires DATABASE_URL")
	}

	ctx := cmd.Context()

	database, err := db.New(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	sessions, err := database.Sessions().DeleteExpired(ctx)
	if err != nil {
		return fmt.Errorf("deleting expired sessions: %w", err)
	}
	fmt.Printf("Deleted %d expired sessions\n", sessions)

	retention := time.Duration(cleanupRetentionDays) * 24 * time.Hour
	tracker := history.New(database.Recommendations(), history.WithRetention(retention))
	records, err := tracker.Cleanup(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d recommendation records older than %d days\n", records, cleanupRetentionDays)

	return nil
}
