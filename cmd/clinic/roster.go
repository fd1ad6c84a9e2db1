package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pediclinic/internal/config"
	"pediclinic/internal/database"
)

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Manage the patient and therapist roster",
}

var rosterSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync roster.yaml into the database",
	Long: `Upsert every patient and therapist listed in the roster file.

Records missing from the file are soft-deleted; their past sessions are kept.

Example:
  clinic roster sync --config configs/config.yaml`,
	RunE: runRosterSync,
}

func init() {
	rosterCmd.AddCommand(rosterSyncCmd)
	rootCmd.AddCommand(rosterCmd)
}

func runRosterSync(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	roster, err := config.LoadRoster(cfg.Roster.Path)
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.Database.Path, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.SyncRoster(cmd.Context(), roster); err != nil {
		return fmt.Errorf("sync roster: %w", err)
	}
	fmt.Println(roster.String())
	return nil
}
