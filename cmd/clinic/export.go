package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"pediclinic/internal/database"
	"pediclinic/internal/export"
	"pediclinic/internal/slots"
)

var (
	exportStart string
	exportOut   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export data to .xlsx",
}

var exportWeekCmd = &cobra.Command{
	Use:   "week",
	Short: "Export the weekly schedule",
	Long: `Write the schedule grid and session list of one week to an .xlsx file.

Example:
  clinic export week --start 2024-01-01 --out exports/`,
	RunE: runExportWeek,
}

var exportTablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Dump the therapists, patients and sessions tables",
	RunE:  runExportTables,
}

func init() {
	exportCmd.PersistentFlags().StringVar(&exportOut, "out", ".", "output directory")
	exportWeekCmd.Flags().StringVar(&exportStart, "start", "", "any date of the week, YYYY-MM-DD (default current week)")
	exportCmd.AddCommand(exportWeekCmd, exportTablesCmd)
	rootCmd.AddCommand(exportCmd)
}

func runExportWeek(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	hours, err := cfg.OperatingHours()
	if err != nil {
		return err
	}

	start := time.Now().In(cfg.Location())
	if exportStart != "" {
		if start, err = slots.ParseDate(exportStart); err != nil {
			return err
		}
	}
	monday := slots.WeekStart(start)

	db, err := database.Open(cfg.Database.Path, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	sessions, err := db.ListSessions(ctx, monday, monday.AddDate(0, 0, 6))
	if err != nil {
		return err
	}
	week := slots.BuildWeek(monday, hours, cfg.Center.MaxSessionsPerSlot, sessions)

	names := export.Names{Patients: map[string]string{}, Therapists: map[string]string{}}
	therapists, err := db.ListTherapists(ctx)
	if err != nil {
		return err
	}
	for _, t := range therapists {
		names.Therapists[t.ID] = t.FullName
	}
	for _, s := range sessions {
		if p, err := db.GetPatient(ctx, s.PatientID); err == nil {
			names.Patients[p.ID] = p.FullName
		}
	}

	wb := export.NewWorkbook()
	defer wb.Close()
	if err := export.WriteWeek(wb, week, sessions, names); err != nil {
		return err
	}
	path, err := saveWorkbook(wb, export.WeekFilename(monday))
	if err != nil {
		return err
	}
	fmt.Printf("Exported %d sessions to %s\n", len(sessions), path)
	return nil
}

func runExportTables(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := database.Open(cfg.Database.Path, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	wb := export.NewWorkbook()
	defer wb.Close()
	if err := export.WriteTables(cmd.Context(), wb, db); err != nil {
		return err
	}
	path, err := saveWorkbook(wb, fmt.Sprintf("tables_%s.xlsx", time.Now().Format("20060102_150405")))
	if err != nil {
		return err
	}
	fmt.Printf("Exported tables to %s\n", path)
	return nil
}

func saveWorkbook(wb *export.Workbook, name string) (string, error) {
	if err := os.MkdirAll(exportOut, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(exportOut, name)
	if err := wb.SaveToFile(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	return path, nil
}
