package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"pediclinic/internal/config"
)

var (
	configPath string
	logger     zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "clinic",
	Short: "Scheduling service for a pediatric therapy center",
	Long: `clinic books therapy sessions, moves them and creates recurring series
while keeping every slot within therapist exclusivity and center capacity.

Example:
  clinic serve --config configs/config.yaml
  clinic roster sync
  clinic export week --start 2024-01-01`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default $CLINIC_CONFIG_PATH or configs/config.yaml)")
}

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger = zerolog.New(output).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error().Err(err).Msg("command failed")
		stop()
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("CLINIC_CONFIG_PATH")
	}
	return config.Load(path)
}
