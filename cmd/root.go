package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/amirhossein5/efl/attendance/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Mark daily attendance by recognizing faces on a webcam",
	Long: `Attendance loads reference photos from the images directory, watches the
default camera and appends one line per recognized person to
Attendance_<YYYY-MM-DD>.csv, at most once a day.

Press q in the camera window to quit.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runRecognition,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("images", "", "Directory with reference photos (overrides IMAGES_DIR)")
	rootCmd.PersistentFlags().String("attendance-dir", "", "Directory for attendance files (overrides ATTENDANCE_DIR)")
	rootCmd.PersistentFlags().String("models", "", "Directory with dlib models (overrides MODELS_DIR)")
	rootCmd.PersistentFlags().String("journal", "", "SQLite journal path (overrides JOURNAL_PATH)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}

func setup(cmd *cobra.Command, args []string) error {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()

	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	overrideString(cmd, "images", &cfg.ImagesDir)
	overrideString(cmd, "attendance-dir", &cfg.AttendanceDir)
	overrideString(cmd, "models", &cfg.ModelsDir)
	overrideString(cmd, "journal", &cfg.JournalPath)
	if mustGetBool(cmd, "debug") {
		cfg.LogLevel = "debug"
	}

	slog.SetDefault(config.NewLogger(cfg, os.Stderr))
	return nil
}

func overrideString(cmd *cobra.Command, name string, dst *string) {
	if cmd.Flags().Changed(name) {
		*dst = mustGetString(cmd, name)
	}
}
