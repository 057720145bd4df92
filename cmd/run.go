package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amirhossein5/efl/attendance/internal/attendance"
	"github.com/amirhossein5/efl/attendance/internal/camera"
	"github.com/amirhossein5/efl/attendance/internal/dbconnection"
	"github.com/amirhossein5/efl/attendance/internal/enrollment"
	"github.com/amirhossein5/efl/attendance/internal/matcher"
	"github.com/amirhossein5/efl/attendance/internal/recognition"
	"github.com/amirhossein5/efl/attendance/internal/recognizer"
	"github.com/amirhossein5/efl/attendance/internal/stream"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch the camera and mark attendance (default command)",
	Long: `Load the reference photos, open the camera and mark attendance for every
recognized face.

Examples:
  # Use the second camera
  attendance run --device 1

  # Serve the annotated view on :8000 (/stream and /events)
  attendance run --stream :8000`,
	Args: cobra.NoArgs,
	RunE: runRecognition,
}

func init() {
	rootCmd.AddCommand(runCmd)
	for _, c := range []*cobra.Command{rootCmd, runCmd} {
		c.Flags().Int("device", 0, "Camera device index (overrides CAMERA_DEVICE)")
		c.Flags().String("stream", "", "Address for the live stream server (overrides STREAM_ADDR)")
	}
}

func runRecognition(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("device") {
		cfg.CameraDevice = mustGetInt(cmd, "device")
	}
	overrideString(cmd, "stream", &cfg.StreamAddr)

	ctx := cmd.Context()
	sessionID := uuid.NewString()
	logger := slog.Default().With("session", sessionID)

	rec, err := recognizer.New(cfg.ModelsDir)
	if err != nil {
		return err
	}
	defer rec.Close()

	results, err := enrollment.Load(ctx, cfg.ImagesDir, rec, enrollment.Options{
		Strict:  cfg.StrictEnrollment,
		MaxSize: cfg.EnrollMaxSize,
	})
	if err != nil {
		return err
	}
	table := enrollment.BuildTable(results, matcher.WithDistance(recognizer.Distance))
	logger.Info("enrollment finished", "images", len(results), "identities", table.Len())
	if table.Len() == 0 {
		logger.Warn("no identities enrolled, every face will be unrecognized", "dir", cfg.ImagesDir)
	}

	bookOpts := []attendance.Option{attendance.WithLogger(logger)}
	if cfg.JournalPath != "" {
		db, err := dbconnection.Open(cfg.JournalPath)
		if err != nil {
			return err
		}
		defer dbconnection.Close(db)

		if err := enrollment.Save(db, sessionID, results); err != nil {
			logger.Warn("failed to journal enrollment", "error", err)
		}
		bookOpts = append(bookOpts, attendance.WithJournal(attendance.NewDBJournal(db, sessionID)))
	}
	book := attendance.NewBook(cfg.AttendanceDir, bookOpts...)

	procOpts := []recognition.Option{recognition.WithLogger(logger)}
	var hub *stream.Hub
	if cfg.StreamAddr != "" {
		hub = stream.NewHub()
		procOpts = append(procOpts, recognition.WithEvents(hub.Publish))
	}
	processor := recognition.NewProcessor(table, book, cfg.MatchTolerance, procOpts...)

	source, display, err := camera.Open(cfg.CameraDevice, cfg.WindowTitle)
	if err != nil {
		return err
	}
	loop := &camera.Loop{
		Source:             source,
		Display:            display,
		Detector:           rec,
		Processor:          processor,
		QuitKey:            cfg.QuitKey[0],
		MaxCaptureFailures: cfg.MaxCaptureFailures,
		Logger:             logger,
	}

	if hub == nil {
		return loop.Run(ctx)
	}
	loop.Publisher = hub

	serverCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()
	g, gctx := errgroup.WithContext(serverCtx)
	g.Go(func() error {
		if err := stream.Serve(gctx, cfg.StreamAddr, hub); err != nil {
			return fmt.Errorf("stream server: %w", err)
		}
		return nil
	})

	// The window must stay on this goroutine; a failing server cancels gctx.
	runErr := loop.Run(gctx)
	stopServer()
	if err := g.Wait(); err != nil && runErr == nil {
		return err
	}
	return runErr
}
