package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/amirhossein5/efl/attendance/internal/dbconnection"
	"github.com/amirhossein5/efl/attendance/internal/enrollment"
	"github.com/amirhossein5/efl/attendance/internal/recognizer"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Check the reference photos without starting the camera",
	Long: `Load every photo in the images directory and report, per photo, whether
it can be used for recognition.

Examples:
  # Check the default images directory
  attendance enroll

  # Refuse photos with more than one face and keep the results in the journal
  STRICT_ENROLLMENT=true attendance enroll --persist --journal attendance.db`,
	Args: cobra.NoArgs,
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().Bool("persist", false, "Store the results in the journal database")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	persist := mustGetBool(cmd, "persist")
	if persist && cfg.JournalPath == "" {
		return errors.New("--persist needs a journal, set JOURNAL_PATH or --journal")
	}

	files, err := enrollment.Files(cfg.ImagesDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No images found in %s\n", cfg.ImagesDir)
		return nil
	}

	rec, err := recognizer.New(cfg.ModelsDir)
	if err != nil {
		return err
	}
	defer rec.Close()

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("Enrolling"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	results, err := enrollment.Load(cmd.Context(), cfg.ImagesDir, rec, enrollment.Options{
		Strict:   cfg.StrictEnrollment,
		MaxSize:  cfg.EnrollMaxSize,
		OnResult: func(enrollment.Result) { _ = bar.Add(1) },
	})
	_ = bar.Finish()
	if err != nil {
		return err
	}

	printEnrollment(cmd.OutOrStdout(), results)

	if persist {
		db, err := dbconnection.Open(cfg.JournalPath)
		if err != nil {
			return err
		}
		defer dbconnection.Close(db)

		if err := enrollment.Save(db, uuid.NewString(), results); err != nil {
			return err
		}
	}
	return nil
}

func printEnrollment(out io.Writer, results []enrollment.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tFILE\tSTATUS\tUSED\tDETAIL")
	used := 0
	for _, res := range results {
		if res.Usable {
			used++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", res.Name, res.Path, res.Status, res.Usable, res.Detail())
	}
	w.Flush()

	fmt.Fprintf(out, "\n%d of %d images enrolled\n", used, len(results))
}
