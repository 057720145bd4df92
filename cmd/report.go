package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/amirhossein5/efl/attendance/internal/attendance"
	"github.com/amirhossein5/efl/attendance/internal/dbconnection"
	"github.com/amirhossein5/efl/attendance/internal/models"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report [YYYY-MM-DD]",
	Short: "Print the attendance of a day",
	Long: `Print who was marked present on a day, today by default.

Examples:
  attendance report
  attendance report 2024-01-01 --json

  # Read the SQLite journal instead of the day file
  attendance report --from-journal --journal attendance.db`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().Bool("json", false, "Output as JSON")
	reportCmd.Flags().Bool("from-journal", false, "Read the journal database instead of the day file")
}

// ReportOutput represents the JSON output structure
type ReportOutput struct {
	Date    string              `json:"date"`
	File    string              `json:"file"`
	Records []attendance.Record `json:"records"`
}

func runReport(cmd *cobra.Command, args []string) error {
	day := time.Now()
	if len(args) == 1 {
		var err error
		day, err = time.ParseInLocation(models.DayLayout, args[0], time.Local)
		if err != nil {
			return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", args[0])
		}
	}

	book := attendance.NewBook(cfg.AttendanceDir)
	out := ReportOutput{
		Date: day.Format(models.DayLayout),
		File: book.Path(day),
	}

	var err error
	if mustGetBool(cmd, "from-journal") {
		out.File = cfg.JournalPath
		out.Records, err = journalRecords(day)
	} else {
		out.Records, err = book.Records(day)
	}
	if err != nil {
		return err
	}
	if out.Records == nil {
		out.Records = []attendance.Record{}
	}

	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	printReport(cmd.OutOrStdout(), out)
	return nil
}

func journalRecords(day time.Time) ([]attendance.Record, error) {
	if cfg.JournalPath == "" {
		return nil, errors.New("--from-journal needs a journal, set JOURNAL_PATH or --journal")
	}
	db, err := dbconnection.Open(cfg.JournalPath)
	if err != nil {
		return nil, err
	}
	defer dbconnection.Close(db)

	logs, err := attendance.NewDBJournal(db, "").Logs(day)
	if err != nil {
		return nil, err
	}

	records := make([]attendance.Record, 0, len(logs))
	for _, l := range logs {
		records = append(records, attendance.Record{
			Name:      l.Name,
			Timestamp: l.MarkedAt.Local().Format(attendance.TimestampLayout),
		})
	}
	return records, nil
}

func printReport(w io.Writer, out ReportOutput) {
	if len(out.Records) == 0 {
		fmt.Fprintf(w, "Nobody marked present on %s\n", out.Date)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tMARKED AT")
	for _, r := range out.Records {
		fmt.Fprintf(tw, "%s\t%s\n", r.Name, r.Timestamp)
	}
	tw.Flush()

	fmt.Fprintf(w, "\n%d present on %s\n", len(out.Records), out.Date)
}
