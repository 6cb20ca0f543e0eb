package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/chorequest/internal/backup"
	"github.com/dukerupert/chorequest/internal/calendar"
	"github.com/dukerupert/chorequest/internal/database"
	"github.com/dukerupert/chorequest/internal/store"
)

var archiveLimit int

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect encrypted weekly archives",
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived weeks, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, closeDB, err := openArchives()
		if err != nil {
			return err
		}
		defer closeDB()

		list, err := mgr.List(archiveLimit)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "WEEK\tSTATUS\tBYTES\tKEY")
		for _, a := range list {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", a.WeekStart, a.Status, a.SizeBytes, a.S3Key)
		}
		return tw.Flush()
	},
}

var archiveShowCmd = &cobra.Command{
	Use:   "show <week-start>",
	Short: "Download, decrypt and print one archived week",
	Args:  cobra.MatchAll(cobra.ExactArgs(1), weekArg),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, closeDB, err := openArchives()
		if err != nil {
			return err
		}
		defer closeDB()

		if !mgr.Enabled() {
			return backup.ErrDisabled
		}
		doc, err := mgr.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if doc == nil {
			return fmt.Errorf("no completed archive for week %s", args[0])
		}
		return printDocument(doc)
	},
}

// weekArg rejects anything that is not a Sunday date, since archives are
// keyed by the week's first day.
func weekArg(cmd *cobra.Command, args []string) error {
	start, err := calendar.WeekStart(args[0], nil)
	if err != nil {
		return fmt.Errorf("week %q: want YYYY-MM-DD", args[0])
	}
	if start.Weekday() != time.Sunday {
		return fmt.Errorf("week %q starts on %s, weeks start on Sunday", args[0], start.Weekday())
	}
	return nil
}

func init() {
	archiveListCmd.Flags().IntVar(&archiveLimit, "limit", 20, "maximum number of weeks to list")
}

func openArchives() (*backup.Manager, func(), error) {
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	mgr := backup.NewManager(cfg.Archive(), store.NewArchiveStore(db), logger.With("component", "archive"), nil)
	return mgr, func() { db.Close() }, nil
}
