package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/iohnishijima/GazeMappingApplication/internal/config"
	"github.com/iohnishijima/GazeMappingApplication/pkg/report"
	"github.com/iohnishijima/GazeMappingApplication/pkg/session"
)

var reportOpts struct {
	db  string
	out string
}

var reportCmd = &cobra.Command{
	Use:   "report [session-id]",
	Short: "Render a recorded session as an HTML chart page",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(args)
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportOpts.db, "db", config.DefaultDatabase, "Session database path")
	reportCmd.Flags().StringVar(&reportOpts.out, "out", "report.html", "Output HTML path")
	rootCmd.AddCommand(reportCmd)
}

func runReport(args []string) error {
	store, err := session.Open(reportOpts.db)
	if err != nil {
		return err
	}
	defer store.Close()

	var sess *session.Session
	if len(args) == 1 {
		sess, err = store.Session(args[0])
		if err != nil {
			return err
		}
	} else {
		list, err := store.Sessions()
		if err != nil {
			return err
		}
		if len(list) == 0 {
			return fmt.Errorf("no recorded sessions in %s", reportOpts.db)
		}
		sess = list[0]
	}

	rows, err := store.Records(sess.ID)
	if err != nil {
		return err
	}

	b := report.NewBuilder(fmt.Sprintf("user=%s session=%s", sess.User, sess.Name))
	bar := progressbar.NewOptions(len(rows),
		progressbar.OptionSetDescription("Building report"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)
	for _, rec := range rows {
		b.Add(rec)
		bar.Add(1)
	}
	bar.Finish()

	if err := b.WriteFile(reportOpts.out); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "\nReport written to %s (%d rows)\n", reportOpts.out, b.Rows())
	return nil
}
