package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/newswatch/internal/checkpoint"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List archived collection runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		local, err := checkpoint.NewLocalStore(cfg.Checkpoint.LocalPath)
		if err != nil {
			return err
		}
		defer local.Close()

		runs, err := local.ListRuns(ctx, runsLimit)
		if err != nil {
			return eris.Wrap(err, "runs: list archive")
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No archived runs.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tRUN ID\tSAVED\tMESSAGES\tPARTNERS")
		for _, run := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n",
				run.DateKey,
				run.RunID,
				run.UpdatedAt.Local().Format(time.RFC3339),
				run.Messages,
				run.Partners,
			)
		}
		return w.Flush()
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "max runs to list")
	rootCmd.AddCommand(runsCmd)
}
