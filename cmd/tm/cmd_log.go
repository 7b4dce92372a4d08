package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daviddao/trialmem/pkg/journal"
)

func (a *app) newLogCmd() *cobra.Command {
	var (
		since int64
		limit int
		runID string
	)
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Print journaled store mutations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			j, err := a.openJournal(true)
			if err != nil {
				return err
			}

			var entries []journal.Entry
			if runID != "" {
				entries, err = j.ListRunEvents(cmd.Context(), runID)
			} else {
				entries, err = j.ListEvents(cmd.Context(), since, limit)
			}
			if err != nil {
				return fmt.Errorf("log: %w", err)
			}

			out := cmd.OutOrStdout()
			if a.flags.json {
				return printJSON(out, map[string]any{"events": entries, "count": len(entries)})
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "no events")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(out, "#%d [%s seq=%d] %s experiment=%d", e.ID, shortRun(e.RunID), e.Seq, e.Op, e.ExperimentID)
				if e.TrialID >= 0 {
					fmt.Fprintf(out, " trial=%d", e.TrialID)
				}
				if len(e.Payload) > 0 {
					data, _ := json.Marshal(e.Payload)
					fmt.Fprintf(out, " %s", data)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&since, "since", 0, "show events with id > this")
	cmd.Flags().IntVar(&limit, "limit", 50, "max events to return")
	cmd.Flags().StringVar(&runID, "run", "", "show every event of one run, in store order")
	return cmd
}

func shortRun(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
