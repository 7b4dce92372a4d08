package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/daviddao/trialmem/pkg/model"
	"github.com/daviddao/trialmem/pkg/scenario"
	"github.com/daviddao/trialmem/pkg/store"
)

func (a *app) newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Replay a scenario against a fresh in-memory store",
		Long: `Replay a scenario against a fresh in-memory store and print each
experiment's best trial. With a journal configured, every store mutation is
also appended to it under a new run id.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cmdRun(cmd, args[0])
		},
	}
}

func (a *app) cmdRun(cmd *cobra.Command, path string) error {
	sc, err := scenario.Load(path)
	if err != nil {
		return err
	}
	j, err := a.openJournal(false)
	if err != nil {
		return err
	}

	opts := []store.Option{store.WithLogger(a.logger)}
	if j != nil {
		opts = append(opts, store.WithObserver(j))
	}
	s := store.New(opts...)

	res, err := scenario.NewRunner(s, a.logger).Run(cmd.Context(), sc)
	if err != nil {
		return fmt.Errorf("run %s: %w", path, err)
	}

	out := cmd.OutOrStdout()
	if a.flags.json {
		v := map[string]any{"experiments": res.Summaries, "count": len(res.Summaries)}
		if j != nil {
			v["run_id"] = j.RunID()
		}
		return printJSON(out, v)
	}

	if len(res.Summaries) == 0 {
		fmt.Fprintln(out, "no experiments")
	}
	for _, sum := range res.Summaries {
		printSummary(out, sum)
	}
	if j != nil {
		fmt.Fprintf(out, "journal: run %s\n", j.RunID())
	}
	return nil
}

func printSummary(w io.Writer, sum model.ExperimentSummary) {
	fmt.Fprintf(w, "[%d] %s direction=%s trials=%d", sum.ID, sum.Name, sum.Direction, sum.NTrials)
	best := sum.BestTrial
	switch {
	case best == nil:
		fmt.Fprintln(w, " best=none")
	case best.Value == nil:
		fmt.Fprintf(w, " best=#%d value=none\n", best.Number)
	default:
		fmt.Fprintf(w, " best=#%d value=%g", best.Number, *best.Value)
		if len(best.Params) > 0 {
			fmt.Fprintf(w, " params=%s", formatParams(best.Params))
		}
		fmt.Fprintln(w)
	}
}

func formatParams(params map[string]any) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%v", name, params[name])
	}
	return strings.Join(parts, ",")
}
