// Command tm drives the trialmem in-memory experiment registry: it replays
// scenario files against a fresh store and inspects the SQLite journal those
// replays leave behind.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/daviddao/trialmem/pkg/config"
)

const version = "0.3.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code: 0 on success,
// 1 on any error.
func run(args []string, stdout, stderr io.Writer) int {
	a := &app{}
	defer a.Close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(stderr, "tm: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "tm",
		Short: "In-memory experiment and trial registry",
		Long: `tm replays experiment/trial scenarios against an in-memory registry.

Every mutation can be journaled to SQLite for later inspection with 'tm log'.

Environment:
  TRIALMEM_JOURNAL     journal database path (empty disables journaling)
  TRIALMEM_LOG_LEVEL   debug, info, warn or error
  TRIALMEM_LOG_FORMAT  text or json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "config file (default "+config.DefaultPath+")")
	pf.StringVar(&a.flags.journal, "journal", "", "journal database path (overrides config)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level (overrides config)")
	pf.BoolVar(&a.flags.json, "json", false, "JSON output")

	root.AddCommand(
		a.newRunCmd(),
		a.newLogCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tm version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "tm", version)
		},
	}
}
