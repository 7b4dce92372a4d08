package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/daviddao/trialmem/pkg/config"
	"github.com/daviddao/trialmem/pkg/journal"
)

// app holds shared state for all CLI subcommands.
type app struct {
	flags struct {
		configPath string
		journal    string
		logLevel   string
		json       bool
	}

	cfg     *config.Config
	logger  *slog.Logger
	journal *journal.Journal
}

// init loads the config and builds the logger. Flags override whatever the
// file and environment produced.
func (a *app) init(cmd *cobra.Command) error {
	path, explicit := a.flags.configPath, true
	if path == "" {
		path, explicit = config.DefaultPath, false
	}
	cfg, err := config.Load(path, !explicit)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("journal") {
		cfg.Journal.Path = a.flags.journal
	}
	if a.flags.logLevel != "" {
		cfg.Log.Level = a.flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := cfg.Log.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.cfg, a.logger = cfg, logger
	return nil
}

// openJournal opens the configured journal. It returns nil when journaling
// is disabled and required is false.
func (a *app) openJournal(required bool) (*journal.Journal, error) {
	path := a.cfg.Journal.Path
	if path == "" {
		if required {
			return nil, errors.New("no journal configured: pass --journal or set TRIALMEM_JOURNAL")
		}
		return nil, nil
	}
	if required {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("cannot read journal %q: %w", path, err)
		}
	} else if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cannot create %s: %w", dir, err)
		}
	}
	j, err := journal.Open(path, journal.WithLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("cannot open journal %q: %w", path, err)
	}
	a.journal = j
	return j, nil
}

// Close releases the journal, if one was opened.
func (a *app) Close() error {
	if a.journal == nil {
		return nil
	}
	err := a.journal.Close()
	a.journal = nil
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
