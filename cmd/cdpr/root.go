package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/banshee-data/cdpr/internal/config"
	"github.com/banshee-data/cdpr/internal/db"
	"github.com/banshee-data/cdpr/internal/monitoring"
	"github.com/banshee-data/cdpr/internal/version"
)

// app holds state shared by all subcommands, filled in by the root
// PersistentPreRunE.
type app struct {
	verbose    bool
	configPath string
	dbPath     string

	log    *charmlog.Logger
	solver *config.SolverConfig
}

func newLogger(w io.Writer, level charmlog.Level) *charmlog.Logger {
	return charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "cdpr",
		Short:        "Kinematics and workspace analysis for cable-driven parallel robots",
		Version:      version.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}
	root.SetVersionTemplate("cdpr " + version.String() + "\n")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "solver configuration JSON (defaults built in)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "cdpr.db", "SQLite run store")

	root.AddCommand(newBackwardCmd(a))
	root.AddCommand(newForwardCmd(a))
	root.AddCommand(newGridCmd(a))
	root.AddCommand(newHullCmd(a))
	root.AddCommand(newRunsCmd(a))
	root.AddCommand(newMigrateCmd(a))
	return root
}

func (a *app) setup(stderr io.Writer) error {
	level := charmlog.InfoLevel
	if a.verbose {
		level = charmlog.DebugLevel
	}
	a.log = newLogger(stderr, level)
	monitoring.SetLogger(func(format string, args ...any) { a.log.Debugf(format, args...) })

	if a.configPath == "" {
		a.solver = config.DefaultSolverConfig()
		return nil
	}
	cfg, err := config.LoadSolverConfig(a.configPath)
	if err != nil {
		return err
	}
	a.log.Debug("loaded solver config", "path", a.configPath)
	a.solver = cfg
	return nil
}

func (a *app) openDB() (*db.DB, error) {
	d, err := db.Open(a.dbPath)
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}
	return d, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeHTML renders into path, removing a partial file on failure.
func writeHTML(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
