package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/cdpr/internal/db"
	"github.com/banshee-data/cdpr/internal/report"
)

func newRunsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List, inspect and delete stored workspace runs",
	}

	var filter db.RunFilter
	var kind string
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.openDB()
			if err != nil {
				return err
			}
			defer d.Close()
			filter.Kind = db.RunKind(kind)
			runs, err := d.ListRuns(cmd.Context(), filter)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tKIND\tROBOT\tARCHETYPE\tCRITERION\tCREATED\tDURATION")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					r.ID, r.Kind, r.Robot, r.Archetype, r.Criterion, r.CreatedAt.Format(time.RFC3339), r.Duration)
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVar(&filter.Robot, "robot", "", "only runs of this robot")
	list.Flags().StringVar(&kind, "kind", "", "only grid or hull runs")
	list.Flags().IntVar(&filter.Limit, "limit", 20, "maximum runs listed (0: all)")

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Print a run's metadata and summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.openDB()
			if err != nil {
				return err
			}
			defer d.Close()
			run, err := d.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), run)
		},
	}

	var htmlPath, pngPath string
	var x, y int
	rep := &cobra.Command{
		Use:   "report ID",
		Short: "Render charts of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if htmlPath == "" && pngPath == "" {
				return fmt.Errorf("nothing to render: give --html and/or --png")
			}
			d, err := a.openDB()
			if err != nil {
				return err
			}
			defer d.Close()
			run, err := d.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			switch run.Kind {
			case db.RunGrid:
				res, err := run.Grid()
				if err != nil {
					return err
				}
				if pngPath != "" {
					p, err := report.PlotGrid(res, x, y)
					if err != nil {
						return err
					}
					if err := report.SavePNG(p, pngPath, 6*vg.Inch, 6*vg.Inch); err != nil {
						return err
					}
				}
				if htmlPath != "" {
					return writeHTML(htmlPath, func(w io.Writer) error { return report.GridHTML(w, res, x, y) })
				}
			case db.RunHull:
				if pngPath != "" {
					return fmt.Errorf("hull runs render to --html only")
				}
				res, err := run.Hull()
				if err != nil {
					return err
				}
				return writeHTML(htmlPath, func(w io.Writer) error { return report.HullHTML(w, res) })
			default:
				return fmt.Errorf("run %s has unknown kind %q", run.ID, run.Kind)
			}
			return nil
		},
	}
	rep.Flags().StringVar(&htmlPath, "html", "", "write an interactive HTML chart")
	rep.Flags().StringVar(&pngPath, "png", "", "write a PNG scatter (grid runs)")
	rep.Flags().IntVar(&x, "x", 0, "coordinate on the horizontal axis")
	rep.Flags().IntVar(&y, "y", 1, "coordinate on the vertical axis")

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.openDB()
			if err != nil {
				return err
			}
			defer d.Close()
			if err := d.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.log.Info("deleted run", "id", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, show, rep, del)
	return cmd
}

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the run store schema",
	}
	// Migration commands open the store without the automatic upgrade.
	withRaw := func(fn func(cmd *cobra.Command, d *db.DB, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			d, err := db.OpenRaw(a.dbPath)
			if err != nil {
				return err
			}
			defer d.Close()
			return fn(cmd, d, args)
		}
	}
	status := func(cmd *cobra.Command, d *db.DB) error {
		version, dirty, err := d.MigrateVersion()
		if err != nil {
			return err
		}
		latest, err := db.LatestMigrationVersion()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version: %d\nlatest: %d\ndirty: %t\n", version, latest, dirty)
		return nil
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: withRaw(func(cmd *cobra.Command, d *db.DB, _ []string) error {
			if err := d.MigrateUp(); err != nil {
				return err
			}
			return status(cmd, d)
		}),
	}
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: withRaw(func(cmd *cobra.Command, d *db.DB, _ []string) error {
			if err := d.MigrateDown(); err != nil {
				return err
			}
			return status(cmd, d)
		}),
	}
	st := &cobra.Command{
		Use:   "status",
		Short: "Show the applied schema version",
		Args:  cobra.NoArgs,
		RunE: withRaw(func(cmd *cobra.Command, d *db.DB, _ []string) error {
			return status(cmd, d)
		}),
	}
	to := &cobra.Command{
		Use:   "to VERSION",
		Short: "Migrate up or down to VERSION",
		Args:  cobra.ExactArgs(1),
		RunE: withRaw(func(cmd *cobra.Command, d *db.DB, args []string) error {
			v, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			if err := d.MigrateTo(uint(v)); err != nil {
				return err
			}
			return status(cmd, d)
		}),
	}
	force := &cobra.Command{
		Use:   "force VERSION",
		Short: "Record VERSION without migrating (recovers a dirty state)",
		Args:  cobra.ExactArgs(1),
		RunE: withRaw(func(cmd *cobra.Command, d *db.DB, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			if err := d.MigrateForce(v); err != nil {
				return err
			}
			a.log.Warn("forced migration version", "version", v)
			return status(cmd, d)
		}),
	}
	cmd.AddCommand(up, down, st, to, force)
	return cmd
}
