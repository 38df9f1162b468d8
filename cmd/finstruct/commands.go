package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ukaji3/finstruct-go/pkg/cache/redis"
	"github.com/ukaji3/finstruct-go/pkg/export/sqlite"
	"github.com/ukaji3/finstruct-go/pkg/finstruct"
	"github.com/ukaji3/finstruct-go/pkg/finstruct/models"
	"github.com/ukaji3/finstruct-go/pkg/metrics"
	"github.com/ukaji3/finstruct-go/pkg/query"
	"github.com/ukaji3/finstruct-go/pkg/scheduler"
	"github.com/ukaji3/finstruct-go/pkg/server"
)

func (a *app) extractCmd() *cobra.Command {
	var (
		outputPath  string
		pretty      bool
		year, month int
	)
	cmd := &cobra.Command{
		Use:   "extract <workbook.xlsx>",
		Short: "Extract one workbook and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputPath := args[0]
			if _, err := os.Stat(inputPath); os.IsNotExist(err) {
				return fmt.Errorf("file not found: %s", inputPath)
			}
			opts, err := a.extractOptions()
			if err != nil {
				return err
			}

			wb, err := finstruct.Extract(inputPath, year, month, opts)
			if err != nil {
				return fmt.Errorf("extraction failed: %w", err)
			}

			var data []byte
			if pretty {
				data, err = json.MarshalIndent(wb, "", "  ")
			} else {
				data, err = json.Marshal(wb)
			}
			if err != nil {
				return fmt.Errorf("serialization failed: %w", err)
			}

			if outputPath != "" {
				if err := os.WriteFile(outputPath, append(data, '\n'), 0644); err != nil {
					return fmt.Errorf("failed to write output: %w", err)
				}
				return nil
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")
	cmd.Flags().IntVar(&year, "year", 0, "Reporting year stamped on records")
	cmd.Flags().IntVar(&month, "month", 0, "Reporting month stamped on records")
	return cmd
}

func (a *app) reindexCmd() *cobra.Command {
	var (
		force   bool
		workers int
	)
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Extract new and changed workbooks and update the index",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("force") {
				a.cfg.Index.Force = force
			}
			if cmd.Flags().Changed("workers") {
				a.cfg.Index.Workers = workers
			}
			ix, err := a.newIndexer()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			report, err := ix.Reindex(ctx)
			if report != nil {
				if a.asJSON {
					if werr := writeJSON(cmd.OutOrStdout(), report); werr != nil {
						return werr
					}
				} else {
					renderReport(cmd.OutOrStdout(), report)
				}
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Re-extract every file, including cached failures")
	cmd.Flags().IntVar(&workers, "workers", 0, "Parallel extractions (default: number of CPUs)")
	return cmd
}

func (a *app) queryCmd() *cobra.Command {
	var (
		f       query.Filter
		sheet   string
		refresh bool
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "List records matching a filter",
		Example: `  finstruct query --year 2025 --month 2 --sheet Projection --trade "Gross Profit"
  finstruct query --sheet "Financial Status" --financial-type "Audit Report (WIP) J" --item-prefix 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := a.loadStore(cmd.Context(), refresh)
			if err != nil {
				return err
			}
			f.SheetName = models.SheetName(sheet)
			res, err := store.Query(f.Normalize())
			if err != nil {
				return err
			}
			if a.asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			renderResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.IntVar(&f.Year, "year", 0, "Reporting year")
	fl.IntVar(&f.Month, "month", 0, "Reporting month (1-12)")
	fl.StringVar(&sheet, "sheet", "", "Sheet name")
	fl.StringVar(&f.FinancialType, "financial-type", "", "Financial Status column header, exact")
	fl.StringVar(&f.ItemCode, "item-code", "", "Item code, exact")
	fl.StringVar(&f.ItemCodePrefix, "item-prefix", "", "Item code and its descendants")
	fl.StringVar(&f.Trade, "trade", "", "Case-insensitive substring of the trade")
	fl.BoolVar(&refresh, "refresh", false, "Reindex before querying")
	return cmd
}

func (a *app) presetCmd() *cobra.Command {
	var year, month int
	cmd := &cobra.Command{
		Use:   "preset [name]",
		Short: "Evaluate a named preset, or list presets when no name is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				if a.asJSON {
					return writeJSON(cmd.OutOrStdout(), query.Presets())
				}
				renderPresets(cmd.OutOrStdout(), query.Presets())
				return nil
			}

			store, _, err := a.loadStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			res, err := store.Preset(args[0], year, month)
			if err != nil {
				return err
			}
			if a.asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			renderPreset(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "Reporting year (default: latest period)")
	cmd.Flags().IntVar(&month, "month", 0, "Reporting month (default: latest period)")
	return cmd
}

func (a *app) summaryCmd() *cobra.Command {
	var year, month int
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the projected, WIP and cash flow gross profit of a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := a.loadStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			summary, err := store.FinancialSummary(year, month)
			if err != nil {
				return err
			}
			if a.asJSON {
				return writeJSON(cmd.OutOrStdout(), summary)
			}
			renderSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "Reporting year (default: latest period)")
	cmd.Flags().IntVar(&month, "month", 0, "Reporting month (default: latest period)")
	return cmd
}

func (a *app) projectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projects [code]",
		Short: "List indexed projects, or show one by project code",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := a.loadStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			projects := store.Projects()
			if len(args) == 1 {
				info, ok := store.Project(args[0])
				if !ok {
					return fmt.Errorf("unknown project %q", args[0])
				}
				projects = []models.ProjectInfo{info}
			}
			if a.asJSON {
				if projects == nil {
					projects = []models.ProjectInfo{}
				}
				return writeJSON(cmd.OutOrStdout(), projects)
			}
			renderProjects(cmd.OutOrStdout(), projects)
			return nil
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Mirror the indexed records into a SQLite database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := a.loadStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			if dir := filepath.Dir(dbPath); dir != "" {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return err
				}
			}
			records, err := store.Query(query.Filter{})
			if err != nil {
				return err
			}
			stats, err := sqlite.Export(cmd.Context(), dbPath, records.Records, store.Projects())
			if err != nil {
				return err
			}
			a.log.Info("sqlite export written", zap.String("path", dbPath),
				zap.Int("records", stats.Records), zap.Int("projects", stats.Projects))
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d records and %d projects to %s\n",
				stats.Records, stats.Projects, dbPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "sqlite", "finstruct.db", "SQLite database path")
	return cmd
}

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON query API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			metrics.Register()
			store, ix, err := a.loadStore(ctx, false)
			if err != nil {
				return err
			}
			refresher := scheduler.NewRefresher(ix, store, a.log)

			opts := server.Options{
				Addr:         a.cfg.Server.Addr,
				ReadTimeout:  a.cfg.Server.ReadTimeout(),
				WriteTimeout: a.cfg.Server.WriteTimeout(),
				Refresher:    refresher,
				Logger:       a.log,
			}

			if a.cfg.Redis.Enabled {
				cache, err := redis.NewClient(ctx, redis.Options{
					Addr:     a.cfg.Redis.Addr(),
					Password: a.cfg.Redis.Password,
					DB:       a.cfg.Redis.DB,
					TTL:      a.cfg.Redis.TTL(),
					Logger:   a.log,
				})
				if err != nil {
					return err
				}
				defer cache.Close()
				opts.Cache = cache
			}

			if a.cfg.Index.Schedule != "" {
				sched, err := scheduler.New(refresher, scheduler.Options{
					Schedule: a.cfg.Index.Schedule,
					Timezone: a.cfg.Index.Timezone,
					Logger:   a.log,
				})
				if err != nil {
					return err
				}
				sched.Start()
				a.log.Info("reindex scheduled", zap.String("schedule", a.cfg.Index.Schedule),
					zap.Time("next", sched.Next()))
				defer func() {
					stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.WriteTimeout())
					defer cancel()
					if err := sched.Stop(stopCtx); err != nil {
						a.log.Warn("scheduler did not stop cleanly", zap.Error(err))
					}
				}()
			}

			return server.New(store, opts).ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}
