// Package main provides the CLI entry point for finstruct-go.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ukaji3/finstruct-go/pkg/config"
	"github.com/ukaji3/finstruct-go/pkg/finstruct"
	"github.com/ukaji3/finstruct-go/pkg/finstruct/parser"
	"github.com/ukaji3/finstruct-go/pkg/indexer"
	"github.com/ukaji3/finstruct-go/pkg/logger"
	"github.com/ukaji3/finstruct-go/pkg/query"
)

// app holds the loaded configuration and the flags shared by subcommands.
type app struct {
	configPath string
	sourceRoot string
	indexDir   string
	asJSON     bool

	cfg *config.Config
	log *zap.Logger
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "failed to load .env:", err)
		os.Exit(1)
	}

	err := newRootCmd().Execute()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "finstruct",
		Short: "Index and query project financial report workbooks",
		Long: `finstruct-go extracts line items from monthly project report workbooks
(Financial Status, Projection, Committed Cost, Accrual, Cash Flow),
keeps an incremental index of them and answers filtered queries.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Config file (default: finstruct.yaml in ., ./config or /etc/finstruct)")
	pf.StringVar(&a.sourceRoot, "source", "", "Source root holding YYYY/MM folders (overrides source.root)")
	pf.StringVar(&a.indexDir, "index-dir", "", "Index directory (overrides index.dir)")
	pf.BoolVar(&a.asJSON, "json", false, "Print JSON instead of text")

	rootCmd.AddCommand(
		a.extractCmd(),
		a.reindexCmd(),
		a.queryCmd(),
		a.presetCmd(),
		a.summaryCmd(),
		a.projectsCmd(),
		a.exportCmd(),
		a.serveCmd(),
	)
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.sourceRoot != "" {
		cfg.Source.Root = a.sourceRoot
	}
	if a.indexDir != "" {
		cfg.Index.Dir = a.indexDir
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath); err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger.Log
	return nil
}

func (a *app) extractOptions() (finstruct.Options, error) {
	opts := finstruct.DefaultOptions()
	opts.Logger = a.log
	if a.cfg.Layouts.File != "" {
		layouts, err := parser.LoadLayouts(a.cfg.Layouts.File)
		if err != nil {
			return opts, fmt.Errorf("load layouts: %w", err)
		}
		opts.Layouts = layouts
	}
	return opts, nil
}

func (a *app) newIndexer() (*indexer.Indexer, error) {
	opts, err := a.extractOptions()
	if err != nil {
		return nil, err
	}
	return indexer.New(indexer.NewLocalStorage(a.cfg.Source.Root), indexer.Options{
		IndexDir: a.cfg.Index.Dir,
		Workers:  a.cfg.Index.Workers,
		Force:    a.cfg.Index.Force,
		Extract:  opts,
		Logger:   a.log,
	}), nil
}

// loadStore opens the persisted index, building it first when missing.
func (a *app) loadStore(ctx context.Context, refresh bool) (*query.Store, *indexer.Indexer, error) {
	ix, err := a.newIndexer()
	if err != nil {
		return nil, nil, err
	}
	store, err := query.Initialize(ctx, query.InitOptions{
		IndexDir: a.cfg.Index.Dir,
		Indexer:  ix,
		Refresh:  refresh,
		Logger:   a.log,
	})
	if err != nil {
		return nil, nil, err
	}
	return store, ix, nil
}
