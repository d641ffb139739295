// Package cmd provides the CLI commands for docfind.
package cmd

import (
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/docyard/docfind/internal/config"
	"github.com/docyard/docfind/internal/index"
	"github.com/docyard/docfind/internal/logging"
	"github.com/docyard/docfind/internal/search"
	"github.com/docyard/docfind/internal/store"
	"github.com/docyard/docfind/pkg/version"
)

// Global flags shared by all commands.
var (
	flagConfig  string
	flagDataDir string
	flagDebug   bool
)

// NewRootCmd creates the root command for the docfind CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docfind",
		Short: "Content-aware document search engine",
		Long: `docfind indexes documents into a local BM25 index and answers
bilingual (English/Chinese) full-text queries against them.

Documents are identified by content hash: unchanged files are never
re-indexed, changed files replace their older index entries.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("docfind version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config file (YAML)")
	cmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Override the data directory")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newCleanupCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// engine bundles the wired components a command needs. Close releases the
// store lock and flushes logs.
type engine struct {
	cfg     *config.Config
	log     *slog.Logger
	store   *store.Store
	manager *index.Manager
	search  *search.Service

	logCleanup func()
}

func (e *engine) Close() {
	if e.store != nil {
		_ = e.store.Close()
	}
	if e.logCleanup != nil {
		e.logCleanup()
	}
}

// openEngine loads configuration and wires the store, index manager, and
// search service.
func openEngine() (*engine, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}

	logCfg := logging.DefaultConfig(cfg.DataDir)
	logCfg.Level = cfg.LogLevel
	logCfg.WriteToStderr = false
	if flagDebug {
		logCfg.Level = "debug"
		logCfg.WriteToStderr = true
	}
	log, logCleanup, err := logging.Setup(logCfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(log)

	st, err := store.Open(store.Config{
		Path:     filepath.Join(cfg.DataDir, "index.db"),
		LockPath: filepath.Join(cfg.DataDir, "docfind.lock"),
		BM25K1:   cfg.BM25K1,
		BM25B:    cfg.BM25B,
	})
	if err != nil {
		logCleanup()
		return nil, err
	}

	manager, err := index.New(cfg, st, log)
	if err != nil {
		_ = st.Close()
		logCleanup()
		return nil, err
	}

	return &engine{
		cfg:        cfg,
		log:        log,
		store:      st,
		manager:    manager,
		search:     search.New(manager, cfg.SearchMaxResults, log),
		logCleanup: logCleanup,
	}, nil
}
