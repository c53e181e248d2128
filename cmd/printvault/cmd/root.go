// Package cmd implements the printvault command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"printvault/internal/adapters/backends"
	"printvault/internal/adapters/cli/styles"
	"printvault/internal/application"
	"printvault/internal/config"
	"printvault/internal/domain"
	"printvault/internal/logging"
	"printvault/internal/ports"
)

// env holds what the subcommands share: the loaded configuration and the
// backends opened on demand.
type env struct {
	configPath string
	verbose    bool

	cfg     *config.Config
	logger  *zap.Logger
	closers []func() error
}

func (e *env) load() error {
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return err
	}
	logCfg := cfg.Log
	logCfg.Format = "console"
	logCfg.Level = "warn"
	if e.verbose {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return err
	}
	e.cfg = cfg
	e.logger = logger
	return nil
}

func (e *env) openStorage(ctx context.Context) (ports.RemoteStorage, error) {
	s, err := backends.OpenStorage(ctx, e.cfg, e.logger)
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, s.Close)
	return s, nil
}

// storage opens and connects the configured remote storage.
func (e *env) storage(ctx context.Context) (ports.RemoteStorage, error) {
	s, err := e.openStorage(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (e *env) catalog(ctx context.Context) (*application.Catalog, error) {
	store, err := backends.OpenCatalogStore(ctx, e.cfg, e.logger)
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, store.Close)
	if e.cfg.Catalog.Key != "" {
		return application.NewCatalogWithKey(store, e.cfg.Catalog.Key, e.logger), nil
	}
	return application.NewCatalog(store, e.logger), nil
}

func (e *env) reconciler(ctx context.Context) (*application.Reconciler, error) {
	s, err := e.storage(ctx)
	if err != nil {
		return nil, err
	}
	c, err := e.catalog(ctx)
	if err != nil {
		return nil, err
	}
	return application.NewReconciler(s, c, e.logger, e.cfg.Scan.Concurrency), nil
}

func (e *env) close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i]())
	}
	e.closers = nil
	if e.logger != nil {
		_ = e.logger.Sync()
	}
	return errors.Join(errs...)
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:   "printvault",
		Short: "Remote storage for 3D-print files",
		Long: `printvault stores STL files and preview images in folders named after
allegiance, faction and unit, on FTP, WebDAV, Google Cloud Storage or a local
directory, and keeps a JSON catalog of armies and units in sync with them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// path needs no configuration
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "path" {
				return nil
			}
			return e.load()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return e.close()
		},
	}
	root.PersistentFlags().StringVarP(&e.configPath, "config", "c", "", "config file (default $"+config.EnvConfigPath+")")
	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newServeCmd(e),
		newUploadCmd(e),
		newFilesCmd(e),
		newDownloadCmd(e),
		newRmCmd(e),
		newScanCmd(e),
		newHealthCmd(e),
		newPathCmd(),
		newTreeCmd(e),
		newCatalogCmd(e),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		code := domain.CodeOf(err)
		fmt.Fprintf(os.Stderr, "%s %s %s\n",
			styles.ErrorMsg.Render("error:"), err, styles.MutedText.Render("("+string(code)+")"))
		return 1
	}
	return 0
}
