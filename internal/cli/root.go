package cli

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"smart-library/internal/config"
	"smart-library/internal/logger"
	"smart-library/library"
)

// RootOptions holds global flags and the state opened for every command.
type RootOptions struct {
	ConfigFile string

	v      *viper.Viper
	cfg    config.Config
	log    *logrus.Logger
	logOut io.Closer
	mgr    *library.LibraryManager
}

// NewRootCommand creates the root command of the library CLI. Without a
// subcommand it runs the interactive shell.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{v: config.New()}

	cmd := &cobra.Command{
		Use:   "library",
		Short: "Smart library: catalog, circulation and recommendations",
		Long: "Manage a library catalog and its members, lend and return books, " +
			"and recommend books from borrowing history.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			return opts.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return newShell(opts, cmd.InOrStdin(), cmd.OutOrStdout()).run(cmd.Context())
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (default ./library.yaml)")
	flags.String("store", library.DriverSQLite, "store driver (sqlite|json|memory)")
	flags.String("db", "library.db", "store path")
	flags.String("log-level", "info", "log level (debug|info|warn|error)")
	flags.String("log-file", "", "append logs to this file instead of stderr")
	flags.Int("loan-days", 14, "loan length in days, 0 for no due date")
	for key, name := range map[string]string{
		"store.driver": "store",
		"store.path":   "db",
		"log.level":    "log-level",
		"log.file":     "log-file",
		"loan.days":    "loan-days",
	} {
		_ = opts.v.BindPFlag(key, flags.Lookup(name))
	}

	// Add subcommands
	cmd.AddCommand(newBookCommand(opts))
	cmd.AddCommand(newMemberCommand(opts))
	cmd.AddCommand(newBorrowCommand(opts))
	cmd.AddCommand(newReturnCommand(opts))
	cmd.AddCommand(newRecommendCommand(opts))
	cmd.AddCommand(newHistoryCommand(opts))
	cmd.AddCommand(newStatsCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))

	return cmd
}

func (o *RootOptions) open(cmd *cobra.Command) error {
	cfg, err := config.Load(o.v, o.ConfigFile)
	if err != nil {
		return err
	}
	log, logOut, err := logger.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return err
	}
	if cfg.Log.File == "" {
		log.SetOutput(cmd.ErrOrStderr())
	}

	store, err := library.OpenStore(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		logOut.Close()
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Operation.Timeout)
	defer cancel()
	mgr, err := library.NewLibraryManager(ctx, store, library.WithLogger(log))
	if err != nil {
		store.Close()
		logOut.Close()
		return err
	}

	log.WithFields(logrus.Fields{
		"driver": cfg.Store.Driver,
		"path":   cfg.Store.Path,
	}).Debug("store opened")
	o.cfg, o.log, o.logOut, o.mgr = cfg, log, logOut, mgr
	return nil
}

func (o *RootOptions) close() error {
	if o.mgr == nil {
		return nil
	}
	err := o.mgr.Close()
	o.logOut.Close()
	o.mgr = nil
	return err
}

// opContext bounds a single library operation by operation.timeout.
func (o *RootOptions) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.cfg.Operation.Timeout)
}
