package main

import (
	"context"
	"net/http"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tgienger/stn/internal/api"
	"github.com/tgienger/stn/internal/cache"
	"github.com/tgienger/stn/internal/config"
	"github.com/tgienger/stn/internal/db"
	"github.com/tgienger/stn/internal/logging"
	"github.com/tgienger/stn/internal/store"
	"github.com/tgienger/stn/internal/ui"
	"github.com/tgienger/stn/internal/ui/editor"
	"github.com/tgienger/stn/internal/ui/styles"
	"github.com/tgienger/stn/internal/ui/views"
)

// env holds what the commands share once the config is resolved
type env struct {
	cfgFile string
	v       *viper.Viper

	// transport replaces the HTTP transport in tests
	transport http.RoundTripper

	cfg      *config.Config
	logger   *zap.Logger
	closeLog func() error
	db       *db.DB
	client   *api.Client
	queries  *cache.Queries
}

// newRootCmd builds the command tree. The caller closes the returned env
// after Execute.
func newRootCmd() (*cobra.Command, *env) {
	e := &env{v: viper.New()}

	root := &cobra.Command{
		Use:   "stn",
		Short: "A terminal client for your notes",
		Long: `stn opens your notes workspace in the terminal: a tree of pages,
an editor that saves as you type and a board of each page's sub-notes.
Run without arguments for the full screen interface.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runTUI(e.queries, e.db)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&e.cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/stn/config.yaml)")
	flags.String("api-url", "", "notes API base URL")
	flags.String("data-dir", "", "directory of the local database and log")
	flags.Bool("debug", false, "log at debug level")

	root.AddCommand(
		newLoginCmd(e),
		newRegisterCmd(e),
		newLogoutCmd(e),
		newWhoamiCmd(e),
		newListCmd(e),
		newShowCmd(e),
		newNewCmd(e),
		newMoveCmd(e),
		newReorderCmd(e),
		newSetCmd(e),
		newArchiveCmd(e),
		newRestoreCmd(e),
		newPurgeCmd(e),
		newTrashCmd(e),
		newRecentCmd(e),
		newTagsCmd(e),
		newDemoCmd(e),
		newVersionCmd(),
	)
	return root, e
}

// setup resolves the config and opens the logger, the database and the
// API client
func (e *env) setup(cmd *cobra.Command) error {
	if cmd.Annotations["bare"] == "true" {
		return nil
	}

	e.v = config.New(e.cfgFile)
	flags := cmd.Flags()
	for key, flag := range map[string]string{
		"api.base_url": "api-url",
		"data_dir":     "data-dir",
		"debug":        "debug",
	} {
		if f := flags.Lookup(flag); f != nil && f.Changed {
			if err := e.v.BindPFlag(key, f); err != nil {
				return errors.Wrapf(err, "bind flag %s", flag)
			}
		}
	}

	cfg, err := config.Load(e.v)
	if err != nil {
		return err
	}
	e.cfg = cfg

	logger, closeLog, err := logging.New(logging.Options{File: cfg.LogFile(), Level: cfg.Log.Level, Debug: cfg.Debug})
	if err != nil {
		return errors.Wrap(err, "open log")
	}
	e.logger, e.closeLog = logger, closeLog

	if cmd.Annotations["offline"] == "true" {
		return nil
	}

	database, err := db.New(cfg.DBPath())
	if err != nil {
		return errors.Wrap(err, "open database")
	}
	e.db = database

	client, err := api.New(api.Options{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		Session:   database,
		Logger:    logger.Named("api"),
		Transport: e.transport,
	})
	if err != nil {
		return err
	}
	e.client = client
	e.queries = cache.NewQueries(cache.New(logger.Named("cache")), client, logger.Named("cache"))
	logger.Debug("ready",
		zap.String("api", client.BaseURL()),
		zap.String("db", cfg.DBPath()),
		zap.String(logging.FieldAction, cmd.Name()),
	)
	return nil
}

func (e *env) close() error {
	var err error
	if e.db != nil {
		err = e.db.Close()
		e.db = nil
	}
	if e.closeLog != nil {
		if cerr := e.closeLog(); err == nil {
			err = cerr
		}
		e.closeLog = nil
	}
	return err
}

func (e *env) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), e.cfg.API.Timeout)
}

// runTUI runs the full screen interface until the user quits
func (e *env) runTUI(q *cache.Queries, database *db.DB) error {
	if !styles.Use(e.cfg.UI.Theme) {
		e.logger.Warn("unknown theme, using the default",
			zap.String("theme", e.cfg.UI.Theme),
			zap.Strings("known", styles.Themes()),
		)
	}
	st := store.New(database, editor.PlainText, e.logger.Named("store"))
	app := ui.NewApp(views.Deps{
		Queries: q,
		Store:   st,
		History: database,
		Logger:  e.logger,
		Quiet:   e.cfg.Autosave.QuietInterval,
		Timeout: e.cfg.API.Timeout,
	})
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return errors.Wrap(err, "run interface")
	}
	return nil
}
