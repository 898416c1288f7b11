// Command scormkit validates SCORM content packages, exports question files
// as SCORM packages, builds standalone courses and serves the same over HTTP.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-scorm/internal/catalog"
	"github.com/mind-engage/mindengage-scorm/internal/config"
	"github.com/mind-engage/mindengage-scorm/internal/db"
	"github.com/mind-engage/mindengage-scorm/internal/platform/logger"
)

var (
	// cfgFile is the optional config file (yaml, toml or json)
	cfgFile string
	// logMode overrides the configured log mode
	logMode string
)

// app is the state shared by the subcommands.
type app struct {
	cfg config.Config
	log *logger.Logger
	db  *sql.DB
}

func newApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logMode != "" {
		cfg.LogMode = logMode
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log}, nil
}

// store opens the database lazily; validate and course never touch it.
func (a *app) store(ctx context.Context) (*catalog.SQLStore, error) {
	if a.db == nil {
		drv, err := db.ParseDriver(a.cfg.DBDriver)
		if err != nil {
			return nil, err
		}
		conn, err := db.Open(ctx, drv, a.cfg.DBDSN)
		if err != nil {
			return nil, fmt.Errorf("db open failed: %w", err)
		}
		a.db = conn
	}
	return catalog.NewSQLStore(a.db), nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	a.log.Sync()
}

func (a *app) exportDefaults(ctx context.Context) (catalog.ExportDefaults, error) {
	def := catalog.ExportDefaults{
		TemplateSource: a.cfg.TemplateSource,
		Prefix:         a.cfg.ExportPrefix,
		Stylesheet:     a.cfg.Stylesheet,
		Locale:         a.cfg.Locale,
	}
	st, err := a.store(ctx)
	if err != nil {
		return def, err
	}
	return st.ExportDefaults(ctx, def)
}

var rootCmd = &cobra.Command{
	Use:           "scormkit",
	Short:         "Validate, export and assemble SCORM content packages",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, toml or json)")
	rootCmd.PersistentFlags().StringVar(&logMode, "log", "", "log mode: dev, prod or quiet")
	rootCmd.AddCommand(validateCmd, exportCmd, courseCmd, prefsCmd, historyCmd, serveCmd)
}

// withApp runs fn with a freshly loaded app and closes it afterwards.
func withApp(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		return fn(cmd, args, a)
	}
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}
