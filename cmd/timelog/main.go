package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/charmbracelet/fang"
	"github.com/google/uuid"
	serveradapter "github.com/hylla/timelog/internal/adapters/server"
	"github.com/hylla/timelog/internal/adapters/storage/csvfile"
	"github.com/hylla/timelog/internal/adapters/storage/memory"
	"github.com/hylla/timelog/internal/adapters/storage/sqlite"
	"github.com/hylla/timelog/internal/app"
	"github.com/hylla/timelog/internal/config"
	"github.com/hylla/timelog/internal/platform"
	"github.com/spf13/cobra"
)

// version stores the build version.
var version = "dev"

// serveCommandRunner starts the HTTP+MCP serve flow.
var serveCommandRunner = func(ctx context.Context, cfg serveradapter.Config, deps serveradapter.Dependencies) error {
	return serveradapter.Run(ctx, cfg, deps)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := fang.Execute(ctx, newRootCommand(os.Stdout, os.Stderr), fang.WithVersion(version)); err != nil {
		stop()
		os.Exit(1)
	}
}

// run executes one CLI invocation against explicit streams.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SilenceErrors = true
	return root.ExecuteContext(ctx)
}

// rootOptions holds the global flags shared by every command.
type rootOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
	jsonOutput bool
}

// newRootCommand builds the timelog command tree.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{appName: "timelog", devMode: version == "dev"}
	if envDev, ok := parseBoolEnv("TIMELOG_DEV_MODE"); ok {
		opts.devMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("TIMELOG_APP_NAME")); envApp != "" {
		opts.appName = envApp
	}

	root := &cobra.Command{
		Use:          "timelog",
		Short:        "Log working time and derive recent views, timesheets, and reports",
		Version:      version,
		SilenceUsage: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	flags.StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", opts.devMode, "use dev mode paths (<app>-dev)")
	flags.BoolVar(&opts.jsonOutput, "json", false, "print results as JSON")

	root.AddCommand(
		newPathsCommand(opts),
		newInitCommand(opts),
		newServeCommand(opts),
		newLogCommand(opts),
		newRecentCommand(opts),
		newTimesheetCommand(opts),
		newReportCommand(opts),
		newExportCommand(opts),
		newImportCommand(opts),
		newHolidaysCommand(opts),
	)
	return root
}

// session bundles the resolved config, logger, and service for one command.
type session struct {
	cfg     config.Config
	logger  *runtimeLogger
	svc     *app.Service
	closers []func() error
}

// Close releases stores and log sinks in reverse open order.
func (s *session) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// resolvePaths applies app/dev options to platform path defaults.
func (o *rootOptions) resolvePaths() (platform.Paths, error) {
	return platform.DefaultPathsWithOptions(platform.Options{
		AppName: o.appName,
		DevMode: o.devMode,
	})
}

// resolvedFiles holds the config and database paths after flag and env overrides.
type resolvedFiles struct {
	configPath   string
	dbPath       string
	dbOverridden bool
}

// resolveFiles applies --config/--db flags, then TIMELOG_CONFIG/TIMELOG_DB_PATH, then platform defaults.
func (o *rootOptions) resolveFiles() (resolvedFiles, error) {
	paths, err := o.resolvePaths()
	if err != nil {
		return resolvedFiles{}, err
	}

	out := resolvedFiles{configPath: strings.TrimSpace(o.configPath), dbPath: strings.TrimSpace(o.dbPath)}
	if out.configPath == "" {
		out.configPath = paths.ConfigPath
		if envPath := strings.TrimSpace(os.Getenv("TIMELOG_CONFIG")); envPath != "" {
			out.configPath = envPath
		}
	}
	out.dbOverridden = out.dbPath != ""
	if !out.dbOverridden {
		out.dbPath = paths.DBPath
		if envPath := strings.TrimSpace(os.Getenv("TIMELOG_DB_PATH")); envPath != "" {
			out.dbPath = envPath
			out.dbOverridden = true
		}
	}
	return out, nil
}

// openSession loads config, configures logging, and opens the configured stores.
func openSession(cmd *cobra.Command, opts *rootOptions) (*session, error) {
	files, err := opts.resolveFiles()
	if err != nil {
		return nil, err
	}
	configPath, dbPath, dbOverridden := files.configPath, files.dbPath, files.dbOverridden

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config %q: %w", configPath, err)
	}

	logger, err := newRuntimeLogger(cmd.ErrOrStderr(), opts.appName, opts.devMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	sess := &session{cfg: cfg, logger: logger, closers: []func() error{logger.Close}}

	logger.Debug("startup configuration resolved", "app", opts.appName, "dev_mode", opts.devMode, "command", cmd.Name())
	logger.Debug("configuration loaded", "config_path", configPath, "backend", cfg.Backend(), "log_level", cfg.Logging.Level)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Debug("dev file logging enabled", "path", devPath)
	}

	store, holidays, err := openStores(sess)
	if err != nil {
		_ = sess.Close()
		return nil, err
	}
	capacity, err := cfg.CapacityPerWeek()
	if err != nil {
		_ = sess.Close()
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		_ = sess.Close()
		return nil, err
	}

	sess.svc = app.NewService(store, holidays, uuid.NewString, time.Now, app.ServiceConfig{
		CapacityPerWeek: capacity,
		DefaultTimeZone: loc,
		Logger:          logger,
	})
	logger.Debug("application service initialized", "capacity", cfg.Activities.Capacity, "time_zone", loc.String())
	return sess, nil
}

// openStores opens the configured event store and holiday repository.
func openStores(sess *session) (app.EventStore, app.HolidayRepository, error) {
	cfg, logger := sess.cfg, sess.logger

	var (
		store    app.EventStore
		holidays app.HolidayRepository
	)
	switch cfg.Backend() {
	case config.StoreBackendSQLite:
		logger.Debug("opening sqlite repository", "db_path", cfg.Database.Path)
		repo, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
			return nil, nil, fmt.Errorf("open sqlite repository: %w", err)
		}
		sess.closers = append(sess.closers, func() error {
			if err := repo.Close(); err != nil {
				logger.Warn("sqlite close failed", "db_path", cfg.Database.Path, "err", err)
				return err
			}
			return nil
		})
		store, holidays = repo, repo
	case config.StoreBackendCSV:
		logger.Debug("opening csv event log", "path", cfg.Store.CSVPath)
		csvStore, err := csvfile.NewStore(cfg.Store.CSVPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open csv event log: %w", err)
		}
		store = csvStore
	case config.StoreBackendMemory:
		logger.Debug("using in-memory store")
		mem := memory.NewStore()
		store, holidays = mem, mem
	default:
		return nil, nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}

	if path := strings.TrimSpace(cfg.Holidays.CSVPath); path != "" {
		file, err := csvfile.NewHolidayFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open holiday csv: %w", err)
		}
		holidays = file
	} else if holidays == nil {
		path := holidayFileBeside(cfg.Store.CSVPath)
		file, err := csvfile.NewHolidayFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open holiday csv: %w", err)
		}
		holidays = file
	}
	return store, holidays, nil
}

// parseBoolEnv parses input into a normalized form.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
