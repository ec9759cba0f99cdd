package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	serveradapter "github.com/hylla/timelog/internal/adapters/server"
	servercommon "github.com/hylla/timelog/internal/adapters/server/common"
	"github.com/hylla/timelog/internal/adapters/storage/csvfile"
	"github.com/hylla/timelog/internal/app"
	"github.com/hylla/timelog/internal/config"
	"github.com/spf13/cobra"
)

// Bounds used when a holiday file is read in full.
var (
	earliestHoliday = civil.Date{Year: 1, Month: time.January, Day: 1}
	latestHoliday   = civil.Date{Year: 9999, Month: time.December, Day: 31}
)

// sessionRunner is one command body that runs against an open session.
type sessionRunner func(cmd *cobra.Command, sess *session) error

// withSession opens a session around fn and logs the command flow.
func withSession(opts *rootOptions, name string, fn sessionRunner) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) (err error) {
		sess, err := openSession(cmd, opts)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := sess.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close session: %w", closeErr)
			}
		}()

		sess.logger.Debug("command flow start", "command", name)
		if err := fn(cmd, sess); err != nil {
			sess.logger.Debug("command flow failed", "command", name, "err", err)
			return fmt.Errorf("run %s command: %w", name, err)
		}
		sess.logger.Debug("command flow complete", "command", name)
		return nil
	}
}

func newPathsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := opts.resolvePaths()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(out, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(out, "config: %s\n", paths.ConfigPath)
			_, _ = fmt.Fprintf(out, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(out, "db: %s\n", paths.DBPath)
			_, _ = fmt.Fprintf(out, "event_log: %s\n", paths.EventLogPath)
			_, _ = fmt.Fprintf(out, "holidays: %s\n", paths.HolidaysPath)
			return nil
		},
	}
}

func newInitCommand(opts *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			files, err := opts.resolveFiles()
			if err != nil {
				return err
			}
			if err := config.WriteFile(files.configPath, config.Default(files.dbPath), force); err != nil {
				return fmt.Errorf("run init command: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote config %s\n", files.configPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	var httpBind, apiEndpoint, mcpEndpoint string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and MCP tools",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, "serve", func(cmd *cobra.Command, sess *session) error {
			cfg := serveradapter.Config{
				HTTPBind:      firstNonEmpty(httpBind, sess.cfg.Server.HTTP),
				APIEndpoint:   firstNonEmpty(apiEndpoint, sess.cfg.Server.APIEndpoint),
				MCPEndpoint:   firstNonEmpty(mcpEndpoint, sess.cfg.Server.MCPEndpoint),
				ServerName:    opts.appName,
				ServerVersion: version,
				Logger:        sess.logger,
			}
			sess.logger.Info("serving", "http", cfg.HTTPBind, "api", cfg.APIEndpoint, "mcp", cfg.MCPEndpoint, "backend", sess.cfg.Backend())
			return serveCommandRunner(cmd.Context(), cfg, serveradapter.Dependencies{
				Activities: servercommon.NewAppServiceAdapter(sess.svc),
			})
		}),
	}
	cmd.Flags().StringVar(&httpBind, "http", "", "HTTP bind address (defaults to server.http)")
	cmd.Flags().StringVar(&apiEndpoint, "api-endpoint", "", "REST API base path (defaults to server.api_endpoint)")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "", "MCP endpoint path (defaults to server.mcp_endpoint)")
	return cmd
}

func newLogCommand(opts *rootOptions) *cobra.Command {
	var req servercommon.LogActivityRequest
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Record one finished activity",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, "log", func(cmd *cobra.Command, sess *session) error {
			status, err := servercommon.NewAppServiceAdapter(sess.svc).LogActivity(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				if err := writeJSON(out, status); err != nil {
					return err
				}
			}
			if !status.Success {
				return errors.New(status.ErrorMessage)
			}
			if !opts.jsonOutput {
				_, _ = fmt.Fprintf(out, "logged %s %s for %s / %s / %s\n", req.Timestamp, req.Duration, req.Client, req.Project, req.Task)
			}
			return nil
		}),
	}
	flags := cmd.Flags()
	flags.StringVar(&req.Timestamp, "timestamp", "", "start instant, RFC 3339")
	flags.StringVar(&req.Duration, "duration", "", "ISO-8601 duration, e.g. PT1H30M")
	flags.StringVar(&req.Client, "client", "", "client name")
	flags.StringVar(&req.Project, "project", "", "project name")
	flags.StringVar(&req.Task, "task", "", "task name")
	flags.StringVar(&req.Notes, "notes", "", "optional notes")
	for _, name := range []string{"timestamp", "duration", "client", "project", "task"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newRecentCommand(opts *rootOptions) *cobra.Command {
	var req servercommon.RecentActivitiesRequest
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show the last 30 days grouped by day with rolling totals",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, "recent", func(cmd *cobra.Command, sess *session) error {
			result, err := servercommon.NewAppServiceAdapter(sess.svc).RecentActivities(cmd.Context(), req)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			return renderRecent(cmd.OutOrStdout(), result)
		}),
	}
	cmd.Flags().StringVar(&req.Today, "today", "", "reference date YYYY-MM-DD (defaults to today)")
	cmd.Flags().StringVar(&req.TimeZone, "tz", "", "IANA time zone (defaults to activities.time_zone)")
	return cmd
}

func newTimesheetCommand(opts *rootOptions) *cobra.Command {
	var req servercommon.TimesheetRequest
	cmd := &cobra.Command{
		Use:   "timesheet",
		Short: "Show hours per day, client, project, and task with overtime offset",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, "timesheet", func(cmd *cobra.Command, sess *session) error {
			result, err := servercommon.NewAppServiceAdapter(sess.svc).Timesheet(cmd.Context(), req)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			return renderTimesheet(cmd.OutOrStdout(), result)
		}),
	}
	cmd.Flags().StringVar(&req.From, "from", "", "first date YYYY-MM-DD")
	cmd.Flags().StringVar(&req.To, "to", "", "last date YYYY-MM-DD (inclusive)")
	cmd.Flags().StringVar(&req.TimeZone, "tz", "", "IANA time zone")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newReportCommand(opts *rootOptions) *cobra.Command {
	var req servercommon.ReportRequest
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show hours aggregated by clients, projects, or tasks",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, "report", func(cmd *cobra.Command, sess *session) error {
			result, err := servercommon.NewAppServiceAdapter(sess.svc).Report(cmd.Context(), req)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			return renderReport(cmd.OutOrStdout(), req.Scope, result)
		}),
	}
	cmd.Flags().StringVar(&req.Scope, "scope", "", "clients, projects, or tasks")
	cmd.Flags().StringVar(&req.From, "from", "", "first date YYYY-MM-DD")
	cmd.Flags().StringVar(&req.To, "to", "", "last date YYYY-MM-DD (inclusive)")
	cmd.Flags().StringVar(&req.TimeZone, "tz", "", "IANA time zone")
	for _, name := range []string{"scope", "from", "to"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every recorded activity and holiday as a JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, "export", func(cmd *cobra.Command, sess *session) error {
			snap, err := sess.svc.ExportSnapshot(cmd.Context())
			if err != nil {
				return fmt.Errorf("export snapshot: %w", err)
			}
			encoded, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return fmt.Errorf("encode snapshot json: %w", err)
			}
			encoded = append(encoded, '\n')

			if outPath == "-" {
				if _, err := cmd.OutOrStdout().Write(encoded); err != nil {
					return fmt.Errorf("write snapshot to stdout: %w", err)
				}
				return nil
			}
			if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
				return fmt.Errorf("create export output dir: %w", err)
			}
			if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
				return fmt.Errorf("write export file: %w", err)
			}
			sess.logger.Info("snapshot exported", "path", outPath, "events", len(snap.Events), "holidays", len(snap.Holidays))
			return nil
		}),
	}
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	return cmd
}

func newImportCommand(opts *rootOptions) *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Append activities and holidays from a JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, "import", func(cmd *cobra.Command, sess *session) error {
			content, err := os.ReadFile(inPath)
			if err != nil {
				return fmt.Errorf("read import file: %w", err)
			}
			var snap app.Snapshot
			if err := json.Unmarshal(content, &snap); err != nil {
				return fmt.Errorf("decode snapshot json: %w", err)
			}
			summary, err := sess.svc.ImportSnapshot(cmd.Context(), snap)
			if err != nil {
				return fmt.Errorf("import snapshot: %w", err)
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), summary)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d activities (%d duplicates skipped) and %d holidays\n",
				summary.Recorded, summary.Duplicates, summary.Holidays)
			return nil
		}),
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input snapshot JSON file")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func newHolidaysCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "holidays",
		Short: "Manage the holidays excluded from timesheet capacity",
	}

	var inPath string
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Copy a Date,Title CSV into the configured holiday repository",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, "holidays import", func(cmd *cobra.Command, sess *session) error {
			source, err := csvfile.NewHolidayFile(inPath)
			if err != nil {
				return err
			}
			if _, err := os.Stat(inPath); err != nil {
				return fmt.Errorf("read holiday csv: %w", err)
			}
			holidays, err := source.FindAllByDate(cmd.Context(), earliestHoliday, latestHoliday)
			if err != nil {
				return fmt.Errorf("read holiday csv: %w", err)
			}
			if err := sess.svc.SaveHolidays(cmd.Context(), holidays); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d holidays\n", len(holidays))
			return nil
		}),
	}
	importCmd.Flags().StringVar(&inPath, "in", "", "input CSV with Date,Title columns")
	_ = importCmd.MarkFlagRequired("in")

	var rawFrom, rawTo string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List holidays in an inclusive date range (defaults to the current year)",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, "holidays list", func(cmd *cobra.Command, sess *session) error {
			from, to, err := holidayRange(rawFrom, rawTo, time.Now())
			if err != nil {
				return err
			}
			holidays, err := sess.svc.ListHolidays(cmd.Context(), from, to.AddDays(1))
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				rows := make([]app.SnapshotHoliday, 0, len(holidays))
				for _, holiday := range holidays {
					rows = append(rows, app.SnapshotHoliday{Date: holiday.Date, Title: holiday.Title})
				}
				return writeJSON(cmd.OutOrStdout(), rows)
			}
			return renderHolidays(cmd.OutOrStdout(), holidays)
		}),
	}
	listCmd.Flags().StringVar(&rawFrom, "from", "", "first date YYYY-MM-DD")
	listCmd.Flags().StringVar(&rawTo, "to", "", "last date YYYY-MM-DD (inclusive)")

	cmd.AddCommand(importCmd, listCmd)
	return cmd
}

// holidayRange parses optional list bounds, defaulting to the calendar year of now.
func holidayRange(rawFrom, rawTo string, now time.Time) (civil.Date, civil.Date, error) {
	from := civil.Date{Year: now.Year(), Month: time.January, Day: 1}
	to := civil.Date{Year: now.Year(), Month: time.December, Day: 31}
	if raw := strings.TrimSpace(rawFrom); raw != "" {
		parsed, err := civil.ParseDate(raw)
		if err != nil {
			return civil.Date{}, civil.Date{}, fmt.Errorf("invalid --from %q: %w", raw, err)
		}
		from = parsed
	}
	if raw := strings.TrimSpace(rawTo); raw != "" {
		parsed, err := civil.ParseDate(raw)
		if err != nil {
			return civil.Date{}, civil.Date{}, fmt.Errorf("invalid --to %q: %w", raw, err)
		}
		to = parsed
	}
	if to.Before(from) {
		return civil.Date{}, civil.Date{}, fmt.Errorf("--from %s is after --to %s", from, to)
	}
	return from, to, nil
}

// holidayFileBeside returns the holiday csv path next to an event log.
func holidayFileBeside(eventLogPath string) string {
	return filepath.Join(filepath.Dir(eventLogPath), "holidays.csv")
}

// firstNonEmpty returns the first trimmed non-empty value.
func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if v := strings.TrimSpace(value); v != "" {
			return v
		}
	}
	return ""
}
