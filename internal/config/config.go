package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/hylla/timelog/internal/domain"
	"github.com/hylla/timelog/internal/platform"
	toml "github.com/pelletier/go-toml/v2"
)

type StoreBackend string

const (
	StoreBackendSQLite StoreBackend = "sqlite"
	StoreBackendCSV    StoreBackend = "csv"
	StoreBackendMemory StoreBackend = "memory"
)

type Config struct {
	Database   DatabaseConfig   `toml:"database"`
	Store      StoreConfig      `toml:"store"`
	Activities ActivitiesConfig `toml:"activities"`
	Holidays   HolidaysConfig   `toml:"holidays"`
	Server     ServerConfig     `toml:"server"`
	Logging    LoggingConfig    `toml:"logging"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type StoreConfig struct {
	Backend StoreBackend `toml:"backend"`
	CSVPath string       `toml:"csv_path"`
}

type ActivitiesConfig struct {
	Capacity string `toml:"capacity"`  // ISO-8601 weekly capacity, e.g. PT40H
	TimeZone string `toml:"time_zone"` // IANA name; empty means local
}

type HolidaysConfig struct {
	CSVPath string `toml:"csv_path"`
}

type ServerConfig struct {
	HTTP        string `toml:"http"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

var logLevels = []string{"debug", "info", "warn", "error", "fatal"}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Store: StoreConfig{
			Backend: StoreBackendSQLite,
			CSVPath: filepath.Join(filepath.Dir(dbPath), "activity-log.csv"),
		},
		Activities: ActivitiesConfig{
			Capacity: "PT40H",
		},
		Server: ServerConfig{
			HTTP:        "127.0.0.1:8080",
			APIEndpoint: "/api/activities",
			MCPEndpoint: "/mcp",
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".timelog/log",
			},
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	decoder := toml.NewDecoder(bytes.NewReader(content)).DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			keys := make([]string, 0, len(strict.Errors))
			for _, decodeErr := range strict.Errors {
				keys = append(keys, strings.Join(decodeErr.Key(), "."))
			}
			return Config{}, fmt.Errorf("decode toml: unknown keys %s: %w", strings.Join(keys, ", "), err)
		}
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Backend() {
	case StoreBackendSQLite:
		if strings.TrimSpace(c.Database.Path) == "" {
			return errors.New("database path is required")
		}
	case StoreBackendCSV:
		if strings.TrimSpace(c.Store.CSVPath) == "" {
			return errors.New("store.csv_path is required for the csv backend")
		}
	case StoreBackendMemory:
	default:
		return fmt.Errorf("invalid store.backend: %q", c.Store.Backend)
	}

	if _, err := c.CapacityPerWeek(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	if strings.TrimSpace(c.Server.HTTP) == "" {
		return errors.New("server.http is required")
	}
	api := strings.Trim(strings.TrimSpace(c.Server.APIEndpoint), "/")
	mcp := strings.Trim(strings.TrimSpace(c.Server.MCPEndpoint), "/")
	if api != "" && api == mcp {
		return fmt.Errorf("server.api_endpoint and server.mcp_endpoint must differ: %q", c.Server.APIEndpoint)
	}

	if !slices.Contains(logLevels, strings.ToLower(strings.TrimSpace(c.Logging.Level))) {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	return nil
}

// Backend returns the normalized store backend.
func (c Config) Backend() StoreBackend {
	return StoreBackend(strings.ToLower(strings.TrimSpace(string(c.Store.Backend))))
}

// CapacityPerWeek parses activities.capacity.
func (c Config) CapacityPerWeek() (time.Duration, error) {
	raw := strings.TrimSpace(c.Activities.Capacity)
	if raw == "" {
		return 40 * time.Hour, nil
	}
	capacity, err := domain.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid activities.capacity: %w", err)
	}
	if capacity <= 0 {
		return 0, fmt.Errorf("activities.capacity must be positive: %q", raw)
	}
	return capacity, nil
}

// Location resolves activities.time_zone; empty means the host zone under its IANA name.
func (c Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Activities.TimeZone)
	if name == "" {
		return platform.LocalZone(), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid activities.time_zone %q: %w", name, err)
	}
	return loc, nil
}

// ErrConfigExists reports that WriteFile refused to replace an existing config.
var ErrConfigExists = errors.New("config file already exists")

// WriteFile validates cfg and writes it as TOML to path, creating parent directories.
// An existing file is only replaced when overwrite is set.
func WriteFile(path string, cfg Config, overwrite bool) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("config path is required")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	content, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode toml: %w", err)
	}
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	if _, err := file.Write(content); err != nil {
		_ = file.Close()
		return fmt.Errorf("write config: %w", err)
	}
	return file.Close()
}

// EnsureConfigDir creates the directory that holds path.
func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
