package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// LocalConfigName is the per-project config file searched for upwards from the working directory
const LocalConfigName = ".booking-export.toml"

// ErrSecretNotConfigured is returned when no cron secret token is available
var ErrSecretNotConfigured = errors.New("Cron secret token is not configured")

// Config holds all application configuration
type Config struct {
	General       GeneralConfig       `toml:"general" yaml:"general"`
	Web           WebConfig           `toml:"web" yaml:"web"`
	Auth          AuthConfig          `toml:"auth" yaml:"auth"`
	Sheets        SheetsConfig        `toml:"sheets" yaml:"sheets"`
	Export        ExportConfig        `toml:"export" yaml:"export"`
	Notifications NotificationsConfig `toml:"notifications" yaml:"notifications"`
	Log           LogConfig           `toml:"log" yaml:"log"`
}

// GeneralConfig holds general settings
type GeneralConfig struct {
	DatabasePath string `toml:"database_path" yaml:"database_path"`
	SchedulePath string `toml:"schedule_path" yaml:"schedule_path"`
}

// WebConfig holds HTTP server settings
type WebConfig struct {
	Port int    `toml:"port" yaml:"port"`
	Host string `toml:"host" yaml:"host"`
	// BaseURL is what `trigger` calls; defaults to http://host:port
	BaseURL string `toml:"base_url" yaml:"base_url"`
}

// AuthConfig holds the shared secret the cron caller presents
type AuthConfig struct {
	CronSecret string `toml:"cron_secret" yaml:"cron_secret"`
}

// SheetTarget names the spreadsheet and tab a category is appended to
type SheetTarget struct {
	SheetID string `toml:"sheet_id" yaml:"sheet_id"`
	Tab     string `toml:"tab" yaml:"tab"`
}

// SheetsConfig selects and configures the spreadsheet sink
type SheetsConfig struct {
	Sink            string      `toml:"sink" yaml:"sink"` // "google" or "csv"
	CredentialsFile string      `toml:"credentials_file" yaml:"credentials_file"`
	CSVDir          string      `toml:"csv_dir" yaml:"csv_dir"`
	Contacts        SheetTarget `toml:"contacts" yaml:"contacts"`
	Bookings        SheetTarget `toml:"bookings" yaml:"bookings"`
	Payments        SheetTarget `toml:"payments" yaml:"payments"`
	Classes         SheetTarget `toml:"classes" yaml:"classes"`
}

// ExportConfig holds exporter tuning
type ExportConfig struct {
	TaskTimeout Duration `toml:"task_timeout" yaml:"task_timeout"`
	BatchSize   int      `toml:"batch_size" yaml:"batch_size"`
}

// NotificationsConfig holds notification settings
type NotificationsConfig struct {
	SlackWebhook     string `toml:"slack_webhook" yaml:"slack_webhook"`
	NotifyOnComplete bool   `toml:"notify_on_complete" yaml:"notify_on_complete"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"` // "json" or "console"
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		General: GeneralConfig{
			DatabasePath: filepath.Join(home, ".booking-export", "export.db"),
			SchedulePath: filepath.Join(home, ".config", "booking-export", "schedule.toml"),
		},
		Web: WebConfig{
			Port: 8080,
			Host: "127.0.0.1",
		},
		Sheets: SheetsConfig{
			Sink:     "csv",
			CSVDir:   filepath.Join(home, ".booking-export", "sheets"),
			Contacts: SheetTarget{SheetID: "contacts", Tab: "Contacts"},
			Bookings: SheetTarget{SheetID: "bookings", Tab: "Bookings"},
			Payments: SheetTarget{SheetID: "payments", Tab: "Payments"},
			Classes:  SheetTarget{SheetID: "classes", Tab: "Registrations"},
		},
		Export: ExportConfig{
			TaskTimeout: Duration(2 * time.Minute),
			BatchSize:   500,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from a TOML or YAML file, falling back to defaults.
// Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	if err == nil {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, cfg)
		default:
			err = toml.Unmarshal(data, cfg)
		}
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	// Expand paths
	cfg.General.DatabasePath = ExpandPath(cfg.General.DatabasePath)
	cfg.General.SchedulePath = ExpandPath(cfg.General.SchedulePath)
	cfg.Sheets.CredentialsFile = ExpandPath(cfg.Sheets.CredentialsFile)
	cfg.Sheets.CSVDir = ExpandPath(cfg.Sheets.CSVDir)

	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CRON_SECRET_TOKEN"); v != "" {
		c.Auth.CronSecret = v
	}
	if v := os.Getenv("EXPORT_DATABASE_PATH"); v != "" {
		c.General.DatabasePath = v
	}
	if v := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" && c.Sheets.CredentialsFile == "" {
		c.Sheets.CredentialsFile = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		c.Notifications.SlackWebhook = v
	}
}

// CronSecret returns the configured shared secret or ErrSecretNotConfigured
func (c *Config) CronSecret() (string, error) {
	if c.Auth.CronSecret == "" {
		return "", ErrSecretNotConfigured
	}
	return c.Auth.CronSecret, nil
}

// BaseURL returns the URL the export endpoint is reachable at
func (c *Config) BaseURL() string {
	if c.Web.BaseURL != "" {
		return strings.TrimSuffix(c.Web.BaseURL, "/")
	}
	return fmt.Sprintf("http://%s:%d", c.Web.Host, c.Web.Port)
}

// Save writes the configuration as TOML
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "booking-export", "config.toml")
}

// FindLocalConfig walks up from dir looking for LocalConfigName
func FindLocalConfig(dir string) (string, bool) {
	for {
		candidate := filepath.Join(dir, LocalConfigName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
