package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Default()

	if cfg.Web.Port != 8080 {
		t.Errorf("Web.Port = %d, want 8080", cfg.Web.Port)
	}
	if cfg.Web.Host != "127.0.0.1" {
		t.Errorf("Web.Host = %q, want 127.0.0.1", cfg.Web.Host)
	}
	if cfg.Sheets.Sink != "csv" {
		t.Errorf("Sheets.Sink = %q, want csv", cfg.Sheets.Sink)
	}
	if cfg.Export.TaskTimeout.Std() != 2*time.Minute {
		t.Errorf("Export.TaskTimeout = %v, want 2m", cfg.Export.TaskTimeout)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("CRON_SECRET_TOKEN", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Web.Port)
	assert.Equal(t, "", cfg.Auth.CronSecret)
}

func TestLoad_FromTOML(t *testing.T) {
	t.Setenv("CRON_SECRET_TOKEN", "")
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")

	content := `
[general]
database_path = "/data/export.db"

[web]
port = 9000

[auth]
cron_secret = "s3cret"

[sheets]
sink = "google"

[sheets.payments]
sheet_id = "1AbC"
tab = "Stripe"

[export]
task_timeout = "45s"
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "/data/export.db", cfg.General.DatabasePath)
	assert.Equal(t, 9000, cfg.Web.Port)
	assert.Equal(t, "s3cret", cfg.Auth.CronSecret)
	assert.Equal(t, "google", cfg.Sheets.Sink)
	assert.Equal(t, SheetTarget{SheetID: "1AbC", Tab: "Stripe"}, cfg.Sheets.Payments)
	assert.Equal(t, 45*time.Second, cfg.Export.TaskTimeout.Std())
	// untouched sections keep their defaults
	assert.Equal(t, "Contacts", cfg.Sheets.Contacts.Tab)
}

func TestLoad_FromYAML(t *testing.T) {
	t.Setenv("CRON_SECRET_TOKEN", "")
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	content := `
web:
  host: 0.0.0.0
auth:
  cron_secret: from-yaml
export:
  task_timeout: 90s
  batch_size: 50
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Web.Host)
	assert.Equal(t, "from-yaml", cfg.Auth.CronSecret)
	assert.Equal(t, 90*time.Second, cfg.Export.TaskTimeout.Std())
	assert.Equal(t, 50, cfg.Export.BatchSize)
}

func TestLoad_InvalidDuration(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("[export]\ntask_timeout = \"soon\"\n"), 0644))

	_, err := Load(configPath)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("CRON_SECRET_TOKEN overrides file", func(t *testing.T) {
		t.Setenv("CRON_SECRET_TOKEN", "from-env")

		cfg := &Config{Auth: AuthConfig{CronSecret: "from-file"}}
		cfg.applyEnvOverrides()

		assert.Equal(t, "from-env", cfg.Auth.CronSecret)
	})

	t.Run("GOOGLE_APPLICATION_CREDENTIALS does not override explicit file", func(t *testing.T) {
		t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/env/creds.json")

		cfg := &Config{Sheets: SheetsConfig{CredentialsFile: "/cfg/creds.json"}}
		cfg.applyEnvOverrides()

		assert.Equal(t, "/cfg/creds.json", cfg.Sheets.CredentialsFile)
	})

	t.Run("SLACK_WEBHOOK_URL sets webhook", func(t *testing.T) {
		t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.example/x")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "https://hooks.example/x", cfg.Notifications.SlackWebhook)
	})
}

func TestCronSecret(t *testing.T) {
	cfg := Default()
	_, err := cfg.CronSecret()
	assert.ErrorIs(t, err, ErrSecretNotConfigured)

	cfg.Auth.CronSecret = "abc"
	secret, err := cfg.CronSecret()
	require.NoError(t, err)
	assert.Equal(t, "abc", secret)
}

func TestBaseURL(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "http://127.0.0.1:8080", cfg.BaseURL())

	cfg.Web.BaseURL = "https://shop.example.com/"
	assert.Equal(t, "https://shop.example.com", cfg.BaseURL())
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		input string
		want  string
	}{
		{"~/test", filepath.Join(home, "test")},
		{"/absolute/path", "/absolute/path"},
		{"relative", "relative"},
	}

	for _, tt := range tests {
		got := ExpandPath(tt.input)
		if got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFindLocalConfig(t *testing.T) {
	root := t.TempDir()
	subdir := filepath.Join(root, "sub", "dir")
	require.NoError(t, os.MkdirAll(subdir, 0755))

	localConfig := filepath.Join(root, LocalConfigName)
	require.NoError(t, os.WriteFile(localConfig, []byte("[web]\nport = 9100\n"), 0644))

	found, ok := FindLocalConfig(subdir)
	require.True(t, ok)
	assert.Equal(t, localConfig, found)
}

func TestSave_RoundTrip(t *testing.T) {
	t.Setenv("CRON_SECRET_TOKEN", "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Web.Port = 7777
	cfg.Export.TaskTimeout = Duration(30 * time.Second)
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7777, loaded.Web.Port)
	assert.Equal(t, 30*time.Second, loaded.Export.TaskTimeout.Std())
}
