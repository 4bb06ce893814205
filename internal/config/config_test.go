package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg := Load(v)

	assert.Equal(t, DefaultIMAPServer, cfg.IMAP.Server)
	assert.Equal(t, 993, cfg.IMAP.Port)
	assert.Equal(t, "ssl", cfg.IMAP.Security)
	assert.Equal(t, 60*time.Second, cfg.IMAP.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 0, cfg.Poll.MaxAuthFailures)
	assert.Equal(t, "emails.db", cfg.Store.Path)
	assert.Equal(t, "0.0.0.0:10000", cfg.Web.Address())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("EMAIL_ACCOUNT", "watcher@126.com")
	t.Setenv("EMAIL_PASSWORD", "app-token")
	t.Setenv("IMAP_SERVER", "imap.example.org")
	t.Setenv("IMAP_PORT", "1993")
	t.Setenv("CHECK_INTERVAL", "5")
	t.Setenv("MAX_AUTH_FAILURES", "4")
	t.Setenv("DB_FILE", "/tmp/watcher.db")
	t.Setenv("PORT", "8080")

	v := viper.New()
	SetDefaults(v)

	cfg := Load(v)

	assert.Equal(t, "watcher@126.com", cfg.IMAP.Username)
	assert.Equal(t, "app-token", cfg.IMAP.Password)
	assert.Equal(t, "imap.example.org", cfg.IMAP.Server)
	assert.Equal(t, 1993, cfg.IMAP.Port)
	assert.Equal(t, 5*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 4, cfg.Poll.MaxAuthFailures)
	assert.Equal(t, "/tmp/watcher.db", cfg.Store.Path)
	assert.Equal(t, 8080, cfg.Web.Port)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("EMAIL_ACCOUNT=from-file@126.com\nEMAIL_PASSWORD=file-token\n"), 0o600))

	t.Setenv("EMAIL_ACCOUNT", "from-env@126.com")
	// Registered for cleanup, then cleared so the file can provide it.
	t.Setenv("EMAIL_PASSWORD", "")
	require.NoError(t, os.Unsetenv("EMAIL_PASSWORD"))

	require.NoError(t, LoadDotEnv(path))

	v := viper.New()
	SetDefaults(v)
	cfg := Load(v)

	assert.Equal(t, "from-env@126.com", cfg.IMAP.Username, "environment wins over .env")
	assert.Equal(t, "file-token", cfg.IMAP.Password)
}

func TestLoadDotEnv_Missing(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestValidator(t *testing.T) {
	valid := Config{
		IMAP: IMAP{
			Server:   "imap.126.com",
			Port:     993,
			Security: "ssl",
			Username: "watcher@126.com",
			Password: "app-token",
		},
		Poll:  Poll{Interval: 30 * time.Second},
		Store: Store{Path: "emails.db"},
		Web:   Web{Bind: "0.0.0.0", Port: 10000},
	}

	t.Run("valid", func(t *testing.T) {
		assert.Empty(t, NewValidator().ValidateServe(valid))
		assert.NoError(t, Join(NewValidator().ValidateServe(valid)))
	})

	t.Run("missing credentials", func(t *testing.T) {
		cfg := valid
		cfg.IMAP.Username = ""
		cfg.IMAP.Password = ""

		errs := NewValidator().ValidatePoller(cfg)
		assert.Len(t, errs, 2)
	})

	t.Run("reports every problem", func(t *testing.T) {
		cfg := valid
		cfg.IMAP.Port = 0
		cfg.IMAP.Security = "plain"
		cfg.Poll.Interval = 0
		cfg.Web.Port = 70000

		errs := NewValidator().ValidateServe(cfg)
		assert.Len(t, errs, 4)

		err := Join(errs)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Web port")
	})

	t.Run("web port ignored by poller validation", func(t *testing.T) {
		cfg := valid
		cfg.Web.Port = 0

		assert.Empty(t, NewValidator().ValidatePoller(cfg))
	})
}

func TestValidator_Status(t *testing.T) {
	cfg := Config{
		Store: Store{Path: "emails.db"},
		Web:   Web{Bind: "127.0.0.1", Port: 8080},
	}

	// No credentials needed to show what is already stored.
	assert.Empty(t, NewValidator().ValidateStatus(cfg))

	cfg.Store.Path = ""
	assert.Len(t, NewValidator().ValidateStatus(cfg), 1)
}
