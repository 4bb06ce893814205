package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Default values, matching the deployment the watcher was first written for.
const (
	DefaultIMAPServer   = "imap.126.com"
	DefaultIMAPPort     = 993
	DefaultIMAPSecurity = "ssl"
	DefaultIMAPTimeout  = 60 // seconds
	DefaultPollInterval = 30 // seconds
	DefaultStorePath    = "emails.db"
	DefaultWebBind      = "0.0.0.0"
	DefaultWebPort      = 10000
)

// envBindings maps config keys to the environment variables that have always
// configured the watcher. Keys not listed here still resolve through
// AutomaticEnv (imap.server -> IMAP_SERVER).
var envBindings = map[string]string{
	"imap.username":          "EMAIL_ACCOUNT",
	"imap.password":          "EMAIL_PASSWORD",
	"imap.server":            "IMAP_SERVER",
	"imap.port":              "IMAP_PORT",
	"imap.security":          "IMAP_SECURITY",
	"imap.timeout":           "IMAP_TIMEOUT",
	"poll.interval":          "CHECK_INTERVAL",
	"poll.max_auth_failures": "MAX_AUTH_FAILURES",
	"store.path":             "DB_FILE",
	"web.bind":               "WEB_BIND",
	"web.port":               "PORT",
}

// IMAP holds the mailbox connection settings.
type IMAP struct {
	Server   string
	Port     int
	Security string
	Username string
	Password string // app-specific token, not the account password
	Timeout  time.Duration
}

// Poll holds the scheduling settings of the poller.
type Poll struct {
	Interval        time.Duration
	MaxAuthFailures int
}

// Store holds the location of the subject database.
type Store struct {
	Path string
}

// Web holds the status page listener settings.
type Web struct {
	Bind string
	Port int
}

// Config is the resolved configuration of the watcher.
type Config struct {
	IMAP  IMAP
	Poll  Poll
	Store Store
	Web   Web
}

// Address returns the host:port the status page listens on.
func (w Web) Address() string {
	return fmt.Sprintf("%s:%d", w.Bind, w.Port)
}

// SetDefaults registers defaults and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("imap.server", DefaultIMAPServer)
	v.SetDefault("imap.port", DefaultIMAPPort)
	v.SetDefault("imap.security", DefaultIMAPSecurity)
	v.SetDefault("imap.timeout", DefaultIMAPTimeout)
	v.SetDefault("poll.interval", DefaultPollInterval)
	v.SetDefault("poll.max_auth_failures", 0)
	v.SetDefault("store.path", DefaultStorePath)
	v.SetDefault("web.bind", DefaultWebBind)
	v.SetDefault("web.port", DefaultWebPort)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			slog.Error("Failed to bind environment variable", "key", key, "env", env, "error", err)
		}
	}
}

// LoadDotEnv loads path into the process environment if it exists. Variables
// that are already set keep their value.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	slog.Debug("Loaded environment file", "path", path)
	return nil
}

// Load resolves the configuration from v. Durations are configured in whole
// seconds.
func Load(v *viper.Viper) Config {
	return Config{
		IMAP: IMAP{
			Server:   v.GetString("imap.server"),
			Port:     v.GetInt("imap.port"),
			Security: strings.ToLower(v.GetString("imap.security")),
			Username: v.GetString("imap.username"),
			Password: v.GetString("imap.password"),
			Timeout:  time.Duration(v.GetInt("imap.timeout")) * time.Second,
		},
		Poll: Poll{
			Interval:        time.Duration(v.GetInt("poll.interval")) * time.Second,
			MaxAuthFailures: v.GetInt("poll.max_auth_failures"),
		},
		Store: Store{
			Path: v.GetString("store.path"),
		},
		Web: Web{
			Bind: v.GetString("web.bind"),
			Port: v.GetInt("web.port"),
		},
	}
}
