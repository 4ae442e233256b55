// Package config loads settings from an optional file, .env and SCRAPBOOK_* variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	User    UserConfig    `mapstructure:"user"`
	DataDir string        `mapstructure:"data_dir"`
	Save    SaveConfig    `mapstructure:"save"`
	Session SessionConfig `mapstructure:"session"`
	Store   StoreConfig   `mapstructure:"store"`
	Objects ObjectsConfig `mapstructure:"objects"`
	S3      S3Config      `mapstructure:"s3"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Inbox   InboxConfig   `mapstructure:"inbox"`
}

type UserConfig struct {
	ID string `mapstructure:"id"`
}

type SaveConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

type SessionConfig struct {
	IdleTTL       time.Duration `mapstructure:"idle_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type StoreConfig struct {
	Driver      string `mapstructure:"driver"`
	DSN         string `mapstructure:"dsn"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	PasswordRef string `mapstructure:"password_ref"`
	Database    string `mapstructure:"database"`
	SSLMode     string `mapstructure:"sslmode"`
}

type ObjectsConfig struct {
	Driver  string `mapstructure:"driver"`
	BaseURL string `mapstructure:"base_url"`
	Dir     string `mapstructure:"dir"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	SecretRef string `mapstructure:"secret_ref"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	PathStyle bool   `mapstructure:"path_style"`
	PublicURL string `mapstructure:"public_url"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type AuthConfig struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type InboxConfig struct {
	Dir string `mapstructure:"dir"`
}

func defaults(v *viper.Viper) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	v.SetDefault("user.id", "")
	v.SetDefault("data_dir", filepath.Join(home, ".scrapbook"))
	v.SetDefault("save.debounce", 800*time.Millisecond)
	v.SetDefault("session.idle_ttl", 30*time.Minute)
	v.SetDefault("session.sweep_interval", time.Minute)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.host", "localhost")
	v.SetDefault("store.port", 0)
	v.SetDefault("store.user", "")
	v.SetDefault("store.password", "")
	v.SetDefault("store.password_ref", "")
	v.SetDefault("store.database", "scrapbook")
	v.SetDefault("store.sslmode", "disable")
	v.SetDefault("objects.driver", "local")
	v.SetDefault("objects.base_url", "http://localhost:8080/objects")
	v.SetDefault("objects.dir", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "")
	v.SetDefault("s3.bucket", "scrapbook-images")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.secret_ref", "")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("s3.path_style", false)
	v.SetDefault("s3.public_url", "")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.issuer", "scrapbook")
	v.SetDefault("auth.ttl", 24*time.Hour)
	v.SetDefault("inbox.dir", "")
}

// Load reads .env (when present), then the optional config file, then the environment.
// Later sources win.
func Load(file string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	v := viper.New()
	defaults(v)
	v.SetEnvPrefix("SCRAPBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Objects.Dir == "" {
		cfg.Objects.Dir = filepath.Join(cfg.DataDir, "objects")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case "sqlite", "postgres", "mysql", "mongodb", "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("store.driver: unsupported %q", c.Store.Driver))
	}
	switch c.Objects.Driver {
	case "local":
	case "s3":
		if c.S3.Endpoint == "" {
			errs = append(errs, errors.New("s3.endpoint: required when objects.driver is s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("objects.driver: unsupported %q", c.Objects.Driver))
	}
	if c.Save.Debounce <= 0 {
		errs = append(errs, errors.New("save.debounce: must be positive"))
	}
	if c.Session.SweepInterval <= 0 {
		errs = append(errs, errors.New("session.sweep_interval: must be positive"))
	}
	return errors.Join(errs...)
}

func mask(s string) string {
	if s == "" {
		return "(empty)"
	}
	return "********"
}

// String renders the config with secrets masked.
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "  user.id: %s\n", c.User.ID)
	fmt.Fprintf(&sb, "  data_dir: %s\n", c.DataDir)
	fmt.Fprintf(&sb, "  save.debounce: %s\n", c.Save.Debounce)
	fmt.Fprintf(&sb, "  session.idle_ttl: %s\n", c.Session.IdleTTL)
	fmt.Fprintf(&sb, "  session.sweep_interval: %s\n", c.Session.SweepInterval)
	fmt.Fprintf(&sb, "  store.driver: %s\n", c.Store.Driver)
	fmt.Fprintf(&sb, "  store.dsn: %s\n", mask(c.Store.DSN))
	fmt.Fprintf(&sb, "  store.host: %s:%d\n", c.Store.Host, c.Store.Port)
	fmt.Fprintf(&sb, "  store.user: %s\n", c.Store.User)
	fmt.Fprintf(&sb, "  store.password: %s\n", mask(c.Store.Password))
	fmt.Fprintf(&sb, "  store.database: %s\n", c.Store.Database)
	fmt.Fprintf(&sb, "  objects.driver: %s\n", c.Objects.Driver)
	fmt.Fprintf(&sb, "  objects.base_url: %s\n", c.Objects.BaseURL)
	fmt.Fprintf(&sb, "  s3.endpoint: %s\n", c.S3.Endpoint)
	fmt.Fprintf(&sb, "  s3.bucket: %s\n", c.S3.Bucket)
	fmt.Fprintf(&sb, "  s3.access_key: %s\n", mask(c.S3.AccessKey))
	fmt.Fprintf(&sb, "  s3.secret_key: %s\n", mask(c.S3.SecretKey))
	fmt.Fprintf(&sb, "  http.addr: %s\n", c.HTTP.Addr)
	fmt.Fprintf(&sb, "  auth.secret: %s\n", mask(c.Auth.Secret))
	fmt.Fprintf(&sb, "  inbox.dir: %s\n", c.Inbox.Dir)
	return sb.String()
}
