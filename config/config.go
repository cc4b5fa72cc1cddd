// config/config.go
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dalemusser/cinemadb/logging"
	"github.com/dalemusser/cinemadb/mongoconn"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// EnvPrefix is prepended to every environment key, e.g. CINEMADB_MONGO_HOST.
const EnvPrefix = "CINEMADB"

// HTTPConfig groups the ops listener settings.
type HTTPConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	ShutdownTimeout time.Duration `mapstructure:"-"`
}

// MongoConfig groups the database target and the connection attempt policy.
type MongoConfig struct {
	// URI, when set, replaces Host/Port/Database.
	URI      string `mapstructure:"mongo_uri"`
	Host     string `mapstructure:"mongo_host"`
	Port     int    `mapstructure:"mongo_port"`
	Database string `mapstructure:"mongo_database"`

	ConnectTimeout time.Duration `mapstructure:"-"`

	// ConnectAttempts of 1 is the one-shot bootstrap; more enables backoff.
	ConnectAttempts int           `mapstructure:"connect_attempts"`
	ConnectBackoff  time.Duration `mapstructure:"-"`
}

// CoreConfig holds the configuration for a cinemadb process.
type CoreConfig struct {
	// runtime
	Env      string `mapstructure:"env"`       // "dev" | "prod"
	LogLevel string `mapstructure:"log_level"` // debug, info, warn, error …

	HTTP  HTTPConfig  `mapstructure:",squash"`
	Mongo MongoConfig `mapstructure:",squash"`
}

// Target resolves the Mongo target from the URI or the host/port/database
// triple.
func (c CoreConfig) Target() (mongoconn.Target, error) {
	if strings.TrimSpace(c.Mongo.URI) != "" {
		return mongoconn.ParseTarget(c.Mongo.URI)
	}
	t := mongoconn.Target{Host: c.Mongo.Host, Port: c.Mongo.Port, Database: c.Mongo.Database}
	return t, t.Validate()
}

// Dump returns a pretty, redacted JSON string of the config for debugging.
func (c CoreConfig) Dump() string {
	s := c.redactedCopy()
	b, _ := json.MarshalIndent(s, "", "  ")
	return string(b)
}

func (c CoreConfig) redactedCopy() CoreConfig {
	cp := c
	if cp.Mongo.URI != "" {
		cp.Mongo.URI = redactURI(cp.Mongo.URI)
	}
	return cp
}

// redactURI hides credentials in a mongodb:// URI.
func redactURI(uri string) string {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return uri
	}
	at := strings.LastIndex(rest, "@")
	if at < 0 {
		return uri
	}
	return scheme + "://REDACTED@" + rest[at+1:]
}

// Load merges defaults → config.* file(s) → env vars → explicit flags into one CoreConfig.
// Final precedence (highest wins): flags(explicit) > env > config > defaults.
// args are the command-line arguments without the program name.
func Load(logger *zap.Logger, args []string) (*CoreConfig, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// 0) Optionally load .env (safe: real env still wins over .env)
	if err := godotenv.Load(); err == nil {
		logger.Info("Loaded .env file")
	}

	// 1) Define flags (only *explicitly set* flags will override)
	fs := pflag.NewFlagSet("cinemadb", pflag.ContinueOnError)
	fs.String("env", "dev", `Runtime environment "dev"|"prod"`)
	fs.String("log_level", "info", "Log level")
	fs.Int("http_port", 8080, "Ops HTTP port (health, readiness, metrics)")
	fs.String("shutdown_timeout", "15s", "Graceful shutdown timeout")

	fs.String("mongo_uri", "", "Mongo connection string; overrides host/port/database")
	fs.String("mongo_host", mongoconn.DefaultHost, "Mongo host")
	fs.Int("mongo_port", mongoconn.DefaultPort, "Mongo port")
	fs.String("mongo_database", mongoconn.DefaultDatabase, "Mongo database (namespace)")
	fs.String("db_connect_timeout", "10s", "Timeout for a single connect attempt (e.g., \"10s\", \"30s\")")
	fs.Int("connect_attempts", 1, "Connect attempts before giving up (1 = single attempt)")
	fs.String("connect_backoff", "500ms", "Initial delay between connect attempts")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// 2) Viper + env
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Bind env for all keys so Unmarshal sees them.
	for _, k := range allKeys() {
		_ = v.BindEnv(k)
	}

	// 3) Optional config.* files (yaml|yml|json|toml)
	for _, ext := range [...]string{"yaml", "yml", "json", "toml"} {
		file := "config." + ext
		if _, err := os.Stat(file); err != nil {
			continue
		}
		b, err := os.ReadFile(file)
		if err != nil {
			logger.Warn("cannot read config file", zap.String("file", file), zap.Error(err))
			continue
		}
		v.SetConfigType(ext)
		if err := v.MergeConfig(bytes.NewReader(b)); err != nil {
			logger.Warn("cannot decode config file", zap.String("file", file), zap.Error(err))
			continue
		}
		logger.Info("Loaded config file", zap.String("file", file))
	}

	// 4) Defaults (lowest precedence)
	setDefaults(v)

	// 5) Apply *explicit* flags (highest precedence)
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			_ = v.BindPFlag(f.Name, f)
		}
	})

	// 6) Build struct
	var cfg CoreConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode core config: %w", err)
	}
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))

	// Parse durations
	cfg.Mongo.ConnectTimeout = durationOrDefault(logger, v, "db_connect_timeout", 10*time.Second)
	cfg.Mongo.ConnectBackoff = durationOrDefault(logger, v, "connect_backoff", 500*time.Millisecond)
	cfg.HTTP.ShutdownTimeout = durationOrDefault(logger, v, "shutdown_timeout", 15*time.Second)

	// 7) Validate
	if err := validateCoreConfig(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func durationOrDefault(logger *zap.Logger, v *viper.Viper, key string, def time.Duration) time.Duration {
	d, err := parseDurationFlexible(v.Get(key), def)
	if err != nil {
		logger.Warn("invalid "+key+"; using default",
			zap.Any("value", v.Get(key)),
			zap.Duration("default", def),
			zap.Error(err))
	}
	return d
}

func allKeys() []string {
	return []string{
		"env", "log_level",
		"http_port", "shutdown_timeout",
		"mongo_uri", "mongo_host", "mongo_port", "mongo_database",
		"db_connect_timeout", "connect_attempts", "connect_backoff",
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("log_level", "info")

	v.SetDefault("http_port", 8080)
	v.SetDefault("shutdown_timeout", "15s")

	v.SetDefault("mongo_uri", "")
	v.SetDefault("mongo_host", mongoconn.DefaultHost)
	v.SetDefault("mongo_port", mongoconn.DefaultPort)
	v.SetDefault("mongo_database", mongoconn.DefaultDatabase)

	v.SetDefault("db_connect_timeout", "10s")
	v.SetDefault("connect_attempts", 1)
	v.SetDefault("connect_backoff", "500ms")
}

func validateCoreConfig(cfg CoreConfig) error {
	var missing []string
	var invalid []string

	if cfg.Env != "dev" && cfg.Env != "prod" {
		invalid = append(invalid, `env must be "dev" or "prod"`)
	}
	if !logging.IsValidLogLevel(cfg.LogLevel) {
		invalid = append(invalid, "log_level must be one of "+strings.Join(logging.ValidLogLevels, ", "))
	}

	if cfg.HTTP.HTTPPort <= 0 || cfg.HTTP.HTTPPort > 65535 {
		invalid = append(invalid, "http_port must be in 1..65535")
	}

	if uri := strings.TrimSpace(cfg.Mongo.URI); uri != "" {
		if err := mongoconn.ValidateURI(uri); err != nil {
			invalid = append(invalid, "mongo_uri: "+err.Error())
		}
	} else {
		if strings.TrimSpace(cfg.Mongo.Host) == "" {
			missing = append(missing, EnvPrefix+"_MONGO_HOST (or --mongo_host)")
		}
		if strings.TrimSpace(cfg.Mongo.Database) == "" {
			missing = append(missing, EnvPrefix+"_MONGO_DATABASE (or --mongo_database)")
		}
		if cfg.Mongo.Port <= 0 || cfg.Mongo.Port > 65535 {
			invalid = append(invalid, "mongo_port must be in 1..65535")
		}
	}

	if cfg.Mongo.ConnectAttempts < 1 {
		invalid = append(invalid, "connect_attempts must be >= 1")
	}

	if len(missing) == 0 && len(invalid) == 0 {
		return nil
	}

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		parts = append(parts, "invalid: "+strings.Join(invalid, ", "))
	}
	return fmt.Errorf("core configuration errors: %s", strings.Join(parts, " | "))
}
