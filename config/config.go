// Package config loads FlatDB settings from defaults, an optional .env
// file, FLATDB_ environment variables and finally command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "FLATDB_"

type Config struct {
	BaseDir         string        `mapstructure:"basedir"`
	CredentialsFile string        `mapstructure:"credentialsfile"`
	History         bool          `mapstructure:"history"`
	LogLevel        string        `mapstructure:"loglevel"`
	LogFormat       string        `mapstructure:"logformat"`
	Server          ServerConfig  `mapstructure:"server"`
	S3              S3Config      `mapstructure:"s3"`
	Journal         JournalConfig `mapstructure:"journal"`
}

type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	MaxConnections int           `mapstructure:"maxconnections"`
	JWTSecret      string        `mapstructure:"jwtsecret"`
	TokenTTL       time.Duration `mapstructure:"tokenttl"`
	MetricsAddr    string        `mapstructure:"metricsaddr"`
}

// S3Config is used by .import and .export for s3:// locations. Empty
// fields fall back to the default AWS credential chain.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"accesskey"`
	SecretKey string `mapstructure:"secretkey"`
}

// JournalConfig holds the credentials .push uses for journal replicas.
type JournalConfig struct {
	Token         string `mapstructure:"token"`
	SSHKey        string `mapstructure:"sshkey"`
	SSHPassphrase string `mapstructure:"sshpassphrase"`
}

func Default() Config {
	return Config{
		BaseDir:         filepath.Join("DataSource", "Database"),
		CredentialsFile: filepath.Join("DataSource", "System", "user_info.txt"),
		LogLevel:        "INFO",
		LogFormat:       "text",
		Server: ServerConfig{
			Addr:           ":3306",
			MaxConnections: 64,
			TokenTTL:       time.Hour,
		},
	}
}

// Load reads .env from the working directory when present, then applies
// FLATDB_ environment variables. FLATDB_SERVER_ADDR maps to server.addr.
func Load() (Config, error) {
	return load(".env", os.Environ())
}

func load(envFile string, environ []string) (Config, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("basedir", defaults.BaseDir)
	v.SetDefault("credentialsfile", defaults.CredentialsFile)
	v.SetDefault("history", defaults.History)
	v.SetDefault("loglevel", defaults.LogLevel)
	v.SetDefault("logformat", defaults.LogFormat)
	v.SetDefault("server.addr", defaults.Server.Addr)
	v.SetDefault("server.maxconnections", defaults.Server.MaxConnections)
	v.SetDefault("server.jwtsecret", "")
	v.SetDefault("server.tokenttl", defaults.Server.TokenTTL)
	v.SetDefault("server.metricsaddr", "")
	v.SetDefault("s3.region", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.accesskey", "")
	v.SetDefault("s3.secretkey", "")
	v.SetDefault("journal.token", "")
	v.SetDefault("journal.sshkey", "")
	v.SetDefault("journal.sshpassphrase", "")

	if _, err := os.Stat(envFile); err == nil {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read %s: %w", envFile, err)
		}
		// keys in .env use the same FLATDB_ names as the environment
		for _, key := range v.AllKeys() {
			if upper := strings.ToUpper(key); strings.HasPrefix(upper, EnvPrefix) {
				v.Set(envKey(upper), v.Get(key))
			}
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to stat %s: %w", envFile, err)
	}

	for _, envStr := range environ {
		key, value, ok := strings.Cut(envStr, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		v.Set(envKey(key), value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// FLATDB_SERVER_ADDR -> server.addr
func envKey(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ToLower(strings.ReplaceAll(key, "_", "."))
}
