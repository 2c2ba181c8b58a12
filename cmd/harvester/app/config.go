package app

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/harvester/internal/publish"
	"github.com/agentstation/harvester/pkg/constants"
	"github.com/agentstation/harvester/pkg/errors"
)

// EnvPrefix prefixes every environment variable read by the CLI.
const EnvPrefix = "HARVESTER"

// Config holds the application configuration loaded from flags, the
// environment, .env files and the harvester.yaml config file.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	ConfigFile string

	// Harvester
	StoreURL            string
	RedisURL            string
	SourcesFile         string
	Concurrency         int
	ExportVariant       string
	StrictFormats       bool
	AutoHarvestInterval time.Duration

	// Export publishing
	S3 publish.S3Config

	// Server
	APIKey string

	// Logging
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration in order of precedence:
//  1. Command-line flags (applied later by UpdateFromFlags)
//  2. HARVESTER_* environment variables
//  3. .env.local, then .env
//  4. Config file (./harvester.yaml or ~/.config/harvester/harvester.yaml)
//  5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("harvester")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "harvester"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, errors.NewConfigError("config", "failed to read config file", err)
		}
	}

	return &Config{
		ConfigFile: v.ConfigFileUsed(),

		StoreURL:            v.GetString("store.url"),
		RedisURL:            v.GetString("redis.url"),
		SourcesFile:         v.GetString("sources.file"),
		Concurrency:         v.GetInt("concurrency"),
		ExportVariant:       v.GetString("export.variant"),
		StrictFormats:       v.GetBool("strict_formats"),
		AutoHarvestInterval: v.GetDuration("auto_harvest.interval"),

		S3: publish.S3Config{
			Endpoint:     v.GetString("s3.endpoint"),
			AccessKey:    v.GetString("s3.access_key"),
			SecretKey:    v.GetString("s3.secret_key"),
			Region:       v.GetString("s3.region"),
			UseSSL:       v.GetBool("s3.use_ssl"),
			CreateBucket: v.GetBool("s3.create_bucket"),
		},

		APIKey: v.GetString("server.api_key"),

		LogLevel:  v.GetString("log.level"),
		LogFormat: v.GetString("log.format"),
		LogOutput: v.GetString("log.output"),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.url", "sqlite://harvester.db")
	v.SetDefault("sources.file", "sources.yaml")
	v.SetDefault("concurrency", constants.DefaultConcurrency)
	v.SetDefault("export.variant", "federal")
	v.SetDefault("auto_harvest.interval", time.Hour)
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("log.format", "auto")
	v.SetDefault("log.output", "stderr")
}

// UpdateFromFlags applies parsed global flags over the loaded values.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads .env files. godotenv never overrides a variable that
// is already set, so .env.local is loaded first to win over .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}
