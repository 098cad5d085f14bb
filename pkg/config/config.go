// Package config loads service configuration from defaults, an optional
// YAML file, a .env file, POLYGLOT_* environment variables and flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dasmlab/polyglot/pkg/translate"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "POLYGLOT"

type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Fallback FallbackConfig `mapstructure:"fallback"`
	Detector DetectorConfig `mapstructure:"detector"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Sessions SessionsConfig `mapstructure:"sessions"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type ServerConfig struct {
	GRPCPort int `mapstructure:"grpc_port"`
	HTTPPort int `mapstructure:"http_port"`
}

type LLMConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

type FallbackConfig struct {
	Engine  string        `mapstructure:"engine"`
	URL     string        `mapstructure:"url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DetectorConfig struct {
	Engine            string `mapstructure:"engine"`
	LLMShortText      bool   `mapstructure:"llm_short_text"`
	ShortTextMaxWords int    `mapstructure:"short_text_max_words"`
}

type PipelineConfig struct {
	ChunkSize       int           `mapstructure:"chunk_size"`
	Concurrency     int           `mapstructure:"concurrency"`
	BackTranslation bool          `mapstructure:"back_translation"`
	CallTimeout     time.Duration `mapstructure:"call_timeout"`
	MaxBatchSize    int           `mapstructure:"max_batch_size"`
	GlossaryFile    string        `mapstructure:"glossary_file"`
}

type SessionsConfig struct {
	MaxIdle    time.Duration `mapstructure:"max_idle"`
	MaxHistory int           `mapstructure:"max_history"`
}

type JobsConfig struct {
	MaxAge time.Duration `mapstructure:"max_age"`
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")

	v.SetDefault("server.grpc_port", 50051)
	v.SetDefault("server.http_port", 8080)

	v.SetDefault("llm.enabled", true)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", translate.DefaultLLMModel)
	v.SetDefault("llm.timeout", translate.DefaultLLMTimeout)
	v.SetDefault("llm.requests_per_second", 0.0)

	v.SetDefault("fallback.engine", string(translate.EngineGoogle))
	v.SetDefault("fallback.url", translate.DefaultLibreTranslateURL)
	v.SetDefault("fallback.api_key", "")
	v.SetDefault("fallback.timeout", translate.DefaultLibreTranslateTimeout)

	v.SetDefault("detector.engine", "lingua")
	v.SetDefault("detector.llm_short_text", true)
	v.SetDefault("detector.short_text_max_words", 6)

	v.SetDefault("pipeline.chunk_size", 3000)
	v.SetDefault("pipeline.concurrency", 1)
	v.SetDefault("pipeline.back_translation", true)
	v.SetDefault("pipeline.call_timeout", time.Duration(0))
	v.SetDefault("pipeline.max_batch_size", 100)
	v.SetDefault("pipeline.glossary_file", "")

	v.SetDefault("sessions.max_idle", 30*time.Minute)
	v.SetDefault("sessions.max_history", 100)

	v.SetDefault("jobs.max_age", time.Hour)
}

// BindFlags defines the command-line flags on fs and binds them to v.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	fs.String("config", "", "Path to a YAML config file")
	fs.String("log-level", "info", "Log level: debug, info, warn, error")
	fs.Int("grpc-port", 50051, "gRPC server port")
	fs.Int("http-port", 8080, "HTTP server port")
	fs.String("llm-model", translate.DefaultLLMModel, "Chat model for the primary backend")
	fs.String("llm-base-url", "", "Base URL of an OpenAI-compatible API")
	fs.Bool("llm-enabled", true, "Use the LLM as primary backend")
	fs.String("fallback-engine", string(translate.EngineGoogle), "Secondary engine: google or libretranslate")
	fs.String("fallback-url", translate.DefaultLibreTranslateURL, "LibreTranslate base URL")
	fs.String("detector", "lingua", "Statistical detector: lingua or whatlang")
	fs.Int("chunk-size", 3000, "Long-text chunk size in characters")
	fs.Int("concurrency", 1, "Parallel backend calls for batch and long-text translation")
	fs.String("glossary", "", "Default glossary file (JSON or YAML)")

	bindings := map[string]string{
		"log.level":              "log-level",
		"server.grpc_port":       "grpc-port",
		"server.http_port":       "http-port",
		"llm.model":              "llm-model",
		"llm.base_url":           "llm-base-url",
		"llm.enabled":            "llm-enabled",
		"fallback.engine":        "fallback-engine",
		"fallback.url":           "fallback-url",
		"detector.engine":        "detector",
		"pipeline.chunk_size":    "chunk-size",
		"pipeline.concurrency":   "concurrency",
		"pipeline.glossary_file": "glossary",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// LoadDotEnv loads .env files into the process environment. Missing files
// are ignored; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration into a Config. configFile may be empty, in which
// case polyglot.yaml is looked up in the working directory and /etc/polyglot.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("llm.api_key", EnvPrefix+"_LLM_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("polyglot")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/polyglot")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and engine names.
func (c *Config) Validate() error {
	var errs []error
	if c.Pipeline.ChunkSize < 1 {
		errs = append(errs, fmt.Errorf("pipeline.chunk_size must be at least 1, got %d", c.Pipeline.ChunkSize))
	}
	if c.Pipeline.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("pipeline.concurrency must be at least 1, got %d", c.Pipeline.Concurrency))
	}
	if _, err := translate.ParseEngineType(c.Fallback.Engine); err != nil {
		errs = append(errs, fmt.Errorf("fallback.engine: %w", err))
	}
	switch strings.ToLower(c.Detector.Engine) {
	case "lingua", "whatlang":
	default:
		errs = append(errs, fmt.Errorf("detector.engine must be lingua or whatlang, got %q", c.Detector.Engine))
	}
	for name, port := range map[string]int{"server.grpc_port": c.Server.GRPCPort, "server.http_port": c.Server.HTTPPort} {
		if port < 0 || port > 65535 {
			errs = append(errs, fmt.Errorf("%s out of range: %d", name, port))
		}
	}
	return errors.Join(errs...)
}

// NewLogger builds the process logger. An invalid level falls back to info.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		logger.WithError(err).Warn("Invalid log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
