package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.GRPCPort != 50051 || cfg.Server.HTTPPort != 8080 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Pipeline.ChunkSize != 3000 || cfg.Pipeline.Concurrency != 1 || !cfg.Pipeline.BackTranslation {
		t.Errorf("pipeline = %+v", cfg.Pipeline)
	}
	if cfg.LLM.Model != "gpt-4" || cfg.LLM.Timeout != 60*time.Second {
		t.Errorf("llm = %+v", cfg.LLM)
	}
	if cfg.Fallback.Engine != "google" || cfg.Detector.Engine != "lingua" || !cfg.Detector.LLMShortText {
		t.Errorf("fallback = %+v, detector = %+v", cfg.Fallback, cfg.Detector)
	}
	if cfg.Sessions.MaxIdle != 30*time.Minute || cfg.Jobs.MaxAge != time.Hour {
		t.Errorf("sessions = %+v, jobs = %+v", cfg.Sessions, cfg.Jobs)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "polyglot.yaml")
	yaml := `
log:
  level: debug
pipeline:
  chunk_size: 500
  concurrency: 4
fallback:
  engine: libretranslate
  url: http://lt:5000
sessions:
  max_idle: 5m
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("POLYGLOT_PIPELINE_CONCURRENCY", "8")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(viper.New(), path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "debug" || cfg.Pipeline.ChunkSize != 500 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Pipeline.Concurrency != 8 {
		t.Errorf("env should override file, got concurrency %d", cfg.Pipeline.Concurrency)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("api key = %q", cfg.LLM.APIKey)
	}
	if cfg.Fallback.Engine != "libretranslate" || cfg.Fallback.URL != "http://lt:5000" || cfg.Sessions.MaxIdle != 5*time.Minute {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_Flags(t *testing.T) {
	chdir(t, t.TempDir())
	v := viper.New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(v, fs); err != nil {
		t.Fatal(err)
	}
	if err := fs.Parse([]string{"--chunk-size=1200", "--detector=whatlang", "--grpc-port=6000"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(v, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Pipeline.ChunkSize != 1200 || cfg.Detector.Engine != "whatlang" || cfg.Server.GRPCPort != 6000 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("explicit missing config file should fail")
	}

	chdir(t, t.TempDir())
	t.Setenv("POLYGLOT_PIPELINE_CHUNK_SIZE", "0")
	t.Setenv("POLYGLOT_FALLBACK_ENGINE", "bing")
	_, err := Load(viper.New(), "")
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"chunk_size", "fallback.engine"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %s", err, want)
		}
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("POLYGLOT_TEST_DOTENV=loaded\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("POLYGLOT_TEST_DOTENV", "")
	os.Unsetenv("POLYGLOT_TEST_DOTENV")

	if err := LoadDotEnv(path, filepath.Join(dir, "absent.env")); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("POLYGLOT_TEST_DOTENV"); got != "loaded" {
		t.Errorf("got %q", got)
	}
}

func TestNewLogger(t *testing.T) {
	cfg := &Config{Log: LogConfig{Level: "warn"}}
	if lvl := cfg.NewLogger().GetLevel(); lvl != logrus.WarnLevel {
		t.Errorf("level = %v", lvl)
	}
	cfg.Log.Level = "chatty"
	if lvl := cfg.NewLogger().GetLevel(); lvl != logrus.InfoLevel {
		t.Errorf("invalid level = %v", lvl)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
