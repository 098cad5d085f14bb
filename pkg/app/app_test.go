package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dasmlab/polyglot/pkg/config"
	"github.com/dasmlab/polyglot/pkg/service"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// fakeLibre upper-cases the text it receives.
func fakeLibre(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/translate":
			var req struct {
				Q string `json:"q"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"translatedText": strings.ToUpper(req.Q)})
		case "/languages":
			_ = json.NewEncoder(w).Encode([]map[string]string{{"code": "en"}, {"code": "es"}})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(libreURL string) *config.Config {
	return &config.Config{
		LLM:      config.LLMConfig{Enabled: false},
		Fallback: config.FallbackConfig{Engine: "libretranslate", URL: libreURL, Timeout: time.Second},
		Detector: config.DetectorConfig{Engine: "whatlang"},
		Pipeline: config.PipelineConfig{ChunkSize: 100, Concurrency: 2, BackTranslation: true, MaxBatchSize: 10},
		Sessions: config.SessionsConfig{MaxIdle: time.Minute, MaxHistory: 10},
		Jobs:     config.JobsConfig{MaxAge: time.Minute},
	}
}

func TestNew_SecondaryOnly(t *testing.T) {
	libre := fakeLibre(t)
	cfg := testConfig(libre.URL)
	glossary := filepath.Join(t.TempDir(), "terms.yaml")
	if err := os.WriteFile(glossary, []byte("cluster: clúster\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg.Pipeline.GlossaryFile = glossary

	a, err := New(cfg, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if a.LLM != nil {
		t.Error("LLM should not be built when disabled")
	}
	if a.Secondary.Name() != "libretranslate" || a.Glossary["cluster"] != "clúster" {
		t.Errorf("secondary = %s, glossary = %v", a.Secondary.Name(), a.Glossary)
	}

	ctx := context.Background()
	resp, err := a.Service.Translate(ctx, &service.TranslateRequest{Text: "the cluster is up", TargetLang: "es", SourceLang: "en"})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Success || *resp.Translated != "THE CLÚSTER IS UP" {
		t.Errorf("resp = %+v", resp)
	}

	ready := a.Service.CheckReady(ctx)
	if !ready.Ready || ready.Backends["libretranslate"] != "ok" || len(ready.Backends) != 1 {
		t.Errorf("ready = %+v", ready)
	}

	if _, err := a.Service.ProcessTask(ctx, &service.TaskRequest{Text: "hola", Task: "summarize"}); err == nil {
		t.Error("tasks need an LLM")
	}
}

func TestNew_Errors(t *testing.T) {
	cfg := testConfig("http://localhost:1")
	cfg.Fallback.Engine = "bing"
	if _, err := New(cfg, quietLogger()); err == nil {
		t.Error("unknown engine should fail")
	}

	cfg = testConfig("http://localhost:1")
	cfg.Pipeline.GlossaryFile = filepath.Join(t.TempDir(), "missing.json")
	if _, err := New(cfg, quietLogger()); err == nil {
		t.Error("missing glossary file should fail")
	}
}

func TestRunCleanup_StopsOnCancel(t *testing.T) {
	a, err := New(testConfig(fakeLibre(t).URL), quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.RunCleanup(ctx, time.Millisecond)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup loop did not stop")
	}
}
