package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "guardrails.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GUARDRAIL_CONFIG", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":50051" || cfg.Storage.Driver != "sqlite" || cfg.Cache.Driver != "memory" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.EvidenceTTL() != 168*time.Hour {
		t.Fatalf("expected 168h TTL, got %s", cfg.EvidenceTTL())
	}
	if th := cfg.Thresholds(); th.MinEvidenceSources != 3 || th.EvidenceTTL != 168*time.Hour {
		t.Fatalf("unexpected thresholds: %+v", th)
	}
}

func TestLoadFileOverridesThresholds(t *testing.T) {
	path := writeConfig(t, `
server:
  address: ":6000"
guardrails:
  evidenceCacheTTLHours: 72
  strictInvariants: true
  thresholds:
    minEvidenceSources: 5
    freshWindow: 12h
drift:
  sweepEnabled: true
  sweepSchedule: "@every 30m"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	th := cfg.Thresholds()
	if th.MinEvidenceSources != 5 || th.FreshWindow != 12*time.Hour {
		t.Fatalf("threshold overrides not applied: %+v", th)
	}
	if th.MinDistinctSourceTypes != 2 {
		t.Fatalf("unset thresholds should keep defaults: %+v", th)
	}
	if th.EvidenceTTL != 72*time.Hour || !cfg.Guardrails.StrictInvariants {
		t.Fatalf("guardrail settings not applied: %+v", cfg.Guardrails)
	}
	if cfg.Server.Address != ":6000" || cfg.Server.HTTPAddress != ":8080" {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("EVIDENCE_CACHE_TTL_HOURS", "48")
	t.Setenv("GUARDRAIL_STORAGE_DRIVER", "mongo")
	t.Setenv("GUARDRAIL_MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("GUARDRAIL_CACHE_DRIVER", "redis")
	t.Setenv("GUARDRAIL_CACHE_ADDR", "localhost:6379")
	t.Setenv("GUARDRAIL_LOG_FORMAT", "json")

	cfg, err := Load(writeConfig(t, "logging:\n  level: debug\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.EvidenceTTL() != 48*time.Hour {
		t.Fatalf("expected env TTL, got %s", cfg.EvidenceTTL())
	}
	if cfg.Storage.Driver != "mongo" || cfg.Storage.Mongo.URI != "mongodb://localhost:27017" {
		t.Fatalf("storage env not applied: %+v", cfg.Storage)
	}
	if cfg.Cache.Driver != "redis" || cfg.Cache.Addr != "localhost:6379" {
		t.Fatalf("cache env not applied: %+v", cfg.Cache)
	}
	if !cfg.Logging.JSON || cfg.Logging.Level != "debug" {
		t.Fatalf("logging not applied: %+v", cfg.Logging)
	}
}

func TestInvalidTTLEnvKeepsDefault(t *testing.T) {
	t.Setenv("EVIDENCE_CACHE_TTL_HOURS", "soon")
	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.EvidenceTTL() != 168*time.Hour {
		t.Fatalf("expected default TTL, got %s", cfg.EvidenceTTL())
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"mongo without uri":  "storage:\n  driver: mongo\n",
		"unknown storage":    "storage:\n  driver: postgres\n",
		"unknown cache":      "cache:\n  driver: memcached\n",
		"sweep without cron": "drift:\n  sweepEnabled: true\n  sweepSchedule: \"\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestShippedConfigLoads(t *testing.T) {
	t.Setenv("EVIDENCE_CACHE_TTL_HOURS", "")
	cfg, err := Load("../../configs/guardrails.yaml")
	if err != nil {
		t.Fatalf("load shipped config: %v", err)
	}
	if cfg.Evidence.BaseURL == "" || cfg.Guardrails.LexiconPath != "configs/lexicon.yaml" {
		t.Fatalf("unexpected shipped config: %+v", cfg)
	}
	if th := cfg.Thresholds(); th.MinEvidenceSources != 3 || th.EvidenceTTL != 168*time.Hour {
		t.Fatalf("unexpected shipped thresholds: %+v", th)
	}
}
