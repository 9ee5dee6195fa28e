package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/relgate/relgate/internal/pipeline"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.RunTimeout != 30*time.Minute {
		t.Errorf("RunTimeout = %v, want 30m", cfg.Server.RunTimeout)
	}
	if cfg.DefaultTestLevel() != pipeline.RunLocalTests {
		t.Errorf("DefaultTestLevel = %s", cfg.DefaultTestLevel())
	}
	if cfg.Defaults.TargetBranch != "main" {
		t.Errorf("TargetBranch = %s", cfg.Defaults.TargetBranch)
	}
	// All five stages default to enabled.
	for _, stage := range pipeline.StageOrder {
		if !cfg.Stages.Enabled(stage) {
			t.Errorf("stage %s not enabled by default", stage)
		}
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  run_timeout: 15m
stages:
  deploy: false
defaults:
  test_level: RunAllTestsInOrg
  target_org: uat-org
  target_branch: release/spring
github:
  repo: acme/crm-metadata
notify:
  type: webhook
  url: https://hooks.example.test/relgate
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.Stages.Deploy {
		t.Error("Deploy should be disabled")
	}
	if !cfg.Stages.RunTests {
		t.Error("RunTests should keep its default")
	}
	if cfg.DefaultTestLevel() != pipeline.RunAllTestsInOrg {
		t.Errorf("DefaultTestLevel = %s", cfg.DefaultTestLevel())
	}
	if cfg.Notify.Type != "webhook" {
		t.Errorf("Notify.Type = %s", cfg.Notify.Type)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("RELGATE_SERVER__PORT", "7070")
	t.Setenv("RELGATE_DEFAULTS__TARGET_ORG", "env-org")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Defaults.TargetOrg != "env-org" {
		t.Errorf("TargetOrg = %s", cfg.Defaults.TargetOrg)
	}
}

func TestLoad_TokenSubstitution(t *testing.T) {
	t.Setenv("TEST_GH_TOKEN", "ghp_secret")

	path := writeConfig(t, `
github:
  token: ${TEST_GH_TOKEN}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.GitHub.Token != "ghp_secret" {
		t.Errorf("Token = %q", cfg.GitHub.Token)
	}
}

func TestLoad_RejectsUnknownTestLevel(t *testing.T) {
	path := writeConfig(t, `
defaults:
  test_level: RunSomeTests
`)

	if _, err := Load(path); err == nil {
		t.Error("expected error for unknown test level")
	}
}

func TestLoad_RejectsUnknownStorage(t *testing.T) {
	path := writeConfig(t, `
storage:
  type: postgres
`)

	if _, err := Load(path); err == nil {
		t.Error("expected error for unsupported storage type")
	}
}
