// Package config loads the service configuration from config.yaml and
// RELGATE_-prefixed environment variables. Configuration is read once at
// startup and treated as immutable for the lifetime of every run.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/relgate/relgate/internal/notify"
	"github.com/relgate/relgate/internal/pipeline"
)

type Config struct {
	Server   ServerConfig         `koanf:"server"`
	Storage  StorageConfig        `koanf:"storage"`
	Stages   pipeline.StageConfig `koanf:"stages"`
	Defaults DefaultsConfig       `koanf:"defaults"`
	GitHub   GitHubConfig         `koanf:"github"`
	CLI      CLIConfig            `koanf:"cli"`
	Notify   notify.Config        `koanf:"notify"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
	// RunTimeout bounds each pipeline run; an exceeded deadline is
	// recorded as the in-flight stage's failure.
	RunTimeout time.Duration `koanf:"run_timeout"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, memory
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// DefaultsConfig holds the fallback values the event normalizer applies
// when a trigger does not carry explicit inputs.
type DefaultsConfig struct {
	TestLevel    string `koanf:"test_level"`
	TargetOrg    string `koanf:"target_org"`
	TargetBranch string `koanf:"target_branch"`
}

type GitHubConfig struct {
	Repo          string `koanf:"repo"` // "owner/name"
	Token         string `koanf:"token"`
	BaseURL       string `koanf:"base_url"`
	WebhookSecret string `koanf:"webhook_secret"`
}

// CLIConfig locates the platform CLI and the metadata project it runs
// against.
type CLIConfig struct {
	Bin        string `koanf:"bin"`
	ProjectDir string `koanf:"project_dir"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads config.yaml (when present) and environment variables, env
// winning. Secrets may be written as ${VAR} references.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = "config.yaml"
	}
	// A missing file is fine, env vars can carry everything.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("RELGATE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "RELGATE_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	applyDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.GitHub.Token = substituteEnvVars(cfg.GitHub.Token)
	cfg.GitHub.WebhookSecret = substituteEnvVars(cfg.GitHub.WebhookSecret)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(k *koanf.Koanf) {
	set := func(key string, value any) {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}
	set("server.port", 8080)
	set("server.run_timeout", "30m")
	set("storage.type", "sqlite")
	set("storage.sqlite.path", "./data/relgate.db")
	set("defaults.test_level", string(pipeline.RunLocalTests))
	set("defaults.target_branch", "main")
	set("stages.check_conflicts", true)
	set("stages.validate_metadata", true)
	set("stages.run_tests", true)
	set("stages.create_pull_request", true)
	set("stages.deploy", true)
}

// validate rejects configurations the pipeline cannot run with. Unknown
// test levels are a startup error, not a per-run one.
func (c *Config) validate() error {
	if _, err := pipeline.ParseTestLevel(c.Defaults.TestLevel); err != nil {
		return fmt.Errorf("defaults.test_level: %w", err)
	}
	switch c.Storage.Type {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unsupported storage.type %q", c.Storage.Type)
	}
	return nil
}

// DefaultTestLevel returns the parsed default test level. Load has
// already validated it.
func (c *Config) DefaultTestLevel() pipeline.TestLevel {
	level, _ := pipeline.ParseTestLevel(c.Defaults.TestLevel)
	return level
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
