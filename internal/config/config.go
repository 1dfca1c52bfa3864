package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gzhole/skillguard/internal/rules"
)

const (
	DefaultConfigDir    = ".claude"
	DefaultRulesFile    = "skills/skill-rules.json"
	DefaultSettingsFile = "skillguard.yaml"
	DefaultStateDir     = "cache/skill-sessions"
	DefaultLogFile      = "cache/skillguard-audit.jsonl"
)

const (
	DefaultMaxChecks        = 6
	DefaultSampleLimit      = 8
	DefaultCheckTimeout     = 120 * time.Second
	DefaultCheckParallelism = 1
)

// Environment variables read by Load.
const (
	EnvEnforcement      = "SKILLGUARD_ENFORCEMENT"
	EnvIdleChecks       = "SKILLGUARD_IDLE_CHECKS"
	EnvMaxChecks        = "SKILLGUARD_MAX_CHECKS"
	EnvSampleLimit      = "SKILLGUARD_SAMPLE_LIMIT"
	EnvCheckParallelism = "SKILLGUARD_CHECK_PARALLELISM"
	EnvDisable          = "SKILLGUARD_DISABLE"
	EnvProjectDir       = "CLAUDE_PROJECT_DIR"
)

// Mode selects whether block-level matches stop the host.
type Mode string

const (
	ModeShadow  Mode = "shadow"
	ModeEnforce Mode = "enforce"
)

// IdleMode selects what happens to the check plan when a session goes idle.
type IdleMode string

const (
	IdlePlan    IdleMode = "plan"
	IdleExecute IdleMode = "execute"
)

// Config is built once per process and passed explicitly to the engine and
// the check planner.
type Config struct {
	ProjectRoot      string
	Mode             Mode
	IdleMode         IdleMode
	MaxChecks        int
	SampleLimit      int
	CheckTimeout     time.Duration
	CheckParallelism int
	Disabled         bool

	RulesPath string
	StateDir  string
	LogPath   string

	// Warnings lists layers that were skipped, such as an unreadable
	// settings file. The remaining layers still apply.
	Warnings []string
}

// Overrides carries CLI flag values. Empty or zero fields are ignored.
type Overrides struct {
	Mode      string
	IdleMode  string
	MaxChecks string
	RulesPath string
	LogPath   string
}

// settingsFile is the optional project file .claude/skillguard.yaml.
type settingsFile struct {
	Enforcement      string `yaml:"enforcement"`
	IdleChecks       string `yaml:"idle_checks"`
	MaxChecks        *int   `yaml:"max_checks"`
	SampleLimit      *int   `yaml:"sample_limit"`
	CheckTimeout     string `yaml:"check_timeout"`
	CheckParallelism int    `yaml:"check_parallelism"`
	RulesPath        string `yaml:"rules_path"`
	LogPath          string `yaml:"log_path"`
}

// Default returns the configuration used when nothing else is set.
func Default(projectRoot string) *Config {
	configDir := filepath.Join(projectRoot, DefaultConfigDir)
	return &Config{
		ProjectRoot:      projectRoot,
		Mode:             ModeShadow,
		IdleMode:         IdlePlan,
		MaxChecks:        DefaultMaxChecks,
		SampleLimit:      DefaultSampleLimit,
		CheckTimeout:     DefaultCheckTimeout,
		CheckParallelism: DefaultCheckParallelism,
		RulesPath:        filepath.Join(configDir, filepath.FromSlash(DefaultRulesFile)),
		StateDir:         filepath.Join(configDir, filepath.FromSlash(DefaultStateDir)),
		LogPath:          filepath.Join(configDir, filepath.FromSlash(DefaultLogFile)),
	}
}

// Load resolves configuration for projectRoot. Precedence, lowest first:
// defaults, project settings file, environment, flag overrides. A settings
// file that cannot be read or parsed is skipped and noted in Warnings.
func Load(projectRoot string, ov Overrides) (*Config, error) {
	if projectRoot == "" {
		projectRoot = ResolveProjectRoot("", "")
	}
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	cfg := Default(abs)

	if err := cfg.applySettingsFile(filepath.Join(abs, DefaultConfigDir, DefaultSettingsFile)); err != nil {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("%v (using defaults)", err))
	}
	cfg.applyEnv()
	cfg.applyOverrides(ov)

	if cfg.RulesPath == Default(abs).RulesPath {
		cfg.RulesPath = rules.Path(abs)
	}
	return cfg, nil
}

// ResolveProjectRoot picks the project root from an explicit flag, then
// CLAUDE_PROJECT_DIR, then the payload cwd, then the process working directory.
func ResolveProjectRoot(flag, payloadCwd string) string {
	if flag != "" {
		return flag
	}
	if dir := os.Getenv(EnvProjectDir); dir != "" {
		return dir
	}
	if payloadCwd != "" {
		return payloadCwd
	}
	if dir, err := os.Getwd(); err == nil {
		return dir
	}
	return "."
}

func (c *Config) applySettingsFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read settings: %w", err)
	}

	var sf settingsFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return fmt.Errorf("parse settings %s: %w", path, err)
	}

	c.setMode(sf.Enforcement)
	c.setIdleMode(sf.IdleChecks)
	if sf.MaxChecks != nil && *sf.MaxChecks >= 0 {
		c.MaxChecks = *sf.MaxChecks
	}
	if sf.SampleLimit != nil && *sf.SampleLimit >= 0 {
		c.SampleLimit = *sf.SampleLimit
	}
	if sf.CheckTimeout != "" {
		if d, err := time.ParseDuration(sf.CheckTimeout); err == nil && d > 0 {
			c.CheckTimeout = d
		}
	}
	if sf.CheckParallelism > 0 {
		c.CheckParallelism = sf.CheckParallelism
	}
	if sf.RulesPath != "" {
		c.RulesPath = c.resolvePath(sf.RulesPath)
	}
	if sf.LogPath != "" {
		c.LogPath = c.resolvePath(sf.LogPath)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.setMode(os.Getenv(EnvEnforcement))
	c.setIdleMode(os.Getenv(EnvIdleChecks))
	if v, ok := os.LookupEnv(EnvMaxChecks); ok {
		c.MaxChecks = ParseLimit(v, DefaultMaxChecks)
	}
	if v, ok := os.LookupEnv(EnvSampleLimit); ok {
		c.SampleLimit = ParseLimit(v, DefaultSampleLimit)
	}
	if v := os.Getenv(EnvCheckParallelism); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.CheckParallelism = n
		}
	}
	if v := os.Getenv(EnvDisable); v == "1" || strings.EqualFold(v, "true") {
		c.Disabled = true
	}
}

func (c *Config) applyOverrides(ov Overrides) {
	c.setMode(ov.Mode)
	c.setIdleMode(ov.IdleMode)
	if ov.MaxChecks != "" {
		c.MaxChecks = ParseLimit(ov.MaxChecks, DefaultMaxChecks)
	}
	if ov.RulesPath != "" {
		c.RulesPath = c.resolvePath(ov.RulesPath)
	}
	if ov.LogPath != "" {
		c.LogPath = c.resolvePath(ov.LogPath)
	}
}

func (c *Config) setMode(v string) {
	switch Mode(strings.ToLower(strings.TrimSpace(v))) {
	case ModeShadow:
		c.Mode = ModeShadow
	case ModeEnforce:
		c.Mode = ModeEnforce
	}
}

func (c *Config) setIdleMode(v string) {
	switch IdleMode(strings.ToLower(strings.TrimSpace(v))) {
	case IdlePlan:
		c.IdleMode = IdlePlan
	case IdleExecute:
		c.IdleMode = IdleExecute
	}
}

func (c *Config) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.ProjectRoot, p)
}

// Enforcing reports whether block-level matches raise a failure.
func (c *Config) Enforcing() bool {
	return c.Mode == ModeEnforce
}

// MaxLimit caps parsed limits; larger values are effectively unbounded.
const MaxLimit = math.MaxInt32

// ParseLimit parses a numeric limit. Values that are not finite numbers, or
// are negative, yield def. Fractions are truncated and values above
// MaxLimit are clamped to it.
func ParseLimit(v string, def int) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return def
	}
	if f > MaxLimit {
		return MaxLimit
	}
	return int(f)
}
