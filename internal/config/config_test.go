package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvEnforcement, EnvIdleChecks, EnvMaxChecks, EnvSampleLimit, EnvCheckParallelism, EnvDisable} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()

	cfg, err := Load(root, Overrides{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Mode != ModeShadow {
		t.Errorf("expected shadow mode, got %s", cfg.Mode)
	}
	if cfg.IdleMode != IdlePlan {
		t.Errorf("expected plan idle mode, got %s", cfg.IdleMode)
	}
	if cfg.MaxChecks != 6 {
		t.Errorf("expected MaxChecks 6, got %d", cfg.MaxChecks)
	}
	if cfg.SampleLimit != 8 {
		t.Errorf("expected SampleLimit 8, got %d", cfg.SampleLimit)
	}
	if cfg.CheckTimeout != 120*time.Second {
		t.Errorf("expected 120s timeout, got %s", cfg.CheckTimeout)
	}
	want := filepath.Join(root, ".claude", "skills", "skill-rules.json")
	if cfg.RulesPath != want {
		t.Errorf("expected rules path %s, got %s", want, cfg.RulesPath)
	}
}

func TestLoad_EnvOverridesSettingsFile(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	dir := filepath.Join(root, ".claude")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	settings := "enforcement: enforce\nidle_checks: execute\nmax_checks: 3\ncheck_timeout: 30s\n"
	if err := os.WriteFile(filepath.Join(dir, DefaultSettingsFile), []byte(settings), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(root, Overrides{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Mode != ModeEnforce || cfg.IdleMode != IdleExecute || cfg.MaxChecks != 3 {
		t.Errorf("settings file not applied: %+v", cfg)
	}
	if cfg.CheckTimeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %s", cfg.CheckTimeout)
	}

	t.Setenv(EnvEnforcement, "shadow")
	t.Setenv(EnvMaxChecks, "9")
	cfg, err = Load(root, Overrides{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Mode != ModeShadow {
		t.Errorf("env should override settings file, got %s", cfg.Mode)
	}
	if cfg.MaxChecks != 9 {
		t.Errorf("expected MaxChecks 9, got %d", cfg.MaxChecks)
	}

	cfg, err = Load(root, Overrides{Mode: "enforce", MaxChecks: "2"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Mode != ModeEnforce || cfg.MaxChecks != 2 {
		t.Errorf("flags should override env, got mode=%s max=%d", cfg.Mode, cfg.MaxChecks)
	}
}

func TestLoad_UnknownModeKeepsDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvEnforcement, "loud")
	t.Setenv(EnvIdleChecks, "sometimes")

	cfg, err := Load(t.TempDir(), Overrides{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Mode != ModeShadow || cfg.IdleMode != IdlePlan {
		t.Errorf("unknown values should keep defaults, got %s/%s", cfg.Mode, cfg.IdleMode)
	}
}

func TestLoad_Disable(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDisable, "1")

	cfg, err := Load(t.TempDir(), Overrides{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.Disabled {
		t.Error("expected Disabled when SKILLGUARD_DISABLE=1")
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"4", 4},
		{"0", 0},
		{"2.7", 2},
		{"", 6},
		{"abc", 6},
		{"NaN", 6},
		{"Inf", 6},
		{"-1", 6},
		{"1e20", MaxLimit},
		{"9999999999999999999", MaxLimit},
		{"2147483647", MaxLimit},
	}

	for _, tt := range tests {
		if got := ParseLimit(tt.in, 6); got != tt.want {
			t.Errorf("ParseLimit(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestLoad_CorruptSettingsKeepsOtherLayers(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvEnforcement, "enforce")
	root := t.TempDir()
	dir := filepath.Join(root, ".claude")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, DefaultSettingsFile), []byte("enforcement: [unclosed\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(root, Overrides{MaxChecks: "2"})
	if err != nil {
		t.Fatalf("expected corrupt settings to be skipped, got %v", err)
	}
	if cfg.Mode != ModeEnforce {
		t.Errorf("expected env layer to apply, got mode %s", cfg.Mode)
	}
	if cfg.MaxChecks != 2 {
		t.Errorf("expected flag layer to apply, got MaxChecks %d", cfg.MaxChecks)
	}
	if len(cfg.Warnings) != 1 || !strings.Contains(cfg.Warnings[0], "parse settings") {
		t.Errorf("expected one parse warning, got %v", cfg.Warnings)
	}
}
