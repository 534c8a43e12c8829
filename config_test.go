package leaf

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultEngineConfigBuildsWorkingRegistry(t *testing.T) {
	cfg := DefaultEngineConfig()
	if cfg.TagIndicatorRune() != DefaultTagIndicator {
		t.Errorf("TagIndicatorRune() = %q, want %q", cfg.TagIndicatorRune(), DefaultTagIndicator)
	}
	r := cfg.BuildRegistry()
	if !r.IsOpener("if") || !r.IsCloser("endif") {
		t.Error("default registry should register if/endif")
	}
	if !r.IsChainedTerminal("else") {
		t.Error("default registry should register else as a chained terminal")
	}
	if !r.IsFunction(InlineFunctionName) {
		t.Error("default registry should register inline as a function")
	}
}

func TestLoadEngineConfigFillsInDefaultsForZeroFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leaf.yaml")
	yamlBody := "tag_indicator: \"@\"\n"
	if err := os.WriteFile(path, []byte(yamlBody), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadEngineConfig(path)
	if err != nil {
		t.Fatalf("LoadEngineConfig: %v", err)
	}
	if cfg.TagIndicatorRune() != '@' {
		t.Errorf("TagIndicatorRune() = %q, want '@'", cfg.TagIndicatorRune())
	}
	// Blocks/Chains/Functions were left unset in the YAML, so the defaults
	// should still be present.
	r := cfg.BuildRegistry()
	if !r.IsOpener("if") || !r.IsChainedTerminal("else") {
		t.Error("unset sections in YAML should fall back to DefaultEngineConfig's values")
	}
}

func TestLoadEngineConfigOverridesBlocksWhenDeclared(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leaf.yaml")
	yamlBody := "" +
		"blocks:\n" +
		"  - opener: section\n" +
		"    closer: endsection\n"
	if err := os.WriteFile(path, []byte(yamlBody), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadEngineConfig(path)
	if err != nil {
		t.Fatalf("LoadEngineConfig: %v", err)
	}
	r := cfg.BuildRegistry()
	if !r.IsOpener("section") || !r.IsCloser("endsection") {
		t.Error("declared blocks should override the default block set")
	}
	if r.IsOpener("if") {
		t.Error("declaring blocks should replace, not merge with, the defaults")
	}
}

func TestLoadEngineConfigMissingFileIsError(t *testing.T) {
	if _, err := LoadEngineConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error reading a nonexistent config file")
	}
}

func TestDefaultEngineConfigFastPathThresholdIsCanonical50ms(t *testing.T) {
	cfg := DefaultEngineConfig()
	if cfg.BlockLimit != 50 {
		t.Errorf("BlockLimit = %d, want 50", cfg.BlockLimit)
	}
	if got := cfg.FastPathThreshold(); got != 50*time.Millisecond {
		t.Errorf("FastPathThreshold() = %v, want 50ms", got)
	}
}

func TestFastPathThresholdHonorsConfiguredBlockLimit(t *testing.T) {
	cfg := EngineConfig{BlockLimit: 10}
	if got := cfg.FastPathThreshold(); got != 10*time.Millisecond {
		t.Errorf("FastPathThreshold() = %v, want 10ms", got)
	}
}

func TestFastPathThresholdFallsBackOnNonPositiveBlockLimit(t *testing.T) {
	cfg := EngineConfig{BlockLimit: 0}
	if got := cfg.FastPathThreshold(); got != 50*time.Millisecond {
		t.Errorf("FastPathThreshold() = %v, want the canonical 50ms fallback", got)
	}
}

func TestTagIndicatorRuneFallsBackOnMultiRuneString(t *testing.T) {
	cfg := EngineConfig{TagIndicator: "##"}
	if cfg.TagIndicatorRune() != DefaultTagIndicator {
		t.Errorf("TagIndicatorRune() = %q, want default %q", cfg.TagIndicatorRune(), DefaultTagIndicator)
	}
}
