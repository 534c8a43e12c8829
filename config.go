package leaf

import (
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// EngineConfig is the YAML-loadable configuration for a Renderer: tag
// indicator override, fast-path block-limit threshold, and the entity
// registry seed (declared block factories, chained terminals, and atomic
// functions), matching the pack's "small config struct with defaults" style
// used across its cmd/ entry points.
type EngineConfig struct {
	TagIndicator string        `yaml:"tag_indicator"`
	// BlockLimit is the fast-path threshold in milliseconds: a cache hit
	// whose AST has no unresolved RequiredASTs and whose rolling average
	// execution time is under this many milliseconds serializes
	// immediately on the calling goroutine instead of scheduling a hop.
	BlockLimit int           `yaml:"block_limit"`
	Blocks     []BlockConfig `yaml:"blocks"`
	Chains     []string      `yaml:"chains"`
	Functions  []string      `yaml:"functions"`
}

// BlockConfig describes one opener/closer pair to register.
type BlockConfig struct {
	Opener string `yaml:"opener"`
	Closer string `yaml:"closer"`
}

// DefaultEngineConfig returns the configuration a Renderer uses when none
// is loaded: "#" tag indicator, the canonical 50ms fast-path block limit,
// DefaultRegistry's entity set.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		TagIndicator: string(DefaultTagIndicator),
		BlockLimit:   50,
		Blocks: []BlockConfig{
			{Opener: "if", Closer: "endif"},
			{Opener: "for", Closer: "endfor"},
			{Opener: "block", Closer: "endblock"},
			{Opener: VerbatimBlockName, Closer: VerbatimEndBlockName},
		},
		Chains:    []string{"else"},
		Functions: []string{InlineFunctionName},
	}
}

// LoadEngineConfig reads and parses a YAML engine configuration file at
// path, filling in DefaultEngineConfig's values for anything left zero.
func LoadEngineConfig(path string) (EngineConfig, error) {
	cfg := DefaultEngineConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return EngineConfig{}, err
	}
	loaded := EngineConfig{}
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return EngineConfig{}, err
	}
	if loaded.TagIndicator != "" {
		cfg.TagIndicator = loaded.TagIndicator
	}
	if loaded.BlockLimit != 0 {
		cfg.BlockLimit = loaded.BlockLimit
	}
	if len(loaded.Blocks) > 0 {
		cfg.Blocks = loaded.Blocks
	}
	if len(loaded.Chains) > 0 {
		cfg.Chains = loaded.Chains
	}
	if len(loaded.Functions) > 0 {
		cfg.Functions = loaded.Functions
	}
	return cfg, nil
}

// TagIndicatorRune returns the configured tag indicator as a rune, falling
// back to DefaultTagIndicator for an empty or multi-rune string.
func (c EngineConfig) TagIndicatorRune() rune {
	runes := []rune(c.TagIndicator)
	if len(runes) != 1 {
		return DefaultTagIndicator
	}
	return runes[0]
}

// FastPathThreshold returns BlockLimit as a time.Duration for
// Renderer.WithFastPathThreshold, falling back to the canonical 50ms value
// when BlockLimit is unset or non-positive.
func (c EngineConfig) FastPathThreshold() time.Duration {
	if c.BlockLimit <= 0 {
		return 50 * time.Millisecond
	}
	return time.Duration(c.BlockLimit) * time.Millisecond
}

// BuildRegistry materializes an EntityRegistry from c's block/chain/
// function declarations.
func (c EngineConfig) BuildRegistry() *EntityRegistry {
	r := NewEntityRegistry()
	for _, b := range c.Blocks {
		r.RegisterBlockPair(b.Opener, b.Closer)
	}
	for _, name := range c.Chains {
		r.RegisterChainedTerminal(name)
	}
	for _, name := range c.Functions {
		r.RegisterFunction(name)
	}
	return r
}
