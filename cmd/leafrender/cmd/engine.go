package cmd

import "github.com/leafkit/leaf"

// loadEngineConfig returns the EngineConfig for the current invocation:
// DefaultEngineConfig when --config was not given, or the parsed file
// otherwise.
func loadEngineConfig() (leaf.EngineConfig, error) {
	if configPath == "" {
		return leaf.DefaultEngineConfig(), nil
	}
	return leaf.LoadEngineConfig(configPath)
}
