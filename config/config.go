// Configuration loading for the spraptor engine. spec.md §6 leaves the
// four sizing parameters (bank count, bank depth, value/index widths)
// as compile-time constants; this package generalizes them into a
// YAML document so a deployment can pick geometry without a rebuild.

package config

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"

	"github.com/AbhishekMusku/spraptor/engine"
)

// File is the on-disk shape of a spraptor config file. Field names
// follow spec.md §6's naming, lowercased to the usual YAML convention.
type File struct {
	BankCount int `json:"bank_count"`
	BankDepth int `json:"bank_depth"`
	ValueBits int `json:"value_bits"`
	IndexBits int `json:"index_bits"`
}

// Load reads and validates a YAML config file at path, returning an
// engine.Config ready for engine.New. An empty path yields
// engine.DefaultConfig() unchanged.
func Load(path string) (engine.Config, error) {
	if path == "" {
		return engine.DefaultConfig(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return engine.Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return engine.Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg := engine.Config{
		BankCount: f.BankCount,
		BankDepth: f.BankDepth,
		ValueBits: f.ValueBits,
		IndexBits: f.IndexBits,
	}
	if cfg.BankCount == 0 && cfg.BankDepth == 0 && cfg.ValueBits == 0 && cfg.IndexBits == 0 {
		return engine.DefaultConfig(), nil
	}
	return cfg, Validate(cfg)
}

// Validate checks the constraints engine.New enforces by panicking, so
// a config loader can report them as an ordinary error instead.
func Validate(cfg engine.Config) error {
	if !isPowerOfTwo(cfg.BankCount) {
		return fmt.Errorf("config: bank_count=%d must be a power of two", cfg.BankCount)
	}
	if !isPowerOfTwo(cfg.BankDepth) {
		return fmt.Errorf("config: bank_depth=%d must be a power of two", cfg.BankDepth)
	}
	if cfg.ValueBits != 32 {
		return fmt.Errorf("config: value_bits=%d unsupported, only 32 is implemented", cfg.ValueBits)
	}
	if cfg.IndexBits != 16 {
		return fmt.Errorf("config: index_bits=%d unsupported, only 16 is implemented", cfg.IndexBits)
	}
	return nil
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
