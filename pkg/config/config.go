// Package config holds the tunables for the store, paths and gather
// packages, following the teacher's pattern of a single JSON-tagged,
// mutex-guarded Config struct with a constructor for defaults.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"sync"
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config holds runtime tunables. It is safe for concurrent reads and writes
// via the accessor methods; direct field access is for construction only.
type Config struct {
	// PathsHashDebugModulus, when > 0, forces the paths hash function H to
	// reduce its output range to this modulus, producing frequent bucket
	// collisions for testing collision-handling paths (§4.2).
	PathsHashDebugModulus uint64 `json:"paths_hash_debug_modulus"`

	// PathsDirectorySeparator is the separator byte used to derive
	// hierarchical directory-mirror entries.
	PathsDirectorySeparator byte `json:"paths_directory_separator"`

	// PathsDirectoryMirror enables the hierarchical directory-mirror
	// feature described in §4.2/§9. Off by default since the source left
	// it as an open question.
	PathsDirectoryMirror bool `json:"paths_directory_mirror"`

	// ArenaInitialBytes is the initial backing capacity handed to a fresh
	// arena.Arena.
	ArenaInitialBytes int `json:"arena_initial_bytes"`

	// ArenaGrowthFactor multiplies the arena's capacity on growth.
	ArenaGrowthFactor float64 `json:"arena_growth_factor"`

	// TxMaxRetries is a retry bound for optimistic commits.
	// pkg/store.WithRetry does not read it; it takes its bound as the
	// maxAttempts argument.
	TxMaxRetries int `json:"tx_max_retries"`

	// GatherColumnParallelism bounds the number of columns processed
	// concurrently by the gather engine. 0 or 1 disables parallelism.
	GatherColumnParallelism int `json:"gather_column_parallelism"`

	mu sync.RWMutex
}

// NewDefaultConfig returns a Config with recommended default values.
func NewDefaultConfig() *Config {
	return &Config{
		PathsHashDebugModulus:   0,
		PathsDirectorySeparator: '/',
		PathsDirectoryMirror:    false,
		ArenaInitialBytes:       4096,
		ArenaGrowthFactor:       2.0,
		TxMaxRetries:            8,
		GatherColumnParallelism: 4,
	}
}

// Validate checks the configuration for internally-inconsistent values.
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.ArenaGrowthFactor <= 1.0 {
		return ErrInvalidConfig
	}
	if c.ArenaInitialBytes < 0 {
		return ErrInvalidConfig
	}
	if c.TxMaxRetries < 0 {
		return ErrInvalidConfig
	}
	if c.GatherColumnParallelism < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// HashDebugModulus returns the configured debug modulus under the read lock.
func (c *Config) HashDebugModulus() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.PathsHashDebugModulus
}

// SetHashDebugModulus updates the debug modulus under the write lock.
func (c *Config) SetHashDebugModulus(modulus uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.PathsHashDebugModulus = modulus
}

// DirectoryMirrorEnabled reports whether hierarchical directory-mirror
// entries should be maintained.
func (c *Config) DirectoryMirrorEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.PathsDirectoryMirror
}

// DirectorySeparator returns the separator byte used to split path names
// into hierarchical ancestor prefixes.
func (c *Config) DirectorySeparator() byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.PathsDirectorySeparator
}

// LoadConfig reads a JSON-encoded Config from path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := NewDefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the Config as JSON to path.
func (c *Config) Save(path string) error {
	c.mu.RLock()
	data, err := json.MarshalIndent(c, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
