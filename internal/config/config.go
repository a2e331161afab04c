// Package config holds RunConfig and BatchConfig, the CLI/batch-layer
// configuration structs (spec.md §3), their validation, and file loading —
// the generalisation of the teacher's config.Load()/Validate() to the much
// larger flag/file surface spec.md §6 requires.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var validPoolBlockSizes = map[string]bool{
	"16K": true, "32K": true, "64K": true, "128K": true, "256K": true,
	"512K": true, "1M": true, "2M": true, "4M": true, "8M": true, "16M": true,
}

var validDiskBlockSizes = map[string]bool{
	"4K": true, "32K": true, "128K": true, "1M": true,
}

var validDiskModes = map[string]bool{
	"serial": true, "parallel": true, "seek_stress": true,
}

// RunConfig is immutable after construction by the CLI/batch layer
// (spec.md §3).
type RunConfig struct {
	SelectedPools []string `yaml:"selected_pools" json:"selected_pools"`

	ZFSIterations  int `yaml:"zfs_iterations" json:"zfs_iterations"`
	DiskIterations int `yaml:"disk_iterations" json:"disk_iterations"`

	PoolBlockSize string   `yaml:"pool_block_size" json:"pool_block_size"`
	DiskBlockSize string   `yaml:"disk_block_size" json:"disk_block_size"`
	DiskModes     []string `yaml:"disk_modes" json:"disk_modes"`
	SeekThreads   int      `yaml:"seek_threads" json:"seek_threads"`

	CollectZpoolIostat   bool `yaml:"collect_zpool_iostat" json:"collect_zpool_iostat"`
	ZpoolIostatIntervalS int  `yaml:"zpool_iostat_interval_s" json:"zpool_iostat_interval_s"`
	ZpoolIostatWarmup    int  `yaml:"zpool_iostat_warmup" json:"zpool_iostat_warmup"`
	ZpoolIostatCooldown  int  `yaml:"zpool_iostat_cooldown" json:"zpool_iostat_cooldown"`
	CollectArcstat       bool `yaml:"collect_arcstat" json:"collect_arcstat"`

	Cleanup       bool `yaml:"cleanup" json:"cleanup"`
	ForceCleanup  bool `yaml:"force_cleanup" json:"force_cleanup"`
	RetryCleanup  int  `yaml:"retry_cleanup" json:"retry_cleanup"`

	Output     string `yaml:"output" json:"output"`
	Unattended bool   `yaml:"unattended" json:"unattended"`
	Confirm    bool   `yaml:"confirm" json:"confirm"`

	DownsampleFactor int `yaml:"downsample_factor" json:"downsample_factor"`
}

// Validate enforces spec.md §3/§6's range and mutual constraints, in the
// same shape as the teacher's ProxmoxConfig.Validate().
func (c *RunConfig) Validate() error {
	if c.ZFSIterations < 0 || c.ZFSIterations > 100 {
		return fmt.Errorf("zfs_iterations must be 0..100, got %d", c.ZFSIterations)
	}
	if c.DiskIterations < 0 || c.DiskIterations > 100 {
		return fmt.Errorf("disk_iterations must be 0..100, got %d", c.DiskIterations)
	}
	if c.PoolBlockSize != "" && !validPoolBlockSizes[strings.ToUpper(c.PoolBlockSize)] {
		return fmt.Errorf("invalid pool_block_size: %s", c.PoolBlockSize)
	}
	if c.DiskBlockSize != "" && !validDiskBlockSizes[strings.ToUpper(c.DiskBlockSize)] {
		return fmt.Errorf("invalid disk_block_size: %s", c.DiskBlockSize)
	}
	if c.DiskIterations > 0 {
		if len(c.DiskModes) == 0 {
			return fmt.Errorf("disk_modes must be non-empty when disk_iterations > 0")
		}
		for _, mode := range c.DiskModes {
			if !validDiskModes[mode] {
				return fmt.Errorf("invalid disk mode: %s", mode)
			}
			if mode == "seek_stress" && (c.SeekThreads < 1 || c.SeekThreads > 32) {
				return fmt.Errorf("seek_threads must be 1..32 when seek_stress is selected, got %d", c.SeekThreads)
			}
		}
	}
	if c.RetryCleanup < 0 {
		return fmt.Errorf("retry_cleanup must be >= 0, got %d", c.RetryCleanup)
	}
	if c.Unattended && !c.Confirm {
		return fmt.Errorf("--unattended requires --confirm")
	}
	return nil
}

// Default returns a RunConfig with spec.md's illustrative CLI defaults.
func Default() RunConfig {
	return RunConfig{
		PoolBlockSize:        "1M",
		DiskBlockSize:        "1M",
		DiskModes:            []string{"serial"},
		SeekThreads:          4,
		ZFSIterations:        3,
		DiskIterations:       0,
		CollectZpoolIostat:   true,
		ZpoolIostatIntervalS: 1,
		ZpoolIostatWarmup:    3,
		ZpoolIostatCooldown:  3,
		CollectArcstat:       true,
		Cleanup:              true,
		RetryCleanup:         3,
		Output:               "./tn_bench_results.json",
		DownsampleFactor:     5,
	}
}

// BatchConfig describes a matrix of runs: a shared "global" RunConfig
// overlaid per run (spec.md §6).
type BatchConfig struct {
	Description      string          `yaml:"description" json:"description"`
	ContinueOnError  bool            `yaml:"continue_on_error" json:"continue_on_error"`
	Global           RunConfig       `yaml:"global" json:"global"`
	Runs             []RunOverlay    `yaml:"runs" json:"runs"`
}

// RunOverlay is one named run's partial RunConfig, deep-merged atop Global
// by internal/batch.
type RunOverlay struct {
	Name      string `yaml:"name" json:"name"`
	RunConfig `yaml:",inline"`
}

// Load reads path as JSON or YAML based on its extension, trying JSON
// first for an unrecognised extension (spec.md §6: "Unknown-extension
// files are tried as JSON then as YAML" — see SPEC_FULL.md §3.3 for the
// rationale).
func Load(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parse %s as JSON: %w", path, err)
		}
		return nil
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parse %s as YAML: %w", path, err)
		}
		return nil
	default:
		if jsonErr := json.Unmarshal(data, out); jsonErr == nil {
			return nil
		}
		if err := yaml.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parse %s as JSON or YAML: %w", path, err)
		}
		return nil
	}
}

// LoadBatch loads and validates a BatchConfig file.
func LoadBatch(path string) (*BatchConfig, error) {
	var bc BatchConfig
	if err := Load(path, &bc); err != nil {
		return nil, err
	}
	if len(bc.Runs) == 0 {
		return nil, fmt.Errorf("batch config %s defines no runs", path)
	}
	return &bc, nil
}

// Merge deep-merges overlay atop base: any field overlay sets to a
// non-zero value wins, matching spec.md §4.8's "run wins per key". Slice
// fields are replaced wholesale, not concatenated, when non-empty.
func Merge(base RunConfig, overlay RunConfig) RunConfig {
	merged := base

	if len(overlay.SelectedPools) > 0 {
		merged.SelectedPools = overlay.SelectedPools
	}
	if overlay.ZFSIterations != 0 {
		merged.ZFSIterations = overlay.ZFSIterations
	}
	if overlay.DiskIterations != 0 {
		merged.DiskIterations = overlay.DiskIterations
	}
	if overlay.PoolBlockSize != "" {
		merged.PoolBlockSize = overlay.PoolBlockSize
	}
	if overlay.DiskBlockSize != "" {
		merged.DiskBlockSize = overlay.DiskBlockSize
	}
	if len(overlay.DiskModes) > 0 {
		merged.DiskModes = overlay.DiskModes
	}
	if overlay.SeekThreads != 0 {
		merged.SeekThreads = overlay.SeekThreads
	}
	if overlay.ZpoolIostatIntervalS != 0 {
		merged.ZpoolIostatIntervalS = overlay.ZpoolIostatIntervalS
	}
	if overlay.ZpoolIostatWarmup != 0 {
		merged.ZpoolIostatWarmup = overlay.ZpoolIostatWarmup
	}
	if overlay.ZpoolIostatCooldown != 0 {
		merged.ZpoolIostatCooldown = overlay.ZpoolIostatCooldown
	}
	if overlay.RetryCleanup != 0 {
		merged.RetryCleanup = overlay.RetryCleanup
	}
	if overlay.Output != "" {
		merged.Output = overlay.Output
	}
	if overlay.DownsampleFactor != 0 {
		merged.DownsampleFactor = overlay.DownsampleFactor
	}

	merged.CollectZpoolIostat = overlay.CollectZpoolIostat || base.CollectZpoolIostat
	merged.CollectArcstat = overlay.CollectArcstat || base.CollectArcstat
	merged.Cleanup = overlay.Cleanup || base.Cleanup
	merged.ForceCleanup = overlay.ForceCleanup || base.ForceCleanup
	merged.Unattended = overlay.Unattended || base.Unattended
	merged.Confirm = overlay.Confirm || base.Confirm

	return merged
}
