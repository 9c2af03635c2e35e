// Package config provides configuration loading and management for
// brainmask3d. It handles loading configuration from YAML files and
// provides defaults matching the reference mouse-brain processing run.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// DepthRule names a region whose substructure is kept down to a fixed
// depth and collapsed below it.
type DepthRule struct {
	// Region is the acronym of the parent region
	Region string `yaml:"region"`

	// Depth is the generation of descendants to keep (1 = direct children)
	Depth int `yaml:"depth"`
}

// Config represents the application configuration loaded from YAML
type Config struct {
	// Atlas parameters
	Atlas struct {
		// StructuresFile is the path to the hierarchy definition
		// (BrainGlobe structures.json)
		StructuresFile string `yaml:"structuresFile"`

		// FlattenRegions lists regions whose whole subtree is merged
		// into the region itself
		FlattenRegions []string `yaml:"flattenRegions"`

		// FlattenAtDepth lists regions flattened while keeping one
		// generation of substructure at the given depth
		FlattenAtDepth []DepthRule `yaml:"flattenAtDepth"`

		// ExcludeRegions lists regions zeroed out of the final mask.
		// Exclusion runs after flattening and matches only the listed
		// region's own ID.
		ExcludeRegions []string `yaml:"excludeRegions"`
	} `yaml:"atlas"`

	// Filter parameters
	Filter struct {
		// MinFragmentSize is the minimum voxel count a connected
		// component needs to survive filtering
		MinFragmentSize int `yaml:"minFragmentSize"`

		// Connectivity selects the adjacency rule: 1 = faces,
		// 2 = faces and edges, 3 = full 26-neighborhood
		Connectivity int `yaml:"connectivity"`

		// Workers bounds how many regions are analyzed concurrently
		Workers int `yaml:"workers"`
	} `yaml:"filter"`

	// Remap parameters
	Remap struct {
		// MaxLabelValue is the largest ID representable in the output
		// format; IDs above it are reassigned into [1, MaxLabelValue]
		MaxLabelValue uint32 `yaml:"maxLabelValue"`
	} `yaml:"remap"`

	// Output parameters
	Output struct {
		// AdjustedMaskDir receives the final mask as 16-bit TIFF slices
		AdjustedMaskDir string `yaml:"adjustedMaskDir"`

		// WholeBrainMaskDir receives the binary whole-brain mask slices
		WholeBrainMaskDir string `yaml:"wholeBrainMaskDir"`

		// LabelCSV is the path of the ID-to-name mapping table
		LabelCSV string `yaml:"labelCSV"`

		// FragmentCSV is the path of the per-fragment audit table
		FragmentCSV string `yaml:"fragmentCSV"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values matching the
// reference run on the Perens LSFM mouse atlas.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Atlas.StructuresFile = "structures.json"
	cfg.Atlas.FlattenRegions = []string{
		"fiber tracts", "VS", "CB", "HB", "MB", "TH", "HY", "STR", "PAL", "CTXsp",
	}
	cfg.Atlas.FlattenAtDepth = []DepthRule{
		{Region: "Isocortex", Depth: 1},
		{Region: "OLF", Depth: 1},
	}
	// fiber tracts must be flattened before they are excluded; root is a
	// parent region that carries no information of its own.
	cfg.Atlas.ExcludeRegions = []string{"fiber tracts", "root"}

	cfg.Filter.MinFragmentSize = 50
	cfg.Filter.Connectivity = 1
	cfg.Filter.Workers = runtime.NumCPU()

	cfg.Remap.MaxLabelValue = 65535

	cfg.Output.AdjustedMaskDir = "adjusted_mask"
	cfg.Output.WholeBrainMaskDir = "whole_brain_mask"
	cfg.Output.LabelCSV = "used_region_ids.csv"
	cfg.Output.FragmentCSV = "region_fragments_with_sizes.csv"

	return cfg
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the
// specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
