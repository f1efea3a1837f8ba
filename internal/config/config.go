// Package config loads a Builder's BuildConfig from a JSON-with-comments
// file: read the file, standardize away comments and trailing commas,
// then unmarshal.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"

	"ghash/internal/types"
)

// fileConfig mirrors types.BuildConfig's JSON shape; kept separate so the
// wire format can evolve independently of the in-memory type.
type fileConfig struct {
	OutputPath       string `json:"output_path"`
	ExpectedElements int64  `json:"expected_elements"`
	Sync             string `json:"sync,omitempty"`
	Digest           bool   `json:"digest,omitempty"`
	Manifest         bool   `json:"manifest,omitempty"`
}

// Load reads and parses a HuJSON (JSON with comments and trailing commas)
// build configuration file at path.
func Load(path string) (types.BuildConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.BuildConfig{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return types.BuildConfig{}, fmt.Errorf("config: invalid JSONC in %s: %w", path, err)
	}

	var fc fileConfig
	if err := json.Unmarshal(standardized, &fc); err != nil {
		return types.BuildConfig{}, fmt.Errorf("config: invalid JSON in %s: %w", path, err)
	}

	sync := types.SyncAsync
	switch fc.Sync {
	case "", string(types.SyncAsync):
		sync = types.SyncAsync
	case string(types.SyncStrict):
		sync = types.SyncStrict
	default:
		return types.BuildConfig{}, fmt.Errorf("config: unknown sync mode %q in %s", fc.Sync, path)
	}

	if fc.OutputPath == "" {
		return types.BuildConfig{}, fmt.Errorf("config: output_path is required in %s", path)
	}

	return types.BuildConfig{
		OutputPath:       fc.OutputPath,
		ExpectedElements: fc.ExpectedElements,
		Sync:             sync,
		Digest:           fc.Digest,
		Manifest:         fc.Manifest,
	}, nil
}
