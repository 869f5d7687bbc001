package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Top-level YAML keys that may appear in a project overlay.
const (
	keyServer  = "server"
	keyPaging  = "paging"
	keyCache   = "cache"
	keyLogging = "logging"
)

//nolint:gochecknoglobals // Compile-time constant lookup table.
var knownTopLevelKeys = map[string]bool{
	keyServer:  true,
	keyPaging:  true,
	keyCache:   true,
	keyLogging: true,
}

// ShallowMergeYAML loads a YAML file and replaces each top-level section of
// target that the file mentions. Sections absent from the file are left
// unchanged and unknown keys are ignored.
func ShallowMergeYAML(target *Config, overlayPath string) error {
	if target == nil {
		return errors.New("nil target *Config in ShallowMergeYAML")
	}

	data, err := os.ReadFile(overlayPath)
	if err != nil {
		return fmt.Errorf("reading overlay file %s: %w", overlayPath, err)
	}

	var overlay map[string]yaml.Node
	if err = yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parsing overlay YAML from %s: %w", overlayPath, err)
	}

	for key, node := range overlay {
		if !knownTopLevelKeys[key] {
			continue
		}
		if err = decodeSection(target, key, &node); err != nil {
			return fmt.Errorf("applying overlay section %q: %w", key, err)
		}
	}
	return nil
}

// decodeSection decodes node into a zero value so the section is replaced
// rather than merged field by field.
func decodeSection(target *Config, key string, node *yaml.Node) error {
	switch key {
	case keyServer:
		var v ServerConfig
		if err := node.Decode(&v); err != nil {
			return err
		}
		target.Server = v
	case keyPaging:
		var v PagingConfig
		if err := node.Decode(&v); err != nil {
			return err
		}
		target.Paging = v
	case keyCache:
		var v CacheConfig
		if err := node.Decode(&v); err != nil {
			return err
		}
		target.Cache = v
	case keyLogging:
		var v LoggingConfig
		if err := node.Decode(&v); err != nil {
			return err
		}
		target.Logging = v
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}
