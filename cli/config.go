package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// configSchema constrains crosswire.json. Validation runs before decoding
// so a bad config surfaces a schema path instead of a zero-valued struct.
const configSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "target": {"type": "string", "minLength": 1},
    "include": {"type": "array", "items": {"type": "string", "minLength": 1}},
    "namespace": {"type": "string", "pattern": "^[A-Za-z_$][A-Za-z0-9_$]*$"}
  },
  "additionalProperties": false
}`

const defaultConfigFile = "crosswire.json"

type projectConfig struct {
	Target    string   `json:"target"`
	Include   []string `json:"include"`
	Namespace string   `json:"namespace"`
}

var compiledConfigSchema = jsonschema.MustCompileString("crosswire.json", configSchema)

func loadConfig(path string) (*projectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := compiledConfigSchema.Validate(raw); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	var cfg projectConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// resolveConfig merges flag values over the project config. Flags win;
// the config file is optional unless --config names it explicitly.
func resolveConfig(opts *buildOptions) (*projectConfig, error) {
	cfg := &projectConfig{}
	if opts.configPath != "" {
		loaded, err := loadConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else if _, err := os.Stat(defaultConfigFile); err == nil {
		loaded, err := loadConfig(defaultConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if opts.target != "" {
		cfg.Target = opts.target
	}
	if opts.namespace != "" {
		cfg.Namespace = opts.namespace
	}
	if cfg.Target == "" {
		return nil, fmt.Errorf("no target: pass --target or set \"target\" in %s", defaultConfigFile)
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "crosswire"
	}
	cfg.Target = strings.TrimSpace(cfg.Target)
	return cfg, nil
}
