package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.yaml.in/yaml/v3"
)

//go:embed schema.json
var schemaJSON string

const schemaURL = "config.schema.json"

var compiledSchema = jsonschema.MustCompileString(schemaURL, schemaJSON)

// Load reads the config file at path, falling back to defaults when the file
// does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg, err := LoadAndValidate(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = &Config{}
	} else if err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	cfg.expandPaths()

	return cfg, nil
}

// LoadAndValidate loads and validates the configuration file without
// applying defaults or environment overrides.
func LoadAndValidate(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates YAML config data against the schema and decodes it.
func Parse(data []byte) (*Config, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: invalid YAML: %v", ErrInvalid, err)
	}
	if raw == nil {
		return &Config{}, nil
	}

	doc, err := toJSONValue(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if err := compiledSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal into Config struct: %v", ErrInvalid, err)
	}

	return &cfg, nil
}

// toJSONValue re-encodes a YAML document into the shape encoding/json
// produces, which is what the schema validator expects.
func toJSONValue(raw any) (any, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("%w: %s=%q is not a valid port", ErrInvalid, EnvPort, v)
		}
		c.Server.Port = port
	}
	if v := getenv(EnvEnvironment); v != "" {
		c.Env = v
	}
	if v := getenv(EnvModelURL); v != "" {
		c.Model.URL = v
	}
	if v := getenv(EnvModelsDir); v != "" {
		c.Model.Dir = v
	}
	if v := getenv(EnvONNXLibrary); v != "" {
		c.Model.LibraryPath = v
	}
	return nil
}

func (c *Config) expandPaths() {
	c.Server.StaticDir = ExpandTilde(c.Server.StaticDir)
	c.Server.IndexFile = ExpandTilde(c.Server.IndexFile)
	c.Model.Dir = ExpandTilde(c.Model.Dir)
	c.Model.LabelsFile = ExpandTilde(c.Model.LabelsFile)
	c.Model.LibraryPath = ExpandTilde(c.Model.LibraryPath)
	c.Log.File = ExpandTilde(c.Log.File)
}

// ExpandTilde replaces a leading ~ with the user's home directory.
func ExpandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
