// Package config loads the service configuration from YAML, validates it
// against an embedded JSON schema and applies environment overrides.
package config

import "time"

// Config holds the main configuration for the application.
type Config struct {
	Env    string       `json:"env,omitempty"    yaml:"env,omitempty"`
	Server ServerConfig `json:"server,omitempty" yaml:"server,omitempty"`
	Model  ModelConfig  `json:"model,omitempty"  yaml:"model,omitempty"`
	Fetch  FetchConfig  `json:"fetch,omitempty"  yaml:"fetch,omitempty"`
	Log    LogConfig    `json:"log,omitempty"    yaml:"log,omitempty"`
}

type ServerConfig struct {
	Host            string        `json:"host,omitempty"             yaml:"host,omitempty"`
	Port            int           `json:"port,omitempty"             yaml:"port,omitempty"`
	StaticDir       string        `json:"static_dir,omitempty"       yaml:"static_dir,omitempty"`
	IndexFile       string        `json:"index_file,omitempty"       yaml:"index_file,omitempty"`
	MaxUploadBytes  int64         `json:"max_upload_bytes,omitempty" yaml:"max_upload_bytes,omitempty"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout,omitempty" yaml:"shutdown_timeout,omitempty"`
}

// ModelConfig describes where the checkpoint comes from and how to load it.
type ModelConfig struct {
	URL            string `json:"url,omitempty"              yaml:"url,omitempty"`
	Dir            string `json:"dir,omitempty"              yaml:"dir,omitempty"`
	File           string `json:"file,omitempty"             yaml:"file,omitempty"`
	LabelsFile     string `json:"labels_file,omitempty"      yaml:"labels_file,omitempty"`
	InputName      string `json:"input_name,omitempty"       yaml:"input_name,omitempty"`
	OutputName     string `json:"output_name,omitempty"      yaml:"output_name,omitempty"`
	LibraryPath    string `json:"library_path,omitempty"     yaml:"library_path,omitempty"`
	IntraOpThreads int    `json:"intra_op_threads,omitempty" yaml:"intra_op_threads,omitempty"`
}

type FetchConfig struct {
	Retries int           `json:"retries,omitempty" yaml:"retries,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

type LogConfig struct {
	Level  string `json:"level,omitempty"   yaml:"level,omitempty"`
	ToFile bool   `json:"to_file,omitempty" yaml:"to_file,omitempty"`
	File   string `json:"file,omitempty"    yaml:"file,omitempty"`
}
