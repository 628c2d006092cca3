package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"time"
)

// Default values applied to any field the config file leaves empty.
const (
	DefaultEnv             = "production"
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 8080
	DefaultStaticDir       = "web/static"
	DefaultIndexFile       = "web/view/index.html"
	DefaultMaxUploadBytes  = 32 << 20
	DefaultShutdownTimeout = 10 * time.Second
	DefaultModelsDir       = "models"
	DefaultModelFile       = "model.onnx"
	DefaultLogLevel        = "info"
	DefaultLogFile         = "logs/pokedex-api.log"
)

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = DefaultEnv
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.StaticDir == "" {
		c.Server.StaticDir = DefaultStaticDir
	}
	if c.Server.IndexFile == "" {
		c.Server.IndexFile = DefaultIndexFile
	}
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Model.Dir == "" {
		c.Model.Dir = DefaultModelsDir
	}
	if c.Model.File == "" {
		c.Model.File = DefaultModelFile
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.File == "" {
		c.Log.File = DefaultLogFile
	}
}

func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

func (c *Config) CheckpointPath() string {
	return filepath.Join(c.Model.Dir, c.Model.File)
}

// String summarizes the settings worth logging at startup.
func (c *Config) String() string {
	return fmt.Sprintf("env=%s addr=%s checkpoint=%s", c.Env, c.Server.Addr(), c.CheckpointPath())
}
