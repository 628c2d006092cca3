package main

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/pokedex-api/internal/config"
	"github.com/Brownie44l1/pokedex-api/internal/lifecycle"
	"github.com/Brownie44l1/pokedex-api/internal/logger"
	"github.com/Brownie44l1/pokedex-api/internal/model"
)

// cli holds state shared by every command.
type cli struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
	load   lifecycle.LoadFunc
}

// newRootCmd builds the command tree. A nil load uses onnxruntime.
func newRootCmd(load lifecycle.LoadFunc) *cobra.Command {
	c := &cli{load: load}

	root := &cobra.Command{
		Use:   "pokedex-api",
		Short: "Classify Pokémon images over HTTP",
		Long: "Downloads the classifier checkpoint if it is missing and loads it.\n" +
			"Run \"pokedex-api serve\" to also start the HTTP server.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(cmd.Context(), c.cfg, c.logger, c.load)
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "config.yaml", "Path to config file")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides log.level")

	root.AddCommand(newServeCmd(c))
	return root
}

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Load the model and serve the upload page and /analyze",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ln, err := net.Listen("tcp", c.cfg.Server.Addr())
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", c.cfg.Server.Addr(), err)
			}
			return serve(cmd.Context(), c.cfg, c.logger, c.load, ln)
		},
	}
}

// init loads the config and installs the process logger.
func (c *cli) init() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}

	c.cfg = cfg
	c.logger = logger.New(cfg.Env,
		logger.WithLevel(level),
		logger.WithLogToFile(cfg.Log.ToFile),
		logger.WithLogFile(cfg.Log.File),
	)
	slog.SetDefault(c.logger)

	if c.load == nil {
		c.load = lifecycle.ONNXLoader(
			model.WithLibraryPath(cfg.Model.LibraryPath),
			model.WithInputName(cfg.Model.InputName),
			model.WithOutputName(cfg.Model.OutputName),
			model.WithIntraOpThreads(cfg.Model.IntraOpThreads),
		)
	}

	c.logger.Debug("Config loaded", "path", c.configPath, "config", cfg.String())
	return nil
}
