package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"deskpilot/internal/agent"
	"deskpilot/internal/audit"
	"deskpilot/internal/channel"
	"deskpilot/internal/config"
	"deskpilot/internal/metrics"
	"deskpilot/internal/provider"
	"deskpilot/internal/tool"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:     "deskpilot",
		Short:   "DeskPilot: a tool-using assistant that operates your computer",
		Long:    "DeskPilot drives a Claude tool-use conversation that can see the screen, move the mouse, type, and run local helpers.",
		Version: version,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.deskpilot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(toolsCmd())
	root.AddCommand(auditCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from the --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func loadConfigOrDefaults() *config.Config {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config not found, using defaults", "path", cfgPath, "err", err)
		return config.Defaults()
	}
	return cfg
}

// buildLogger applies the configured level and optional log file.
func buildLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.General.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	out := os.Stderr
	if cfg.General.LogFile != "" {
		if f, err := os.OpenFile(cfg.General.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			out = f
		} else {
			logger.Warn("cannot open log file, logging to stderr", "path", cfg.General.LogFile, "err", err)
		}
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize config and workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := config.DefaultConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.General.Workspace, 0o755); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath, "workspace", cfg.General.Workspace)
			return nil
		},
	}
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		RunE:  runChat,
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg := loadConfigOrDefaults()
	logger = buildLogger(cfg)

	if err := os.MkdirAll(cfg.General.Workspace, 0o755); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()

	var store *audit.Store
	if cfg.Audit.Enabled {
		var err error
		store, err = audit.NewStore(cfg.Audit.DBPath, logger)
		if err != nil {
			logger.Warn("audit store unavailable, continuing without it", "err", err)
		} else {
			defer store.Close()
		}
	}

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Addr)
	}

	registry := tool.NewRegistry(logger)
	registry.Discover(tool.Factories(cfg, logger))

	dispatcher := tool.NewDispatcher(tool.DispatcherConfig{
		Registry: registry,
		Store:    store,
		Logger:   logger,
		RunID:    runID,
	})

	endpoint := provider.NewClaude(provider.ClaudeConfig{
		APIKey:  cfg.Endpoint.APIKey,
		APIBase: cfg.Endpoint.APIBase,
		Model:   cfg.Endpoint.Model,
		Logger:  logger,
	})

	promptCfg := agent.PromptConfig{
		Workspace:         cfg.General.Workspace,
		Tools:             registry.Names(),
		SystemPromptExtra: cfg.General.SystemPrompt,
	}
	if ct, ok := registry.Resolve("computer"); ok {
		if computer, ok := ct.(*tool.ComputerTool); ok {
			display := computer.AdvertisedDisplay()
			promptCfg.DisplayWidth = display.Width
			promptCfg.DisplayHeight = display.Height
		}
	}

	orchestrator := agent.New(agent.Config{
		Endpoint:      endpoint,
		Dispatcher:    dispatcher,
		Descriptors:   registry.Descriptors(),
		SystemPrompt:  agent.BuildSystemPrompt(promptCfg),
		Model:         cfg.Endpoint.Model,
		MaxTokens:     cfg.Endpoint.MaxTokens,
		Temperature:   cfg.Endpoint.Temperature,
		MaxRecursions: cfg.General.MaxRecursions,
		Store:         store,
		RunID:         runID,
		Logger:        logger,
	})

	console := channel.NewConsole(channel.ConsoleConfig{Logger: logger})
	logger.Info("starting chat", "run_id", runID, "tools", registry.Names(), "model", cfg.Endpoint.Model)
	return orchestrator.Run(ctx, console)
}

func serveMetrics(addr string) {
	if addr == "" {
		addr = "127.0.0.1:9091"
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", metrics.Collector.Handler())
	logger.Info("metrics listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics server stopped", "err", err)
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration and subsystem status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				logger.Info("config", "path", cfgPath, "loaded", false)
				cfg = config.Defaults()
			} else {
				logger.Info("config", "path", cfgPath, "loaded", true)
			}

			registry := tool.NewRegistry(logger)
			registry.Discover(tool.Factories(cfg, logger))
			logger.Info("tools", "registered", registry.Names())

			if cfg.Audit.Enabled {
				store, err := audit.NewStore(cfg.Audit.DBPath, logger)
				if err != nil {
					logger.Info("audit", "path", cfg.Audit.DBPath, "healthy", false, "err", err)
				} else {
					logger.Info("audit", "path", cfg.Audit.DBPath, "healthy", true)
					store.Close()
				}
			} else {
				logger.Info("audit", "enabled", false)
			}
			logger.Info("endpoint", "model", cfg.Endpoint.Model, "keySet", cfg.Endpoint.APIKey != "")
			return nil
		},
	}
}

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools advertised to the model",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrDefaults()
			registry := tool.NewRegistry(logger)
			registry.Discover(tool.Factories(cfg, logger))

			for _, desc := range registry.Descriptors() {
				fmt.Printf("%-14s %s\n", desc.Name, desc.Description)
			}
			return nil
		},
	}
}

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the invocation audit log",
	}

	var limit int

	toolsSub := &cobra.Command{
		Use:   "tools",
		Short: "Show recent tool invocations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openAuditStore()
			if err != nil {
				return err
			}
			defer store.Close()

			rows, err := store.RecentToolInvocations(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, r := range rows {
				fmt.Printf("%s  %-14s %-22s %6dms  %s\n",
					r.CreatedAt.Format(time.RFC3339), r.ToolName, r.Outcome, r.LatencyMs, r.Message)
			}
			return nil
		},
	}

	callsSub := &cobra.Command{
		Use:   "calls",
		Short: "Show recent model calls, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openAuditStore()
			if err != nil {
				return err
			}
			defer store.Close()

			rows, err := store.RecentModelCalls(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, r := range rows {
				fmt.Printf("%s  %-10s %-12s in=%-6d out=%-6d %6dms\n",
					r.CreatedAt.Format(time.RFC3339), r.Endpoint, r.StopReason,
					r.InputTokens, r.OutputTokens, r.LatencyMs)
			}
			return nil
		},
	}

	var olderThan time.Duration
	pruneSub := &cobra.Command{
		Use:   "prune",
		Short: "Delete audit rows older than the given age",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openAuditStore()
			if err != nil {
				return err
			}
			defer store.Close()
			return store.Prune(cmd.Context(), olderThan)
		},
	}
	pruneSub.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "age threshold, e.g. 720h")

	cmd.PersistentFlags().IntVar(&limit, "limit", 50, "maximum rows to show")
	cmd.AddCommand(toolsSub, callsSub, pruneSub)
	return cmd
}

func openAuditStore() (*audit.Store, error) {
	cfg := loadConfigOrDefaults()
	if !cfg.Audit.Enabled {
		return nil, fmt.Errorf("audit is disabled in config")
	}
	return audit.NewStore(cfg.Audit.DBPath, logger)
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. endpoint.model)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(cfg, args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. general.maxRecursions 20)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "value", args[1], "file", cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the full configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrDefaults()
			data, err := json.MarshalIndent(config.Sanitize(cfg), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file path in use",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}
