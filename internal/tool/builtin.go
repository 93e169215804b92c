package tool

import (
	"log/slog"
	"time"

	"deskpilot/internal/browser"
	"deskpilot/internal/config"
	"deskpilot/internal/domain"
	"deskpilot/internal/provider"
)

// Factories returns the factory list for every enabled built-in tool.
// Disabled tools are simply absent, so they are never advertised.
func Factories(cfg *config.Config, logger *slog.Logger) []Factory {
	var factories []Factory

	if cfg.Tools.Computer.Enabled {
		c := cfg.Tools.Computer
		factories = append(factories, Factory{
			Name: "computer",
			Build: func() (domain.Tool, error) {
				return NewComputerTool(ComputerConfig{
					DisplayIndex:    c.DisplayIndex,
					ScalingEnabled:  c.ScalingEnabled,
					ScreenshotDir:   c.ScreenshotDir,
					ScreenshotDelay: time.Duration(c.ScreenshotDelayS) * time.Second,
					KeymapPath:      c.KeymapPath,
					ShellTimeout:    time.Duration(c.ShellTimeoutS) * time.Second,
					Logger:          logger,
				}), nil
			},
		})
	}

	if cfg.Tools.Weather.Enabled {
		apiBase := cfg.Tools.Weather.APIBase
		factories = append(factories, Factory{
			Name: "weather_tool",
			Build: func() (domain.Tool, error) {
				return NewWeatherTool(apiBase, provider.SharedHTTPClient(15*time.Second), logger), nil
			},
		})
	}

	if cfg.Tools.FileReader.Enabled {
		factories = append(factories, Factory{
			Name: "file_reader",
			Build: func() (domain.Tool, error) {
				return NewReadFileTool(), nil
			},
		})
	}

	if cfg.Tools.FilePacker.Enabled {
		workspace := cfg.General.Workspace
		factories = append(factories, Factory{
			Name: "file_packer",
			Build: func() (domain.Tool, error) {
				return NewFilePackerTool(workspace, logger), nil
			},
		})
	}

	if cfg.Tools.Browser.Enabled {
		b := cfg.Tools.Browser
		factories = append(factories, Factory{
			Name: "browser",
			Build: func() (domain.Tool, error) {
				bridge := browser.NewBridge(browser.BridgeConfig{
					ProfileDir: b.ProfileDir,
					Headless:   b.Headless,
					Logger:     logger,
				})
				return NewBrowserTool(bridge, logger), nil
			},
		})
	}

	return factories
}
