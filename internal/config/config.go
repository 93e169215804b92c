package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for deskpilot.
type Config struct {
	General  GeneralConfig  `json:"general"`
	Endpoint EndpointConfig `json:"endpoint"`
	Tools    ToolsConfig    `json:"tools"`
	Audit    AuditConfig    `json:"audit"`
	Metrics  MetricsConfig  `json:"metrics"`
}

type GeneralConfig struct {
	Workspace     string `json:"workspace"`
	LogLevel      string `json:"logLevel"`
	LogFile       string `json:"logFile,omitempty"`
	MaxRecursions int    `json:"maxRecursions"`
	SystemPrompt  string `json:"systemPrompt,omitempty"` // appended to the built-in system prompt
}

// EndpointConfig configures the model endpoint client.
type EndpointConfig struct {
	APIBase     string  `json:"apiBase,omitempty"`
	APIKey      string  `json:"apiKey,omitempty"`
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"`
}

type ToolsConfig struct {
	Computer   ComputerToolConfig   `json:"computer"`
	Weather    WeatherToolConfig    `json:"weather"`
	FileReader FileReaderToolConfig `json:"fileReader"`
	FilePacker FilePackerToolConfig `json:"filePacker"`
	Browser    BrowserToolConfig    `json:"browser"`
}

// ComputerToolConfig configures the screen/input automation tool.
type ComputerToolConfig struct {
	Enabled          bool   `json:"enabled"`
	DisplayIndex     int    `json:"displayIndex"`
	ScreenshotDir    string `json:"screenshotDir"`
	ScreenshotDelayS int    `json:"screenshotDelaySeconds"`
	ScalingEnabled   bool   `json:"scalingEnabled"`
	KeymapPath       string `json:"keymapPath,omitempty"` // optional YAML key-mapping override
	ShellTimeoutS    int    `json:"shellTimeoutSeconds"`
}

type WeatherToolConfig struct {
	Enabled bool   `json:"enabled"`
	APIBase string `json:"apiBase,omitempty"`
}

type FileReaderToolConfig struct {
	Enabled bool `json:"enabled"`
}

type FilePackerToolConfig struct {
	Enabled bool `json:"enabled"`
}

type BrowserToolConfig struct {
	Enabled    bool   `json:"enabled"`
	Headless   bool   `json:"headless"`
	ProfileDir string `json:"profileDir,omitempty"`
}

type AuditConfig struct {
	Enabled bool   `json:"enabled"`
	DBPath  string `json:"dbPath"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // e.g. "127.0.0.1:9091"
}

// DefaultConfigDir returns the default config directory (~/.deskpilot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".deskpilot"
	}
	return filepath.Join(home, ".deskpilot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = expandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.General.Workspace = expandPath(cfg.General.Workspace)
	cfg.General.LogFile = expandPath(cfg.General.LogFile)
	cfg.Audit.DBPath = expandPath(cfg.Audit.DBPath)
	cfg.Tools.Computer.ScreenshotDir = expandPath(cfg.Tools.Computer.ScreenshotDir)
	cfg.Tools.Computer.KeymapPath = expandPath(cfg.Tools.Computer.KeymapPath)
	cfg.Tools.Browser.ProfileDir = expandPath(cfg.Tools.Browser.ProfileDir)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.General.MaxRecursions < 1 || cfg.General.MaxRecursions > 100 {
		errs = append(errs, "general.maxRecursions must be between 1 and 100")
	}
	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}
	if cfg.Endpoint.MaxTokens < 1 {
		errs = append(errs, "endpoint.maxTokens must be positive")
	}
	if cfg.Endpoint.Temperature < 0 || cfg.Endpoint.Temperature > 2 {
		errs = append(errs, "endpoint.temperature must be between 0 and 2")
	}
	if cfg.Tools.Computer.ScreenshotDelayS < 0 {
		errs = append(errs, "tools.computer.screenshotDelaySeconds must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

// expandPath resolves a leading "~/" against the user home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
