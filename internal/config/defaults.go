package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			Workspace:     "~/.deskpilot/workspace",
			LogLevel:      "info",
			MaxRecursions: 10,
		},
		Endpoint: EndpointConfig{
			APIKey:      "${ANTHROPIC_API_KEY:-}",
			Model:       "claude-sonnet-4-5-20250514",
			MaxTokens:   4096,
			Temperature: 0.7,
		},
		Tools: ToolsConfig{
			Computer: ComputerToolConfig{
				Enabled:          true,
				DisplayIndex:     0,
				ScreenshotDir:    "/tmp/deskpilot",
				ScreenshotDelayS: 2,
				ScalingEnabled:   true,
				ShellTimeoutS:    30,
			},
			Weather: WeatherToolConfig{
				Enabled: true,
				APIBase: "https://api.open-meteo.com/v1/forecast",
			},
			FileReader: FileReaderToolConfig{
				Enabled: true,
			},
			FilePacker: FilePackerToolConfig{
				Enabled: true,
			},
			Browser: BrowserToolConfig{
				Enabled:  false,
				Headless: true,
			},
		},
		Audit: AuditConfig{
			Enabled: true,
			DBPath:  "~/.deskpilot/audit.db",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9091",
		},
	}
}
