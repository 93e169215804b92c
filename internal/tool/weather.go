package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"deskpilot/internal/domain"
)

const defaultWeatherAPIBase = "https://api.open-meteo.com/v1/forecast"

// WeatherInput takes WGS84 coordinates as strings so the model can pass
// them exactly as it reasons about them.
type WeatherInput struct {
	Latitude  string `json:"latitude" jsonschema_description:"Geographical WGS84 latitude of the location."`
	Longitude string `json:"longitude" jsonschema_description:"Geographical WGS84 longitude of the location."`
}

var weatherInputSchema = GenerateSchema[WeatherInput]()

// WeatherTool fetches current conditions from the Open-Meteo forecast API.
type WeatherTool struct {
	apiBase string
	client  *http.Client
	logger  *slog.Logger
}

func NewWeatherTool(apiBase string, client *http.Client, logger *slog.Logger) *WeatherTool {
	if apiBase == "" {
		apiBase = defaultWeatherAPIBase
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &WeatherTool{apiBase: apiBase, client: client, logger: logger}
}

func (w *WeatherTool) Descriptor() domain.ToolDescriptor {
	return domain.ToolDescriptor{
		Name:        "weather_tool",
		Description: "Get the current weather for a given location, based on its WGS84 coordinates.",
		InputSchema: weatherInputSchema,
	}
}

func (w *WeatherTool) Invoke(ctx context.Context, input map[string]any) domain.ToolOutput {
	lat := ArgsString(input, "latitude")
	lon := ArgsString(input, "longitude")
	if lat == "" || lon == "" {
		return domain.ErrorOutput(domain.ErrKindInvalidArgument, "latitude and longitude are required")
	}

	q := url.Values{}
	q.Set("latitude", lat)
	q.Set("longitude", lon)
	q.Set("current_weather", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.apiBase+"?"+q.Encode(), nil)
	if err != nil {
		return domain.ErrorOutput(domain.ErrKindInvocationFailure, err.Error())
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return domain.ErrorOutput(domain.ErrKindInvocationFailure, fmt.Sprintf("request failed: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.ErrorOutput(domain.ErrKindInvocationFailure, fmt.Sprintf("read response: %v", err))
	}
	if resp.StatusCode >= 400 {
		return domain.ErrorOutput(domain.ErrKindInvocationFailure,
			fmt.Sprintf("weather api returned %d: %s", resp.StatusCode, body))
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return domain.ErrorOutput(domain.ErrKindInvocationFailure, fmt.Sprintf("decode response: %v", err))
	}
	return domain.ToolOutput{JSON: map[string]any{"weather_data": data}}
}
