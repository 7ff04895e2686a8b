package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"flightsched-service/internal/domain/entity"
	"flightsched-service/internal/domain/repository"
	"flightsched-service/pkg/apperr"
	"flightsched-service/pkg/logger"
)

// HTTPWeatherProvider fetches normalized observations from the
// external weather service
type HTTPWeatherProvider struct {
	logger  logger.Logger
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPWeatherProvider creates a new weather provider client
func NewHTTPWeatherProvider(baseURL, apiKey string, logger logger.Logger) repository.WeatherProvider {
	return &HTTPWeatherProvider{
		logger:  logger,
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Fetch retrieves the current normalized reading for an airport.
// A missing or stale observation is reported as apperr.ErrUnavailable.
func (p *HTTPWeatherProvider) Fetch(ctx context.Context, airportCode string) (*entity.WeatherReading, error) {
	url := fmt.Sprintf("%s/v1/observations/%s", p.baseURL, airportCode)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apperr.Unavailablef("weather provider request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperr.Unavailablef("no observation for %s", airportCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Unavailablef("weather provider returned status %d", resp.StatusCode)
	}

	var response struct {
		Data entity.WeatherReading `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, apperr.Unavailablef("failed to decode observation: %v", err)
	}

	reading := response.Data
	reading.Airport = airportCode

	p.logger.Debug("Fetched weather observation",
		"airport", airportCode,
		"observedAt", reading.ObservedAt)

	return &reading, nil
}
