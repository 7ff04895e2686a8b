package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"flightsched-service/internal/domain/entity"
	"flightsched-service/internal/domain/repository"
	"flightsched-service/pkg/apperr"
	"flightsched-service/pkg/logger"
)

// HTTPSuggestionGenerator asks the external suggestion service for
// ranked alternate slots. The service is a black box; the context
// deadline set by the caller is the only time bound.
type HTTPSuggestionGenerator struct {
	logger      logger.Logger
	baseURL     string
	bearerToken string
	client      *http.Client
}

// NewHTTPSuggestionGenerator creates a new suggestion generator client
func NewHTTPSuggestionGenerator(baseURL, bearerToken string, logger logger.Logger) repository.SuggestionGenerator {
	return &HTTPSuggestionGenerator{
		logger:      logger,
		baseURL:     baseURL,
		bearerToken: bearerToken,
		client:      &http.Client{},
	}
}

// Generate requests ranked suggestions for a displaced flight
func (g *HTTPSuggestionGenerator) Generate(ctx context.Context, flight *entity.Flight) ([]entity.Suggestion, string, error) {
	body := map[string]interface{}{
		"flightId":       flight.ID,
		"studentId":      flight.StudentID,
		"instructorId":   flight.InstructorID,
		"aircraftType":   flight.AircraftType,
		"lessonCode":     flight.LessonCode,
		"scheduledStart": flight.ScheduledStart.UTC().Format(time.RFC3339),
		"scheduledEnd":   flight.ScheduledEnd.UTC().Format(time.RFC3339),
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal suggestion request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/suggestions", g.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.bearerToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return nil, "", apperr.Unavailablef("suggestion generation timed out for flight %s", flight.ID)
		}
		return nil, "", apperr.Unavailablef("suggestion service request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", apperr.Unavailablef("suggestion service returned status %d", resp.StatusCode)
	}

	var response struct {
		Success bool `json:"success"`
		Data    struct {
			Suggestions []entity.Suggestion `json:"suggestions"`
			Reasoning   string              `json:"reasoning"`
		} `json:"data"`
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, "", fmt.Errorf("failed to decode response: %w", err)
	}
	if !response.Success {
		return nil, "", apperr.Unavailablef("suggestion service error: %s (code: %s)",
			response.Error.Message, response.Error.Code)
	}

	g.logger.Info("Generated reschedule suggestions",
		"flightId", flight.ID,
		"count", len(response.Data.Suggestions))

	return response.Data.Suggestions, response.Data.Reasoning, nil
}
