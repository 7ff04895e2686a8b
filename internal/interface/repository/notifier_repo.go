package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"flightsched-service/internal/domain/repository"
	"flightsched-service/pkg/logger"
)

// HTTPNotifier delivers notifications through the external
// notification service
type HTTPNotifier struct {
	logger      logger.Logger
	baseURL     string
	bearerToken string
	client      *http.Client
}

// NewHTTPNotifier creates a new notifier client
func NewHTTPNotifier(baseURL, bearerToken string, logger logger.Logger) repository.Notifier {
	return &HTTPNotifier{
		logger:      logger,
		baseURL:     baseURL,
		bearerToken: bearerToken,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

// Notify sends one notification
func (n *HTTPNotifier) Notify(ctx context.Context, recipientID, notifType string, payload map[string]interface{}) error {
	body := map[string]interface{}{
		"recipientId": recipientID,
		"type":        notifType,
		"payload":     payload,
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/notifications", n.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.bearerToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var errorBody map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errorBody)
		return fmt.Errorf("notification service returned status %d: %v", resp.StatusCode, errorBody)
	}

	n.logger.Info("Notification sent",
		"recipientId", recipientID,
		"type", notifType)

	return nil
}
