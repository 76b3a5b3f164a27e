// Package push delivers reminder notices through the OneSignal REST API.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/smart-tasks/internal/reminders"
	"go.uber.org/zap"
)

// DefaultAPIURL is the OneSignal REST endpoint
const DefaultAPIURL = "https://onesignal.com/api/v1"

// ErrNotDelivered is returned when OneSignal accepted the request but found no recipient
var ErrNotDelivered = fmt.Errorf("notification was not delivered to any recipient: %w", reminders.ErrUndeliverable)

// APIError is a non-2xx response from OneSignal
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("onesignal API error (status %d): %s", e.StatusCode, e.Body)
}

// Unwrap reports client errors other than rate limiting as undeliverable
func (e *APIError) Unwrap() error {
	if e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != http.StatusTooManyRequests {
		return reminders.ErrUndeliverable
	}
	return nil
}

type notificationRequest struct {
	AppID                  string            `json:"app_id"`
	Headings               map[string]string `json:"headings"`
	Contents               map[string]string `json:"contents"`
	IncludeSubscriptionIDs []string          `json:"include_subscription_ids,omitempty"`
	IncludeExternalUserIDs []string          `json:"include_external_user_ids,omitempty"`
	Data                   map[string]string `json:"data,omitempty"`
}

type notificationResponse struct {
	ID     string          `json:"id"`
	Errors json.RawMessage `json:"errors,omitempty"`
}

// OneSignalDispatcher implements reminders.Dispatcher
type OneSignalDispatcher struct {
	appID  string
	apiKey string
	apiURL string
	client *http.Client
	logger *zap.Logger
}

// NewOneSignalDispatcher creates a dispatcher for the given app
func NewOneSignalDispatcher(appID, apiKey, apiURL string, log *zap.Logger) *OneSignalDispatcher {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OneSignalDispatcher{
		appID:  appID,
		apiKey: apiKey,
		apiURL: strings.TrimRight(apiURL, "/"),
		client: &http.Client{Timeout: 10 * time.Second},
		logger: log,
	}
}

// Display sends the notice and waits for OneSignal to accept it. Users with a
// subscription id are targeted directly, everyone else by external user id.
func (d *OneSignalDispatcher) Display(ctx context.Context, notice reminders.Notice) error {
	req := notificationRequest{
		AppID:    d.appID,
		Headings: map[string]string{"en": notice.Title},
		Contents: map[string]string{"en": notice.Body},
		Data:     map[string]string{"task_id": notice.TaskID.String()},
	}
	if notice.SubscriptionID != "" {
		req.IncludeSubscriptionIDs = []string{notice.SubscriptionID}
	} else {
		req.IncludeExternalUserIDs = []string{notice.UserID.String()}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.apiURL+"/notifications", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	httpReq.Header.Set("Authorization", "Basic "+d.apiKey)

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var parsed notificationResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.ID == "" {
		return fmt.Errorf("%w: %s", ErrNotDelivered, string(parsed.Errors))
	}

	d.logger.Debug("push_notification_sent",
		zap.String("notification_id", parsed.ID),
		zap.String("user_id", notice.UserID.String()))
	return nil
}

var _ reminders.Dispatcher = (*OneSignalDispatcher)(nil)
