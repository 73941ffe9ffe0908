package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/kazeca/holyfit-sub000/core"
)

// ShieldUseResult mirrors the shields/use response.
type ShieldUseResult struct {
	State     core.UserProgression `json:"state"`
	NewBadges []core.BadgeUnlock   `json:"new_badges"`
}

// LeaderboardEntry mirrors one /leaderboard row.
type LeaderboardEntry struct {
	User  string `json:"User"`
	Score int64  `json:"Score"`
}

// HealthStatus describes the /healthz response.
type HealthStatus struct {
	Status string                 `json:"status"`
	Checks map[string]interface{} `json:"checks"`
}

// APIError is the structured error body returned by the server.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
}

func decodeJSON(resp *http.Response, target any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr APIError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Code != "" {
			apiErr.Status = resp.StatusCode
			return &apiErr
		}
		return fmt.Errorf("request failed: status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

// ErrEmptyUserID is returned when user id is empty.
var ErrEmptyUserID = errors.New("user id is required")
