package camera

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APISource reads the camera list from the dashboard statistics API.
type APISource struct {
	baseURL string
	client  *http.Client
}

type camerasResponse struct {
	Cameras []string `json:"cameras"`
}

// NewAPISource creates a source for GET {baseURL}/cameras?device_id=...
func NewAPISource(baseURL string, timeout time.Duration) *APISource {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &APISource{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Cameras fetches the device's camera names.
func (s *APISource) Cameras(ctx context.Context, deviceID string) ([]string, error) {
	endpoint := s.baseURL + "/cameras?" + url.Values{"device_id": {deviceID}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build camera request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrSourceUnavailable, resp.StatusCode)
	}

	var body camerasResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode camera list: %w", err)
	}
	return body.Cameras, nil
}

var _ Source = (*APISource)(nil)
