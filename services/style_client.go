package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrStyleServiceDisabled is returned when AI_API_URL is not set
var ErrStyleServiceDisabled = errors.New("style service not configured")

// StyleRecommendation is one product suggested to go with another
type StyleRecommendation struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// StyleServiceError carries a non-2xx answer from the style service
type StyleServiceError struct {
	Status  int
	Message string
}

func (e *StyleServiceError) Error() string {
	return fmt.Sprintf("style service returned %d: %s", e.Status, e.Message)
}

// StyleClient calls the outfit recommendation service
type StyleClient struct {
	baseURL string
	client  *http.Client
}

func NewStyleClient(baseURL string, timeout time.Duration) *StyleClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &StyleClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Related returns the products the service recommends alongside productID
func (c *StyleClient) Related(ctx context.Context, productID string) ([]StyleRecommendation, error) {
	if c.baseURL == "" {
		return nil, ErrStyleServiceDisabled
	}

	endpoint := c.baseURL + "/api/style-builder/" + url.PathEscape(productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("style service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &body) != nil || body.Error == "" {
			body.Error = strings.TrimSpace(string(raw))
		}
		return nil, &StyleServiceError{Status: resp.StatusCode, Message: body.Error}
	}

	var out struct {
		Recommendations []StyleRecommendation `json:"recommendations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode style response: %w", err)
	}
	if out.Recommendations == nil {
		out.Recommendations = []StyleRecommendation{}
	}
	return out.Recommendations, nil
}
