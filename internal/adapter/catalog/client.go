// Package catalog provides an HTTP client for the external classification
// catalog, implementing the classifier resolver port.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/taskdesk/taskdesk/internal/domain"
	"github.com/taskdesk/taskdesk/internal/domain/classification"
)

// classificationDTO is the catalog's wire representation. The service
// level arrives as a Go duration string (e.g. "72h").
type classificationDTO struct {
	Key          string `json:"key"`
	Domain       string `json:"domain"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Category     string `json:"category,omitempty"`
	Priority     int    `json:"priority"`
	ServiceLevel string `json:"service_level,omitempty"`
}

// Client talks to the classification catalog API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a catalog client. A zero timeout defaults to 10s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Classification looks up one classification by key within a domain.
// A 404 from the catalog maps to domain.ErrNotFound.
func (c *Client) Classification(ctx context.Context, key, domain_ string) (*classification.Summary, error) {
	path := "/classifications/" + url.PathEscape(domain_) + "/" + url.PathEscape(key)
	data, err := c.doRequest(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("classification %s/%s: %w", domain_, key, err)
	}

	var dto classificationDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("unmarshal classification %s/%s: %w", domain_, key, err)
	}

	summary := &classification.Summary{
		Key:         dto.Key,
		Domain:      dto.Domain,
		Name:        dto.Name,
		Description: dto.Description,
		Category:    dto.Category,
		Priority:    dto.Priority,
	}
	if dto.ServiceLevel != "" {
		level, err := time.ParseDuration(dto.ServiceLevel)
		if err != nil {
			return nil, fmt.Errorf("parse service level %q for %s/%s: %w", dto.ServiceLevel, domain_, key, err)
		}
		summary.ServiceLevel = level
	}
	return summary, nil
}

// Health checks whether the catalog is reachable.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.doRequest(ctx, "/health")
	return err
}

func (c *Client) doRequest(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("catalog API error %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}
