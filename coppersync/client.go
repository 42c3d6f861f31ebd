package coppersync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const searchPageSize = 200

// Rate-limit retry policy for a single API call.
const (
	doMaxAttempts  = 3
	doRetryBackoff = 2 * time.Second
)

// copperClient talks to the Copper developer API. Copper rate-limits per
// token, so every request waits on the shared ticker; 300ms keeps us safely
// under their cap.
type copperClient struct {
	baseURL      string
	token        string
	userEmail    string
	http         *http.Client
	limiter      <-chan time.Time
	retryBackoff time.Duration
}

func newCopperClient() (*copperClient, error) {
	baseURL := strings.TrimSpace(os.Getenv("COPPER_API_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.copper.com/developer_api/v1"
	}
	token := strings.TrimSpace(os.Getenv("COPPER_API_KEY"))
	if token == "" {
		return nil, errors.New("COPPER_API_KEY is empty")
	}
	userEmail := strings.TrimSpace(os.Getenv("COPPER_USER_EMAIL"))
	if userEmail == "" {
		return nil, errors.New("COPPER_USER_EMAIL is empty")
	}

	interval := 300 * time.Millisecond
	if v := strings.TrimSpace(os.Getenv("COPPER_REQUEST_INTERVAL_MS")); v != "" {
		if ms, err := time.ParseDuration(v + "ms"); err == nil && ms > 0 {
			interval = ms
		}
	}

	return &copperClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		token:        token,
		userEmail:    userEmail,
		http:         &http.Client{Timeout: 30 * time.Second},
		limiter:      time.Tick(interval),
		retryBackoff: doRetryBackoff,
	}, nil
}

// do issues one API call. Copper answers bursts with 429 even under the
// request interval, so those are retried a bounded number of times with a
// growing pause; any other status fails immediately.
func (c *copperClient) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var encoded []byte
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		encoded = data
	}

	var lastErr error
	for attempt := 0; attempt < doMaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * c.retryBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		<-c.limiter

		var body io.Reader
		if encoded != nil {
			body = bytes.NewReader(encoded)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-PW-AccessToken", c.token)
		req.Header.Set("X-PW-Application", "developer_api")
		req.Header.Set("X-PW-UserEmail", c.userEmail)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("copper api error %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("copper api error %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return data, nil
	}
	return nil, lastErr
}

type searchRequest struct {
	PageNumber int    `json:"page_number"`
	PageSize   int    `json:"page_size"`
	SortBy     string `json:"sort_by,omitempty"`
}

// searchAll pages through a Copper search endpoint until a short page.
func searchAll[T any](ctx context.Context, c *copperClient, path string) ([]T, error) {
	var all []T
	for page := 1; ; page++ {
		data, err := c.do(ctx, http.MethodPost, path, searchRequest{
			PageNumber: page,
			PageSize:   searchPageSize,
		})
		if err != nil {
			return nil, err
		}
		var batch []T
		if err := json.Unmarshal(data, &batch); err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < searchPageSize {
			return all, nil
		}
	}
}

// CopperAPI is the surface the reconcilers need; the worker code depends on
// this so tests can swap in a fake.
type CopperAPI interface {
	ListCompanies(ctx context.Context) ([]Company, error)
	ListWonOpportunities(ctx context.Context) ([]Opportunity, error)
	UpdateCompany(ctx context.Context, id int64, fields map[string]any) error
	CreateCompany(ctx context.Context, payload map[string]any) (*Company, error)
}

func (c *copperClient) ListCompanies(ctx context.Context) ([]Company, error) {
	return searchAll[Company](ctx, c, "/companies/search")
}

func (c *copperClient) ListWonOpportunities(ctx context.Context) ([]Opportunity, error) {
	opportunities, err := searchAll[Opportunity](ctx, c, "/opportunities/search")
	if err != nil {
		return nil, err
	}
	won := opportunities[:0]
	for _, opp := range opportunities {
		if strings.EqualFold(opp.Status, "Won") {
			won = append(won, opp)
		}
	}
	return won, nil
}

func (c *copperClient) UpdateCompany(ctx context.Context, id int64, fields map[string]any) error {
	_, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/companies/%d", id), fields)
	return err
}

func (c *copperClient) CreateCompany(ctx context.Context, payload map[string]any) (*Company, error) {
	data, err := c.do(ctx, http.MethodPost, "/companies", payload)
	if err != nil {
		return nil, err
	}
	var company Company
	if err := json.Unmarshal(data, &company); err != nil {
		return nil, err
	}
	return &company, nil
}

// NewClient builds the production Copper client.
func NewClient() (CopperAPI, error) {
	return newCopperClient()
}
