package target

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultBenchPath is the benchmark endpoint exposed by the simulated targets.
// Targets with a different path can override it on the Client.
const DefaultBenchPath = "/io-test"

// Client is a thin HTTP wrapper for one benchmark target.
//
// Each Client owns its own connection pool. The harness creates a fresh
// Client per scenario run so warm connections never carry over between
// runs or leak across targets.
type Client struct {
	Name       string
	URL        string
	BenchPath  string
	HTTPClient *http.Client
}

// New creates a Client for the target at baseURL. timeout bounds every
// individual request issued through the client.
func New(name, baseURL string, timeout time.Duration) *Client {
	return &Client{
		Name:      name,
		URL:       baseURL,
		BenchPath: DefaultBenchPath,
		HTTPClient: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{MaxIdleConnsPerHost: 128},
		},
	}
}

// HealthStatus is the optional JSON body of a health response.
type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Health issues GET /health. Any 2xx response means the target is ready;
// the decoded body, when present, is returned for logging.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("build health request: %w", err)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &HTTPError{Status: resp.StatusCode, Body: string(data)}
	}

	var hs HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&hs); err != nil {
		// A bare 2xx with no JSON body still counts as healthy.
		return &HealthStatus{}, nil
	}
	return &hs, nil
}

// IOTestResult is the target's benchmark response.
type IOTestResult struct {
	Server string `json:"server,omitempty"`
	Timing struct {
		TotalDuration     float64 `json:"total_duration"`
		RequestsPerSecond float64 `json:"requests_per_second"`
	} `json:"timing"`
	Results struct {
		Successful int `json:"successful"`
		Failed     int `json:"failed"`
	} `json:"results"`
}

// IOTest issues GET {bench path}?delay=F&concurrent=C and decodes the
// response. The body is validated against the io-test schema before its
// numbers are trusted; a 2xx with a malformed body is an error.
func (c *Client) IOTest(ctx context.Context, delay float64, concurrent int) (*IOTestResult, error) {
	q := url.Values{}
	q.Set("delay", strconv.FormatFloat(delay, 'f', -1, 64))
	q.Set("concurrent", strconv.Itoa(concurrent))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL+c.BenchPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build io-test request: %w", err)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("io-test request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("io-test read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Status: resp.StatusCode, Body: truncate(string(data), 512)}
	}

	if err := validateIOTestBody(data); err != nil {
		return nil, err
	}
	var result IOTestResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("io-test decode: %w", err)
	}
	return &result, nil
}

// Close releases idle connections so a finished run leaves nothing warm
// behind.
func (c *Client) Close() {
	c.HTTPClient.CloseIdleConnections()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
