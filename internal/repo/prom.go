package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// PromClient implements MetricFetcher against a Prometheus-compatible HTTP
// query API. The deployment label distinguishes baseline from candidate
// series.
type PromClient struct {
	baseURL    string
	queryPath  string
	labelKey   string
	httpClient *http.Client
}

// NewPromClient constructs a client for the configured Prometheus endpoint.
// labelKey defaults to "deployment" when empty.
func NewPromClient(baseURL, labelKey string, timeout time.Duration) *PromClient {
	if labelKey == "" {
		labelKey = "deployment"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PromClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		queryPath: "/api/v1/query",
		labelKey:  labelKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type promResponse struct {
	Status string `json:"status"`
	Data   struct {
		ResultType string `json:"resultType"`
		Result     []struct {
			Metric map[string]string `json:"metric"`
			Values [][2]any          `json:"values"`
		} `json:"result"`
	} `json:"data"`
	Error string `json:"error"`
}

// Fetch runs a range-vector instant query for the metric restricted to the
// given deployment label and flattens the returned series into one sample
// sequence. An empty result is a *FetchError: the gate cannot reason about a
// metric it has no observations for.
func (c *PromClient) Fetch(ctx context.Context, metric, label, timeRange string) ([]float64, error) {
	if c == nil || c.baseURL == "" {
		return nil, &FetchError{Metric: metric, Label: label, Err: fmt.Errorf("prometheus base URL not configured")}
	}
	if timeRange == "" {
		timeRange = "5m"
	}

	expr := c.selector(metric, label, timeRange)
	endpoint := fmt.Sprintf("%s%s?%s", c.baseURL, c.queryPath, url.Values{"query": {expr}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FetchError{Metric: metric, Label: label, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Metric: metric, Label: label, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Metric: metric, Label: label, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	var body promResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &FetchError{Metric: metric, Label: label, Err: fmt.Errorf("decode response: %w", err)}
	}
	if body.Status != "success" {
		return nil, &FetchError{Metric: metric, Label: label, Err: fmt.Errorf("query failed: %s", body.Error)}
	}

	samples := make([]float64, 0, 64)
	for _, series := range body.Data.Result {
		for _, pair := range series.Values {
			raw, ok := pair[1].(string)
			if !ok {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				continue
			}
			samples = append(samples, v)
		}
	}

	if len(samples) == 0 {
		return nil, &FetchError{Metric: metric, Label: label, Err: fmt.Errorf("no data for %s", expr)}
	}
	return samples, nil
}

// selector builds the PromQL range selector. Metrics that already carry a
// label block get the deployment matcher appended inside it.
func (c *PromClient) selector(metric, label, timeRange string) string {
	matcher := fmt.Sprintf("%s=%q", c.labelKey, label)
	if idx := strings.Index(metric, "{"); idx >= 0 && strings.HasSuffix(metric, "}") {
		inner := strings.TrimSuffix(metric[idx+1:], "}")
		if inner != "" {
			inner += ","
		}
		return fmt.Sprintf("%s{%s%s}[%s]", metric[:idx], inner, matcher, timeRange)
	}
	return fmt.Sprintf("%s{%s}[%s]", metric, matcher, timeRange)
}
