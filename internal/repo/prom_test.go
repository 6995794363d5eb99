package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(rt roundTripFunc) *http.Client {
	return &http.Client{Transport: rt}
}

func matrixResponse(values ...string) []byte {
	pairs := make([][2]any, 0, len(values))
	for i, v := range values {
		pairs = append(pairs, [2]any{1700000000 + i*15, v})
	}
	payload := map[string]any{
		"status": "success",
		"data": map[string]any{
			"resultType": "matrix",
			"result": []map[string]any{
				{"metric": map[string]string{}, "values": pairs},
			},
		},
	}
	data, _ := json.Marshal(payload)
	return data
}

func TestPromClientFetch(t *testing.T) {
	client := NewPromClient("http://prom.example", "deployment", time.Second)
	client.httpClient = newTestClient(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/v1/query" {
			t.Fatalf("unexpected path %s", req.URL.Path)
		}
		query := req.URL.Query().Get("query")
		if !strings.Contains(query, `deployment="stable"`) {
			t.Fatalf("query missing deployment matcher: %s", query)
		}
		if !strings.Contains(query, "[15m]") {
			t.Fatalf("query missing range selector: %s", query)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewReader(matrixResponse("1.5", "2.5", "3.5"))),
			Header:     make(http.Header),
		}, nil
	})

	samples, err := client.Fetch(context.Background(), "latency_p95", "stable", "15m")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(samples) != 3 || samples[0] != 1.5 || samples[2] != 3.5 {
		t.Fatalf("unexpected samples: %v", samples)
	}
}

func TestPromClientPreservesExistingSelector(t *testing.T) {
	client := NewPromClient("http://prom.example", "deployment", time.Second)
	var seen string
	client.httpClient = newTestClient(func(req *http.Request) (*http.Response, error) {
		seen = req.URL.Query().Get("query")
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewReader(matrixResponse("1"))),
			Header:     make(http.Header),
		}, nil
	})

	if _, err := client.Fetch(context.Background(), `latency{route="/checkout"}`, "canary", "5m"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(seen, `route="/checkout"`) || !strings.Contains(seen, `deployment="canary"`) {
		t.Fatalf("selector merge failed: %s", seen)
	}
}

func TestPromClientEmptyResultIsFetchError(t *testing.T) {
	client := NewPromClient("http://prom.example", "", time.Second)
	client.httpClient = newTestClient(func(req *http.Request) (*http.Response, error) {
		data, _ := json.Marshal(map[string]any{
			"status": "success",
			"data":   map[string]any{"resultType": "matrix", "result": []any{}},
		})
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewReader(data)),
			Header:     make(http.Header),
		}, nil
	})

	_, err := client.Fetch(context.Background(), "latency", "stable", "")
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if fetchErr.Metric != "latency" {
		t.Fatalf("error should name the metric: %+v", fetchErr)
	}
}

func TestPromClientNon200IsFetchError(t *testing.T) {
	client := NewPromClient("http://prom.example", "", time.Second)
	client.httpClient = newTestClient(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusBadGateway,
			Status:     "502 Bad Gateway",
			Body:       io.NopCloser(bytes.NewReader(nil)),
			Header:     make(http.Header),
		}, nil
	})

	_, err := client.Fetch(context.Background(), "latency", "stable", "")
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
}

func TestPromClientUnconfigured(t *testing.T) {
	client := NewPromClient("", "", time.Second)
	if _, err := client.Fetch(context.Background(), "latency", "stable", ""); err == nil {
		t.Fatal("expected an error without a base URL")
	}
}
