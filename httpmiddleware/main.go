package httpmiddleware

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

type HttpRequestStruct struct {
	Method  string
	Url     string
	Body    io.Reader
	Headers map[string]string
}

var client = &http.Client{Timeout: 60 * time.Second}

// HttpRequest runs one HTTP request and returns the raw response body.
// Non-2xx statuses are returned as errors with the body included, so callers
// can log provider error payloads.
func HttpRequest(args HttpRequestStruct) ([]byte, error) {
	req, err := http.NewRequest(args.Method, args.Url, args.Body)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}

	for key, value := range args.Headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("request returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
