// Package formio is a small client for the forms API that stores permit
// applications.
package formio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JonMunkholm/permits/internal/logging"
	"github.com/JonMunkholm/permits/internal/submission"
)

// ActionDone marks a submission as accepted by the permit system.
const ActionDone = "Done"

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 512

// Client queries and updates submissions.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New returns a client for the API at baseURL.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("formio: %s %s: status %d: %s", e.Method, e.URL, e.Code, e.Body)
}

// Query returns the submissions of endpoint matching filter. Filter keys
// use the API's operator suffixes, e.g. "created__gte".
func (c *Client) Query(ctx context.Context, endpoint string, filter map[string]string) ([]submission.Raw, error) {
	q := url.Values{}
	for k, v := range filter {
		q.Set(k, v)
	}
	u := c.endpointURL(endpoint)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	var subs []submission.Raw
	if err := c.do(req, &subs); err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Debug("queried submissions", "endpoint", endpoint, "count", len(subs))
	return subs, nil
}

// UpdateStatus marks submission id as done.
func (c *Client) UpdateStatus(ctx context.Context, endpoint, id string) error {
	body, err := json.Marshal(map[string]string{"actionState": ActionDone})
	if err != nil {
		return err
	}

	u := c.endpointURL(endpoint, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) endpointURL(endpoint string, parts ...string) string {
	segs := append([]string{c.baseURL, strings.Trim(endpoint, "/")}, parts...)
	return strings.Join(segs, "/")
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("x-apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("formio: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Method: req.Method, URL: req.URL.Path, Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("formio: decode %s response: %w", req.URL.Path, err)
	}
	return nil
}
