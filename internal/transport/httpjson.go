package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client wraps an *http.Client with JSON request/response helpers.
type Client struct {
	HTTP *http.Client
}

// New creates a Client whose requests time out after timeout.
func New(timeout time.Duration) *Client {
	return &Client{HTTP: &http.Client{Timeout: timeout}}
}

// DoJSON sends method to url, JSON-encoding body first if it is non-nil,
// and JSON-decoding the response into out if out is non-nil and the status
// is 200 OK (other statuses, 2xx included, leave out untouched). It returns the
// response status code alongside any transport-level error (the request
// could not be built or sent, or the response could not be decoded); a
// non-2xx status is not itself an error; callers that only accept 2xx
// should use PostJSON/GetJSON instead.
func (c *Client) DoJSON(ctx context.Context, method, url string, body, out any) (int, error) {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, err
	}
	return resp.StatusCode, nil
}

// PostJSON posts body to url and decodes the response into out (if out is
// non-nil), treating any non-2xx status as an error.
func (c *Client) PostJSON(ctx context.Context, url string, body, out any) error {
	status, err := c.DoJSON(ctx, http.MethodPost, url, body, out)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("http %s: %d", url, status)
	}
	return nil
}

// GetJSON issues a GET to url and decodes the response into out, treating
// any non-2xx status as an error.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	status, err := c.DoJSON(ctx, http.MethodGet, url, nil, out)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("http %s: %d", url, status)
	}
	return nil
}
