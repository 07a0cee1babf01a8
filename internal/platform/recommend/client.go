package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/clearia/clearia/internal/platform/apperr"
)

const defaultTimeout = 15 * time.Second

// Client talks to the external doctor recommendation service. The payload it
// returns is passed through to callers untouched.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

type recommendRequest struct {
	Symptoms string `json:"symptoms"`
}

// Recommend submits a symptom description and returns the upstream payload
// as raw JSON.
func (c *Client) Recommend(ctx context.Context, symptoms string) (json.RawMessage, error) {
	body, err := json.Marshal(recommendRequest{Symptoms: symptoms})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/recommend", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "recommendation service unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "read recommendation response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.New(apperr.Validation, upstreamDetail(raw, resp.StatusCode))
	}
	return raw, nil
}

// upstreamDetail pulls the service's "detail" message out of an error body
// when present.
func upstreamDetail(raw []byte, status int) string {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Detail != "" {
		return body.Detail
	}
	return fmt.Sprintf("recommendation service returned status %d", status)
}
