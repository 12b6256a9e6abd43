// Package openai is a thin client for an Azure OpenAI chat-completions
// deployment. It exposes rate-limit responses as a typed error carrying the
// service's wait hint so callers can back off precisely.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"
)

const apiVersion = "2023-05-15"

// waitHintRe matches the wait hint embedded in throttle error messages,
// e.g. "Please retry after 7 seconds".
var waitHintRe = regexp.MustCompile(`after (\d+) seconds`)

// ThrottleError reports a 429 from the completion service. RetryAfter is
// zero when the response carried no wait hint.
type ThrottleError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("completion throttled: %s", e.Message)
}

type Client struct {
	endpoint   string
	apiKey     string
	deployment string
	maxTokens  int
	client     *http.Client
}

func NewClient(endpoint, apiKey, deployment string, maxTokens int) *Client {
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		deployment: deployment,
		maxTokens:  maxTokens,
		client:     &http.Client{Timeout: 120 * time.Second},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Complete sends a system+user prompt pair and returns the first choice's
// content. A 429 response comes back as *ThrottleError.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	reqBody := map[string]interface{}{
		"messages": []message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		"max_tokens":  c.maxTokens,
		"temperature": 0.3,
	}

	jsonBody, _ := json.Marshal(reqBody)
	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s", c.endpoint, c.deployment, apiVersion)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", throttleError(resp)
	}
	if resp.StatusCode != 200 {
		return "", fmt.Errorf("completion api error: %d", resp.StatusCode)
	}

	var result struct {
		Choices []struct {
			Message message `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("completion api returned no choices")
	}
	return result.Choices[0].Message.Content, nil
}

func throttleError(resp *http.Response) error {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	// Body decode failures leave the message empty, which is fine.
	_ = json.NewDecoder(resp.Body).Decode(&body)

	te := &ThrottleError{Message: body.Error.Message}
	if m := waitHintRe.FindStringSubmatch(body.Error.Message); m != nil {
		secs, _ := strconv.Atoi(m[1])
		te.RetryAfter = time.Duration(secs) * time.Second
	}
	return te
}
