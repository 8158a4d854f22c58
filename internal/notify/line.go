package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
)

const lineAPIURL = "https://api.line.me/v2/bot/message/push"

// LINEClient pushes a text message to a single LINE user.
type LINEClient struct {
	channelToken string
	userID       string
	endpoint     string
	httpClient   *http.Client
}

// NewLINEClient returns nil when the channel token or user id is missing.
func NewLINEClient(channelToken, userID string, httpClient *http.Client) *LINEClient {
	if channelToken == "" || userID == "" {
		return nil
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &LINEClient{
		channelToken: channelToken,
		userID:       userID,
		endpoint:     lineAPIURL,
		httpClient:   httpClient,
	}
}

type lineMessage struct {
	To       string        `json:"to"`
	Messages []lineContent `json:"messages"`
}

type lineContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (c *LINEClient) Notify(ctx context.Context, b Booking) error {
	payload, err := json.Marshal(lineMessage{
		To:       c.userID,
		Messages: []lineContent{{Type: "text", Text: "✅ " + b.Text()}},
	})
	if err != nil {
		return fmt.Errorf("line: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("line: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.channelToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("line: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("line: push failed with status %d: %s", resp.StatusCode, body)
	}
	return nil
}
