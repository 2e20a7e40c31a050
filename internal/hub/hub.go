// Package hub talks to the PubSubHubbub hub that pushes channel feed
// updates to the webhook.
package hub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const topicPrefix = "https://www.youtube.com/xml/feeds/videos.xml?channel_id="

// Unsubscriber cancels the hub subscription for a channel nobody follows.
type Unsubscriber interface {
	Unsubscribe(ctx context.Context, channelID string) error
}

type Client struct {
	hubURL      string
	callbackURL string
	httpClient  *http.Client
}

func NewClient(hubURL, callbackURL string, timeout time.Duration) *Client {
	return &Client{
		hubURL:      hubURL,
		callbackURL: callbackURL,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// Topic returns the feed URL the hub knows the channel by.
func Topic(channelID string) string {
	return topicPrefix + url.QueryEscape(channelID)
}

// Unsubscribe asks the hub to stop delivering the channel's feed. The hub
// verifies asynchronously and answers 202 (or 204 when already verified).
func (c *Client) Unsubscribe(ctx context.Context, channelID string) error {
	form := url.Values{}
	form.Set("hub.mode", "unsubscribe")
	form.Set("hub.topic", Topic(channelID))
	form.Set("hub.callback", c.callbackURL)
	form.Set("hub.verify", "async")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.hubURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send unsubscribe: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusNoContent {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected hub status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

var _ Unsubscriber = (*Client)(nil)
