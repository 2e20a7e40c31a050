// Package summarizer produces structured video summaries through an
// OpenAI-compatible chat completions API.
package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/notifyhub/tubealert/internal/domain"
)

const systemPrompt = `You summarize YouTube videos for an email digest.
Reply with a JSON object: {"briefSummary": string, "keyPoints": [string]}.
briefSummary is two or three sentences. keyPoints has three to six short items.`

// Input is what the model sees about a video.
type Input struct {
	VideoID    string
	Title      string
	AuthorName string
	Transcript string
}

type Summarizer interface {
	// Summarize returns the summary and the model that produced it.
	Summarize(ctx context.Context, in Input) (*domain.Summary, string, error)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Temperature float64 `json:"temperature"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Client calls the /chat/completions endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	maxChars   int
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, model string, maxTranscriptChars int, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		maxChars:   maxTranscriptChars,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Summarize(ctx context.Context, in Input) (*domain.Summary, string, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: c.prompt(in)},
		},
		Temperature: 0.2,
	}
	req.ResponseFormat.Type = "json_object"

	body, err := json.Marshal(req)
	if err != nil {
		return nil, "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, "", fmt.Errorf("unexpected summarizer status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, "", fmt.Errorf("decode response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, "", errors.New("summarizer returned no choices")
	}

	var summary domain.Summary
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &summary); err != nil {
		return nil, "", fmt.Errorf("decode summary: %w", err)
	}
	if strings.TrimSpace(summary.BriefSummary) == "" {
		return nil, "", errors.New("summarizer returned an empty summary")
	}

	model := chat.Model
	if model == "" {
		model = c.model
	}
	return &summary, model, nil
}

func (c *Client) prompt(in Input) string {
	transcript := in.Transcript
	if c.maxChars > 0 && len(transcript) > c.maxChars {
		// cut on a rune boundary
		cut := c.maxChars
		for cut > 0 && !utf8.RuneStart(transcript[cut]) {
			cut--
		}
		transcript = transcript[:cut]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", in.Title)
	if in.AuthorName != "" {
		fmt.Fprintf(&b, "Channel: %s\n", in.AuthorName)
	}
	b.WriteString("Transcript:\n")
	b.WriteString(transcript)
	return b.String()
}

var _ Summarizer = (*Client)(nil)
