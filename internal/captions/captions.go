// Package captions fetches video transcripts from the YouTube timedtext
// endpoint.
package captions

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Fetcher returns the plain transcript of a video. An empty string with a
// nil error means the video has no captions in the configured language.
type Fetcher interface {
	Fetch(ctx context.Context, videoID string) (string, error)
}

type timedText struct {
	Lines []struct {
		Text string `xml:",chardata"`
	} `xml:"text"`
}

// maxTrackBytes bounds a caption track; real tracks are well under 1 MB.
const maxTrackBytes = 4 << 20

// HTTPFetcher reads the timedtext XML track over HTTP.
type HTTPFetcher struct {
	baseURL    string
	lang       string
	maxBytes   int64
	httpClient *http.Client
}

func NewHTTPFetcher(baseURL, lang string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		lang:       lang,
		maxBytes:   maxTrackBytes,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, videoID string) (string, error) {
	q := url.Values{}
	q.Set("lang", f.lang)
	q.Set("v", videoID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/api/timedtext?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch captions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected captions status %d", resp.StatusCode)
	}

	// One byte past the limit tells an oversized track from one that fits.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read captions: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return "", fmt.Errorf("caption track exceeds %d bytes", f.maxBytes)
	}
	return parse(body)
}

// parse joins the caption lines of a timedtext document. Line text is
// entity-escaped twice by YouTube, so it is unescaped again after decoding.
func parse(body []byte) (string, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return "", nil
	}

	var doc timedText
	if err := xml.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("decode captions: %w", err)
	}

	parts := make([]string, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		text := strings.Join(strings.Fields(html.UnescapeString(line.Text)), " ")
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

var _ Fetcher = (*HTTPFetcher)(nil)
