// Package ingest normalizes hub push notifications into VideoEvents.
package ingest

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/notifyhub/tubealert/internal/domain"
)

const guidPrefix = "yt:video:"

// ParseAtom reads a hub notification body. Entries keep whatever fields
// the feed carried; validation is left to the queue worker so malformed
// events are still recorded and dropped in one place.
func ParseAtom(r io.Reader, now time.Time) ([]domain.VideoEvent, error) {
	feed, err := gofeed.NewParser().Parse(io.LimitReader(r, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	events := make([]domain.VideoEvent, 0, len(feed.Items))
	for _, item := range feed.Items {
		e := domain.VideoEvent{
			VideoID:   ytValue(item.Extensions, "videoId"),
			ChannelID: ytValue(item.Extensions, "channelId"),
			Title:     strings.TrimSpace(item.Title),
			Published: item.Published,
			Updated:   item.Updated,
			Timestamp: now.UTC(),
		}
		if e.VideoID == "" {
			e.VideoID = strings.TrimPrefix(item.GUID, guidPrefix)
			if e.VideoID == item.GUID {
				e.VideoID = ""
			}
		}
		if len(item.Authors) > 0 && item.Authors[0] != nil {
			e.AuthorName = item.Authors[0].Name
		}
		events = append(events, e)
	}
	return events, nil
}

func ytValue(exts ext.Extensions, name string) string {
	values := exts["yt"][name]
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0].Value)
}
