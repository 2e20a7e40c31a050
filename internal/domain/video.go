package domain

import (
	"slices"
	"time"
)

// VideoEvent is the normalized form of a hub notification. It is the payload
// of every queue message.
type VideoEvent struct {
	VideoID    string    `json:"videoId"`
	ChannelID  string    `json:"channelId"`
	Title      string    `json:"title"`
	AuthorName string    `json:"authorName"`
	Published  string    `json:"published"`
	Updated    string    `json:"updated"`
	Timestamp  time.Time `json:"timestamp"`
}

func (e *VideoEvent) Validate() error {
	if e.ChannelID == "" {
		return ErrMissingChannelID
	}
	if e.VideoID == "" {
		return ErrMissingVideoID
	}
	return nil
}

// URL returns the watch page for the video.
func (e *VideoEvent) URL() string {
	return "https://www.youtube.com/watch?v=" + e.VideoID
}

// ThumbnailURL returns the high-quality thumbnail for the video.
func (e *VideoEvent) ThumbnailURL() string {
	return "https://i.ytimg.com/vi/" + e.VideoID + "/hqdefault.jpg"
}

// QueueMessage is one visible instance of a queued VideoEvent.
// ReadCount is incremented by the queue every time the message is popped, so
// it doubles as the attempt counter across native redeliveries.
type QueueMessage struct {
	ID         int64      `json:"msg_id"`
	ReadCount  int        `json:"read_count"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
	VisibleAt  time.Time  `json:"vt"`
	Payload    VideoEvent `json:"message"`
}

// Summary is the structured AI summary attached to notification emails.
type Summary struct {
	BriefSummary string   `json:"briefSummary"`
	KeyPoints    []string `json:"keyPoints"`
}

func (s Summary) Equal(o Summary) bool {
	return s.BriefSummary == o.BriefSummary && slices.Equal(s.KeyPoints, o.KeyPoints)
}

// AIContent is a cached summary keyed by video id. The first successful write
// for a video is authoritative.
type AIContent struct {
	VideoID   string    `json:"videoId"`
	Summary   Summary   `json:"summary"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"createdAt"`
}
