package domain

import "time"

// Status tracks the delivery lifecycle of a ledger row.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusSent || s == StatusFailed
}

// CanTransitionTo allows only pending→sent and pending→failed.
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusPending && next.IsTerminal()
}

// Notification is one row of the email_notifications ledger.
// At most one row exists per (ProfileID, VideoID); rows are never deleted.
type Notification struct {
	ID            string     `json:"id"`
	ProfileID     string     `json:"profile_id"`
	ChannelID     string     `json:"channel_id"`
	VideoID       string     `json:"video_id"`
	Title         string     `json:"title"`
	Subject       string     `json:"subject"`
	EmailContent  string     `json:"email_content"`
	Status        Status     `json:"status"`
	ErrorMessage  *string    `json:"error_message,omitempty"`
	ProviderMsgID *string    `json:"provider_message_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
}

// IdempotencyKey identifies the logical email for a ledger row. It is passed
// to the email provider so a resend after a failed status update is collapsed.
func (n *Notification) IdempotencyKey() string {
	return n.ProfileID + ":" + n.VideoID
}

// PendingDelivery is a claimed pending row joined with the subscriber's email.
// Email is empty when the profile has no address on file.
type PendingDelivery struct {
	Notification
	Email string
}
