package provider

import "context"

// Email is one outbound transactional message.
type Email struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string

	// IdempotencyKey lets the provider collapse a resend of the same
	// logical email (e.g. after the ledger update failed).
	IdempotencyKey string
}

// SendResponse carries the provider's message id, when it returns one.
type SendResponse struct {
	MessageID string `json:"id"`
}

// Provider abstracts delivery to a transactional email service.
// Mocking this interface in tests gives full control over provider behaviour
// without making real network calls.
type Provider interface {
	Send(ctx context.Context, email Email) (*SendResponse, error)
}
