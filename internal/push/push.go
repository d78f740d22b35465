// Package push fans a single logical notification out to one-or-many
// recipients over mobile (Expo) and web (FCM) channels, tolerating partial
// failure per recipient and per channel.
package push

import (
	"context"

	"github.com/foodloop-labs/foodloop-backend/internal/models"
)

// OutcomeState classifies one (recipient, channel) send.
type OutcomeState string

const (
	StateSent    OutcomeState = "sent"
	StateSkipped OutcomeState = "skipped"
	StateFailed  OutcomeState = "failed"
)

// Outcome is the result of one channel send for one recipient.
type Outcome struct {
	State  OutcomeState `json:"state"`
	Reason string       `json:"reason,omitempty"`
	// Permanent marks provider-classified dead tokens (never transient
	// errors); these become invalidation candidates.
	Permanent bool `json:"permanent,omitempty"`
}

// RecipientResult aggregates both channel outcomes for one recipient.
// A nil channel outcome never occurs; recipients without a token on a
// channel get a Skipped outcome there.
type RecipientResult struct {
	Kind        models.RecipientKind `json:"kind"`
	RecipientID string               `json:"recipientId"`
	Mobile      Outcome              `json:"mobile"`
	Web         Outcome              `json:"web"`
}

// InvalidToken names a stored token the provider reported as permanently
// dead.
type InvalidToken struct {
	Kind        models.RecipientKind `json:"kind"`
	RecipientID string               `json:"recipientId"`
	Channel     models.Channel       `json:"channel"`
}

// DispatchResult always carries exactly one entry per input recipient,
// regardless of completion order or failures.
type DispatchResult struct {
	PerRecipient  []RecipientResult `json:"perRecipient"`
	InvalidTokens []InvalidToken    `json:"invalidTokens,omitempty"`
}

// Sent counts successful channel sends across all recipients.
func (r DispatchResult) Sent() int {
	n := 0
	for _, rr := range r.PerRecipient {
		if rr.Mobile.State == StateSent {
			n++
		}
		if rr.Web.State == StateSent {
			n++
		}
	}
	return n
}

// Failed counts failed channel sends across all recipients.
func (r DispatchResult) Failed() int {
	n := 0
	for _, rr := range r.PerRecipient {
		if rr.Mobile.State == StateFailed {
			n++
		}
		if rr.Web.State == StateFailed {
			n++
		}
	}
	return n
}

// SendResult is one provider receipt, index-aligned with the input tokens.
type SendResult struct {
	Success   bool
	ErrorCode string
	Permanent bool
}

// WebOptions shape the browser-side presentation of a web push.
type WebOptions struct {
	ClickAction        string
	Icon               string
	Badge              string
	Tag                string
	RequireInteraction bool
}

// Notification is the ephemeral payload handed to the dispatcher. Data
// values must already be strings (FCM requirement).
type Notification struct {
	Title string
	Body  string
	Data  map[string]string
	Web   WebOptions
}

// MobileProvider delivers to mobile push tokens. ValidateToken checks the
// provider's token grammar locally; malformed tokens must never be sent.
type MobileProvider interface {
	ValidateToken(token string) bool
	SendBatch(ctx context.Context, tokens []string, note Notification) ([]SendResult, error)
}

// WebProvider delivers to web push tokens. The provider validates tokens
// server-side; there is no local grammar check.
type WebProvider interface {
	SendBatch(ctx context.Context, tokens []string, note Notification) ([]SendResult, error)
}
