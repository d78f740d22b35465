package push

import (
	"context"

	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
)

// ExpoMobileProvider delivers mobile push notifications through Expo's push
// service. Expo validates token grammar client-side, so malformed tokens
// are caught before any network call.
type ExpoMobileProvider struct {
	client *expo.PushClient
}

// NewExpoMobileProvider creates a provider against the public Expo API.
func NewExpoMobileProvider() *ExpoMobileProvider {
	return &ExpoMobileProvider{client: expo.NewPushClient(nil)}
}

// ValidateToken reports whether token matches the ExponentPushToken[...]
// grammar.
func (p *ExpoMobileProvider) ValidateToken(token string) bool {
	_, err := expo.NewExponentPushToken(token)
	return err == nil
}

// SendBatch publishes one message per token in a single API call and
// decomposes the ticket list back into index-aligned receipts.
func (p *ExpoMobileProvider) SendBatch(ctx context.Context, tokens []string, note Notification) ([]SendResult, error) {
	messages := make([]expo.PushMessage, 0, len(tokens))
	for _, t := range tokens {
		token, err := expo.NewExponentPushToken(t)
		if err != nil {
			// Callers validate grammar first; treat a slip-through as a
			// provider-level malformed token.
			token = expo.ExponentPushToken(t)
		}
		messages = append(messages, expo.PushMessage{
			To:       []expo.ExponentPushToken{token},
			Title:    note.Title,
			Body:     note.Body,
			Data:     note.Data,
			Sound:    "default",
			Priority: expo.DefaultPriority,
		})
	}

	responses, err := p.client.PublishMultiple(messages)
	if err != nil {
		return nil, err
	}

	results := make([]SendResult, len(tokens))
	for i := range results {
		if i >= len(responses) {
			results[i] = SendResult{ErrorCode: "no ticket returned"}
			continue
		}
		r := responses[i]
		if r.Status == expo.SuccessStatus {
			results[i] = SendResult{Success: true}
			continue
		}
		code := r.Details["error"]
		if code == "" {
			code = r.Message
		}
		results[i] = SendResult{
			ErrorCode: code,
			Permanent: code == expo.ErrorDeviceNotRegistered,
		}
	}
	return results, nil
}
