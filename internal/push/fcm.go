package push

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// webPushTTL keeps undelivered web notifications queued for a day.
const webPushTTL = "86400"

// FCMWebProvider delivers web push notifications through Firebase Cloud
// Messaging. FCM validates registration tokens server-side and classifies
// dead ones as unregistered.
type FCMWebProvider struct {
	client *messaging.Client
}

// NewFCMWebProvider initializes the Firebase app from service-account
// credentials JSON.
func NewFCMWebProvider(ctx context.Context, credentialsJSON []byte) (*FCMWebProvider, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsJSON(credentialsJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase messaging: %w", err)
	}
	return &FCMWebProvider{client: client}, nil
}

// SendBatch multicasts to every token in one call and decomposes the batch
// response back into index-aligned receipts.
func (p *FCMWebProvider) SendBatch(ctx context.Context, tokens []string, note Notification) ([]SendResult, error) {
	data := make(map[string]string, len(note.Data)+1)
	for k, v := range note.Data {
		data[k] = v
	}
	if note.Web.ClickAction != "" {
		data["click_action"] = note.Web.ClickAction
	}

	icon := note.Web.Icon
	if icon == "" {
		icon = "/pwa.png"
	}
	badge := note.Web.Badge
	if badge == "" {
		badge = "/pwa.png"
	}
	tag := note.Web.Tag
	if tag == "" {
		tag = "default"
	}

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: note.Title,
			Body:  note.Body,
		},
		Data: data,
		Webpush: &messaging.WebpushConfig{
			Headers: map[string]string{"TTL": webPushTTL},
			Notification: &messaging.WebpushNotification{
				Title:              note.Title,
				Body:               note.Body,
				Icon:               icon,
				Badge:              badge,
				Tag:                tag,
				RequireInteraction: note.Web.RequireInteraction,
			},
		},
	}

	batch, err := p.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return nil, err
	}

	results := make([]SendResult, len(tokens))
	for i, r := range batch.Responses {
		if i >= len(results) {
			break
		}
		if r.Success {
			results[i] = SendResult{Success: true}
			continue
		}
		results[i] = SendResult{
			ErrorCode: r.Error.Error(),
			Permanent: messaging.IsRegistrationTokenNotRegistered(r.Error),
		}
	}
	return results, nil
}
