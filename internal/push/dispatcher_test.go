package push

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/foodloop-labs/foodloop-backend/internal/models"
)

type fakeMobileProvider struct {
	mu      sync.Mutex
	batches [][]string
	results map[string]SendResult
	err     error
	delay   time.Duration
}

func (f *fakeMobileProvider) ValidateToken(token string) bool {
	return strings.HasPrefix(token, "ExponentPushToken[")
}

func (f *fakeMobileProvider) SendBatch(ctx context.Context, tokens []string, note Notification) ([]SendResult, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	f.batches = append(f.batches, tokens)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	results := make([]SendResult, len(tokens))
	for i, t := range tokens {
		if r, ok := f.results[t]; ok {
			results[i] = r
		} else {
			results[i] = SendResult{Success: true}
		}
	}
	return results, nil
}

type fakeWebProvider struct {
	mu      sync.Mutex
	batches [][]string
	results map[string]SendResult
	err     error
	delay   time.Duration
}

func (f *fakeWebProvider) SendBatch(ctx context.Context, tokens []string, note Notification) ([]SendResult, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	f.batches = append(f.batches, tokens)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	results := make([]SendResult, len(tokens))
	for i, t := range tokens {
		if r, ok := f.results[t]; ok {
			results[i] = r
		} else {
			results[i] = SendResult{Success: true}
		}
	}
	return results, nil
}

type fakeTokenStore struct {
	mu      sync.Mutex
	cleared []InvalidToken
}

func (f *fakeTokenStore) ClearRecipientToken(kind models.RecipientKind, id string, channel models.Channel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, InvalidToken{Kind: kind, RecipientID: id, Channel: channel})
	return nil
}

func note(title string) Notification {
	return Notification{Title: title, Body: "body", Data: map[string]string{"type": "test"}}
}

func findResult(t *testing.T, result DispatchResult, id string) RecipientResult {
	t.Helper()
	for _, rr := range result.PerRecipient {
		if rr.RecipientID == id {
			return rr
		}
	}
	t.Fatalf("no result for recipient %s", id)
	return RecipientResult{}
}

func TestNotifyCoversEveryRecipientInAnyTokenMix(t *testing.T) {
	mobile := &fakeMobileProvider{}
	web := &fakeWebProvider{}
	d := NewDispatcher(mobile, web, &fakeTokenStore{})

	recipients := []models.Recipient{
		{Kind: models.KindCustomer, ID: "both", MobilePushToken: "ExponentPushToken[a]", WebPushToken: "fcm-a"},
		{Kind: models.KindCustomer, ID: "mobile-only", MobilePushToken: "ExponentPushToken[b]"},
		{Kind: models.KindCustomer, ID: "web-only", WebPushToken: "fcm-b"},
		{Kind: models.KindCustomer, ID: "none"},
	}

	result := d.Notify(context.Background(), recipients, note("mix"))

	if len(result.PerRecipient) != len(recipients) {
		t.Fatalf("expected %d results, got %d", len(recipients), len(result.PerRecipient))
	}

	both := findResult(t, result, "both")
	if both.Mobile.State != StateSent || both.Web.State != StateSent {
		t.Fatalf("expected both channels sent, got %+v", both)
	}
	mobileOnly := findResult(t, result, "mobile-only")
	if mobileOnly.Mobile.State != StateSent || mobileOnly.Web.State != StateSkipped {
		t.Fatalf("unexpected outcomes: %+v", mobileOnly)
	}
	webOnly := findResult(t, result, "web-only")
	if webOnly.Mobile.State != StateSkipped || webOnly.Web.State != StateSent {
		t.Fatalf("unexpected outcomes: %+v", webOnly)
	}
	none := findResult(t, result, "none")
	if none.Mobile.State != StateSkipped || none.Web.State != StateSkipped {
		t.Fatalf("recipient without tokens must be skipped, got %+v", none)
	}

	if len(mobile.batches) != 1 || len(mobile.batches[0]) != 2 {
		t.Fatalf("expected a single mobile multicast of 2 tokens, got %v", mobile.batches)
	}
	if len(web.batches) != 1 || len(web.batches[0]) != 2 {
		t.Fatalf("expected a single web multicast of 2 tokens, got %v", web.batches)
	}
}

func TestNotifyMalformedMobileTokenIsNeverSent(t *testing.T) {
	mobile := &fakeMobileProvider{}
	d := NewDispatcher(mobile, &fakeWebProvider{}, &fakeTokenStore{})

	recipients := []models.Recipient{
		{Kind: models.KindDeliveryPartner, ID: "bad", MobilePushToken: "not-a-push-token"},
		{Kind: models.KindDeliveryPartner, ID: "good", MobilePushToken: "ExponentPushToken[ok]"},
	}

	result := d.Notify(context.Background(), recipients, note("malformed"))

	bad := findResult(t, result, "bad")
	if bad.Mobile.State != StateFailed || bad.Mobile.Permanent {
		t.Fatalf("malformed token must fail locally and not be permanent, got %+v", bad.Mobile)
	}
	for _, batch := range mobile.batches {
		for _, token := range batch {
			if token == "not-a-push-token" {
				t.Fatal("malformed token was handed to the provider")
			}
		}
	}
	if findResult(t, result, "good").Mobile.State != StateSent {
		t.Fatal("valid token should still be sent")
	}
}

func TestNotifyPermanentFailureClearsExactlyThatToken(t *testing.T) {
	mobile := &fakeMobileProvider{
		results: map[string]SendResult{
			"ExponentPushToken[dead]": {ErrorCode: "DeviceNotRegistered", Permanent: true},
		},
	}
	web := &fakeWebProvider{
		results: map[string]SendResult{
			"fcm-transient": {ErrorCode: "unavailable"},
		},
	}
	store := &fakeTokenStore{}
	d := NewDispatcher(mobile, web, store)

	recipients := []models.Recipient{
		{Kind: models.KindCustomer, ID: "victim", MobilePushToken: "ExponentPushToken[dead]", WebPushToken: "fcm-alive"},
		{Kind: models.KindCustomer, ID: "transient", WebPushToken: "fcm-transient"},
	}

	result := d.Notify(context.Background(), recipients, note("invalidation"))

	if len(result.InvalidTokens) != 1 {
		t.Fatalf("expected exactly one invalidation candidate, got %v", result.InvalidTokens)
	}
	got := result.InvalidTokens[0]
	if got.RecipientID != "victim" || got.Channel != models.ChannelMobile {
		t.Fatalf("wrong invalidation target: %+v", got)
	}
	if len(store.cleared) != 1 || store.cleared[0] != got {
		t.Fatalf("expected the dead token (and only it) to be cleared, got %v", store.cleared)
	}

	victim := findResult(t, result, "victim")
	if victim.Web.State != StateSent {
		t.Fatalf("healthy web token must still be delivered, got %+v", victim.Web)
	}
	transient := findResult(t, result, "transient")
	if transient.Web.State != StateFailed || transient.Web.Permanent {
		t.Fatalf("transient failure must not be an invalidation candidate, got %+v", transient.Web)
	}
}

func TestNotifyHungChannelDoesNotStallTheOther(t *testing.T) {
	mobile := &fakeMobileProvider{}
	web := &fakeWebProvider{delay: 500 * time.Millisecond}
	d := NewDispatcher(mobile, web, &fakeTokenStore{})
	d.SetSendTimeout(30 * time.Millisecond)

	recipients := []models.Recipient{
		{Kind: models.KindCustomer, ID: "r", MobilePushToken: "ExponentPushToken[a]", WebPushToken: "fcm-a"},
	}

	start := time.Now()
	result := d.Notify(context.Background(), recipients, note("hang"))
	if elapsed := time.Since(start); elapsed > 300*time.Millisecond {
		t.Fatalf("dispatch stalled on a hung send: %v", elapsed)
	}

	rr := findResult(t, result, "r")
	if rr.Mobile.State != StateSent {
		t.Fatalf("healthy channel should complete, got %+v", rr.Mobile)
	}
	if rr.Web.State != StateFailed || rr.Web.Permanent {
		t.Fatalf("hung channel should fail transiently, got %+v", rr.Web)
	}
}

func TestNotifyProviderErrorFailsWholeBatchTransiently(t *testing.T) {
	mobile := &fakeMobileProvider{err: errors.New("expo is down")}
	d := NewDispatcher(mobile, &fakeWebProvider{}, &fakeTokenStore{})

	recipients := []models.Recipient{
		{Kind: models.KindDeliveryPartner, ID: "a", MobilePushToken: "ExponentPushToken[a]"},
		{Kind: models.KindDeliveryPartner, ID: "b", MobilePushToken: "ExponentPushToken[b]"},
	}

	result := d.Notify(context.Background(), recipients, note("outage"))

	if len(result.PerRecipient) != 2 {
		t.Fatalf("expected 2 results, got %d", len(result.PerRecipient))
	}
	for _, rr := range result.PerRecipient {
		if rr.Mobile.State != StateFailed || rr.Mobile.Permanent {
			t.Fatalf("expected transient failure for %s, got %+v", rr.RecipientID, rr.Mobile)
		}
	}
	if len(result.InvalidTokens) != 0 {
		t.Fatalf("an outage must not invalidate tokens: %v", result.InvalidTokens)
	}
}

func TestNotifyWithoutConfiguredChannelFails(t *testing.T) {
	d := NewDispatcher(nil, nil, &fakeTokenStore{})

	recipients := []models.Recipient{
		{Kind: models.KindCustomer, ID: "r", MobilePushToken: "ExponentPushToken[a]", WebPushToken: "fcm-a"},
	}
	result := d.Notify(context.Background(), recipients, note("unconfigured"))

	rr := findResult(t, result, "r")
	if rr.Mobile.State != StateFailed || rr.Web.State != StateFailed {
		t.Fatalf("sends on unconfigured channels must fail, got %+v", rr)
	}
}

func TestNotifyNoRecipients(t *testing.T) {
	d := NewDispatcher(&fakeMobileProvider{}, &fakeWebProvider{}, &fakeTokenStore{})
	result := d.Notify(context.Background(), nil, note("empty"))
	if len(result.PerRecipient) != 0 || len(result.InvalidTokens) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}
