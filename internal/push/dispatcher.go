package push

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/foodloop-labs/foodloop-backend/internal/models"
)

const defaultSendTimeout = 10 * time.Second

// TokenStore clears dead tokens from the recipient's stored record so
// future sends do not retry them. Satisfied by storage.Store.
type TokenStore interface {
	ClearRecipientToken(kind models.RecipientKind, id string, channel models.Channel) error
}

// Dispatcher fans one notification out across recipients and channels.
// Either provider may be nil when its channel is not configured; sends on
// that channel fail without affecting the other.
type Dispatcher struct {
	mobile      MobileProvider
	web         WebProvider
	store       TokenStore
	sendTimeout time.Duration
}

// NewDispatcher creates a dispatcher over the given channel providers.
func NewDispatcher(mobile MobileProvider, web WebProvider, store TokenStore) *Dispatcher {
	return &Dispatcher{
		mobile:      mobile,
		web:         web,
		store:       store,
		sendTimeout: defaultSendTimeout,
	}
}

// SetSendTimeout bounds each channel batch so a hung provider call cannot
// stall the aggregate result.
func (d *Dispatcher) SetSendTimeout(timeout time.Duration) {
	if timeout > 0 {
		d.sendTimeout = timeout
	}
}

// batchEntry ties a token back to its recipient slot.
type batchEntry struct {
	index int
	token string
}

// Notify sends note to every recipient that holds a token, one multicast
// call per channel, and returns exactly one result per input recipient.
// Failure of one recipient or channel never blocks the others; notification
// errors are folded into the result, never returned.
func (d *Dispatcher) Notify(ctx context.Context, recipients []models.Recipient, note Notification) DispatchResult {
	results := make([]RecipientResult, len(recipients))

	var mobileBatch, webBatch []batchEntry
	for i, r := range recipients {
		results[i] = RecipientResult{
			Kind:        r.Kind,
			RecipientID: r.ID,
			Mobile:      Outcome{State: StateSkipped, Reason: "no mobile push token"},
			Web:         Outcome{State: StateSkipped, Reason: "no web push token"},
		}

		if r.MobilePushToken != "" {
			switch {
			case d.mobile == nil:
				results[i].Mobile = Outcome{State: StateFailed, Reason: "mobile push channel not configured"}
			case !d.mobile.ValidateToken(r.MobilePushToken):
				// Malformed tokens are a local validation failure and are
				// never handed to the provider.
				results[i].Mobile = Outcome{State: StateFailed, Reason: "malformed mobile push token"}
			default:
				mobileBatch = append(mobileBatch, batchEntry{index: i, token: r.MobilePushToken})
			}
		}
		if r.WebPushToken != "" {
			if d.web == nil {
				results[i].Web = Outcome{State: StateFailed, Reason: "web push channel not configured"}
			} else {
				webBatch = append(webBatch, batchEntry{index: i, token: r.WebPushToken})
			}
		}
	}

	var wg sync.WaitGroup
	var mobileResults, webResults []SendResult
	if len(mobileBatch) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mobileResults = d.runBatch(ctx, len(mobileBatch), func(ctx context.Context) ([]SendResult, error) {
				return d.mobile.SendBatch(ctx, tokensOf(mobileBatch), note)
			})
		}()
	}
	if len(webBatch) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			webResults = d.runBatch(ctx, len(webBatch), func(ctx context.Context) ([]SendResult, error) {
				return d.web.SendBatch(ctx, tokensOf(webBatch), note)
			})
		}()
	}
	wg.Wait()

	for j, entry := range mobileBatch {
		results[entry.index].Mobile = toOutcome(mobileResults[j])
	}
	for j, entry := range webBatch {
		results[entry.index].Web = toOutcome(webResults[j])
	}

	out := DispatchResult{PerRecipient: results}
	for _, rr := range results {
		if rr.Mobile.State == StateFailed && rr.Mobile.Permanent {
			out.InvalidTokens = append(out.InvalidTokens, InvalidToken{Kind: rr.Kind, RecipientID: rr.RecipientID, Channel: models.ChannelMobile})
		}
		if rr.Web.State == StateFailed && rr.Web.Permanent {
			out.InvalidTokens = append(out.InvalidTokens, InvalidToken{Kind: rr.Kind, RecipientID: rr.RecipientID, Channel: models.ChannelWeb})
		}
	}
	d.clearInvalidTokens(out.InvalidTokens)

	return out
}

// NotifyDetached submits the dispatch as a detached task. Lifecycle
// operations call this so their response never waits on, or fails because
// of, notification delivery.
func (d *Dispatcher) NotifyDetached(recipients []models.Recipient, note Notification) {
	go func() {
		result := d.Notify(context.Background(), recipients, note)
		log.Printf("📣 Notification %q: %d recipients, %d sent, %d failed, %d tokens invalidated",
			note.Title, len(result.PerRecipient), result.Sent(), result.Failed(), len(result.InvalidTokens))
	}()
}

// runBatch executes one channel batch under the send timeout. A hung or
// failed provider call yields a Failed receipt for every token in the batch
// instead of stalling the dispatch.
func (d *Dispatcher) runBatch(ctx context.Context, n int, send func(context.Context) ([]SendResult, error)) []SendResult {
	ctx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	type reply struct {
		results []SendResult
		err     error
	}
	ch := make(chan reply, 1)
	go func() {
		results, err := send(ctx)
		ch <- reply{results, err}
	}()

	var failure string
	select {
	case r := <-ch:
		if r.err == nil {
			if len(r.results) == n {
				return r.results
			}
			failure = fmt.Sprintf("provider returned %d receipts for %d tokens", len(r.results), n)
		} else {
			failure = r.err.Error()
		}
	case <-ctx.Done():
		failure = "send timed out"
	}

	failed := make([]SendResult, n)
	for i := range failed {
		failed[i] = SendResult{ErrorCode: failure}
	}
	return failed
}

func (d *Dispatcher) clearInvalidTokens(tokens []InvalidToken) {
	if d.store == nil {
		return
	}
	for _, t := range tokens {
		if err := d.store.ClearRecipientToken(t.Kind, t.RecipientID, t.Channel); err != nil {
			log.Printf("⚠️  Failed to clear dead %s token for %s %s: %v", t.Channel, t.Kind, t.RecipientID, err)
		} else {
			log.Printf("🧹 Cleared dead %s token for %s %s", t.Channel, t.Kind, t.RecipientID)
		}
	}
}

func tokensOf(entries []batchEntry) []string {
	tokens := make([]string, len(entries))
	for i, e := range entries {
		tokens[i] = e.token
	}
	return tokens
}

func toOutcome(r SendResult) Outcome {
	if r.Success {
		return Outcome{State: StateSent}
	}
	return Outcome{State: StateFailed, Reason: r.ErrorCode, Permanent: r.Permanent}
}
