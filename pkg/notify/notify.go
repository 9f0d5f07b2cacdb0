// Package notify is the offline-notification collaborator: best-effort push
// delivery to users without a live realtime connection.
package notify

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/aeolun/teamline/pkg/store"
)

// ErrNoSubscriptions indicates the user has no registered push endpoint, so
// nothing could even be attempted.
var ErrNoSubscriptions = errors.New("no push subscriptions for user")

// Notification is one push payload.
type Notification struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	URL   string            `json:"url,omitempty"`
	Data  map[string]string `json:"data,omitempty"`
}

// Notifier delivers a notification to a user's registered push endpoints.
type Notifier interface {
	Notify(userID int64, n Notification) error
}

// SubscriptionStore is the slice of storage the webhook notifier needs.
type SubscriptionStore interface {
	PushSubscriptions(userID int64) ([]*store.PushSubscription, error)
	DeletePushSubscription(subscriptionID int64) error
}

// WebhookNotifier posts notifications to each stored endpoint. Endpoints
// answering 404 or 410 are treated as expired and removed; other failures
// are logged and do not affect delivery to the remaining endpoints.
type WebhookNotifier struct {
	store  SubscriptionStore
	client *http.Client
	log    *zap.Logger
}

// NewWebhookNotifier creates a notifier over the given subscription store.
func NewWebhookNotifier(st SubscriptionStore, log *zap.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		store:  st,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

// Notify posts the notification to every endpoint registered for the user.
func (w *WebhookNotifier) Notify(userID int64, n Notification) error {
	subs, err := w.store.PushSubscriptions(userID)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		return ErrNoSubscriptions
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}

	for _, sub := range subs {
		resp, err := w.client.Post(sub.Endpoint, "application/json", bytes.NewReader(payload))
		if err != nil {
			w.log.Warn("push delivery failed",
				zap.Int64("user_id", userID),
				zap.Int64("subscription_id", sub.ID),
				zap.Error(err))
			continue
		}
		resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			// Subscription expired; drop it so we stop retrying forever.
			if err := w.store.DeletePushSubscription(sub.ID); err != nil {
				w.log.Warn("failed to remove stale push subscription",
					zap.Int64("subscription_id", sub.ID),
					zap.Error(err))
			}
			continue
		}
		if resp.StatusCode >= 400 {
			w.log.Warn("push endpoint rejected notification",
				zap.Int64("subscription_id", sub.ID),
				zap.Int("status", resp.StatusCode))
		}
	}
	return nil
}

// Nop is a notifier that does nothing. Used when push is not configured.
type Nop struct{}

// Notify discards the notification.
func (Nop) Notify(int64, Notification) error { return nil }
