package twitch

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/nicklaw5/helix/v2"
)

// subscriptionAPI is the subset of Client used by the SubscriptionManager.
type subscriptionAPI interface {
	CreateSubscription(ctx context.Context, subType, broadcasterID, callbackURL, secret string) (string, error)
	DeleteSubscription(ctx context.Context, subscriptionID string) error
	ListSubscriptions(ctx context.Context) ([]Subscription, error)
}

// configStore is the subset of the repository the manager reconciles against.
type configStore interface {
	DistinctBroadcasterIDs() ([]string, error)
	CountNotificationsForBroadcaster(broadcasterID string) (int64, error)
}

// SubscriptionManager keeps the platform's EventSub subscriptions consistent
// with the configured broadcasters. Subscriptions are deduplicated by
// broadcaster id, not by guild: many guilds share one online/offline pair.
type SubscriptionManager struct {
	client      subscriptionAPI
	store       configStore
	callbackURL string
	secret      string
}

func NewSubscriptionManager(client subscriptionAPI, store configStore, callbackURL, secret string) *SubscriptionManager {
	return &SubscriptionManager{
		client:      client,
		store:       store,
		callbackURL: callbackURL,
		secret:      secret,
	}
}

// Bootstrap wipes every registered subscription and re-creates one online and
// one offline subscription per configured broadcaster. The clean slate exists
// because the callback URL may have changed across a redeploy; subscriptions
// surviving in the platform cannot be trusted. One broadcaster failing does
// not abort the rest.
func (sm *SubscriptionManager) Bootstrap(ctx context.Context) error {
	existing, err := sm.client.ListSubscriptions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list existing subscriptions: %w", err)
	}

	for _, sub := range existing {
		if err := sm.client.DeleteSubscription(ctx, sub.ID); err != nil {
			log.Printf("Error deleting stale subscription %s (%s for %s): %v", sub.ID, sub.Type, sub.BroadcasterID, err)
		}
	}
	log.Printf("Cleared %d existing subscriptions", len(existing))

	broadcasters, err := sm.store.DistinctBroadcasterIDs()
	if err != nil {
		return fmt.Errorf("failed to load configured broadcasters: %w", err)
	}

	registered := 0
	for _, id := range broadcasters {
		if err := sm.EnsureSubscribed(ctx, id); err != nil {
			log.Printf("Error subscribing broadcaster %s: %v", id, err)
			continue
		}
		registered++
	}
	log.Printf("Finished registering subscriptions for %d/%d broadcasters", registered, len(broadcasters))
	return nil
}

// EnsureSubscribed creates the online and offline subscriptions for one
// broadcaster. A subscription that already exists on the platform counts as
// success.
func (sm *SubscriptionManager) EnsureSubscribed(ctx context.Context, broadcasterID string) error {
	for _, subType := range []string{helix.EventSubTypeStreamOnline, helix.EventSubTypeStreamOffline} {
		_, err := sm.client.CreateSubscription(ctx, subType, broadcasterID, sm.callbackURL, sm.secret)
		if errors.Is(err, ErrSubscriptionExists) {
			log.Printf("Subscription %s for broadcaster %s already exists, skipping", subType, broadcasterID)
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// RemoveBroadcaster revokes the platform subscriptions for a broadcaster,
// but only when no guild configuration references them anymore. Call this
// after deleting the notification row.
func (sm *SubscriptionManager) RemoveBroadcaster(ctx context.Context, broadcasterID string) error {
	remaining, err := sm.store.CountNotificationsForBroadcaster(broadcasterID)
	if err != nil {
		return fmt.Errorf("failed to count remaining configurations for %s: %w", broadcasterID, err)
	}
	if remaining > 0 {
		log.Printf("Keeping subscriptions for broadcaster %s, still referenced by %d guild(s)", broadcasterID, remaining)
		return nil
	}

	subs, err := sm.client.ListSubscriptions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list subscriptions: %w", err)
	}

	for _, sub := range subs {
		if sub.BroadcasterID != broadcasterID {
			continue
		}
		if sub.Type != helix.EventSubTypeStreamOnline && sub.Type != helix.EventSubTypeStreamOffline {
			continue
		}
		if err := sm.client.DeleteSubscription(ctx, sub.ID); err != nil {
			log.Printf("Error deleting subscription %s for broadcaster %s: %v", sub.ID, broadcasterID, err)
		}
	}
	return nil
}
