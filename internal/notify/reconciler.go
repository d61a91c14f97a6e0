// Package notify holds the live-state reconciler: the state machine deciding
// whether an online/offline event produces guild notifications, guarded by
// the persisted is_live flag so duplicate and out-of-order deliveries are
// suppressed across restarts.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/streamherald/streamherald-bot/internal/models"
	"github.com/streamherald/streamherald-bot/internal/twitch"
	"github.com/streamherald/streamherald-bot/internal/webhook"
)

// ErrNotConfigured is returned by ManualAlert when the guild has no
// notification row for the broadcaster.
var ErrNotConfigured = errors.New("no notification configured for this broadcaster in this guild")

// ErrNotLive is returned by ManualAlert when the broadcaster is offline.
var ErrNotLive = errors.New("broadcaster is not currently live")

const eventProcessingTimeout = 30 * time.Second

// Announcement is a fully-formed outbound message descriptor handed to the
// sink, one per configured guild.
type Announcement struct {
	ChannelID        string
	RoleID           string
	BroadcasterName  string
	BroadcasterLogin string
	Title            string
	GameName         string
	WatchURL         string
	ThumbnailURL     string
	StartedAt        time.Time
}

// Sink delivers an announcement to a chat channel. Implementations skip
// silently when the channel no longer exists.
type Sink interface {
	SendLiveAnnouncement(ctx context.Context, a Announcement) error
}

// stateStore is the repository subset the reconciler reads and writes.
type stateStore interface {
	GetNotificationsForBroadcaster(broadcasterID string) ([]models.Notification, error)
	GetNotification(broadcasterID, guildID string) (*models.Notification, error)
	ClaimLive(broadcasterID string) (bool, error)
	ClearLive(broadcasterID string) error
}

// streamAPI re-fetches authoritative stream metadata; the webhook payload
// itself carries none.
type streamAPI interface {
	GetStream(ctx context.Context, broadcasterID string) (*twitch.Stream, error)
}

type Reconciler struct {
	store stateStore
	api   streamAPI
	sink  Sink
}

func NewReconciler(store stateStore, api streamAPI, sink Sink) *Reconciler {
	return &Reconciler{store: store, api: api, sink: sink}
}

// HandleEvent is the webhook dispatch entry point. It runs on its own
// goroutine with its own deadline; failures are logged and dropped, never
// propagated back to the receiver.
func (r *Reconciler) HandleEvent(ev webhook.InboundEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), eventProcessingTimeout)
	defer cancel()

	var err error
	switch ev.Type {
	case webhook.EventStreamOnline:
		err = r.HandleOnline(ctx, ev)
	case webhook.EventStreamOffline:
		err = r.HandleOffline(ctx, ev)
	default:
		log.Printf("Ignoring event with unknown type %q for broadcaster %s", ev.Type, ev.BroadcasterID)
		return
	}
	if err != nil {
		log.Printf("Error processing %s event for broadcaster %s: %v", ev.Type, ev.BroadcasterID, err)
	}
}

// HandleOnline runs the OFFLINE→LIVE transition. The is_live claim is a
// single conditional update, so two near-simultaneous online events resolve
// to exactly one announcement per guild.
func (r *Reconciler) HandleOnline(ctx context.Context, ev webhook.InboundEvent) error {
	log.Printf("Broadcaster %s (%s) went live", ev.BroadcasterID, ev.BroadcasterLogin)

	rows, err := r.store.GetNotificationsForBroadcaster(ev.BroadcasterID)
	if err != nil {
		return fmt.Errorf("failed to load configurations: %w", err)
	}
	if len(rows) == 0 {
		log.Printf("No guild configured for broadcaster %s, ignoring", ev.BroadcasterID)
		return nil
	}

	if allLive(rows) {
		log.Printf("Broadcaster %s already marked live, suppressing duplicate event", ev.BroadcasterID)
		return nil
	}

	// Re-fetch before claiming: if the stream already ended, abort without
	// touching state so the row stays claimable by a later genuine event.
	stream, err := r.api.GetStream(ctx, ev.BroadcasterID)
	if err != nil {
		return fmt.Errorf("failed to fetch stream metadata: %w", err)
	}
	if stream == nil {
		log.Printf("No live stream found for broadcaster %s, event raced stream end", ev.BroadcasterID)
		return nil
	}

	claimed, err := r.store.ClaimLive(ev.BroadcasterID)
	if err != nil {
		return fmt.Errorf("failed to claim live state: %w", err)
	}
	if !claimed {
		log.Printf("Broadcaster %s claimed live by a concurrent event, suppressing", ev.BroadcasterID)
		return nil
	}

	for _, row := range rows {
		a := buildAnnouncement(row, ev, stream)
		if err := r.sink.SendLiveAnnouncement(ctx, a); err != nil {
			// One channel failing must not block the rest of the fan-out.
			log.Printf("Error announcing %s to guild %s channel %s: %v", ev.BroadcasterLogin, row.GuildID, row.ChannelID, err)
		}
	}
	return nil
}

// HandleOffline runs the LIVE→OFFLINE transition. Offline is never
// announced; the flag is cleared unconditionally so the next online event
// is not suppressed.
func (r *Reconciler) HandleOffline(ctx context.Context, ev webhook.InboundEvent) error {
	log.Printf("Broadcaster %s (%s) went offline", ev.BroadcasterID, ev.BroadcasterLogin)
	if err := r.store.ClearLive(ev.BroadcasterID); err != nil {
		return fmt.Errorf("failed to clear live state: %w", err)
	}
	return nil
}

// ManualAlert force-sends a live announcement to one guild. The stored state
// is reset to offline first so a later genuine online webhook is not
// suppressed by the manual send.
func (r *Reconciler) ManualAlert(ctx context.Context, broadcasterID, guildID string) error {
	row, err := r.store.GetNotification(broadcasterID, guildID)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if row == nil {
		return ErrNotConfigured
	}

	stream, err := r.api.GetStream(ctx, broadcasterID)
	if err != nil {
		return fmt.Errorf("failed to fetch stream metadata: %w", err)
	}
	if stream == nil {
		return ErrNotLive
	}

	if err := r.store.ClearLive(broadcasterID); err != nil {
		return fmt.Errorf("failed to reset live state: %w", err)
	}

	a := Announcement{
		ChannelID:        row.ChannelID,
		RoleID:           row.RoleID,
		BroadcasterName:  stream.UserName,
		BroadcasterLogin: stream.UserLogin,
		Title:            stream.Title,
		GameName:         stream.GameName,
		WatchURL:         "https://twitch.tv/" + stream.UserLogin,
		ThumbnailURL:     stream.ThumbnailURL,
		StartedAt:        stream.StartedAt,
	}
	return r.sink.SendLiveAnnouncement(ctx, a)
}

func buildAnnouncement(row models.Notification, ev webhook.InboundEvent, stream *twitch.Stream) Announcement {
	name := ev.BroadcasterName
	if name == "" {
		name = stream.UserName
	}
	login := ev.BroadcasterLogin
	if login == "" {
		login = stream.UserLogin
	}
	return Announcement{
		ChannelID:        row.ChannelID,
		RoleID:           row.RoleID,
		BroadcasterName:  name,
		BroadcasterLogin: login,
		Title:            stream.Title,
		GameName:         stream.GameName,
		WatchURL:         "https://twitch.tv/" + login,
		ThumbnailURL:     stream.ThumbnailURL,
		StartedAt:        stream.StartedAt,
	}
}

func allLive(rows []models.Notification) bool {
	for _, row := range rows {
		if !row.IsLive {
			return false
		}
	}
	return true
}
