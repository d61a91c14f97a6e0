package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/streamherald/streamherald-bot/internal/database"
	"github.com/streamherald/streamherald-bot/internal/models"
	"github.com/streamherald/streamherald-bot/internal/twitch"
	"github.com/streamherald/streamherald-bot/internal/webhook"
)

func newTestRepo(t *testing.T) *database.Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Notification{}))
	return database.NewRepositoryWithDB(db)
}

type fakeStreamAPI struct {
	stream *twitch.Stream
	err    error
	calls  int
}

func (f *fakeStreamAPI) GetStream(ctx context.Context, broadcasterID string) (*twitch.Stream, error) {
	f.calls++
	return f.stream, f.err
}

type fakeSink struct {
	sent        []Announcement
	failChannel string
}

func (f *fakeSink) SendLiveAnnouncement(ctx context.Context, a Announcement) error {
	if a.ChannelID == f.failChannel {
		return errors.New("channel gone")
	}
	f.sent = append(f.sent, a)
	return nil
}

func liveStream() *twitch.Stream {
	return &twitch.Stream{
		Title:        "Speedrunning all night",
		GameName:     "Celeste",
		ThumbnailURL: "https://static-cdn.jtvnw.net/previews-ttv/live_user_somestreamer-{width}x{height}.jpg",
		UserLogin:    "somestreamer",
		UserName:     "SomeStreamer",
		StartedAt:    time.Now().UTC(),
	}
}

func onlineEvent() webhook.InboundEvent {
	return webhook.InboundEvent{
		Type:             webhook.EventStreamOnline,
		BroadcasterID:    "12345",
		BroadcasterLogin: "somestreamer",
		BroadcasterName:  "SomeStreamer",
	}
}

func addRow(t *testing.T, repo *database.Repository, guildID, channelID string) {
	t.Helper()
	require.NoError(t, repo.AddNotification(&models.Notification{
		BroadcasterID: "12345",
		GuildID:       guildID,
		TwitchLogin:   "somestreamer",
		TwitchName:    "SomeStreamer",
		TwitchLink:    "https://twitch.tv/somestreamer",
		ChannelID:     channelID,
	}))
}

func TestHandleOnlineNoConfiguredGuilds(t *testing.T) {
	repo := newTestRepo(t)
	api := &fakeStreamAPI{stream: liveStream()}
	sink := &fakeSink{}
	r := NewReconciler(repo, api, sink)

	err := r.HandleOnline(context.Background(), onlineEvent())
	require.NoError(t, err)
	assert.Empty(t, sink.sent)
	assert.Zero(t, api.calls, "should not hit the API for an unconfigured broadcaster")
}

func TestHandleOnlineAnnouncesOncePerGuild(t *testing.T) {
	repo := newTestRepo(t)
	addRow(t, repo, "guild-1", "chan-1")
	addRow(t, repo, "guild-2", "chan-2")
	sink := &fakeSink{}
	r := NewReconciler(repo, &fakeStreamAPI{stream: liveStream()}, sink)

	require.NoError(t, r.HandleOnline(context.Background(), onlineEvent()))
	require.Len(t, sink.sent, 2)
	assert.Equal(t, "chan-1", sink.sent[0].ChannelID)
	assert.Equal(t, "chan-2", sink.sent[1].ChannelID)
	assert.Equal(t, "Speedrunning all night", sink.sent[0].Title)
	assert.Equal(t, "https://twitch.tv/somestreamer", sink.sent[0].WatchURL)

	// Redelivery of the same event must be suppressed by the stored flag.
	require.NoError(t, r.HandleOnline(context.Background(), onlineEvent()))
	assert.Len(t, sink.sent, 2)
}

func TestHandleOnlineStreamAlreadyEnded(t *testing.T) {
	repo := newTestRepo(t)
	addRow(t, repo, "guild-1", "chan-1")
	sink := &fakeSink{}
	api := &fakeStreamAPI{stream: nil}
	r := NewReconciler(repo, api, sink)

	require.NoError(t, r.HandleOnline(context.Background(), onlineEvent()))
	assert.Empty(t, sink.sent)

	// State was left untouched, so a later genuine online event announces.
	api.stream = liveStream()
	require.NoError(t, r.HandleOnline(context.Background(), onlineEvent()))
	assert.Len(t, sink.sent, 1)
}

func TestOfflineClearsStateForNextOnline(t *testing.T) {
	repo := newTestRepo(t)
	addRow(t, repo, "guild-1", "chan-1")
	sink := &fakeSink{}
	r := NewReconciler(repo, &fakeStreamAPI{stream: liveStream()}, sink)

	require.NoError(t, r.HandleOnline(context.Background(), onlineEvent()))
	require.Len(t, sink.sent, 1)

	off := onlineEvent()
	off.Type = webhook.EventStreamOffline
	require.NoError(t, r.HandleOffline(context.Background(), off))
	// Offline itself is silent.
	assert.Len(t, sink.sent, 1)

	require.NoError(t, r.HandleOnline(context.Background(), onlineEvent()))
	assert.Len(t, sink.sent, 2)
}

func TestGuildAddedMidStreamDoesNotReannounce(t *testing.T) {
	repo := newTestRepo(t)
	addRow(t, repo, "guild-1", "chan-1")
	sink := &fakeSink{}
	r := NewReconciler(repo, &fakeStreamAPI{stream: liveStream()}, sink)

	require.NoError(t, r.HandleOnline(context.Background(), onlineEvent()))
	require.Len(t, sink.sent, 1)

	// A guild configured while the stream is running inherits the live
	// state, so a redelivered online event stays fully suppressed instead
	// of re-announcing to the guild that already saw it.
	addRow(t, repo, "guild-2", "chan-2")
	require.NoError(t, r.HandleOnline(context.Background(), onlineEvent()))
	assert.Len(t, sink.sent, 1)

	// The new guild gets its announcement with the next stream.
	off := onlineEvent()
	off.Type = webhook.EventStreamOffline
	require.NoError(t, r.HandleOffline(context.Background(), off))
	require.NoError(t, r.HandleOnline(context.Background(), onlineEvent()))
	assert.Len(t, sink.sent, 3)
}

func TestRemovedGuildIsLeftOutOfNextFanOut(t *testing.T) {
	repo := newTestRepo(t)
	addRow(t, repo, "guild-1", "chan-1")
	addRow(t, repo, "guild-2", "chan-2")
	sink := &fakeSink{}
	r := NewReconciler(repo, &fakeStreamAPI{stream: liveStream()}, sink)

	require.NoError(t, r.HandleOnline(context.Background(), onlineEvent()))
	require.Len(t, sink.sent, 2)

	off := onlineEvent()
	off.Type = webhook.EventStreamOffline
	require.NoError(t, r.HandleOffline(context.Background(), off))
	require.NoError(t, repo.DeleteNotification("12345", "guild-1"))

	require.NoError(t, r.HandleOnline(context.Background(), onlineEvent()))
	require.Len(t, sink.sent, 3)
	assert.Equal(t, "chan-2", sink.sent[2].ChannelID)
}

func TestHandleOnlineOneChannelFailureDoesNotBlockOthers(t *testing.T) {
	repo := newTestRepo(t)
	addRow(t, repo, "guild-1", "chan-dead")
	addRow(t, repo, "guild-2", "chan-2")
	sink := &fakeSink{failChannel: "chan-dead"}
	r := NewReconciler(repo, &fakeStreamAPI{stream: liveStream()}, sink)

	require.NoError(t, r.HandleOnline(context.Background(), onlineEvent()))
	require.Len(t, sink.sent, 1)
	assert.Equal(t, "chan-2", sink.sent[0].ChannelID)
}

func TestManualAlert(t *testing.T) {
	repo := newTestRepo(t)
	sink := &fakeSink{}
	api := &fakeStreamAPI{stream: liveStream()}
	r := NewReconciler(repo, api, sink)

	err := r.ManualAlert(context.Background(), "12345", "guild-1")
	assert.ErrorIs(t, err, ErrNotConfigured)

	addRow(t, repo, "guild-1", "chan-1")

	api.stream = nil
	err = r.ManualAlert(context.Background(), "12345", "guild-1")
	assert.ErrorIs(t, err, ErrNotLive)
	assert.Empty(t, sink.sent)

	api.stream = liveStream()
	require.NoError(t, r.ManualAlert(context.Background(), "12345", "guild-1"))
	require.Len(t, sink.sent, 1)
	assert.Equal(t, "chan-1", sink.sent[0].ChannelID)

	// Manual alert resets the flag, so a real online event still announces.
	require.NoError(t, r.HandleOnline(context.Background(), onlineEvent()))
	assert.Len(t, sink.sent, 2)
}

func TestHandleEventIgnoresUnknownType(t *testing.T) {
	repo := newTestRepo(t)
	sink := &fakeSink{}
	r := NewReconciler(repo, &fakeStreamAPI{}, sink)

	r.HandleEvent(webhook.InboundEvent{Type: "channel.update", BroadcasterID: "12345"})
	assert.Empty(t, sink.sent)
}
