package database

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/streamherald/streamherald-bot/internal/models"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Notification{},
		&models.BirthdayGuild{},
		&models.BirthdayUser{},
		&models.UserTimezone{},
		&models.APIHealthStat{},
		&models.Report{},
	))
	return NewRepositoryWithDB(db)
}

func notification(broadcasterID, guildID string) *models.Notification {
	return &models.Notification{
		BroadcasterID: broadcasterID,
		GuildID:       guildID,
		TwitchLogin:   "somestreamer",
		TwitchName:    "SomeStreamer",
		TwitchLink:    "https://twitch.tv/somestreamer",
		ChannelID:     "chan-" + guildID,
	}
}

func TestAddNotificationRejectsDuplicate(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.AddNotification(notification("12345", "guild-1")))
	err := repo.AddNotification(notification("12345", "guild-1"))
	assert.Error(t, err, "same (broadcaster, guild) pair must be rejected")

	// Same broadcaster in another guild is a distinct configuration.
	require.NoError(t, repo.AddNotification(notification("12345", "guild-2")))
}

func TestAddNotificationInheritsLiveState(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.AddNotification(notification("12345", "guild-1")))

	claimed, err := repo.ClaimLive("12345")
	require.NoError(t, err)
	require.True(t, claimed)

	// A guild configured while the broadcaster is live starts out live too,
	// so the claim stays closed for the stream that was already announced.
	require.NoError(t, repo.AddNotification(notification("12345", "guild-2")))
	row, err := repo.GetNotification("12345", "guild-2")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.True(t, row.IsLive)

	claimed, err = repo.ClaimLive("12345")
	require.NoError(t, err)
	assert.False(t, claimed)

	// Once the broadcaster is offline, new rows start offline again.
	require.NoError(t, repo.ClearLive("12345"))
	require.NoError(t, repo.AddNotification(notification("12345", "guild-3")))
	row, err = repo.GetNotification("12345", "guild-3")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.False(t, row.IsLive)
}

func TestGetNotificationMissingIsNilNil(t *testing.T) {
	repo := newTestRepo(t)

	row, err := repo.GetNotification("12345", "guild-1")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestGetNotificationByLoginCaseInsensitive(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.AddNotification(notification("12345", "guild-1")))

	row, err := repo.GetNotificationByLogin("guild-1", "SomeStreamer")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "12345", row.BroadcasterID)

	row, err = repo.GetNotificationByLogin("guild-1", "nobody")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestDeleteNotification(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.AddNotification(notification("12345", "guild-1")))

	require.NoError(t, repo.DeleteNotification("12345", "guild-1"))
	err := repo.DeleteNotification("12345", "guild-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBroadcasterRefcount(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.AddNotification(notification("12345", "guild-1")))
	require.NoError(t, repo.AddNotification(notification("12345", "guild-2")))
	require.NoError(t, repo.AddNotification(notification("67890", "guild-1")))

	count, err := repo.CountNotificationsForBroadcaster("12345")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	require.NoError(t, repo.DeleteNotification("12345", "guild-1"))
	count, err = repo.CountNotificationsForBroadcaster("12345")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	ids, err := repo.DistinctBroadcasterIDs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"12345", "67890"}, ids)
}

func TestClaimLiveIsAtomicCheckAndSet(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.AddNotification(notification("12345", "guild-1")))
	require.NoError(t, repo.AddNotification(notification("12345", "guild-2")))

	claimed, err := repo.ClaimLive("12345")
	require.NoError(t, err)
	assert.True(t, claimed)

	// Second claim sees is_live already true and reports a duplicate.
	claimed, err = repo.ClaimLive("12345")
	require.NoError(t, err)
	assert.False(t, claimed)

	require.NoError(t, repo.ClearLive("12345"))
	claimed, err = repo.ClaimLive("12345")
	require.NoError(t, err)
	assert.True(t, claimed)

	// Clearing an already-offline broadcaster is a quiet no-op.
	require.NoError(t, repo.ClearLive("12345"))
	require.NoError(t, repo.ClearLive("12345"))

	// Claiming an unknown broadcaster never succeeds.
	claimed, err = repo.ClaimLive("00000")
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestDeleteAllNotificationsInGuild(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.AddNotification(notification("12345", "guild-1")))
	require.NoError(t, repo.AddNotification(notification("67890", "guild-1")))
	require.NoError(t, repo.AddNotification(notification("12345", "guild-2")))

	require.NoError(t, repo.DeleteAllNotificationsInGuild("guild-1"))

	count, err := repo.CountNotificationsForGuild("guild-1")
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = repo.CountNotificationsForBroadcaster("12345")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestBirthdayGuildUpsert(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.UpsertBirthdayGuild(&models.BirthdayGuild{GuildID: "guild-1", ChannelID: "chan-1"}))
	require.NoError(t, repo.UpsertBirthdayGuild(&models.BirthdayGuild{GuildID: "guild-1", ChannelID: "chan-2", RoleID: "role-1"}))

	cfg, err := repo.GetBirthdayGuild("guild-1")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "chan-2", cfg.ChannelID)
	assert.Equal(t, "role-1", cfg.RoleID)

	cfg, err = repo.GetBirthdayGuild("guild-2")
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestBirthdayLifecycle(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.AddBirthday(&models.BirthdayUser{
		GuildID:   "guild-1",
		UserID:    "user-1",
		Birthdate: "03-14",
		Timezone:  "Europe/Berlin",
	}))

	b, err := repo.GetBirthday("guild-1", "user-1")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "03-14", b.Birthdate)

	rows, err := repo.GetBirthdaysForGuild("guild-1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	require.NoError(t, repo.DeleteBirthday("guild-1", "user-1"))
	assert.ErrorIs(t, repo.DeleteBirthday("guild-1", "user-1"), ErrNotFound)
}

func TestUserTimezoneUpsert(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.UpsertUserTimezone(&models.UserTimezone{UserID: "user-1", Timezone: "America/Chicago"}))
	require.NoError(t, repo.UpsertUserTimezone(&models.UserTimezone{UserID: "user-1", Timezone: "Asia/Tokyo"}))

	tz, err := repo.GetUserTimezone("user-1")
	require.NoError(t, err)
	require.NotNil(t, tz)
	assert.Equal(t, "Asia/Tokyo", tz.Timezone)
}

func TestCreateReportPersistsAllFields(t *testing.T) {
	repo := newTestRepo(t)

	report := &models.Report{
		ID:      "9b2e6f0a-6c1d-4c29-9c5b-0d6f5a1e2b3c",
		GuildID: "guild-1",
		UserID:  "user-1",
		Kind:    "bug",
		Command: "/bug",
		Summary: "Announcements arrive twice",
		Detail:  "Happened after the bot restarted mid-stream.",
	}
	require.NoError(t, repo.CreateReport(report))
	assert.False(t, report.CreatedAt.IsZero())

	var stored models.Report
	require.NoError(t, repo.db.Where("id = ?", report.ID).First(&stored).Error)
	assert.Equal(t, "bug", stored.Kind)
	assert.Equal(t, "/bug", stored.Command)
	assert.Equal(t, "Announcements arrive twice", stored.Summary)
}

func TestUpdateAPIHealthBulkAccumulates(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.UpdateAPIHealthBulk("twitch_api", 10, 9))
	require.NoError(t, repo.UpdateAPIHealthBulk("twitch_api", 5, 5))
	// Zero deltas never touch the database.
	require.NoError(t, repo.UpdateAPIHealthBulk("twitch_api", 0, 0))

	var stat models.APIHealthStat
	require.NoError(t, repo.db.Where("service_name = ?", "twitch_api").First(&stat).Error)
	assert.EqualValues(t, 15, stat.TotalRequests)
	assert.EqualValues(t, 14, stat.SuccessfulRequests)
}
