package database

import (
	"errors"
	"strings"
	"time"

	"github.com/streamherald/streamherald-bot/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned by mutating operations that matched no rows.
var ErrNotFound = errors.New("record not found")

// Repository handles database operations for notifications, birthdays and
// ancillary tables.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a repository over the process-wide connection.
func NewRepository() *Repository {
	return &Repository{db: DB}
}

// NewRepositoryWithDB creates a repository over an explicit gorm handle.
// Used by tests to run against an isolated in-memory database.
func NewRepositoryWithDB(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// --- Notifications ---

// GetNotificationsForBroadcaster returns all guild configurations for one
// broadcaster. Fan-out iterates over this.
func (r *Repository) GetNotificationsForBroadcaster(broadcasterID string) ([]models.Notification, error) {
	var rows []models.Notification
	err := WithRetry(func() error {
		return r.db.Where("broadcaster_id = ?", broadcasterID).Find(&rows).Error
	})
	return rows, err
}

// GetNotificationsForGuild returns all configured broadcasters in a guild.
func (r *Repository) GetNotificationsForGuild(guildID string) ([]models.Notification, error) {
	var rows []models.Notification
	err := WithRetry(func() error {
		return r.db.Where("guild_id = ?", guildID).Find(&rows).Error
	})
	return rows, err
}

// GetNotification returns one configuration, or (nil, nil) when no row
// exists, which is not an error.
func (r *Repository) GetNotification(broadcasterID, guildID string) (*models.Notification, error) {
	var row models.Notification
	err := WithRetry(func() error {
		result := r.db.Where("broadcaster_id = ? AND guild_id = ?", broadcasterID, guildID).First(&row)
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil
		}
		return result.Error
	})
	if err != nil || row.BroadcasterID == "" {
		return nil, err
	}
	return &row, nil
}

// GetNotificationByLogin looks a configuration up by the broadcaster's login
// name instead of their id. Returns (nil, nil) when no row exists.
func (r *Repository) GetNotificationByLogin(guildID, login string) (*models.Notification, error) {
	login = strings.ToLower(login)
	var row models.Notification
	err := WithRetry(func() error {
		result := r.db.Where("guild_id = ? AND LOWER(twitch_login) = ?", guildID, login).First(&row)
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil
		}
		return result.Error
	})
	if err != nil || row.BroadcasterID == "" {
		return nil, err
	}
	return &row, nil
}

// AddNotification persists a new configuration. The (broadcaster, guild)
// primary key rejects duplicates at the database level. A new row inherits
// the broadcaster's current live state, so a guild configured mid-stream
// does not reopen the claim for an event that was already announced.
func (r *Repository) AddNotification(n *models.Notification) error {
	return WithRetry(func() error {
		var live int64
		err := r.db.Model(&models.Notification{}).
			Where("broadcaster_id = ? AND is_live = ?", n.BroadcasterID, true).
			Count(&live).Error
		if err != nil {
			return err
		}
		n.IsLive = live > 0
		return r.db.Create(n).Error
	})
}

// DeleteNotification removes one configuration.
func (r *Repository) DeleteNotification(broadcasterID, guildID string) error {
	return WithRetry(func() error {
		result := r.db.Delete(&models.Notification{}, "broadcaster_id = ? AND guild_id = ?", broadcasterID, guildID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// CountNotificationsForBroadcaster is the reference count deciding whether
// platform subscriptions for a broadcaster may be revoked.
func (r *Repository) CountNotificationsForBroadcaster(broadcasterID string) (int64, error) {
	var count int64
	err := WithRetry(func() error {
		return r.db.Model(&models.Notification{}).Where("broadcaster_id = ?", broadcasterID).Count(&count).Error
	})
	return count, err
}

func (r *Repository) CountNotificationsForGuild(guildID string) (int64, error) {
	var count int64
	err := WithRetry(func() error {
		return r.db.Model(&models.Notification{}).Where("guild_id = ?", guildID).Count(&count).Error
	})
	return count, err
}

// DistinctBroadcasterIDs returns each configured broadcaster once, across all
// guilds. Subscription bootstrap iterates over this.
func (r *Repository) DistinctBroadcasterIDs() ([]string, error) {
	var ids []string
	err := WithRetry(func() error {
		return r.db.Model(&models.Notification{}).Distinct("broadcaster_id").Pluck("broadcaster_id", &ids).Error
	})
	return ids, err
}

// ClaimLive atomically flips is_live from false to true for a broadcaster.
// It reports whether this call performed the transition; a false return means
// the broadcaster was already marked live and the event is a duplicate.
func (r *Repository) ClaimLive(broadcasterID string) (bool, error) {
	var claimed bool
	err := WithRetry(func() error {
		result := r.db.Model(&models.Notification{}).
			Where("broadcaster_id = ? AND is_live = ?", broadcasterID, false).
			Update("is_live", true)
		if result.Error != nil {
			return result.Error
		}
		claimed = result.RowsAffected > 0
		return nil
	})
	return claimed, err
}

// ClearLive marks a broadcaster offline across all guilds. Clearing an
// already-offline broadcaster is a no-op, not an error.
func (r *Repository) ClearLive(broadcasterID string) error {
	return WithRetry(func() error {
		return r.db.Model(&models.Notification{}).
			Where("broadcaster_id = ?", broadcasterID).
			Update("is_live", false).Error
	})
}

// DeleteAllNotificationsInGuild removes every configuration for a guild,
// used when the bot is removed from it.
func (r *Repository) DeleteAllNotificationsInGuild(guildID string) error {
	return WithRetry(func() error {
		return r.db.Delete(&models.Notification{}, "guild_id = ?", guildID).Error
	})
}

// --- Birthdays ---

func (r *Repository) UpsertBirthdayGuild(cfg *models.BirthdayGuild) error {
	return WithRetry(func() error {
		return r.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "guild_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"channel_id", "role_id"}),
		}).Create(cfg).Error
	})
}

// GetBirthdayGuild returns (nil, nil) when the guild has no birthday setup.
func (r *Repository) GetBirthdayGuild(guildID string) (*models.BirthdayGuild, error) {
	var cfg models.BirthdayGuild
	err := WithRetry(func() error {
		result := r.db.Where("guild_id = ?", guildID).First(&cfg)
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil
		}
		return result.Error
	})
	if err != nil || cfg.GuildID == "" {
		return nil, err
	}
	return &cfg, nil
}

func (r *Repository) AddBirthday(b *models.BirthdayUser) error {
	return WithRetry(func() error {
		return r.db.Create(b).Error
	})
}

// GetBirthday returns (nil, nil) when the member has no stored birthday.
func (r *Repository) GetBirthday(guildID, userID string) (*models.BirthdayUser, error) {
	var b models.BirthdayUser
	err := WithRetry(func() error {
		result := r.db.Where("guild_id = ? AND user_id = ?", guildID, userID).First(&b)
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil
		}
		return result.Error
	})
	if err != nil || b.GuildID == "" {
		return nil, err
	}
	return &b, nil
}

func (r *Repository) DeleteBirthday(guildID, userID string) error {
	return WithRetry(func() error {
		result := r.db.Delete(&models.BirthdayUser{}, "guild_id = ? AND user_id = ?", guildID, userID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *Repository) GetBirthdaysForGuild(guildID string) ([]models.BirthdayUser, error) {
	var rows []models.BirthdayUser
	err := WithRetry(func() error {
		return r.db.Where("guild_id = ?", guildID).Find(&rows).Error
	})
	return rows, err
}

func (r *Repository) GetAllBirthdays() ([]models.BirthdayUser, error) {
	var rows []models.BirthdayUser
	err := WithRetry(func() error {
		return r.db.Find(&rows).Error
	})
	return rows, err
}

// --- Timezones ---

func (r *Repository) UpsertUserTimezone(tz *models.UserTimezone) error {
	return WithRetry(func() error {
		return r.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"timezone"}),
		}).Create(tz).Error
	})
}

// GetUserTimezone returns (nil, nil) when the user never set one.
func (r *Repository) GetUserTimezone(userID string) (*models.UserTimezone, error) {
	var tz models.UserTimezone
	err := WithRetry(func() error {
		result := r.db.Where("user_id = ?", userID).First(&tz)
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil
		}
		return result.Error
	})
	if err != nil || tz.UserID == "" {
		return nil, err
	}
	return &tz, nil
}

// --- Service status and API health ---

func (r *Repository) UpsertServiceStatus(status *models.ServiceStatus) error {
	return WithRetry(func() error {
		return r.db.Save(status).Error
	})
}

// UpdateAPIHealthBulk adds aggregated counters to a service's health row,
// creating the row on first use.
func (r *Repository) UpdateAPIHealthBulk(serviceName string, totalToAdd, successfulToAdd uint64) error {
	if totalToAdd == 0 && successfulToAdd == 0 {
		return nil
	}

	return WithRetry(func() error {
		result := r.db.Model(&models.APIHealthStat{}).
			Where("service_name = ?", serviceName).
			Updates(map[string]any{
				"total_requests":      gorm.Expr("total_requests + ?", totalToAdd),
				"successful_requests": gorm.Expr("successful_requests + ?", successfulToAdd),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return r.db.Create(&models.APIHealthStat{
				ServiceName:        serviceName,
				TotalRequests:      totalToAdd,
				SuccessfulRequests: successfulToAdd,
			}).Error
		}
		return nil
	})
}

// --- Reports ---

func (r *Repository) CreateReport(report *models.Report) error {
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}
	return WithRetry(func() error {
		return r.db.Create(report).Error
	})
}
