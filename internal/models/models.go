package models

import (
	"time"
)

// Notification is one live-notification configuration for a broadcaster in a
// guild. The same broadcaster can be configured independently per guild, each
// row tracking its own delivery target and is_live flag.
type Notification struct {
	BroadcasterID string `gorm:"primaryKey;column:broadcaster_id"`
	GuildID       string `gorm:"primaryKey;column:guild_id"`
	TwitchLogin   string `gorm:"column:twitch_login"`
	TwitchName    string `gorm:"column:twitch_name"`
	TwitchLink    string `gorm:"column:twitch_link"`
	ChannelID     string `gorm:"column:channel_id"`
	RoleID        string `gorm:"column:role_id"`
	IsLive        bool   `gorm:"column:is_live"`
}

func (Notification) TableName() string {
	return "notification"
}

// BirthdayGuild is the per-guild birthday announcement target.
type BirthdayGuild struct {
	GuildID   string `gorm:"primaryKey;column:guild_id"`
	ChannelID string `gorm:"column:channel_id"`
	RoleID    string `gorm:"column:role_id"`
}

func (BirthdayGuild) TableName() string {
	return "birthday_guild"
}

// BirthdayUser stores a member's birthday as "MM-DD" plus their timezone so
// the announcement fires at their local midnight.
type BirthdayUser struct {
	GuildID     string    `gorm:"primaryKey;column:guild_id"`
	UserID      string    `gorm:"primaryKey;column:user_id"`
	Birthdate   string    `gorm:"column:birthdate"`
	Timezone    string    `gorm:"column:timezone"`
	LastUpdated time.Time `gorm:"column:last_updated;autoUpdateTime"`
}

func (BirthdayUser) TableName() string {
	return "birthday_user"
}

type UserTimezone struct {
	UserID   string `gorm:"primaryKey;column:user_id"`
	Timezone string `gorm:"column:timezone"`
}

func (UserTimezone) TableName() string {
	return "user_timezone"
}

type ServiceStatus struct {
	ServiceName   string    `gorm:"primaryKey;column:service_name"`
	Status        string    `gorm:"column:status"`
	LastHeartbeat time.Time `gorm:"column:last_heartbeat"`
	Details       string    `gorm:"column:details"`
}

func (ServiceStatus) TableName() string {
	return "service_status"
}

// APIHealthStat tracks aggregate success rates of an external API.
type APIHealthStat struct {
	ServiceName        string `gorm:"primaryKey;column:service_name"`
	TotalRequests      uint64 `gorm:"column:total_requests"`
	SuccessfulRequests uint64 `gorm:"column:successful_requests"`
}

func (APIHealthStat) TableName() string {
	return "api_health_stats"
}

// Report is a bug report or feature request filed from a guild.
type Report struct {
	ID        string    `gorm:"primaryKey;column:id"`
	GuildID   string    `gorm:"column:guild_id"`
	UserID    string    `gorm:"column:user_id"`
	Kind      string    `gorm:"column:kind"` // "bug" or "feature"
	Command   string    `gorm:"column:command"`
	Summary   string    `gorm:"column:summary"`
	Detail    string    `gorm:"column:detail"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Report) TableName() string {
	return "reports"
}
