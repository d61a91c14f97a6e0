package bot

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/streamherald/streamherald-bot/internal/birthday"
	"github.com/streamherald/streamherald-bot/internal/config"
	"github.com/streamherald/streamherald-bot/internal/database"
	"github.com/streamherald/streamherald-bot/internal/embed"
	"github.com/streamherald/streamherald-bot/internal/models"
	"github.com/streamherald/streamherald-bot/internal/notify"
	"github.com/streamherald/streamherald-bot/internal/twitch"
)

const version = "1.2.0"

type Bot struct {
	Session    *discordgo.Session
	Repo       *database.Repository
	Twitch     *twitch.Client
	Subs       *twitch.SubscriptionManager
	Reconciler *notify.Reconciler

	stop chan struct{}
}

func New(repo *database.Repository, twitchClient *twitch.Client, subs *twitch.SubscriptionManager) (*Bot, error) {
	discord, err := discordgo.New("Bot " + config.DiscordToken)
	if err != nil {
		return nil, err
	}

	bot := &Bot{
		Session: discord,
		Repo:    repo,
		Twitch:  twitchClient,
		Subs:    subs,
		stop:    make(chan struct{}),
	}
	// The bot is the reconciler's sink: announcements land in guild channels
	// through the gateway session.
	bot.Reconciler = notify.NewReconciler(repo, twitchClient, bot)

	bot.registerHandlers()

	return bot, nil
}

func (b *Bot) Start() error {
	if err := b.Session.Open(); err != nil {
		return err
	}

	go b.updateStatusPeriodically()
	go b.heartbeat()
	go b.birthdayLoop()

	return nil
}

func (b *Bot) Stop() {
	close(b.stop)
	b.Session.Close()
}

func (b *Bot) registerHandlers() {
	b.Session.AddHandler(b.ready)
	b.Session.AddHandler(b.interactionCreate)
	b.Session.AddHandler(b.guildCreate)
	b.Session.AddHandler(b.guildDelete)
}

func (b *Bot) guildCreate(s *discordgo.Session, event *discordgo.GuildCreate) {
	log.Printf("Bot joined a new server: %s", event.Guild.Name)
	b.logToChannel(fmt.Sprintf("Joined **%s** (%s), now in %d servers.", event.Guild.Name, event.Guild.ID, len(b.Session.State.Guilds)))
	b.updateBotStatus()
}

// logToChannel mirrors noteworthy lifecycle events into the configured log
// channel, when one is set.
func (b *Bot) logToChannel(message string) {
	if config.LogChannelID == "" {
		return
	}
	if _, err := b.Session.ChannelMessageSend(config.LogChannelID, message); err != nil {
		log.Printf("Error writing to log channel: %v", err)
	}
}

func (b *Bot) guildDelete(s *discordgo.Session, event *discordgo.GuildDelete) {
	if !event.Unavailable {
		log.Printf("Bot removed from guild: %s. Cleaning up associated data.", event.ID)

		rows, err := b.Repo.GetNotificationsForGuild(event.ID)
		if err != nil {
			log.Printf("Error loading notifications for guild %s: %v", event.ID, err)
		}
		if err := b.Repo.DeleteAllNotificationsInGuild(event.ID); err != nil {
			log.Printf("Error deleting notifications for guild %s: %v", event.ID, err)
		}
		// With the rows gone, broadcasters no longer referenced by any guild
		// can have their platform subscriptions revoked.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, row := range rows {
			if err := b.Subs.RemoveBroadcaster(ctx, row.BroadcasterID); err != nil {
				log.Printf("Error revoking subscriptions for broadcaster %s: %v", row.BroadcasterID, err)
			}
		}
		b.logToChannel(fmt.Sprintf("Removed from guild %s, cleaned up %d configuration(s).", event.ID, len(rows)))
	} else {
		log.Printf("Guild %s became unavailable.", event.ID)
	}

	b.updateBotStatus()
}

// SendLiveAnnouncement delivers one reconciler announcement to its guild
// channel. A channel that no longer exists is skipped without error so one
// stale row cannot disturb the fan-out to other guilds.
func (b *Bot) SendLiveAnnouncement(ctx context.Context, a notify.Announcement) error {
	if _, err := b.Session.Channel(a.ChannelID); err != nil {
		log.Printf("Channel %s no longer exists, skipping announcement for %s", a.ChannelID, a.BroadcasterLogin)
		return nil
	}

	content := a.WatchURL
	if a.RoleID != "" {
		content = fmt.Sprintf("<@&%s> %s", a.RoleID, a.WatchURL)
	}

	_, err := b.Session.ChannelMessageSendComplex(a.ChannelID, &discordgo.MessageSend{
		Content: content,
		Embed:   embed.CreateLiveStreamEmbed(a.BroadcasterName, a.BroadcasterLogin, a.Title, a.GameName, a.ThumbnailURL, a.StartedAt),
	})
	return err
}

func (b *Bot) heartbeat() {
	ticker := time.NewTicker(2 * time.Minute)
	defer ticker.Stop()

	for {
		status := &models.ServiceStatus{
			ServiceName:   "discord_bot",
			Status:        "operational",
			LastHeartbeat: time.Now(),
		}
		if err := b.Repo.UpsertServiceStatus(status); err != nil {
			log.Printf("Error sending heartbeat: %v", err)
		}

		select {
		case <-ticker.C:
		case <-b.stop:
			return
		}
	}
}

// birthdayLoop wakes hourly and announces birthdays for members whose local
// clock just entered their birthday. The hourly cadence plus the
// midnight-hour check means each member matches once per birthday.
func (b *Bot) birthdayLoop() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.announceBirthdays(time.Now())
		case <-b.stop:
			return
		}
	}
}

func (b *Bot) announceBirthdays(now time.Time) {
	all, err := b.Repo.GetAllBirthdays()
	if err != nil {
		log.Printf("Error loading birthdays: %v", err)
		return
	}

	due := make(map[string][]string)
	for _, row := range all {
		if birthday.IsAnnouncementDue(row.Birthdate, row.Timezone, now) {
			due[row.GuildID] = append(due[row.GuildID], row.UserID)
		}
	}

	for guildID, userIDs := range due {
		cfg, err := b.Repo.GetBirthdayGuild(guildID)
		if err != nil || cfg == nil {
			continue
		}
		if _, err := b.Session.Channel(cfg.ChannelID); err != nil {
			log.Printf("Birthday channel %s in guild %s no longer exists, skipping", cfg.ChannelID, guildID)
			continue
		}

		var mentions []string
		for _, userID := range userIDs {
			mentions = append(mentions, fmt.Sprintf("<@%s>", userID))
		}

		content := ""
		if cfg.RoleID != "" {
			content = fmt.Sprintf("<@&%s>", cfg.RoleID)
		}
		_, err = b.Session.ChannelMessageSendComplex(cfg.ChannelID, &discordgo.MessageSend{
			Content: content,
			Embed:   embed.CreateBirthdayEmbed(mentions),
		})
		if err != nil {
			log.Printf("Error sending birthday announcement in guild %s: %v", guildID, err)
		}
	}
}

func (b *Bot) updateStatusPeriodically() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.updateBotStatus()
		case <-b.stop:
			return
		}
	}
}

func (b *Bot) updateBotStatus() {
	serverCount := len(b.Session.State.Guilds)
	status := fmt.Sprintf("Watching %d servers", serverCount)
	err := b.Session.UpdateStatusComplex(discordgo.UpdateStatusData{
		Activities: []*discordgo.Activity{
			{
				Name: status,
				Type: discordgo.ActivityTypeWatching,
			},
		},
	})
	if err != nil {
		log.Printf("Error updating status: %v", err)
	}
}
