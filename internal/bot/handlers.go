package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/streamherald/streamherald-bot/internal/birthday"
	"github.com/streamherald/streamherald-bot/internal/config"
	"github.com/streamherald/streamherald-bot/internal/embed"
	"github.com/streamherald/streamherald-bot/internal/models"
	"github.com/streamherald/streamherald-bot/internal/notify"
	"github.com/streamherald/streamherald-bot/internal/twitch"
)

const interactionTimeout = 30 * time.Second

func (b *Bot) ready(s *discordgo.Session, event *discordgo.Ready) {
	log.Println("Bot is ready")
	b.registerCommands()
	b.updateBotStatus()
}

func (b *Bot) isBotOwner(i *discordgo.InteractionCreate) bool {
	if config.BotOwnerID == "" || i.Member == nil || i.Member.User == nil {
		return false
	}
	return i.Member.User.ID == config.BotOwnerID
}

func (b *Bot) interactionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		name := i.ApplicationCommandData().Name

		switch name {
		case "setlivenotifications", "removenotification", "alert", "setupbirthday":
			if !b.isBotOwner(i) && !b.hasAdminOrModPermissions(s, i) {
				b.respondToInteraction(s, i, "You do not have permission to use this command.", true)
				return
			}
		}

		switch name {
		case "setlivenotifications":
			b.handleSetLiveNotifications(s, i)
		case "removenotification":
			b.handleRemoveNotification(s, i)
		case "liststreamers":
			b.handleListStreamers(s, i)
		case "alert":
			b.handleAlert(s, i)
		case "status":
			b.handleStatus(s, i)
		case "schedule":
			b.handleSchedule(s, i)
		case "settimezone":
			b.handleSetTimezone(s, i)
		case "setupbirthday":
			b.handleSetupBirthday(s, i)
		case "setbirthday":
			b.handleSetBirthday(s, i)
		case "removebirthday":
			b.handleRemoveBirthday(s, i)
		case "listbirthdays":
			b.handleListBirthdays(s, i)
		case "bug":
			b.handleReportCommand(s, i, "bug")
		case "feature":
			b.handleReportCommand(s, i, "feature")
		case "about":
			b.handleAbout(s, i)
		}

	case discordgo.InteractionApplicationCommandAutocomplete:
		switch i.ApplicationCommandData().Name {
		case "settimezone", "setbirthday":
			b.handleTimezoneAutocomplete(s, i)
		case "removenotification", "alert":
			b.handleStreamerAutocomplete(s, i)
		}

	case discordgo.InteractionModalSubmit:
		if strings.HasPrefix(i.ModalSubmitData().CustomID, "report_modal_") {
			b.handleReportModalSubmit(s, i)
		}
	}
}

func (b *Bot) handleSetLiveNotifications(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := b.deferResponse(s, i); err != nil {
		return
	}

	options := i.ApplicationCommandData().Options
	login := normalizeLogin(options[0].StringValue())
	channel := options[1].ChannelValue(s)
	roleID := ""
	if len(options) > 2 {
		roleID = options[2].RoleValue(s, i.GuildID).ID
	}

	if channel == nil || (channel.Type != discordgo.ChannelTypeGuildText && channel.Type != discordgo.ChannelTypeGuildNews) {
		b.editInteractionResponse(s, i, "Announcements need a text channel.")
		return
	}

	if config.MaxStreamersPerGuild > 0 {
		count, err := b.Repo.CountNotificationsForGuild(i.GuildID)
		if err != nil {
			log.Printf("Error checking guild limit for guild %s: %v", i.GuildID, err)
			b.editInteractionResponse(s, i, "An error occurred while checking the server's limit. Please try again later.")
			return
		}
		if count >= int64(config.MaxStreamersPerGuild) {
			b.editInteractionResponse(s, i, fmt.Sprintf("This server already announces %d streamers, which is the limit.", config.MaxStreamersPerGuild))
			return
		}
	}

	existing, err := b.Repo.GetNotificationByLogin(i.GuildID, login)
	if err != nil {
		b.editInteractionResponse(s, i, fmt.Sprintf("Error checking existing configuration: %v", err))
		return
	}
	if existing != nil {
		b.editInteractionResponse(s, i, fmt.Sprintf("**%s** is already announced in this server (in <#%s>). Remove it first to change the channel or role.", existing.TwitchName, existing.ChannelID))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	user, err := b.Twitch.GetUserByLogin(ctx, login)
	if err != nil {
		log.Printf("Error resolving Twitch login %q: %v", login, err)
		b.editInteractionResponse(s, i, "Error talking to Twitch. Please try again later.")
		return
	}
	if user == nil {
		b.editInteractionResponse(s, i, fmt.Sprintf("No Twitch user named **%s** exists.", login))
		return
	}

	row := &models.Notification{
		BroadcasterID: user.ID,
		GuildID:       i.GuildID,
		TwitchLogin:   user.Login,
		TwitchName:    user.DisplayName,
		TwitchLink:    "https://twitch.tv/" + user.Login,
		ChannelID:     channel.ID,
		RoleID:        roleID,
	}
	if err := b.Repo.AddNotification(row); err != nil {
		log.Printf("Error saving notification for %s in guild %s: %v", user.Login, i.GuildID, err)
		b.editInteractionResponse(s, i, "Error saving the configuration. Please try again later.")
		return
	}

	// The row is saved even if subscribing fails; the next startup bootstrap
	// registers whatever is missing.
	if err := b.Subs.EnsureSubscribed(ctx, user.ID); err != nil {
		log.Printf("Error subscribing broadcaster %s: %v", user.ID, err)
		b.editInteractionResponse(s, i, fmt.Sprintf("Saved **%s**, but registering with Twitch failed. Announcements start after the next restart.", user.DisplayName))
		return
	}

	b.editInteractionResponse(s, i, fmt.Sprintf("Streams by **%s** will be announced in <#%s>.", user.DisplayName, channel.ID))
}

func (b *Bot) handleRemoveNotification(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := b.deferResponse(s, i); err != nil {
		return
	}

	login := normalizeLogin(i.ApplicationCommandData().Options[0].StringValue())

	row, err := b.Repo.GetNotificationByLogin(i.GuildID, login)
	if err != nil {
		b.editInteractionResponse(s, i, fmt.Sprintf("Error loading configuration: %v", err))
		return
	}
	if row == nil {
		b.editInteractionResponse(s, i, fmt.Sprintf("**%s** is not announced in this server.", login))
		return
	}

	if err := b.Repo.DeleteNotification(row.BroadcasterID, i.GuildID); err != nil {
		b.editInteractionResponse(s, i, fmt.Sprintf("Error removing **%s**: %v", row.TwitchName, err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()
	// Revokes the platform subscriptions only when no other guild still
	// references this broadcaster.
	if err := b.Subs.RemoveBroadcaster(ctx, row.BroadcasterID); err != nil {
		log.Printf("Error revoking subscriptions for broadcaster %s: %v", row.BroadcasterID, err)
	}

	b.editInteractionResponse(s, i, fmt.Sprintf("Streams by **%s** are no longer announced here.", row.TwitchName))
}

func (b *Bot) handleListStreamers(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := b.deferResponse(s, i); err != nil {
		return
	}

	rows, err := b.Repo.GetNotificationsForGuild(i.GuildID)
	if err != nil {
		b.editInteractionResponse(s, i, fmt.Sprintf("Error fetching streamers: %v", err))
		return
	}
	if len(rows) == 0 {
		b.editInteractionResponse(s, i, "No streamers are announced in this server yet. Use `/setlivenotifications` to add one.")
		return
	}

	sort.Slice(rows, func(a, b int) bool { return rows[a].TwitchLogin < rows[b].TwitchLogin })

	var lines []string
	for _, row := range rows {
		state := "offline"
		if row.IsLive {
			state = "🔴 live"
		}
		lines = append(lines, fmt.Sprintf("- **%s** (%s) → <#%s> | Role: %s", row.TwitchName, state, row.ChannelID, getRoleName(row.RoleID)))
	}
	b.editInteractionResponse(s, i, strings.Join(lines, "\n"))
}

func (b *Bot) handleAlert(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := b.deferResponse(s, i); err != nil {
		return
	}

	login := normalizeLogin(i.ApplicationCommandData().Options[0].StringValue())

	row, err := b.Repo.GetNotificationByLogin(i.GuildID, login)
	if err != nil {
		b.editInteractionResponse(s, i, fmt.Sprintf("Error loading configuration: %v", err))
		return
	}
	if row == nil {
		b.editInteractionResponse(s, i, fmt.Sprintf("**%s** is not announced in this server.", login))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	err = b.Reconciler.ManualAlert(ctx, row.BroadcasterID, i.GuildID)
	switch {
	case errors.Is(err, notify.ErrNotLive):
		b.editInteractionResponse(s, i, fmt.Sprintf("**%s** is not live right now.", row.TwitchName))
	case errors.Is(err, notify.ErrNotConfigured):
		b.editInteractionResponse(s, i, fmt.Sprintf("**%s** is not announced in this server.", login))
	case err != nil:
		log.Printf("Error sending manual alert for %s in guild %s: %v", row.TwitchLogin, i.GuildID, err)
		b.editInteractionResponse(s, i, "Error sending the announcement. Please try again later.")
	default:
		b.editInteractionResponse(s, i, fmt.Sprintf("Announcement for **%s** sent to <#%s>.", row.TwitchName, row.ChannelID))
	}
}

func (b *Bot) handleStatus(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := b.deferResponse(s, i); err != nil {
		return
	}

	login := normalizeLogin(i.ApplicationCommandData().Options[0].StringValue())

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	user, err := b.Twitch.GetUserByLogin(ctx, login)
	if err != nil {
		b.editInteractionResponse(s, i, "Error talking to Twitch. Please try again later.")
		return
	}
	if user == nil {
		b.editInteractionResponse(s, i, fmt.Sprintf("No Twitch user named **%s** exists.", login))
		return
	}

	stream, err := b.Twitch.GetStream(ctx, user.ID)
	if err != nil {
		b.editInteractionResponse(s, i, "Error talking to Twitch. Please try again later.")
		return
	}
	if stream == nil {
		b.editInteractionResponse(s, i, fmt.Sprintf("**%s** is offline.", user.DisplayName))
		return
	}

	e := embed.CreateLiveStreamEmbed(user.DisplayName, user.Login, stream.Title, stream.GameName, stream.ThumbnailURL, stream.StartedAt)
	b.editInteractionEmbed(s, i, e)
}

func (b *Bot) handleSchedule(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := b.deferResponse(s, i); err != nil {
		return
	}

	login := normalizeLogin(i.ApplicationCommandData().Options[0].StringValue())

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	user, err := b.Twitch.GetUserByLogin(ctx, login)
	if err != nil {
		b.editInteractionResponse(s, i, "Error talking to Twitch. Please try again later.")
		return
	}
	if user == nil {
		b.editInteractionResponse(s, i, fmt.Sprintf("No Twitch user named **%s** exists.", login))
		return
	}

	segments, err := b.Twitch.GetSchedule(ctx, user.ID, 5)
	if errors.Is(err, twitch.ErrScheduleNotFound) {
		b.editInteractionResponse(s, i, fmt.Sprintf("**%s** does not have a schedule.", user.DisplayName))
		return
	}
	if err != nil {
		log.Printf("Error fetching schedule for %s: %v", user.Login, err)
		b.editInteractionResponse(s, i, "Error fetching the schedule. Please try again later.")
		return
	}

	zoneName := "UTC"
	userID := interactionUserID(i)
	if tz, err := b.Repo.GetUserTimezone(userID); err == nil && tz != nil {
		zoneName = tz.Timezone
	}
	loc, err := time.LoadLocation(zoneName)
	if err != nil {
		loc = time.UTC
		zoneName = "UTC"
	}

	days := groupScheduleByDay(segments, loc)
	b.editInteractionEmbed(s, i, embed.CreateScheduleEmbed(user.DisplayName, zoneName, days))
}

func groupScheduleByDay(segments []twitch.ScheduleSegment, loc *time.Location) []embed.ScheduleDay {
	var days []embed.ScheduleDay
	index := map[string]int{}

	for _, seg := range segments {
		start := seg.StartTime.In(loc)
		end := seg.EndTime.In(loc)

		title := seg.Title
		if title == "" {
			title = "Untitled Stream"
		}
		category := "No Category"
		if seg.Category != nil {
			category = seg.Category.Name
		}
		recurrence := ""
		if seg.IsRecurring {
			recurrence = " (Recurring)"
		}

		line := fmt.Sprintf("**%s**\n\u2003Playing: %s\n\u2003From: %s → %s%s",
			title, category, start.Format("03:04 PM"), end.Format("03:04 PM"), recurrence)

		dateKey := start.Format("Monday, January 2")
		if pos, ok := index[dateKey]; ok {
			days[pos].Lines = append(days[pos].Lines, line)
			continue
		}
		index[dateKey] = len(days)
		days = append(days, embed.ScheduleDay{Date: dateKey, Lines: []string{line}})
	}
	return days
}

func (b *Bot) handleSetTimezone(s *discordgo.Session, i *discordgo.InteractionCreate) {
	zoneName := strings.TrimSpace(i.ApplicationCommandData().Options[0].StringValue())

	if _, err := time.LoadLocation(zoneName); err != nil {
		b.respondToInteraction(s, i, fmt.Sprintf("**%s** is not a valid timezone. Pick one from the suggestions.", zoneName), true)
		return
	}

	err := b.Repo.UpsertUserTimezone(&models.UserTimezone{
		UserID:   interactionUserID(i),
		Timezone: zoneName,
	})
	if err != nil {
		log.Printf("Error saving timezone: %v", err)
		b.respondToInteraction(s, i, "Error saving your timezone. Please try again later.", true)
		return
	}
	b.respondToInteraction(s, i, fmt.Sprintf("Your timezone has been updated to **%s**.", zoneName), true)
}

func (b *Bot) handleSetupBirthday(s *discordgo.Session, i *discordgo.InteractionCreate) {
	options := i.ApplicationCommandData().Options
	channel := options[0].ChannelValue(s)
	roleID := ""
	if len(options) > 1 {
		roleID = options[1].RoleValue(s, i.GuildID).ID
	}

	if channel == nil || channel.Type != discordgo.ChannelTypeGuildText {
		b.respondToInteraction(s, i, "Birthday announcements need a text channel.", true)
		return
	}

	err := b.Repo.UpsertBirthdayGuild(&models.BirthdayGuild{
		GuildID:   i.GuildID,
		ChannelID: channel.ID,
		RoleID:    roleID,
	})
	if err != nil {
		log.Printf("Error saving birthday setup for guild %s: %v", i.GuildID, err)
		b.respondToInteraction(s, i, "Error saving the birthday setup. Please try again later.", true)
		return
	}
	b.respondToInteraction(s, i, fmt.Sprintf("Birthday announcements will be posted in <#%s>.", channel.ID), false)
}

func (b *Bot) handleSetBirthday(s *discordgo.Session, i *discordgo.InteractionCreate) {
	options := i.ApplicationCommandData().Options
	rawDate := options[0].StringValue()
	zoneName := strings.TrimSpace(options[1].StringValue())

	date, err := birthday.Parse(rawDate)
	if err != nil {
		b.respondToInteraction(s, i, fmt.Sprintf("Could not understand **%s**. Try a format like `03-14` or `March 14th`.", rawDate), true)
		return
	}
	if _, err := time.LoadLocation(zoneName); err != nil {
		b.respondToInteraction(s, i, fmt.Sprintf("**%s** is not a valid timezone. Pick one from the suggestions.", zoneName), true)
		return
	}

	userID := interactionUserID(i)
	existing, err := b.Repo.GetBirthday(i.GuildID, userID)
	if err != nil {
		b.respondToInteraction(s, i, "Error checking your stored birthday. Please try again later.", true)
		return
	}
	if existing != nil {
		b.respondToInteraction(s, i, fmt.Sprintf("Your birthday is already stored as **%s**. Use `/removebirthday` first to change it.", birthday.Display(existing.Birthdate)), true)
		return
	}

	err = b.Repo.AddBirthday(&models.BirthdayUser{
		GuildID:   i.GuildID,
		UserID:    userID,
		Birthdate: date,
		Timezone:  zoneName,
	})
	if err != nil {
		log.Printf("Error saving birthday for user %s in guild %s: %v", userID, i.GuildID, err)
		b.respondToInteraction(s, i, "Error saving your birthday. Please try again later.", true)
		return
	}
	b.respondToInteraction(s, i, fmt.Sprintf("Your birthday is stored as **%s** (%s).", birthday.Display(date), zoneName), true)
}

func (b *Bot) handleRemoveBirthday(s *discordgo.Session, i *discordgo.InteractionCreate) {
	targetID := interactionUserID(i)
	if options := i.ApplicationCommandData().Options; len(options) > 0 {
		target := options[0].UserValue(s)
		if target != nil && target.ID != targetID {
			if !b.isBotOwner(i) && !b.hasAdminOrModPermissions(s, i) {
				b.respondToInteraction(s, i, "Only moderators can remove someone else's birthday.", true)
				return
			}
			targetID = target.ID
		}
	}

	err := b.Repo.DeleteBirthday(i.GuildID, targetID)
	if err != nil {
		b.respondToInteraction(s, i, "No stored birthday found for that user.", true)
		return
	}
	b.respondToInteraction(s, i, "Birthday removed.", true)
}

func (b *Bot) handleListBirthdays(s *discordgo.Session, i *discordgo.InteractionCreate) {
	rows, err := b.Repo.GetBirthdaysForGuild(i.GuildID)
	if err != nil {
		b.respondToInteraction(s, i, fmt.Sprintf("Error fetching birthdays: %v", err), true)
		return
	}
	if len(rows) == 0 {
		b.respondToInteraction(s, i, "No birthdays stored in this server yet. Use `/setbirthday` to add yours.", true)
		return
	}

	sort.Slice(rows, func(a, b int) bool { return rows[a].Birthdate < rows[b].Birthdate })

	var lines []string
	for _, row := range rows {
		lines = append(lines, fmt.Sprintf("- <@%s> — %s", row.UserID, birthday.Display(row.Birthdate)))
	}
	b.respondToInteraction(s, i, strings.Join(lines, "\n"), false)
}

func (b *Bot) handleReportCommand(s *discordgo.Session, i *discordgo.InteractionCreate, kind string) {
	title := "Report a bug"
	summaryLabel := "What went wrong?"
	detailLabel := "Steps to reproduce, expected vs. actual"
	if kind == "feature" {
		title = "Request a feature"
		summaryLabel = "What would you like the bot to do?"
		detailLabel = "Any details that help us build it"
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: "report_modal_" + kind,
			Title:    title,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:  "report_summary",
							Label:     summaryLabel,
							Style:     discordgo.TextInputShort,
							Required:  true,
							MaxLength: 200,
						},
					},
				},
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:  "report_detail",
							Label:     detailLabel,
							Style:     discordgo.TextInputParagraph,
							Required:  false,
							MaxLength: 2000,
						},
					},
				},
			},
		},
	})
	if err != nil {
		log.Printf("Error responding with report modal: %v", err)
	}
}

func (b *Bot) handleReportModalSubmit(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()
	kind := strings.TrimPrefix(data.CustomID, "report_modal_")
	if kind != "bug" && kind != "feature" {
		log.Printf("Received malformed report modal custom ID: %s", data.CustomID)
		return
	}

	summary := data.Components[0].(*discordgo.ActionsRow).Components[0].(*discordgo.TextInput).Value
	detail := ""
	if len(data.Components) > 1 {
		detail = data.Components[1].(*discordgo.ActionsRow).Components[0].(*discordgo.TextInput).Value
	}

	report := &models.Report{
		ID:      uuid.NewString(),
		GuildID: i.GuildID,
		UserID:  interactionUserID(i),
		Kind:    kind,
		Command: "/" + kind,
		Summary: summary,
		Detail:  detail,
	}
	if err := b.Repo.CreateReport(report); err != nil {
		log.Printf("Error saving %s report: %v", kind, err)
		b.respondToInteraction(s, i, "Error saving your report. Please try again later.", true)
		return
	}

	if config.ReportChannelID != "" {
		msg := fmt.Sprintf("New **%s** report `%s` from <@%s> in guild %s:\n**%s**", kind, report.ID, report.UserID, report.GuildID, summary)
		if detail != "" {
			msg += "\n" + detail
		}
		if _, err := s.ChannelMessageSend(config.ReportChannelID, msg); err != nil {
			log.Printf("Error forwarding report %s to report channel: %v", report.ID, err)
		}
	}

	b.respondToInteraction(s, i, fmt.Sprintf("Thanks! Your %s report was filed as `%s`.", kind, report.ID), true)
}

func (b *Bot) handleAbout(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.respondWithEmbed(s, i, embed.CreateAboutEmbed(version))
}

func (b *Bot) handleTimezoneAutocomplete(s *discordgo.Session, i *discordgo.InteractionCreate) {
	var typed string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "timezone" && opt.Focused {
			typed = opt.StringValue()
		}
	}

	var choices []*discordgo.ApplicationCommandOptionChoice
	for _, tz := range birthday.FilterTimezones(typed, 25) {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: tz, Value: tz})
	}
	b.respondWithChoices(s, i, choices)
}

func (b *Bot) handleStreamerAutocomplete(s *discordgo.Session, i *discordgo.InteractionCreate) {
	var typed string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "streamer" && opt.Focused {
			typed = strings.ToLower(opt.StringValue())
		}
	}

	rows, err := b.Repo.GetNotificationsForGuild(i.GuildID)
	if err != nil {
		log.Printf("Error loading streamers for autocomplete: %v", err)
		return
	}

	var choices []*discordgo.ApplicationCommandOptionChoice
	for _, row := range rows {
		if typed != "" && !strings.Contains(strings.ToLower(row.TwitchLogin), typed) {
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: row.TwitchName, Value: row.TwitchLogin})
		if len(choices) == 25 {
			break
		}
	}
	b.respondWithChoices(s, i, choices)
}

func (b *Bot) respondWithChoices(s *discordgo.Session, i *discordgo.InteractionCreate, choices []*discordgo.ApplicationCommandOptionChoice) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
	if err != nil {
		log.Printf("Error responding to autocomplete: %v", err)
	}
}

func (b *Bot) deferResponse(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		log.Printf("Error deferring interaction: %v", err)
	}
	return err
}

func (b *Bot) respondToInteraction(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
	if err != nil {
		log.Printf("Error responding to interaction: %v", err)
	}
}

func (b *Bot) respondWithEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, e *discordgo.MessageEmbed) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{e},
		},
	})
	if err != nil {
		log.Printf("Error responding with embed: %v", err)
	}
}

func (b *Bot) editInteractionResponse(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	})
	if err != nil {
		log.Printf("Error editing interaction response: %v", err)
	}
}

func (b *Bot) editInteractionEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, e *discordgo.MessageEmbed) {
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{e},
	})
	if err != nil {
		log.Printf("Error editing interaction response: %v", err)
	}
}

func (b *Bot) hasAdminOrModPermissions(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	if i.GuildID == "" || i.Member == nil {
		return false
	}

	if i.Member.Permissions&discordgo.PermissionAdministrator == discordgo.PermissionAdministrator {
		return true
	}
	if i.Member.Permissions&discordgo.PermissionManageGuild == discordgo.PermissionManageGuild {
		return true
	}

	guild, err := s.State.Guild(i.GuildID)
	if err == nil && i.Member.User != nil && guild.OwnerID == i.Member.User.ID {
		return true
	}

	return false
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func getRoleName(roleID string) string {
	if roleID == "" || roleID == "0" {
		return "None"
	}
	return fmt.Sprintf("<@&%s>", roleID)
}

func normalizeLogin(input string) string {
	s := strings.TrimSpace(strings.ToLower(input))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	s = strings.TrimPrefix(s, "twitch.tv/")
	s = strings.TrimPrefix(s, "@")
	if idx := strings.IndexByte(s, '/'); idx >= 0 {
		s = s[:idx]
	}
	return s
}
