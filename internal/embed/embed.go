// Package embed builds the Discord message embeds the bot sends.
package embed

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	liveColor     = 0x9146FF
	scheduleColor = 0x9146FF
	birthdayColor = 0xF1C40F
	aboutColor    = 0x9146FF

	thumbnailWidth  = "320"
	thumbnailHeight = "180"
)

// CreateLiveStreamEmbed builds the announcement for a broadcaster going
// live. The thumbnail URL arrives templated with {width}x{height}
// placeholders.
func CreateLiveStreamEmbed(name, login, title, gameName, thumbnailURL string, startedAt time.Time) *discordgo.MessageEmbed {
	if title == "" {
		title = "Untitled Stream"
	}
	if gameName == "" {
		gameName = "Unknown"
	}
	watchURL := "https://twitch.tv/" + login

	e := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("🔴 %s is LIVE", name),
		URL:   watchURL,
		Color: liveColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Title:", Value: title, Inline: false},
			{Name: "Game:", Value: gameName, Inline: false},
			{Name: "Watch Now:", Value: watchURL, Inline: false},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Stream started just now!",
		},
	}
	if !startedAt.IsZero() {
		e.Timestamp = startedAt.Format(time.RFC3339)
	}
	if thumbnailURL != "" {
		url := strings.ReplaceAll(thumbnailURL, "{width}", thumbnailWidth)
		url = strings.ReplaceAll(url, "{height}", thumbnailHeight)
		e.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: url}
	}
	return e
}

// ScheduleDay is one day's worth of planned streams, already rendered into
// lines in the viewer's timezone.
type ScheduleDay struct {
	Date  string
	Lines []string
}

// CreateScheduleEmbed builds the upcoming-streams embed. Times were
// converted before grouping, so the title names the timezone they are
// shown in.
func CreateScheduleEmbed(broadcasterName, timezone string, days []ScheduleDay) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("📅 %s's Schedule (times in %s)", broadcasterName, strings.ReplaceAll(timezone, "_", " ")),
		Color: scheduleColor,
	}
	for _, day := range days {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name:   day.Date,
			Value:  strings.Join(day.Lines, "\n"),
			Inline: false,
		})
	}
	if len(days) == 0 {
		e.Description = "No upcoming streams scheduled."
	}
	return e
}

// CreateBirthdayEmbed builds the daily birthday announcement, one mention
// per field.
func CreateBirthdayEmbed(mentions []string) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:     "🎂 Today is the following user(s) birthdays!",
		Color:     birthdayColor,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Happy Birthday!!!",
		},
	}
	for _, mention := range mentions {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name:   "​",
			Value:  mention,
			Inline: false,
		})
	}
	return e
}

// CreateAboutEmbed describes the bot and how to reach its maintainers.
func CreateAboutEmbed(version string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "About StreamHerald",
		Color: aboutColor,
		Description: "StreamHerald announces Twitch streams the moment they go live.\n" +
			"Additional features include:\n" +
			"• Birthday announcements in a configured channel\n" +
			"• Upcoming stream schedules shown in your own timezone",
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Feedback",
				Value:  "Found a bug or want a feature? Use `/bug` or `/feature` to send a report to the maintainers.",
				Inline: false,
			},
			{
				Name:   "Version",
				Value:  version,
				Inline: false,
			},
		},
	}
}
