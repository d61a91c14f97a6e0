package bot

import (
	"log"

	"github.com/bwmarrin/discordgo"
)

func (b *Bot) registerCommands() {
	manageGuild := int64(discordgo.PermissionManageServer)

	commands := []*discordgo.ApplicationCommand{
		{
			Name:                     "setlivenotifications",
			Description:              "Announce a Twitch streamer's streams in a channel",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "streamer",
					Description: "Twitch login name",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Channel to announce in",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        "role",
					Description: "Role to mention (optional)",
					Required:    false,
				},
			},
		},
		{
			Name:                     "removenotification",
			Description:              "Stop announcing a streamer in this server",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionString,
					Name:         "streamer",
					Description:  "Twitch login name",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		{
			Name:        "liststreamers",
			Description: "List the streamers announced in this server",
		},
		{
			Name:                     "alert",
			Description:              "Re-send the live announcement for a streamer who is live now",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionString,
					Name:         "streamer",
					Description:  "Twitch login name",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		{
			Name:        "status",
			Description: "Show whether a streamer is live right now",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "streamer",
					Description: "Twitch login name",
					Required:    true,
				},
			},
		},
		{
			Name:        "schedule",
			Description: "Show a streamer's next scheduled streams in your timezone",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "streamer",
					Description: "Twitch login name",
					Required:    true,
				},
			},
		},
		{
			Name:        "settimezone",
			Description: "Set your local timezone (used by /schedule)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionString,
					Name:         "timezone",
					Description:  "IANA zone name, e.g. America/Chicago",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		{
			Name:                     "setupbirthday",
			Description:              "Choose where birthday announcements are posted",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Channel for birthday announcements",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        "role",
					Description: "Role to mention (optional)",
					Required:    false,
				},
			},
		},
		{
			Name:        "setbirthday",
			Description: "Store your birthday for the daily announcement",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "date",
					Description: "Your birthday, e.g. 03-14 or March 14th",
					Required:    true,
				},
				{
					Type:         discordgo.ApplicationCommandOptionString,
					Name:         "timezone",
					Description:  "Your timezone, so the announcement lands at your midnight",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		{
			Name:        "removebirthday",
			Description: "Remove a stored birthday",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Whose birthday to remove (defaults to yours)",
					Required:    false,
				},
			},
		},
		{
			Name:        "listbirthdays",
			Description: "List the birthdays stored in this server",
		},
		{
			Name:        "bug",
			Description: "Report a bug to the maintainers",
		},
		{
			Name:        "feature",
			Description: "Request a feature from the maintainers",
		},
		{
			Name:        "about",
			Description: "About this bot",
		},
	}

	_, err := b.Session.ApplicationCommandBulkOverwrite(b.Session.State.User.ID, "", commands)
	if err != nil {
		log.Printf("Error registering commands: %v", err)
	}
}
