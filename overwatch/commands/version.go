package commands

import (
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/overwatchkr/overwatch-bot/overwatch"
	"github.com/overwatchkr/overwatch-bot/overwatch/utils"
)

var Version = discord.SlashCommandCreate{
	Name:        "version",
	Description: "Shows the bot version",
}

func VersionHandler(b *overwatch.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       "Overwatch Bot",
				Description: fmt.Sprintf("Version: `%s`\nCommit: `%s`", b.Version, b.Commit),
				Color:       utils.InfoColor,
			}},
			Flags: discord.MessageFlagEphemeral,
		})
	}
}
