// Package commands contains the slash command definitions and their handlers.
// Handlers stay thin: validation and rendering here, domain work in the
// economy, shop and autovc packages.
package commands

import "github.com/disgoorg/disgo/discord"

var Commands = []discord.ApplicationCommandCreate{
	Balance,
	Inventory,
	Transfer,
	Ranking,
	Activity,
	Labor,
	Ladder,
	Slots,
	Shop,
	ShopAdmin,
	Grant,
	ResetBalances,
	AutoVCAdmin,
	VoiceChannel,
	Warn,
	Ban,
	UserInfo,
	Birthday,
	Version,
}

func intPtr(v int) *int {
	return &v
}
