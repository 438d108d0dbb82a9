package models

import (
	"time"

	"github.com/uptrace/bun"
)

// AutoVCGenerator is an admin-configured trigger: joining the generator
// channel spawns a numbered child channel in the target category.
type AutoVCGenerator struct {
	bun.BaseModel `bun:"table:auto_vc_generators,alias:gen"`

	GeneratorChannelID int64  `bun:"generator_channel_id,pk"`
	CategoryID         int64  `bun:"category_id,notnull"`
	BaseName           string `bun:"base_name,notnull"`
	GuildID            int64  `bun:"guild_id,notnull"`
}

// ManagedVoiceChannel tracks a generated channel until it empties out. A row
// exists iff the channel is believed alive and not yet cleaned up; the
// in-memory id cache is reconciled against this table.
type ManagedVoiceChannel struct {
	bun.BaseModel `bun:"table:managed_voice_channels,alias:mvc"`

	ChannelID   int64     `bun:"channel_id,pk"`
	OwnerID     int64     `bun:"owner_id,notnull"`
	GuildID     int64     `bun:"guild_id,notnull"`
	GeneratorID int64     `bun:"generator_channel_id,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
