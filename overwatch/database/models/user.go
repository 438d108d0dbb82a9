package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User is the ledger row for a guild member. Rows are created lazily on first
// interaction and never deleted. Balance is mutated only through atomic
// adjust-by-delta statements so concurrent handlers cannot lose updates.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID          int64  `bun:"id,pk,autoincrement"`
	DiscordID   string `bun:"discord_id,notnull,unique"`
	DisplayName string `bun:"display_name,notnull"`
	Balance     int64  `bun:"balance,notnull,default:0"`

	// MM-DD, empty when unset
	Birthday string `bun:"birthday"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
