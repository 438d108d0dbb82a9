package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	ModerationActionWarn = "WARN"
	ModerationActionBan  = "BAN"
)

// ModerationCase is one disciplinary record. Rows are append-only; the case
// id doubles as the reference shown in the mod-log channel.
type ModerationCase struct {
	bun.BaseModel `bun:"table:moderation_cases,alias:mc"`

	ID          int64  `bun:"id,pk,autoincrement"`
	UserID      string `bun:"user_id,notnull"`
	ModeratorID string `bun:"moderator_id,notnull"`
	Action      string `bun:"action,notnull"`
	Reason      string `bun:"reason"`
	// Count is the number of warnings issued in one case; zero for bans.
	Count     int       `bun:"count"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
