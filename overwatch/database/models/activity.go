package models

import (
	"github.com/uptrace/bun"
)

// DailyActivity accumulates per-user message and voice counters for one
// calendar date. Rows are upserted additively and never deleted.
type DailyActivity struct {
	bun.BaseModel `bun:"table:daily_activity,alias:da"`

	UserID       string `bun:"user_id,pk"`
	ActivityDate string `bun:"activity_date,pk"` // YYYY-MM-DD
	MessageCount int64  `bun:"message_count,notnull,default:0"`
	VoiceSeconds int64  `bun:"voice_seconds,notnull,default:0"`
}

// ActivityStats is the aggregate over a date range.
type ActivityStats struct {
	TotalMessages     int64
	TotalVoiceSeconds int64
}
