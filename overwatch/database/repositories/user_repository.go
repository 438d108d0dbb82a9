package repositories

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/overwatchkr/overwatch-bot/overwatch/database/models"
	"github.com/uptrace/bun"
)

const (
	// messageReward is credited for every counted guild message.
	messageReward = 2
	// voiceHourReward is credited for each full hour of voice activity
	// completed within one calendar day.
	voiceHourReward = 600
)

type UserRepository interface {
	// GetOrCreate upserts the account row and refreshes the display name.
	// Balance defaults to 0 on first sight; rows are never deleted.
	GetOrCreate(ctx context.Context, discordID, displayName string) (*models.User, error)
	GetByDiscordID(ctx context.Context, discordID string) (*models.User, error)

	// AdjustBalance applies delta in a single atomic statement and returns
	// the new balance. Unknown users are vivified at zero before the delta
	// is applied, so a race with GetOrCreate cannot fail the adjustment.
	AdjustBalance(ctx context.Context, discordID string, delta int64) (int64, error)

	// Leaderboard orders by balance descending; equal balances keep
	// first-seen order so repeated calls are stable.
	Leaderboard(ctx context.Context, limit int) ([]*models.User, error)

	SetBirthday(ctx context.Context, discordID, monthDay string) error
	ResetAllBalances(ctx context.Context) error

	LogMessageActivity(ctx context.Context, discordID string) error
	LogVoiceActivity(ctx context.Context, discordID string, seconds int64) error
	ActivityStats(ctx context.Context, discordID, fromDate, toDate string) (*models.ActivityStats, error)
}

type userRepository struct {
	db *bun.DB
}

func NewUserRepository(db *bun.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetOrCreate(ctx context.Context, discordID, displayName string) (*models.User, error) {
	now := time.Now()
	user := &models.User{
		DiscordID:   discordID,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := r.db.NewInsert().
		Model(user).
		On("CONFLICT (discord_id) DO UPDATE").
		Set("display_name = EXCLUDED.display_name").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		slog.Error("Failed to upsert user",
			slog.String("type", "db"),
			slog.String("discord_id", discordID),
			slog.Any("error", err))
		return nil, err
	}
	return user, nil
}

func (r *userRepository) GetByDiscordID(ctx context.Context, discordID string) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Where("discord_id = ?", discordID).
		Scan(ctx)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("Database error when getting user",
				slog.String("type", "db"),
				slog.String("discord_id", discordID),
				slog.Any("error", err))
		}
		return nil, err
	}
	return user, nil
}

func (r *userRepository) AdjustBalance(ctx context.Context, discordID string, delta int64) (int64, error) {
	// Single statement read-modify-write: the row-level increment is the
	// serialization point, so concurrent deltas always sum.
	var balance int64
	err := r.db.NewRaw(`
		INSERT INTO users (discord_id, display_name, balance, created_at, updated_at)
		VALUES (?, '', ?, now(), now())
		ON CONFLICT (discord_id)
		DO UPDATE SET balance = users.balance + EXCLUDED.balance, updated_at = now()
		RETURNING balance`, discordID, delta).
		Scan(ctx, &balance)
	if err != nil {
		slog.Error("Failed to adjust balance",
			slog.String("type", "db"),
			slog.String("discord_id", discordID),
			slog.Int64("delta", delta),
			slog.Any("error", err))
		return 0, err
	}
	return balance, nil
}

func (r *userRepository) Leaderboard(ctx context.Context, limit int) ([]*models.User, error) {
	var users []*models.User
	err := r.db.NewSelect().
		Model(&users).
		OrderExpr("balance DESC, id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) SetBirthday(ctx context.Context, discordID, monthDay string) error {
	_, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("birthday = ?", monthDay).
		Set("updated_at = now()").
		Where("discord_id = ?", discordID).
		Exec(ctx)
	return err
}

func (r *userRepository) ResetAllBalances(ctx context.Context) error {
	_, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("balance = 0").
		Set("updated_at = now()").
		Where("TRUE").
		Exec(ctx)
	return err
}

func (r *userRepository) LogMessageActivity(ctx context.Context, discordID string) error {
	today := time.Now().Format("2006-01-02")
	_, err := r.db.NewRaw(`
		INSERT INTO daily_activity (user_id, activity_date, message_count, voice_seconds)
		VALUES (?, ?, 1, 0)
		ON CONFLICT (user_id, activity_date)
		DO UPDATE SET message_count = daily_activity.message_count + 1`, discordID, today).
		Exec(ctx)
	if err != nil {
		return err
	}
	_, err = r.AdjustBalance(ctx, discordID, messageReward)
	return err
}

func (r *userRepository) LogVoiceActivity(ctx context.Context, discordID string, seconds int64) error {
	if seconds <= 0 {
		return nil
	}
	today := time.Now().Format("2006-01-02")

	var total int64
	err := r.db.NewRaw(`
		INSERT INTO daily_activity (user_id, activity_date, message_count, voice_seconds)
		VALUES (?, ?, 0, ?)
		ON CONFLICT (user_id, activity_date)
		DO UPDATE SET voice_seconds = daily_activity.voice_seconds + EXCLUDED.voice_seconds
		RETURNING voice_seconds`, discordID, today, seconds).
		Scan(ctx, &total)
	if err != nil {
		return err
	}

	// Reward only hours newly completed by this session within today.
	previous := total - seconds
	reward := (total/3600 - previous/3600) * voiceHourReward
	if reward > 0 {
		if _, err := r.AdjustBalance(ctx, discordID, reward); err != nil {
			return err
		}
		slog.Info("Voice activity reward granted",
			slog.String("type", "db"),
			slog.String("discord_id", discordID),
			slog.Int64("reward", reward))
	}
	return nil
}

func (r *userRepository) ActivityStats(ctx context.Context, discordID, fromDate, toDate string) (*models.ActivityStats, error) {
	stats := new(models.ActivityStats)
	err := r.db.NewSelect().
		Model((*models.DailyActivity)(nil)).
		ColumnExpr("COALESCE(SUM(message_count), 0) AS total_messages").
		ColumnExpr("COALESCE(SUM(voice_seconds), 0) AS total_voice_seconds").
		Where("user_id = ?", discordID).
		Where("activity_date BETWEEN ? AND ?", fromDate, toDate).
		Scan(ctx, &stats.TotalMessages, &stats.TotalVoiceSeconds)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
