package repositories

import (
	"context"
	"time"

	"github.com/overwatchkr/overwatch-bot/overwatch/database/models"
	"github.com/uptrace/bun"
)

type ModerationRepository interface {
	AddWarning(ctx context.Context, userID, moderatorID, reason string, count int) (int64, error)
	AddBan(ctx context.Context, userID, moderatorID, reason string) (int64, error)
	CasesForUser(ctx context.Context, userID string) ([]*models.ModerationCase, error)
}

type moderationRepository struct {
	db *bun.DB
}

func NewModerationRepository(db *bun.DB) ModerationRepository {
	return &moderationRepository{db: db}
}

func (r *moderationRepository) AddWarning(ctx context.Context, userID, moderatorID, reason string, count int) (int64, error) {
	return r.addCase(ctx, &models.ModerationCase{
		UserID:      userID,
		ModeratorID: moderatorID,
		Action:      models.ModerationActionWarn,
		Reason:      reason,
		Count:       count,
	})
}

func (r *moderationRepository) AddBan(ctx context.Context, userID, moderatorID, reason string) (int64, error) {
	return r.addCase(ctx, &models.ModerationCase{
		UserID:      userID,
		ModeratorID: moderatorID,
		Action:      models.ModerationActionBan,
		Reason:      reason,
	})
}

func (r *moderationRepository) addCase(ctx context.Context, c *models.ModerationCase) (int64, error) {
	c.CreatedAt = time.Now()
	_, err := r.db.NewInsert().
		Model(c).
		Returning("id").
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return c.ID, nil
}

func (r *moderationRepository) CasesForUser(ctx context.Context, userID string) ([]*models.ModerationCase, error) {
	var cases []*models.ModerationCase
	err := r.db.NewSelect().
		Model(&cases).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return cases, nil
}
