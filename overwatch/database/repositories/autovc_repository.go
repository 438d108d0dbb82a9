package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/overwatchkr/overwatch-bot/overwatch/database/models"
	"github.com/uptrace/bun"
)

type AutoVCRepository interface {
	// Generator configs
	AddGenerator(ctx context.Context, gen *models.AutoVCGenerator) error
	GetGenerator(ctx context.Context, generatorChannelID int64) (*models.AutoVCGenerator, error)
	RemoveGenerator(ctx context.Context, generatorChannelID int64) error

	// Managed channels: a row exists iff the channel is believed alive and
	// not yet cleaned up.
	AddManagedChannel(ctx context.Context, ch *models.ManagedVoiceChannel) error
	RemoveManagedChannel(ctx context.Context, channelID int64) error
	AllManagedChannelIDs(ctx context.Context) ([]int64, error)
	ChannelOwner(ctx context.Context, channelID int64) (int64, bool, error)
}

type autoVCRepository struct {
	db *bun.DB
}

func NewAutoVCRepository(db *bun.DB) AutoVCRepository {
	return &autoVCRepository{db: db}
}

func (r *autoVCRepository) AddGenerator(ctx context.Context, gen *models.AutoVCGenerator) error {
	_, err := r.db.NewInsert().
		Model(gen).
		On("CONFLICT (generator_channel_id) DO UPDATE").
		Set("category_id = EXCLUDED.category_id").
		Set("base_name = EXCLUDED.base_name").
		Set("guild_id = EXCLUDED.guild_id").
		Exec(ctx)
	return err
}

func (r *autoVCRepository) GetGenerator(ctx context.Context, generatorChannelID int64) (*models.AutoVCGenerator, error) {
	gen := new(models.AutoVCGenerator)
	err := r.db.NewSelect().
		Model(gen).
		Where("generator_channel_id = ?", generatorChannelID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return gen, nil
}

func (r *autoVCRepository) RemoveGenerator(ctx context.Context, generatorChannelID int64) error {
	_, err := r.db.NewDelete().
		Model((*models.AutoVCGenerator)(nil)).
		Where("generator_channel_id = ?", generatorChannelID).
		Exec(ctx)
	return err
}

func (r *autoVCRepository) AddManagedChannel(ctx context.Context, ch *models.ManagedVoiceChannel) error {
	ch.CreatedAt = time.Now()
	_, err := r.db.NewInsert().Model(ch).Exec(ctx)
	return err
}

func (r *autoVCRepository) RemoveManagedChannel(ctx context.Context, channelID int64) error {
	_, err := r.db.NewDelete().
		Model((*models.ManagedVoiceChannel)(nil)).
		Where("channel_id = ?", channelID).
		Exec(ctx)
	return err
}

func (r *autoVCRepository) AllManagedChannelIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.NewSelect().
		Model((*models.ManagedVoiceChannel)(nil)).
		Column("channel_id").
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *autoVCRepository) ChannelOwner(ctx context.Context, channelID int64) (int64, bool, error) {
	var ownerID int64
	err := r.db.NewSelect().
		Model((*models.ManagedVoiceChannel)(nil)).
		Column("owner_id").
		Where("channel_id = ?", channelID).
		Scan(ctx, &ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return ownerID, true, nil
}
