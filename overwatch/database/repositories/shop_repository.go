package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/overwatchkr/overwatch-bot/overwatch/database/models"
	"github.com/uptrace/bun"
)

type ShopRepository interface {
	// Item catalog
	AddItem(ctx context.Context, item *models.ShopItem) error
	RemoveItemByName(ctx context.Context, name string) (bool, error)
	GetAll(ctx context.Context) ([]*models.ShopItem, error)
	GetByID(ctx context.Context, id int64) (*models.ShopItem, error)

	// Inventory (quantity = row count, grants are append-only)
	AddToInventory(ctx context.Context, userID string, itemID int64) error
	GetUserInventory(ctx context.Context, userID string) ([]*models.InventoryLine, error)

	// Temporary role grants
	AddTemporaryRole(ctx context.Context, userID string, roleID int64, expiresAt time.Time) error
	ExpiredRoles(ctx context.Context, now time.Time) ([]*models.TemporaryRole, error)
	RemoveTemporaryRoles(ctx context.Context, ids []int64) error
	HasTemporaryRole(ctx context.Context, userID string, roleID int64) (bool, error)
}

type shopRepository struct {
	db *bun.DB
}

func NewShopRepository(db *bun.DB) ShopRepository {
	return &shopRepository{db: db}
}

func (r *shopRepository) AddItem(ctx context.Context, item *models.ShopItem) error {
	item.CreatedAt = time.Now()
	_, err := r.db.NewInsert().Model(item).Exec(ctx)
	return err
}

func (r *shopRepository) RemoveItemByName(ctx context.Context, name string) (bool, error) {
	res, err := r.db.NewDelete().
		Model((*models.ShopItem)(nil)).
		Where("name = ?", name).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (r *shopRepository) GetAll(ctx context.Context) ([]*models.ShopItem, error) {
	var items []*models.ShopItem
	err := r.db.NewSelect().
		Model(&items).
		Order("price ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *shopRepository) GetByID(ctx context.Context, id int64) (*models.ShopItem, error) {
	item := new(models.ShopItem)
	err := r.db.NewSelect().
		Model(item).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return item, nil
}

func (r *shopRepository) AddToInventory(ctx context.Context, userID string, itemID int64) error {
	entry := &models.InventoryEntry{
		UserID:     userID,
		ShopItemID: itemID,
		ObtainedAt: time.Now(),
	}
	_, err := r.db.NewInsert().Model(entry).Exec(ctx)
	return err
}

func (r *shopRepository) GetUserInventory(ctx context.Context, userID string) ([]*models.InventoryLine, error) {
	var lines []*models.InventoryLine
	err := r.db.NewSelect().
		TableExpr("user_inventory AS ui").
		Join("JOIN shop_items AS si ON si.id = ui.shop_item_id").
		ColumnExpr("si.name AS name").
		ColumnExpr("si.emoji AS emoji").
		ColumnExpr("COUNT(ui.id) AS count").
		Where("ui.user_id = ?", userID).
		GroupExpr("si.name, si.emoji").
		OrderExpr("count DESC").
		Scan(ctx, &lines)
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *shopRepository) AddTemporaryRole(ctx context.Context, userID string, roleID int64, expiresAt time.Time) error {
	grant := &models.TemporaryRole{
		UserID:    userID,
		RoleID:    roleID,
		ExpiresAt: expiresAt,
	}
	_, err := r.db.NewInsert().Model(grant).Exec(ctx)
	return err
}

func (r *shopRepository) ExpiredRoles(ctx context.Context, now time.Time) ([]*models.TemporaryRole, error) {
	var grants []*models.TemporaryRole
	err := r.db.NewSelect().
		Model(&grants).
		Where("expires_at <= ?", now).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return grants, nil
}

func (r *shopRepository) RemoveTemporaryRoles(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.NewDelete().
		Model((*models.TemporaryRole)(nil)).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	return err
}

func (r *shopRepository) HasTemporaryRole(ctx context.Context, userID string, roleID int64) (bool, error) {
	count, err := r.db.NewSelect().
		Model((*models.TemporaryRole)(nil)).
		Where("user_id = ?", userID).
		Where("role_id = ?", roleID).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
