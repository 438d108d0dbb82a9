package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Item type discriminators. The set is closed; the purchase coordinator
// switches over it exactly once.
const (
	ItemTypeSimple   = "ITEM"
	ItemTypeRole     = "ROLE"
	ItemTypeNickname = "NICKNAME"
)

// ShopItem is a purchasable entry. Rows referenced by past purchases are never
// mutated; deleting one only hides it from future purchases.
type ShopItem struct {
	bun.BaseModel `bun:"table:shop_items,alias:si"`

	ID           int64     `bun:"id,pk,autoincrement"`
	ItemType     string    `bun:"item_type,notnull"`
	Name         string    `bun:"name,notnull"`
	Price        int64     `bun:"price,notnull"`
	Emoji        string    `bun:"emoji"`
	Description  string    `bun:"description"`
	RoleID       int64     `bun:"role_id"`
	DurationDays int       `bun:"duration_days"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// InventoryEntry records one owned unit of a shop item. Stacked quantity is
// represented by row count, matching the purchase flow's append-only grants.
type InventoryEntry struct {
	bun.BaseModel `bun:"table:user_inventory,alias:ui"`

	ID         int64     `bun:"id,pk,autoincrement"`
	UserID     string    `bun:"user_id,notnull"`
	ShopItemID int64     `bun:"shop_item_id,notnull"`
	ObtainedAt time.Time `bun:"obtained_at,notnull,default:current_timestamp"`
}

// InventoryLine is the grouped view returned to the inventory command.
type InventoryLine struct {
	Name  string `bun:"name"`
	Emoji string `bun:"emoji"`
	Count int64  `bun:"count"`
}

// TemporaryRole is a timed role grant awaiting expiry reconciliation.
type TemporaryRole struct {
	bun.BaseModel `bun:"table:temporary_roles,alias:tr"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    string    `bun:"user_id,notnull"`
	RoleID    int64     `bun:"role_id,notnull"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
}
