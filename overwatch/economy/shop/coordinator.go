// Package shop orchestrates purchases: debit, durable grant, and compensating
// rollback when the grant half fails.
package shop

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/overwatchkr/overwatch-bot/overwatch/database/models"
	"github.com/overwatchkr/overwatch-bot/overwatch/economy"
)

// Ledger is the balance surface the coordinator needs.
type Ledger interface {
	AdjustBalance(ctx context.Context, discordID string, delta int64) (int64, error)
	GetByDiscordID(ctx context.Context, discordID string) (*models.User, error)
}

// Store is the durable shop state behind a purchase.
type Store interface {
	GetByID(ctx context.Context, id int64) (*models.ShopItem, error)
	AddToInventory(ctx context.Context, userID string, itemID int64) error
	AddTemporaryRole(ctx context.Context, userID string, roleID int64, expiresAt time.Time) error
	HasTemporaryRole(ctx context.Context, userID string, roleID int64) (bool, error)
	ExpiredRoles(ctx context.Context, now time.Time) ([]*models.TemporaryRole, error)
	RemoveTemporaryRoles(ctx context.Context, ids []int64) error
}

// RoleGateway is the platform-side grant surface. Implementations translate
// permission denials and transient API failures into *economy.ExternalError.
type RoleGateway interface {
	RoleExists(guildID, roleID snowflake.ID) bool
	GrantRole(ctx context.Context, guildID, userID, roleID snowflake.ID) error
	RevokeRole(ctx context.Context, guildID, userID, roleID snowflake.ID) error
	SetNickname(ctx context.Context, guildID, userID snowflake.ID, nickname string) error
}

// State tracks a purchase through its lifecycle. Terminal states are
// Committed and RolledBack.
type State string

const (
	StateQuoted     State = "quoted"
	StateDebited    State = "debited"
	StateGranting   State = "granting"
	StateCommitted  State = "committed"
	StateRolledBack State = "rolled_back"
)

// Receipt is handed back to the command layer for rendering.
type Receipt struct {
	Item       *models.ShopItem
	State      State
	NewBalance int64
	// ExpiresAt is set for timed role purchases.
	ExpiresAt time.Time
	// AwaitingInput is set for nickname vouchers: the debit is parked until
	// CompleteRename or the reservation deadline.
	AwaitingInput bool
}

// pendingRename is a phase-1 reservation: the voucher price is already
// debited and will be refunded if phase 2 never arrives.
type pendingRename struct {
	itemID   int64
	guildID  snowflake.ID
	userID   snowflake.ID
	price    int64
	deadline time.Time
}

type Coordinator struct {
	ledger Ledger
	store  Store
	roles  RoleGateway

	// guildID is the single guild this bot serves; temporary role grants do
	// not record it, so the expiry sweep needs it here.
	guildID snowflake.ID

	renameMu       sync.Mutex
	pendingRenames map[snowflake.ID]*pendingRename
	renameWindow   time.Duration

	now func() time.Time
}

func NewCoordinator(ledger Ledger, store Store, roles RoleGateway, guildID snowflake.ID) *Coordinator {
	return &Coordinator{
		ledger:         ledger,
		store:          store,
		roles:          roles,
		guildID:        guildID,
		pendingRenames: make(map[snowflake.ID]*pendingRename),
		renameWindow:   2 * time.Minute,
		now:            time.Now,
	}
}

// Purchase runs the full state machine for one item. Purchases are not
// idempotent: a caller that retries after a committed purchase spends again.
func (c *Coordinator) Purchase(ctx context.Context, guildID, buyerID snowflake.ID, itemID int64) (*Receipt, error) {
	item, err := c.store.GetByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load item %d: %w", itemID, err)
	}
	if item == nil {
		return nil, economy.ErrItemNotFound
	}

	buyer := buyerID.String()
	if item.ItemType == models.ItemTypeRole && item.DurationDays > 0 {
		active, err := c.store.HasTemporaryRole(ctx, buyer, item.RoleID)
		if err != nil {
			return nil, fmt.Errorf("failed to check active role grant: %w", err)
		}
		if active {
			return nil, economy.ErrRoleActive
		}
	}

	// A first-time buyer has no ledger row yet; that is a zero-balance
	// account, not an internal failure. The debit auto-vivifies the row.
	account, err := c.ledger.GetByDiscordID(ctx, buyer)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to load buyer %s: %w", buyer, err)
	}
	var balance int64
	if account != nil {
		balance = account.Balance
	}
	if balance < item.Price {
		return nil, economy.ErrInsufficientFunds
	}

	balance, err = c.ledger.AdjustBalance(ctx, buyer, -item.Price)
	if err != nil {
		return nil, fmt.Errorf("failed to debit purchase: %w", err)
	}

	receipt := &Receipt{Item: item, State: StateDebited, NewBalance: balance}

	if err := c.grant(ctx, guildID, buyerID, item, receipt); err != nil {
		return receipt, err
	}

	if receipt.State != StateRolledBack {
		receipt.State = StateCommitted
	}
	return receipt, nil
}

// grant performs the durable-effect half of a purchase. Any error or panic
// escaping the type-specific grant triggers the compensating re-credit, so a
// debit can never be stranded.
func (c *Coordinator) grant(ctx context.Context, guildID, buyerID snowflake.ID, item *models.ShopItem, receipt *Receipt) (err error) {
	receipt.State = StateGranting

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("grant panicked: %v", r)
		}
		if err != nil && !receipt.AwaitingInput {
			c.compensate(ctx, buyerID, item, receipt)
		}
	}()

	switch item.ItemType {
	case models.ItemTypeSimple:
		if err = c.store.AddToInventory(ctx, buyerID.String(), item.ID); err != nil {
			return fmt.Errorf("failed to add inventory entry: %w", err)
		}

	case models.ItemTypeRole:
		roleID := snowflake.ID(item.RoleID)
		if !c.roles.RoleExists(guildID, roleID) {
			return economy.ErrRoleUnavailable
		}
		if err = c.roles.GrantRole(ctx, guildID, buyerID, roleID); err != nil {
			return err
		}
		if item.DurationDays > 0 {
			expiresAt := c.now().Add(time.Duration(item.DurationDays) * 24 * time.Hour)
			// The role is already live; failing to record the expiry leaves
			// a permanent role instead of a timed one. That inconsistency
			// window is preferred over revoking a role the user paid for.
			if recErr := c.store.AddTemporaryRole(ctx, buyerID.String(), item.RoleID, expiresAt); recErr != nil {
				slog.Error("Failed to record temporary role, role grant stands",
					slog.String("type", "db"),
					slog.String("user_id", buyerID.String()),
					slog.Int64("role_id", item.RoleID),
					slog.Any("error", recErr))
			} else {
				receipt.ExpiresAt = expiresAt
			}
		}

	case models.ItemTypeNickname:
		// Phase 1 of the rename voucher: the debit is parked and the caller
		// collects the new nickname asynchronously. CompleteRename or the
		// reservation sweep settles it.
		c.renameMu.Lock()
		c.pendingRenames[buyerID] = &pendingRename{
			itemID:   item.ID,
			guildID:  guildID,
			userID:   buyerID,
			price:    item.Price,
			deadline: c.now().Add(c.renameWindow),
		}
		c.renameMu.Unlock()
		receipt.AwaitingInput = true

	default:
		return fmt.Errorf("unknown item type %q", item.ItemType)
	}

	return nil
}

func (c *Coordinator) compensate(ctx context.Context, buyerID snowflake.ID, item *models.ShopItem, receipt *Receipt) {
	balance, refundErr := c.ledger.AdjustBalance(ctx, buyerID.String(), item.Price)
	if refundErr != nil {
		// Debit stands with no grant; this is the one path that needs an
		// operator. Loud log, nothing else to do from here.
		slog.Error("Purchase rollback failed, balance inconsistent",
			slog.String("type", "error"),
			slog.String("user_id", buyerID.String()),
			slog.Int64("item_id", item.ID),
			slog.Int64("price", item.Price),
			slog.Any("error", refundErr))
		return
	}
	receipt.State = StateRolledBack
	receipt.NewBalance = balance
	slog.Warn("Purchase rolled back",
		slog.String("user_id", buyerID.String()),
		slog.Int64("item_id", item.ID),
		slog.Int64("refunded", item.Price))
}

// CompleteRename is phase 2 of a nickname voucher: apply the collected
// nickname or refund the parked debit.
func (c *Coordinator) CompleteRename(ctx context.Context, userID snowflake.ID, nickname string) error {
	c.renameMu.Lock()
	pending, ok := c.pendingRenames[userID]
	if ok {
		delete(c.pendingRenames, userID)
	}
	c.renameMu.Unlock()

	if !ok {
		return fmt.Errorf("no pending rename for user %s", userID)
	}
	if c.now().After(pending.deadline) {
		c.refundRename(ctx, pending, "reservation expired before submit")
		return fmt.Errorf("rename reservation expired")
	}

	if err := c.roles.SetNickname(ctx, pending.guildID, userID, nickname); err != nil {
		c.refundRename(ctx, pending, "nickname edit failed")
		return err
	}
	return nil
}

// AbandonRename cancels a pending reservation and refunds it.
func (c *Coordinator) AbandonRename(ctx context.Context, userID snowflake.ID) {
	c.renameMu.Lock()
	pending, ok := c.pendingRenames[userID]
	if ok {
		delete(c.pendingRenames, userID)
	}
	c.renameMu.Unlock()
	if ok {
		c.refundRename(ctx, pending, "reservation abandoned")
	}
}

func (c *Coordinator) refundRename(ctx context.Context, pending *pendingRename, reason string) {
	if _, err := c.ledger.AdjustBalance(ctx, pending.userID.String(), pending.price); err != nil {
		slog.Error("Rename refund failed",
			slog.String("type", "error"),
			slog.String("user_id", pending.userID.String()),
			slog.Any("error", err))
		return
	}
	slog.Info("Rename voucher refunded",
		slog.String("user_id", pending.userID.String()),
		slog.String("reason", reason))
}

// expireRenames refunds reservations whose deadline passed without a submit.
func (c *Coordinator) expireRenames(ctx context.Context) {
	now := c.now()

	c.renameMu.Lock()
	var expired []*pendingRename
	for id, pending := range c.pendingRenames {
		if now.After(pending.deadline) {
			expired = append(expired, pending)
			delete(c.pendingRenames, id)
		}
	}
	c.renameMu.Unlock()

	for _, pending := range expired {
		c.refundRename(ctx, pending, "reservation timed out")
	}
}

// ExpireTemporaryRoles removes timed roles past their expiry. The grant row
// is deleted whether or not the platform removal succeeds, so one broken
// member can never wedge the sweep into a retry storm.
func (c *Coordinator) ExpireTemporaryRoles(ctx context.Context) error {
	expired, err := c.store.ExpiredRoles(ctx, c.now())
	if err != nil {
		return fmt.Errorf("failed to query expired roles: %w", err)
	}
	if len(expired) == 0 {
		return nil
	}

	removed := make([]int64, 0, len(expired))
	for _, grant := range expired {
		userID, err := snowflake.Parse(grant.UserID)
		if err == nil {
			if err := c.roles.RevokeRole(ctx, c.guildID, userID, snowflake.ID(grant.RoleID)); err != nil {
				slog.Warn("Failed to revoke expired role",
					slog.String("user_id", grant.UserID),
					slog.Int64("role_id", grant.RoleID),
					slog.Any("error", err))
			}
		}
		removed = append(removed, grant.ID)
	}

	if err := c.store.RemoveTemporaryRoles(ctx, removed); err != nil {
		return fmt.Errorf("failed to clear expired role grants: %w", err)
	}
	slog.Info("Expired temporary roles reconciled", slog.Int("count", len(removed)))
	return nil
}

// StartSweeps runs the role-expiry and rename-timeout reconciliation on a
// fixed interval until ctx is cancelled.
func (c *Coordinator) StartSweeps(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.ExpireTemporaryRoles(ctx); err != nil {
					slog.Error("Temporary role sweep failed", slog.Any("error", err))
				}
				c.expireRenames(ctx)
			}
		}
	}()
}
