package shop

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/overwatchkr/overwatch-bot/overwatch/database/models"
	"github.com/overwatchkr/overwatch-bot/overwatch/economy"
)

const (
	testGuild = snowflake.ID(100)
	testBuyer = snowflake.ID(200)
)

type fakeLedger struct {
	balances   map[string]int64
	missingRow bool
	failAdjust bool
}

func (f *fakeLedger) AdjustBalance(_ context.Context, discordID string, delta int64) (int64, error) {
	if f.failAdjust {
		return 0, errors.New("ledger down")
	}
	f.balances[discordID] += delta
	return f.balances[discordID], nil
}

func (f *fakeLedger) GetByDiscordID(_ context.Context, discordID string) (*models.User, error) {
	if f.missingRow {
		return nil, sql.ErrNoRows
	}
	return &models.User{DiscordID: discordID, Balance: f.balances[discordID]}, nil
}

type fakeStore struct {
	items          map[int64]*models.ShopItem
	inventory      []int64
	tempRoles      []*models.TemporaryRole
	removedGrants  []int64
	nextGrantID    int64
	inventoryErr   error
	tempRoleErr    error
	panicInGrant   bool
	expiredRolesFn func() []*models.TemporaryRole
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (*models.ShopItem, error) {
	return f.items[id], nil
}

func (f *fakeStore) AddToInventory(_ context.Context, _ string, itemID int64) error {
	if f.panicInGrant {
		panic("store blew up")
	}
	if f.inventoryErr != nil {
		return f.inventoryErr
	}
	f.inventory = append(f.inventory, itemID)
	return nil
}

func (f *fakeStore) AddTemporaryRole(_ context.Context, userID string, roleID int64, expiresAt time.Time) error {
	if f.tempRoleErr != nil {
		return f.tempRoleErr
	}
	f.nextGrantID++
	f.tempRoles = append(f.tempRoles, &models.TemporaryRole{
		ID: f.nextGrantID, UserID: userID, RoleID: roleID, ExpiresAt: expiresAt,
	})
	return nil
}

func (f *fakeStore) HasTemporaryRole(_ context.Context, userID string, roleID int64) (bool, error) {
	for _, grant := range f.tempRoles {
		if grant.UserID == userID && grant.RoleID == roleID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ExpiredRoles(_ context.Context, _ time.Time) ([]*models.TemporaryRole, error) {
	if f.expiredRolesFn != nil {
		return f.expiredRolesFn(), nil
	}
	return nil, nil
}

func (f *fakeStore) RemoveTemporaryRoles(_ context.Context, ids []int64) error {
	f.removedGrants = append(f.removedGrants, ids...)
	return nil
}

type fakeRoles struct {
	missingRole bool
	grantErr    error
	nicknameErr error
	granted     []snowflake.ID
	revoked     []snowflake.ID
	nicknames   []string
	revokeErr   error
}

func (f *fakeRoles) RoleExists(_, _ snowflake.ID) bool { return !f.missingRole }

func (f *fakeRoles) GrantRole(_ context.Context, _, _, roleID snowflake.ID) error {
	if f.grantErr != nil {
		return f.grantErr
	}
	f.granted = append(f.granted, roleID)
	return nil
}

func (f *fakeRoles) RevokeRole(_ context.Context, _, _, roleID snowflake.ID) error {
	if f.revokeErr != nil {
		return f.revokeErr
	}
	f.revoked = append(f.revoked, roleID)
	return nil
}

func (f *fakeRoles) SetNickname(_ context.Context, _, _ snowflake.ID, nickname string) error {
	if f.nicknameErr != nil {
		return f.nicknameErr
	}
	f.nicknames = append(f.nicknames, nickname)
	return nil
}

func newTestCoordinator(balance int64, items ...*models.ShopItem) (*Coordinator, *fakeLedger, *fakeStore, *fakeRoles) {
	ledger := &fakeLedger{balances: map[string]int64{testBuyer.String(): balance}}
	store := &fakeStore{items: map[int64]*models.ShopItem{}}
	for _, item := range items {
		store.items[item.ID] = item
	}
	roles := &fakeRoles{}
	return NewCoordinator(ledger, store, roles, testGuild), ledger, store, roles
}

func TestPurchaseSimpleItemCommits(t *testing.T) {
	item := &models.ShopItem{ID: 1, ItemType: models.ItemTypeSimple, Name: "커피", Price: 300}
	c, ledger, store, _ := newTestCoordinator(1000, item)

	receipt, err := c.Purchase(context.Background(), testGuild, testBuyer, 1)
	if err != nil {
		t.Fatalf("Purchase() error = %v", err)
	}
	if receipt.State != StateCommitted {
		t.Errorf("state = %v, want committed", receipt.State)
	}
	if receipt.NewBalance != 700 {
		t.Errorf("new balance = %d, want 700", receipt.NewBalance)
	}
	if ledger.balances[testBuyer.String()] != 700 {
		t.Errorf("ledger balance = %d, want 700", ledger.balances[testBuyer.String()])
	}
	if len(store.inventory) != 1 || store.inventory[0] != 1 {
		t.Errorf("inventory = %v, want [1]", store.inventory)
	}
}

func TestPurchaseUnknownItem(t *testing.T) {
	c, ledger, _, _ := newTestCoordinator(1000)

	_, err := c.Purchase(context.Background(), testGuild, testBuyer, 99)
	if !errors.Is(err, economy.ErrItemNotFound) {
		t.Fatalf("error = %v, want ErrItemNotFound", err)
	}
	if ledger.balances[testBuyer.String()] != 1000 {
		t.Error("balance touched on unknown item")
	}
}

func TestPurchaseFirstTimeBuyerInsufficientFunds(t *testing.T) {
	item := &models.ShopItem{ID: 1, ItemType: models.ItemTypeSimple, Price: 300}
	c, ledger, store, _ := newTestCoordinator(0, item)
	ledger.missingRow = true

	_, err := c.Purchase(context.Background(), testGuild, testBuyer, 1)
	if !errors.Is(err, economy.ErrInsufficientFunds) {
		t.Fatalf("error = %v, want ErrInsufficientFunds for a buyer with no ledger row", err)
	}
	if ledger.balances[testBuyer.String()] != 0 {
		t.Error("balance touched for a buyer with no ledger row")
	}
	if len(store.inventory) != 0 {
		t.Error("inventory granted for a buyer with no ledger row")
	}
}

func TestPurchaseActiveTimedRoleRejected(t *testing.T) {
	item := &models.ShopItem{ID: 2, ItemType: models.ItemTypeRole, Price: 500, RoleID: 777, DurationDays: 7}
	c, ledger, store, roles := newTestCoordinator(1000, item)
	store.tempRoles = append(store.tempRoles, &models.TemporaryRole{
		ID: 1, UserID: testBuyer.String(), RoleID: 777,
	})

	_, err := c.Purchase(context.Background(), testGuild, testBuyer, 2)
	if !errors.Is(err, economy.ErrRoleActive) {
		t.Fatalf("error = %v, want ErrRoleActive", err)
	}
	if ledger.balances[testBuyer.String()] != 1000 {
		t.Error("balance touched despite active grant")
	}
	if len(roles.granted) != 0 {
		t.Error("role granted twice")
	}
	if len(store.tempRoles) != 1 {
		t.Error("duplicate grant row recorded")
	}
}

func TestPurchaseInsufficientFunds(t *testing.T) {
	item := &models.ShopItem{ID: 1, ItemType: models.ItemTypeSimple, Price: 5000}
	c, ledger, store, _ := newTestCoordinator(100, item)

	_, err := c.Purchase(context.Background(), testGuild, testBuyer, 1)
	if !errors.Is(err, economy.ErrInsufficientFunds) {
		t.Fatalf("error = %v, want ErrInsufficientFunds", err)
	}
	if ledger.balances[testBuyer.String()] != 100 {
		t.Error("balance touched despite insufficient funds")
	}
	if len(store.inventory) != 0 {
		t.Error("inventory granted despite insufficient funds")
	}
}

func TestPurchaseInventoryFailureRollsBack(t *testing.T) {
	item := &models.ShopItem{ID: 1, ItemType: models.ItemTypeSimple, Price: 300}
	c, ledger, store, _ := newTestCoordinator(1000, item)
	store.inventoryErr = errors.New("insert failed")

	receipt, err := c.Purchase(context.Background(), testGuild, testBuyer, 1)
	if err == nil {
		t.Fatal("expected error")
	}
	if receipt.State != StateRolledBack {
		t.Errorf("state = %v, want rolled_back", receipt.State)
	}
	if ledger.balances[testBuyer.String()] != 1000 {
		t.Errorf("balance = %d, want full refund to 1000", ledger.balances[testBuyer.String()])
	}
}

func TestPurchasePanicInGrantStillRefunds(t *testing.T) {
	item := &models.ShopItem{ID: 1, ItemType: models.ItemTypeSimple, Price: 300}
	c, ledger, store, _ := newTestCoordinator(1000, item)
	store.panicInGrant = true

	receipt, err := c.Purchase(context.Background(), testGuild, testBuyer, 1)
	if err == nil {
		t.Fatal("expected error from recovered panic")
	}
	if receipt.State != StateRolledBack {
		t.Errorf("state = %v, want rolled_back", receipt.State)
	}
	if ledger.balances[testBuyer.String()] != 1000 {
		t.Errorf("balance = %d, want 1000", ledger.balances[testBuyer.String()])
	}
}

func TestPurchaseRoleGrant(t *testing.T) {
	item := &models.ShopItem{ID: 2, ItemType: models.ItemTypeRole, Price: 500, RoleID: 777}
	c, _, store, roles := newTestCoordinator(1000, item)

	receipt, err := c.Purchase(context.Background(), testGuild, testBuyer, 2)
	if err != nil {
		t.Fatalf("Purchase() error = %v", err)
	}
	if receipt.State != StateCommitted {
		t.Errorf("state = %v, want committed", receipt.State)
	}
	if len(roles.granted) != 1 || roles.granted[0] != snowflake.ID(777) {
		t.Errorf("granted = %v, want [777]", roles.granted)
	}
	// A permanent role records no expiry row.
	if len(store.tempRoles) != 0 {
		t.Errorf("temp roles = %v, want none", store.tempRoles)
	}
}

func TestPurchaseMissingRoleRefunds(t *testing.T) {
	item := &models.ShopItem{ID: 2, ItemType: models.ItemTypeRole, Price: 500, RoleID: 777}
	c, ledger, _, roles := newTestCoordinator(1000, item)
	roles.missingRole = true

	receipt, err := c.Purchase(context.Background(), testGuild, testBuyer, 2)
	if !errors.Is(err, economy.ErrRoleUnavailable) {
		t.Fatalf("error = %v, want ErrRoleUnavailable", err)
	}
	if receipt.State != StateRolledBack {
		t.Errorf("state = %v, want rolled_back", receipt.State)
	}
	if ledger.balances[testBuyer.String()] != 1000 {
		t.Errorf("balance = %d, want 1000", ledger.balances[testBuyer.String()])
	}
}

func TestPurchaseTimedRoleRecordsExpiry(t *testing.T) {
	item := &models.ShopItem{ID: 2, ItemType: models.ItemTypeRole, Price: 500, RoleID: 777, DurationDays: 7}
	c, _, store, _ := newTestCoordinator(1000, item)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	receipt, err := c.Purchase(context.Background(), testGuild, testBuyer, 2)
	if err != nil {
		t.Fatalf("Purchase() error = %v", err)
	}

	want := base.Add(7 * 24 * time.Hour)
	if !receipt.ExpiresAt.Equal(want) {
		t.Errorf("expires at %v, want %v", receipt.ExpiresAt, want)
	}
	if len(store.tempRoles) != 1 || !store.tempRoles[0].ExpiresAt.Equal(want) {
		t.Errorf("temp role rows = %v", store.tempRoles)
	}
}

func TestTimedRoleRecordFailureKeepsRole(t *testing.T) {
	item := &models.ShopItem{ID: 2, ItemType: models.ItemTypeRole, Price: 500, RoleID: 777, DurationDays: 7}
	c, ledger, store, roles := newTestCoordinator(1000, item)
	store.tempRoleErr = errors.New("insert failed")

	receipt, err := c.Purchase(context.Background(), testGuild, testBuyer, 2)
	if err != nil {
		t.Fatalf("Purchase() error = %v", err)
	}
	if receipt.State != StateCommitted {
		t.Errorf("state = %v, want committed; role grant stands", receipt.State)
	}
	if !receipt.ExpiresAt.IsZero() {
		t.Error("expiry reported despite failed record")
	}
	if len(roles.granted) != 1 {
		t.Error("role not granted")
	}
	if ledger.balances[testBuyer.String()] != 500 {
		t.Errorf("balance = %d, want 500 (no refund)", ledger.balances[testBuyer.String()])
	}
}

func TestNicknamePurchaseParksDebit(t *testing.T) {
	item := &models.ShopItem{ID: 3, ItemType: models.ItemTypeNickname, Price: 400}
	c, ledger, _, roles := newTestCoordinator(1000, item)

	receipt, err := c.Purchase(context.Background(), testGuild, testBuyer, 3)
	if err != nil {
		t.Fatalf("Purchase() error = %v", err)
	}
	if !receipt.AwaitingInput {
		t.Fatal("expected AwaitingInput")
	}
	if ledger.balances[testBuyer.String()] != 600 {
		t.Errorf("balance = %d, want 600 (debit parked)", ledger.balances[testBuyer.String()])
	}

	if err := c.CompleteRename(context.Background(), testBuyer, "새이름"); err != nil {
		t.Fatalf("CompleteRename() error = %v", err)
	}
	if len(roles.nicknames) != 1 || roles.nicknames[0] != "새이름" {
		t.Errorf("nicknames = %v", roles.nicknames)
	}
	if ledger.balances[testBuyer.String()] != 600 {
		t.Errorf("balance = %d, want 600 after successful rename", ledger.balances[testBuyer.String()])
	}
}

func TestRenameFailureRefunds(t *testing.T) {
	item := &models.ShopItem{ID: 3, ItemType: models.ItemTypeNickname, Price: 400}
	c, ledger, _, roles := newTestCoordinator(1000, item)
	roles.nicknameErr = errors.New("forbidden")

	if _, err := c.Purchase(context.Background(), testGuild, testBuyer, 3); err != nil {
		t.Fatalf("Purchase() error = %v", err)
	}
	if err := c.CompleteRename(context.Background(), testBuyer, "이름"); err == nil {
		t.Fatal("expected error")
	}
	if ledger.balances[testBuyer.String()] != 1000 {
		t.Errorf("balance = %d, want full refund", ledger.balances[testBuyer.String()])
	}
}

func TestRenameReservationTimeoutRefunds(t *testing.T) {
	item := &models.ShopItem{ID: 3, ItemType: models.ItemTypeNickname, Price: 400}
	c, ledger, _, _ := newTestCoordinator(1000, item)

	base := time.Now()
	now := base
	c.now = func() time.Time { return now }

	if _, err := c.Purchase(context.Background(), testGuild, testBuyer, 3); err != nil {
		t.Fatalf("Purchase() error = %v", err)
	}

	now = base.Add(3 * time.Minute)
	c.expireRenames(context.Background())

	if ledger.balances[testBuyer.String()] != 1000 {
		t.Errorf("balance = %d, want refund after timeout", ledger.balances[testBuyer.String()])
	}
	if err := c.CompleteRename(context.Background(), testBuyer, "이름"); err == nil {
		t.Error("expected error completing an expired reservation")
	}
}

func TestCompleteRenameWithoutReservation(t *testing.T) {
	c, _, _, _ := newTestCoordinator(1000)
	if err := c.CompleteRename(context.Background(), testBuyer, "이름"); err == nil {
		t.Fatal("expected error")
	}
}

func TestExpireTemporaryRolesClearsRowsEvenOnRevokeFailure(t *testing.T) {
	c, _, store, roles := newTestCoordinator(0)
	roles.revokeErr = errors.New("missing permissions")

	store.expiredRolesFn = func() []*models.TemporaryRole {
		return []*models.TemporaryRole{
			{ID: 11, UserID: testBuyer.String(), RoleID: 777},
			{ID: 12, UserID: "not-a-snowflake", RoleID: 888},
		}
	}

	if err := c.ExpireTemporaryRoles(context.Background()); err != nil {
		t.Fatalf("ExpireTemporaryRoles() error = %v", err)
	}
	if len(store.removedGrants) != 2 {
		t.Errorf("removed grants = %v, want both rows cleared", store.removedGrants)
	}
}

func TestPurchaseUnknownItemTypeRollsBack(t *testing.T) {
	item := &models.ShopItem{ID: 4, ItemType: "MYSTERY", Price: 100}
	c, ledger, _, _ := newTestCoordinator(1000, item)

	receipt, err := c.Purchase(context.Background(), testGuild, testBuyer, 4)
	if err == nil {
		t.Fatal("expected error")
	}
	if receipt.State != StateRolledBack {
		t.Errorf("state = %v, want rolled_back", receipt.State)
	}
	if ledger.balances[testBuyer.String()] != 1000 {
		t.Errorf("balance = %d, want 1000", ledger.balances[testBuyer.String()])
	}
}
