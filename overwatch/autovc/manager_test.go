package autovc

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/overwatchkr/overwatch-bot/overwatch/database/models"
)

const (
	guildID     = snowflake.ID(1)
	generatorID = snowflake.ID(10)
	categoryID  = snowflake.ID(20)
	memberID    = snowflake.ID(30)
)

// Reconcile probes channels from errgroup goroutines, so the fakes guard
// their state the same way the real repo and gateway do.
type fakeRepo struct {
	mu              sync.Mutex
	generators      map[int64]*models.AutoVCGenerator
	channels        map[int64]*models.ManagedVoiceChannel
	addChannelErr   error
	removedChannels []int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		generators: map[int64]*models.AutoVCGenerator{},
		channels:   map[int64]*models.ManagedVoiceChannel{},
	}
}

func (f *fakeRepo) AddGenerator(_ context.Context, gen *models.AutoVCGenerator) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generators[gen.GeneratorChannelID] = gen
	return nil
}

func (f *fakeRepo) GetGenerator(_ context.Context, id int64) (*models.AutoVCGenerator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generators[id], nil
}

func (f *fakeRepo) RemoveGenerator(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.generators, id)
	return nil
}

func (f *fakeRepo) AddManagedChannel(_ context.Context, ch *models.ManagedVoiceChannel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addChannelErr != nil {
		return f.addChannelErr
	}
	f.channels[ch.ChannelID] = ch
	return nil
}

func (f *fakeRepo) RemoveManagedChannel(_ context.Context, channelID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.channels, channelID)
	f.removedChannels = append(f.removedChannels, channelID)
	return nil
}

func (f *fakeRepo) AllManagedChannelIDs(_ context.Context) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(f.channels))
	for id := range f.channels {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeRepo) ChannelOwner(_ context.Context, channelID int64) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return 0, false, nil
	}
	return ch.OwnerID, true, nil
}

func (f *fakeRepo) channelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.channels)
}

type fakeGateway struct {
	mu            sync.Mutex
	categoryGone  bool
	categoryPos   int
	voiceChannels []ChannelInfo
	occupants     map[snowflake.ID]int

	nextChannelID snowflake.ID
	createErr     error
	created       []CreateChannelRequest
	deleted       []snowflake.ID
	deleteErr     error
	moved         []snowflake.ID
	renamed       map[snowflake.ID]string
	limits        map[snowflake.ID]int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		categoryPos:   5,
		occupants:     map[snowflake.ID]int{},
		nextChannelID: 500,
		renamed:       map[snowflake.ID]string{},
		limits:        map[snowflake.ID]int{},
	}
}

func (f *fakeGateway) CategoryExists(_, _ snowflake.ID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.categoryGone
}

func (f *fakeGateway) CategoryPosition(_, _ snowflake.ID) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.categoryPos, !f.categoryGone
}

func (f *fakeGateway) VoiceChannelsIn(_, _ snowflake.ID) []ChannelInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.voiceChannels
}

func (f *fakeGateway) NonBotOccupants(channelID snowflake.ID) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count, ok := f.occupants[channelID]
	return count, ok
}

func (f *fakeGateway) CreateVoiceChannel(_ context.Context, req CreateChannelRequest) (snowflake.ID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.created = append(f.created, req)
	f.nextChannelID++
	return f.nextChannelID, nil
}

func (f *fakeGateway) DeleteChannel(_ context.Context, channelID snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, channelID)
	return nil
}

func (f *fakeGateway) MoveMember(_ context.Context, _, _, channelID snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moved = append(f.moved, channelID)
	return nil
}

func (f *fakeGateway) RenameChannel(_ context.Context, channelID snowflake.ID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renamed[channelID] = name
	return nil
}

func (f *fakeGateway) SetUserLimit(_ context.Context, channelID snowflake.ID, limit int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limits[channelID] = limit
	return nil
}

func newTestManager() (*Manager, *fakeRepo, *fakeGateway) {
	repo := newFakeRepo()
	repo.generators[int64(generatorID)] = &models.AutoVCGenerator{
		GeneratorChannelID: int64(generatorID),
		CategoryID:         int64(categoryID),
		BaseName:           "통화방",
		GuildID:            int64(guildID),
	}
	gw := newFakeGateway()
	return NewManager(repo, gw), repo, gw
}

func TestJoinGeneratorSpawnsChannel(t *testing.T) {
	m, repo, gw := newTestManager()

	if err := m.HandleJoin(context.Background(), guildID, generatorID, memberID); err != nil {
		t.Fatalf("HandleJoin() error = %v", err)
	}
	if len(gw.created) != 1 {
		t.Fatalf("created %d channels, want 1", len(gw.created))
	}
	req := gw.created[0]
	if req.Name != "통화방 1" {
		t.Errorf("name = %q, want 통화방 1", req.Name)
	}
	if req.OwnerID != memberID {
		t.Errorf("owner = %s, want %s", req.OwnerID, memberID)
	}
	if req.UserLimit != defaultUserLimit {
		t.Errorf("user limit = %d, want %d", req.UserLimit, defaultUserLimit)
	}
	if len(repo.channels) != 1 {
		t.Fatalf("stored %d managed rows, want 1", len(repo.channels))
	}
	if !m.IsManaged(gw.nextChannelID) {
		t.Error("new channel missing from the managed set")
	}
	if len(gw.moved) != 1 || gw.moved[0] != gw.nextChannelID {
		t.Errorf("moved = %v, want member moved into the new channel", gw.moved)
	}
}

func TestJoinNonGeneratorIsNoop(t *testing.T) {
	m, _, gw := newTestManager()

	if err := m.HandleJoin(context.Background(), guildID, snowflake.ID(999), memberID); err != nil {
		t.Fatalf("HandleJoin() error = %v", err)
	}
	if len(gw.created) != 0 {
		t.Errorf("created %d channels, want 0", len(gw.created))
	}
}

func TestJoinPicksSmallestFreeSuffix(t *testing.T) {
	m, repo, gw := newTestManager()

	// Channels 1 and 3 exist and are managed; 2 is the gap to fill.
	for _, n := range []int{1, 3} {
		id := snowflake.ID(400 + n)
		repo.channels[int64(id)] = &models.ManagedVoiceChannel{ChannelID: int64(id)}
		gw.voiceChannels = append(gw.voiceChannels, ChannelInfo{
			ID: id, Name: "통화방 " + string(rune('0'+n)), Position: 10 + n,
		})
	}
	if err := m.Restore(context.Background()); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	if err := m.HandleJoin(context.Background(), guildID, generatorID, memberID); err != nil {
		t.Fatalf("HandleJoin() error = %v", err)
	}
	if len(gw.created) != 1 {
		t.Fatalf("created %d channels, want 1", len(gw.created))
	}
	req := gw.created[0]
	if req.Name != "통화방 2" {
		t.Errorf("name = %q, want 통화방 2", req.Name)
	}
	// Directly after 통화방 1 at position 11.
	if req.Position != 12 {
		t.Errorf("position = %d, want 12", req.Position)
	}
}

func TestJoinStoreFailureDeletesOrphan(t *testing.T) {
	m, repo, gw := newTestManager()
	repo.addChannelErr = errors.New("insert failed")

	err := m.HandleJoin(context.Background(), guildID, generatorID, memberID)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(gw.deleted) != 1 || gw.deleted[0] != gw.nextChannelID {
		t.Errorf("deleted = %v, want the just-created channel compensated away", gw.deleted)
	}
	if m.IsManaged(gw.nextChannelID) {
		t.Error("failed create leaked into the managed set")
	}
}

func TestJoinMissingCategoryFails(t *testing.T) {
	m, _, gw := newTestManager()
	gw.categoryGone = true

	if err := m.HandleJoin(context.Background(), guildID, generatorID, memberID); err == nil {
		t.Fatal("expected error for missing category")
	}
	if len(gw.created) != 0 {
		t.Error("channel created despite missing category")
	}
}

func TestLeaveEmptiedChannelCleansUp(t *testing.T) {
	m, repo, gw := newTestManager()
	channelID := snowflake.ID(700)
	repo.channels[int64(channelID)] = &models.ManagedVoiceChannel{ChannelID: int64(channelID)}
	if err := m.Restore(context.Background()); err != nil {
		t.Fatal(err)
	}
	gw.occupants[channelID] = 0

	if err := m.HandleLeave(context.Background(), channelID); err != nil {
		t.Fatalf("HandleLeave() error = %v", err)
	}
	if len(gw.deleted) != 1 || gw.deleted[0] != channelID {
		t.Errorf("deleted = %v, want [%s]", gw.deleted, channelID)
	}
	if len(repo.channels) != 0 {
		t.Error("managed row not removed")
	}
	if m.IsManaged(channelID) {
		t.Error("channel still in the managed set")
	}
}

func TestLeaveOccupiedChannelStays(t *testing.T) {
	m, repo, gw := newTestManager()
	channelID := snowflake.ID(700)
	repo.channels[int64(channelID)] = &models.ManagedVoiceChannel{ChannelID: int64(channelID)}
	if err := m.Restore(context.Background()); err != nil {
		t.Fatal(err)
	}
	gw.occupants[channelID] = 2

	if err := m.HandleLeave(context.Background(), channelID); err != nil {
		t.Fatalf("HandleLeave() error = %v", err)
	}
	if len(gw.deleted) != 0 {
		t.Error("occupied channel deleted")
	}
}

func TestLeaveUnmanagedChannelIsNoop(t *testing.T) {
	m, _, gw := newTestManager()

	if err := m.HandleLeave(context.Background(), snowflake.ID(999)); err != nil {
		t.Fatalf("HandleLeave() error = %v", err)
	}
	if len(gw.deleted) != 0 {
		t.Error("unmanaged channel deleted")
	}
}

func TestCleanupSelfHealsWhenChannelAlreadyGone(t *testing.T) {
	m, repo, gw := newTestManager()
	channelID := snowflake.ID(700)
	repo.channels[int64(channelID)] = &models.ManagedVoiceChannel{ChannelID: int64(channelID)}
	if err := m.Restore(context.Background()); err != nil {
		t.Fatal(err)
	}
	gw.deleteErr = ErrChannelNotFound
	// ok=false from the occupancy probe: the platform lost the channel.

	if err := m.HandleLeave(context.Background(), channelID); err != nil {
		t.Fatalf("HandleLeave() error = %v", err)
	}
	if len(repo.channels) != 0 {
		t.Error("bookkeeping kept for a channel the platform lost")
	}
	if m.IsManaged(channelID) {
		t.Error("channel still in the managed set")
	}
}

func TestReconcileReapsEmptyAndGoneChannels(t *testing.T) {
	m, repo, gw := newTestManager()
	empty := snowflake.ID(701)
	gone := snowflake.ID(702)
	occupied := snowflake.ID(703)
	for _, id := range []snowflake.ID{empty, gone, occupied} {
		repo.channels[int64(id)] = &models.ManagedVoiceChannel{ChannelID: int64(id)}
	}
	if err := m.Restore(context.Background()); err != nil {
		t.Fatal(err)
	}
	gw.occupants[empty] = 0
	gw.occupants[occupied] = 3
	// gone has no occupancy entry: ok=false, reaped.

	if err := m.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if m.IsManaged(empty) || m.IsManaged(gone) {
		t.Error("empty or gone channel survived reconciliation")
	}
	if !m.IsManaged(occupied) {
		t.Error("occupied channel reaped")
	}
	if got := repo.channelCount(); got != 1 {
		t.Errorf("stored rows = %d, want only the occupied channel", got)
	}
}

func TestOwnerOnlyEdits(t *testing.T) {
	m, repo, gw := newTestManager()
	channelID := snowflake.ID(700)
	repo.channels[int64(channelID)] = &models.ManagedVoiceChannel{
		ChannelID: int64(channelID),
		OwnerID:   int64(memberID),
	}

	if err := m.RenameOwned(context.Background(), channelID, memberID, "내 방"); err != nil {
		t.Fatalf("RenameOwned() error = %v", err)
	}
	if gw.renamed[channelID] != "내 방" {
		t.Errorf("renamed = %q, want 내 방", gw.renamed[channelID])
	}

	if err := m.SetLimitOwned(context.Background(), channelID, memberID, 3); err != nil {
		t.Fatalf("SetLimitOwned() error = %v", err)
	}
	if gw.limits[channelID] != 3 {
		t.Errorf("limit = %d, want 3", gw.limits[channelID])
	}

	stranger := snowflake.ID(31)
	if err := m.RenameOwned(context.Background(), channelID, stranger, "훔친 방"); !errors.Is(err, ErrNotOwner) {
		t.Errorf("stranger rename error = %v, want ErrNotOwner", err)
	}
	if err := m.SetLimitOwned(context.Background(), channelID, stranger, 1); !errors.Is(err, ErrNotOwner) {
		t.Errorf("stranger limit error = %v, want ErrNotOwner", err)
	}
}

func TestGeneratorCacheInvalidation(t *testing.T) {
	m, repo, gw := newTestManager()

	// Prime the cache.
	if err := m.HandleJoin(context.Background(), guildID, generatorID, memberID); err != nil {
		t.Fatal(err)
	}

	if err := m.RemoveGenerator(context.Background(), generatorID); err != nil {
		t.Fatalf("RemoveGenerator() error = %v", err)
	}
	if len(repo.generators) != 0 {
		t.Fatal("generator row not removed")
	}

	before := len(gw.created)
	if err := m.HandleJoin(context.Background(), guildID, generatorID, memberID); err != nil {
		t.Fatalf("HandleJoin() after removal error = %v", err)
	}
	if len(gw.created) != before {
		t.Error("removed generator still spawning channels")
	}
}
