package autovc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	lru "github.com/hashicorp/golang-lru"
	"github.com/overwatchkr/overwatch-bot/overwatch/database/models"
	"github.com/overwatchkr/overwatch-bot/overwatch/database/repositories"
	"golang.org/x/sync/errgroup"
)

// ErrChannelNotFound is returned by gateways when the platform no longer
// knows the channel; the manager treats it as already-cleaned-up.
var ErrChannelNotFound = errors.New("channel not found")

// ErrNotOwner rejects owner-only channel edits from non-owners.
var ErrNotOwner = errors.New("not the channel owner")

const (
	defaultUserLimit  = 5
	generatorCacheLen = 128
	sweepConcurrency  = 4
)

// CreateChannelRequest carries everything the gateway needs to spawn one
// managed channel.
type CreateChannelRequest struct {
	GuildID    snowflake.ID
	CategoryID snowflake.ID
	Name       string
	Position   int
	UserLimit  int
	// OwnerID receives a member override with channel/role management rights.
	OwnerID snowflake.ID
}

// ChannelInfo is the slice of live platform state the allocator reads.
type ChannelInfo struct {
	ID       snowflake.ID
	Name     string
	Position int
}

// Gateway is the platform surface for voice channel lifecycle.
type Gateway interface {
	// CategoryExists reports whether the target category is still present.
	CategoryExists(guildID, categoryID snowflake.ID) bool
	// CategoryPosition returns the category's position in the channel list.
	CategoryPosition(guildID, categoryID snowflake.ID) (int, bool)
	// VoiceChannelsIn lists the voice channels of a category.
	VoiceChannelsIn(guildID, categoryID snowflake.ID) []ChannelInfo
	// NonBotOccupants counts human members in a channel; ok=false when the
	// channel no longer exists.
	NonBotOccupants(channelID snowflake.ID) (count int, ok bool)

	CreateVoiceChannel(ctx context.Context, req CreateChannelRequest) (snowflake.ID, error)
	DeleteChannel(ctx context.Context, channelID snowflake.ID) error
	MoveMember(ctx context.Context, guildID, userID, channelID snowflake.ID) error
	RenameChannel(ctx context.Context, channelID snowflake.ID, name string) error
	SetUserLimit(ctx context.Context, channelID snowflake.ID, limit int) error
}

// Manager keeps the in-memory managed-channel set consistent with the
// durable store and the live platform. The durable store is the source of
// truth; the set is a bounded-staleness cache reconciled by the sweep.
type Manager struct {
	repo    repositories.AutoVCRepository
	gateway Gateway

	mu      sync.RWMutex
	managed map[snowflake.ID]struct{}

	// generators is a read-through cache of generator configs keyed by
	// trigger channel; admin mutations invalidate through this manager.
	generators *lru.Cache

	now func() time.Time
}

func NewManager(repo repositories.AutoVCRepository, gateway Gateway) *Manager {
	cache, _ := lru.New(generatorCacheLen)
	return &Manager{
		repo:       repo,
		gateway:    gateway,
		managed:    make(map[snowflake.ID]struct{}),
		generators: cache,
		now:        time.Now,
	}
}

// Restore rebuilds the in-memory managed set from the durable store. Called
// once at startup before any voice events are handled.
func (m *Manager) Restore(ctx context.Context) error {
	ids, err := m.repo.AllManagedChannelIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore managed channels: %w", err)
	}

	m.mu.Lock()
	m.managed = make(map[snowflake.ID]struct{}, len(ids))
	for _, id := range ids {
		m.managed[snowflake.ID(id)] = struct{}{}
	}
	m.mu.Unlock()

	slog.Info("Managed voice channels restored",
		slog.String("type", "vc"),
		slog.Int("count", len(ids)))
	return nil
}

// IsManaged reports whether a channel id is in the in-memory set.
func (m *Manager) IsManaged(channelID snowflake.ID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.managed[channelID]
	return ok
}

func (m *Manager) lookupGenerator(ctx context.Context, channelID snowflake.ID) (*models.AutoVCGenerator, error) {
	if v, ok := m.generators.Get(channelID); ok {
		return v.(*models.AutoVCGenerator), nil
	}
	gen, err := m.repo.GetGenerator(ctx, int64(channelID))
	if err != nil || gen == nil {
		return nil, err
	}
	m.generators.Add(channelID, gen)
	return gen, nil
}

// ConfigureGenerator registers (or replaces) a generator config.
func (m *Manager) ConfigureGenerator(ctx context.Context, gen *models.AutoVCGenerator) error {
	if err := m.repo.AddGenerator(ctx, gen); err != nil {
		return err
	}
	m.generators.Remove(snowflake.ID(gen.GeneratorChannelID))
	return nil
}

// RemoveGenerator deletes a generator config.
func (m *Manager) RemoveGenerator(ctx context.Context, generatorChannelID snowflake.ID) error {
	if err := m.repo.RemoveGenerator(ctx, int64(generatorChannelID)); err != nil {
		return err
	}
	m.generators.Remove(generatorChannelID)
	return nil
}

// HandleJoin reacts to a user entering a voice channel. Joining a generator
// channel spawns a numbered channel and moves the user into it; everything
// else is a no-op.
func (m *Manager) HandleJoin(ctx context.Context, guildID, channelID, userID snowflake.ID) error {
	gen, err := m.lookupGenerator(ctx, channelID)
	if err != nil {
		return fmt.Errorf("failed to look up generator for %s: %w", channelID, err)
	}
	if gen == nil {
		return nil
	}
	return m.createManagedChannel(ctx, guildID, userID, gen)
}

func (m *Manager) createManagedChannel(ctx context.Context, guildID, userID snowflake.ID, gen *models.AutoVCGenerator) error {
	categoryID := snowflake.ID(gen.CategoryID)
	if !m.gateway.CategoryExists(guildID, categoryID) {
		return fmt.Errorf("generator %d points at missing category %s", gen.GeneratorChannelID, categoryID)
	}

	existing := m.managedChannelsIn(guildID, categoryID, gen.BaseName)
	SortBySuffix(existing)

	number := NextNumber(existing)
	categoryPos, _ := m.gateway.CategoryPosition(guildID, categoryID)
	position := InsertPosition(existing, number, categoryPos)
	name := fmt.Sprintf("%s %d", gen.BaseName, number)

	channelID, err := m.gateway.CreateVoiceChannel(ctx, CreateChannelRequest{
		GuildID:    guildID,
		CategoryID: categoryID,
		Name:       name,
		Position:   position,
		UserLimit:  defaultUserLimit,
		OwnerID:    userID,
	})
	if err != nil {
		return fmt.Errorf("failed to create voice channel %q: %w", name, err)
	}

	if err := m.repo.AddManagedChannel(ctx, &models.ManagedVoiceChannel{
		ChannelID:   int64(channelID),
		OwnerID:     int64(userID),
		GuildID:     int64(guildID),
		GeneratorID: gen.GeneratorChannelID,
	}); err != nil {
		// The cache must never hold an id the store does not; compensate by
		// deleting the just-created channel instead of leaving an orphan.
		if delErr := m.gateway.DeleteChannel(ctx, channelID); delErr != nil && !errors.Is(delErr, ErrChannelNotFound) {
			slog.Error("Failed to delete orphaned voice channel",
				slog.String("type", "vc"),
				slog.String("channel_id", channelID.String()),
				slog.Any("error", delErr))
		}
		return fmt.Errorf("failed to record managed channel: %w", err)
	}

	m.mu.Lock()
	m.managed[channelID] = struct{}{}
	m.mu.Unlock()

	slog.Info("Managed voice channel created",
		slog.String("type", "vc"),
		slog.String("channel", name),
		slog.String("owner_id", userID.String()))

	if err := m.gateway.MoveMember(ctx, guildID, userID, channelID); err != nil {
		// The channel stands either way; the user can join it manually.
		slog.Warn("Failed to move member into new channel",
			slog.String("type", "vc"),
			slog.String("channel_id", channelID.String()),
			slog.Any("error", err))
	}
	return nil
}

func (m *Manager) managedChannelsIn(guildID, categoryID snowflake.ID, baseName string) []NumberedChannel {
	var out []NumberedChannel
	for _, ch := range m.gateway.VoiceChannelsIn(guildID, categoryID) {
		if !m.IsManaged(ch.ID) {
			continue
		}
		n, ok := ExtractSuffix(ch.Name, baseName)
		if !ok {
			continue
		}
		out = append(out, NumberedChannel{Number: n, ChannelID: ch.ID, Position: ch.Position})
	}
	return out
}

// HandleLeave reacts to a user leaving a voice channel: an emptied managed
// channel is deleted and its bookkeeping cleared.
func (m *Manager) HandleLeave(ctx context.Context, channelID snowflake.ID) error {
	if !m.IsManaged(channelID) {
		return nil
	}
	count, ok := m.gateway.NonBotOccupants(channelID)
	if ok && count > 0 {
		return nil
	}
	return m.cleanup(ctx, channelID)
}

// cleanup deletes a managed channel from the platform, the durable store and
// the cache. A channel already gone on the platform still has its
// bookkeeping cleared (self-healing).
func (m *Manager) cleanup(ctx context.Context, channelID snowflake.ID) error {
	if err := m.gateway.DeleteChannel(ctx, channelID); err != nil && !errors.Is(err, ErrChannelNotFound) {
		return fmt.Errorf("failed to delete channel %s: %w", channelID, err)
	}
	if err := m.repo.RemoveManagedChannel(ctx, int64(channelID)); err != nil {
		return fmt.Errorf("failed to remove managed channel row: %w", err)
	}

	m.mu.Lock()
	delete(m.managed, channelID)
	m.mu.Unlock()

	slog.Info("Managed voice channel cleaned up",
		slog.String("type", "vc"),
		slog.String("channel_id", channelID.String()))
	return nil
}

// Reconcile verifies every cached id against the live platform and reaps
// channels that are gone or empty. This bounds any desync caused by missed
// leave events to one sweep interval.
func (m *Manager) Reconcile(ctx context.Context) error {
	m.mu.RLock()
	ids := make([]snowflake.ID, 0, len(m.managed))
	for id := range m.managed {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			count, ok := m.gateway.NonBotOccupants(id)
			if ok && count > 0 {
				return nil
			}
			if err := m.cleanup(gctx, id); err != nil {
				// One broken channel must not block the rest of the sweep.
				slog.Error("Reconciliation cleanup failed",
					slog.String("type", "vc"),
					slog.String("channel_id", id.String()),
					slog.Any("error", err))
			}
			return nil
		})
	}
	return g.Wait()
}

// StartReconciler runs Reconcile on a fixed interval until ctx is cancelled.
func (m *Manager) StartReconciler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.Reconcile(ctx); err != nil {
					slog.Error("Voice channel reconciliation failed",
						slog.String("type", "vc"),
						slog.Any("error", err))
				}
			}
		}
	}()
}

// RenameOwned renames a managed channel on behalf of its owner.
func (m *Manager) RenameOwned(ctx context.Context, channelID, userID snowflake.ID, name string) error {
	if err := m.requireOwner(ctx, channelID, userID); err != nil {
		return err
	}
	return m.gateway.RenameChannel(ctx, channelID, name)
}

// SetLimitOwned changes a managed channel's user limit on behalf of its
// owner.
func (m *Manager) SetLimitOwned(ctx context.Context, channelID, userID snowflake.ID, limit int) error {
	if err := m.requireOwner(ctx, channelID, userID); err != nil {
		return err
	}
	return m.gateway.SetUserLimit(ctx, channelID, limit)
}

func (m *Manager) requireOwner(ctx context.Context, channelID, userID snowflake.ID) error {
	ownerID, ok, err := m.repo.ChannelOwner(ctx, int64(channelID))
	if err != nil {
		return fmt.Errorf("failed to look up channel owner: %w", err)
	}
	if !ok || snowflake.ID(ownerID) != userID {
		return ErrNotOwner
	}
	return nil
}
