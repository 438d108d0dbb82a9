// Package handlers contains the gateway event listeners: activity accrual,
// voice session tracking and the logging wrappers for interactions.
package handlers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"

	"github.com/overwatchkr/overwatch-bot/overwatch"
)

const (
	// disboardBotID is the DISBOARD bump bot; its "bump" interaction replies
	// are the only bot messages that earn anyone anything.
	disboardBotID = snowflake.ID(302050872383242240)
	bumpReward    = 500

	eventTimeout = 5 * time.Second
)

// MessageHandler credits message activity and Disboard bumps.
func MessageHandler(b *overwatch.Bot) bot.EventListener {
	return bot.NewListenerFunc(func(e *events.GuildMessageCreate) {
		ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		defer cancel()

		msg := e.Message

		if msg.Author.ID == disboardBotID {
			if msg.Interaction != nil && msg.Interaction.Name == "bump" {
				bumper := msg.Interaction.User
				if _, err := b.UserRepository.AdjustBalance(ctx, bumper.ID.String(), bumpReward); err != nil {
					slog.Error("Failed to credit bump reward",
						slog.String("type", "db"),
						slog.String("user_id", bumper.ID.String()),
						slog.Any("error", err))
					return
				}
				slog.Info("Bump reward credited",
					slog.String("user_id", bumper.ID.String()),
					slog.String("user_name", bumper.Username))
			}
			return
		}

		if msg.Author.Bot {
			return
		}

		if _, err := b.UserRepository.GetOrCreate(ctx, msg.Author.ID.String(), msg.Author.EffectiveName()); err != nil {
			return
		}
		if err := b.UserRepository.LogMessageActivity(ctx, msg.Author.ID.String()); err != nil {
			slog.Error("Failed to log message activity",
				slog.String("type", "db"),
				slog.String("user_id", msg.Author.ID.String()),
				slog.Any("error", err))
		}
	})
}

// voiceSessions remembers when each user entered voice so the elapsed time
// can be credited when they fully disconnect. Process-local; a restart simply
// forfeits the in-flight sessions.
type voiceSessions struct {
	mu       sync.Mutex
	startedAt map[snowflake.ID]time.Time
}

func (s *voiceSessions) begin(userID snowflake.ID, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.startedAt[userID]; !ok {
		s.startedAt[userID] = now
	}
}

func (s *voiceSessions) end(userID snowflake.ID, now time.Time) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start, ok := s.startedAt[userID]
	if !ok {
		return 0, false
	}
	delete(s.startedAt, userID)
	return now.Sub(start), true
}

// VoiceStateHandler feeds voice state transitions into both the activity
// ledger and the auto voice channel manager.
func VoiceStateHandler(b *overwatch.Bot) bot.EventListener {
	sessions := &voiceSessions{startedAt: make(map[snowflake.ID]time.Time)}

	return bot.NewListenerFunc(func(e *events.GuildVoiceStateUpdate) {
		if e.Member.User.Bot {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		defer cancel()

		userID := e.VoiceState.UserID
		guildID := e.VoiceState.GuildID
		oldChannel := e.OldVoiceState.ChannelID
		newChannel := e.VoiceState.ChannelID

		joined := newChannel != nil && (oldChannel == nil || *oldChannel != *newChannel)
		left := oldChannel != nil && (newChannel == nil || *oldChannel != *newChannel)

		if joined {
			if oldChannel == nil {
				sessions.begin(userID, time.Now())
			}
			if err := b.VoiceManager.HandleJoin(ctx, guildID, *newChannel, userID); err != nil {
				slog.Error("Voice join handling failed",
					slog.String("type", "vc"),
					slog.String("user_id", userID.String()),
					slog.Any("error", err))
			}
		}

		if left {
			if newChannel == nil {
				if elapsed, ok := sessions.end(userID, time.Now()); ok {
					if err := b.UserRepository.LogVoiceActivity(ctx, userID.String(), int64(elapsed.Seconds())); err != nil {
						slog.Error("Failed to log voice activity",
							slog.String("type", "db"),
							slog.String("user_id", userID.String()),
							slog.Any("error", err))
					}
				}
			}
			if err := b.VoiceManager.HandleLeave(ctx, *oldChannel); err != nil {
				slog.Error("Voice leave handling failed",
					slog.String("type", "vc"),
					slog.String("channel_id", oldChannel.String()),
					slog.Any("error", err))
			}
		}
	})
}
