package overwatch

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/disgoorg/snowflake/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/overwatchkr/overwatch-bot/overwatch/database"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log     LogConfig         `toml:"log"`
	Bot     BotConfig         `toml:"bot"`
	DB      database.DBConfig `toml:"db"`
	Economy EconomyConfig     `toml:"economy"`
	AutoVC  AutoVCConfig      `toml:"autovc"`
	Legacy  LegacyConfig      `toml:"legacy"`
}

type BotConfig struct {
	Token     string         `toml:"token"`
	DevGuilds []snowflake.ID `toml:"dev_guilds"`
	// GuildID is the single community guild this bot serves.
	GuildID snowflake.ID `toml:"guild_id"`
	// ModLogChannel receives warn/ban audit embeds; zero disables the log.
	ModLogChannel snowflake.ID `toml:"mod_log_channel"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type EconomyConfig struct {
	// Cooldown windows in seconds; zero falls back to the defaults below.
	LaborCooldown  int64 `toml:"labor_cooldown"`
	LadderCooldown int64 `toml:"ladder_cooldown"`
	SlotsCooldown  int64 `toml:"slots_cooldown"`
	// SweepInterval in seconds for role expiry and rename reservations.
	SweepInterval int64 `toml:"sweep_interval"`
}

type AutoVCConfig struct {
	// ReconcileInterval in seconds for the managed-channel sweep.
	ReconcileInterval int64 `toml:"reconcile_interval"`
}

// LegacyConfig points at the previous bot's Mongo deployment for the one-shot
// import.
type LegacyConfig struct {
	MongoURI string `toml:"mongo_uri"`
	Database string `toml:"database"`
}

const (
	defaultLaborCooldown     = 3600
	defaultLadderCooldown    = 300
	defaultSlotsCooldown     = 300
	defaultSweepInterval     = 60
	defaultReconcileInterval = 300
)

func secondsOr(v, fallback int64) int64 {
	if v > 0 {
		return v
	}
	return fallback
}

func (c EconomyConfig) LaborCooldownSeconds() int64 {
	return secondsOr(c.LaborCooldown, defaultLaborCooldown)
}

func (c EconomyConfig) LadderCooldownSeconds() int64 {
	return secondsOr(c.LadderCooldown, defaultLadderCooldown)
}

func (c EconomyConfig) SlotsCooldownSeconds() int64 {
	return secondsOr(c.SlotsCooldown, defaultSlotsCooldown)
}

func (c EconomyConfig) SweepIntervalSeconds() int64 {
	return secondsOr(c.SweepInterval, defaultSweepInterval)
}

func (c AutoVCConfig) ReconcileIntervalSeconds() int64 {
	return secondsOr(c.ReconcileInterval, defaultReconcileInterval)
}
