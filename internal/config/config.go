package config

import (
	"fmt"
	"time"
)

// This file defines the configuration structures used by viper_config.go
// The actual loading is handled by viper in viper_config.go

// Config is the full bot configuration.
type Config struct {
	Bot   BotSettings   `mapstructure:"bot"`
	Game  GameSettings  `mapstructure:"game"`
	Store StoreSettings `mapstructure:"store"`
	Ops   OpsSettings   `mapstructure:"ops"`
}

// BotSettings configures the chat platform adapter.
type BotSettings struct {
	Token         string  `mapstructure:"token"`         // bot API token, required
	UpdateTimeout int     `mapstructure:"updateTimeout"` // long-poll timeout in seconds
	SendRate      float64 `mapstructure:"sendRate"`      // outbound messages per second
	SendBurst     int     `mapstructure:"sendBurst"`
	LogLevel      string  `mapstructure:"logLevel"`
}

// GameSettings are the session-engine tunables.
type GameSettings struct {
	MinPlayers       int           `mapstructure:"minPlayers"`
	MaxPlayers       int           `mapstructure:"maxPlayers"`
	NicknameTimeout  time.Duration `mapstructure:"nicknameTimeout"`
	VoteDeadline     time.Duration `mapstructure:"voteDeadline"`
	CurseDeleteDelay time.Duration `mapstructure:"curseDeleteDelay"`
}

// StoreSettings configure the durable session store and its janitor.
type StoreSettings struct {
	Path          string        `mapstructure:"path"`          // sqlite file, ":memory:" for ephemeral
	PurgeSchedule string        `mapstructure:"purgeSchedule"` // cron spec for purging ended sessions
	PurgeAge      time.Duration `mapstructure:"purgeAge"`
}

// OpsSettings configure the read-only operations HTTP server.
type OpsSettings struct {
	Addr string `mapstructure:"addr"` // listen address, empty disables
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return fmt.Errorf("BOT_TOKEN environment variable must be set")
	}
	if c.Game.MinPlayers < 3 {
		return fmt.Errorf("game.minPlayers must be at least 3")
	}
	if c.Game.MaxPlayers < c.Game.MinPlayers {
		return fmt.Errorf("game.maxPlayers cannot be less than game.minPlayers")
	}
	if c.Game.NicknameTimeout <= 0 {
		return fmt.Errorf("game.nicknameTimeout must be positive")
	}
	if c.Game.VoteDeadline <= 0 {
		return fmt.Errorf("game.voteDeadline must be positive")
	}
	if c.Game.CurseDeleteDelay < 0 {
		return fmt.Errorf("game.curseDeleteDelay cannot be negative")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path must be set")
	}
	if c.Store.PurgeAge < 0 {
		return fmt.Errorf("store.purgeAge cannot be negative")
	}
	if c.Bot.UpdateTimeout <= 0 {
		return fmt.Errorf("bot.updateTimeout must be positive")
	}
	if c.Bot.SendRate <= 0 {
		return fmt.Errorf("bot.sendRate must be positive")
	}
	if c.Bot.SendBurst <= 0 {
		return fmt.Errorf("bot.sendBurst must be positive")
	}
	return nil
}
