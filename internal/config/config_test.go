package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:test-token")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "123:test-token", cfg.Bot.Token)
	assert.Equal(t, 3, cfg.Game.MinPlayers)
	assert.Equal(t, 10, cfg.Game.MaxPlayers)
	assert.Equal(t, 60*time.Second, cfg.Game.NicknameTimeout)
	assert.Equal(t, 120*time.Second, cfg.Game.VoteDeadline)
	assert.Equal(t, 500*time.Millisecond, cfg.Game.CurseDeleteDelay)
	assert.Equal(t, "killergame.db", cfg.Store.Path)
	assert.Equal(t, "0 3 * * *", cfg.Store.PurgeSchedule)
	assert.Equal(t, 48*time.Hour, cfg.Store.PurgeAge)
	assert.Equal(t, "info", cfg.Bot.LogLevel)
	assert.Empty(t, cfg.Ops.Addr, "ops server should be off by default")
}

func TestLoadConfigRequiresToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")

	_, err := LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOT_TOKEN")
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:test-token")

	dir := t.TempDir()
	path := filepath.Join(dir, "killergame.yaml")
	yaml := `
game:
  minPlayers: 4
  maxPlayers: 6
  nicknameTimeout: 30s
store:
  path: /tmp/other.db
ops:
  addr: ":9090"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Game.MinPlayers)
	assert.Equal(t, 6, cfg.Game.MaxPlayers)
	assert.Equal(t, 30*time.Second, cfg.Game.NicknameTimeout)
	assert.Equal(t, "/tmp/other.db", cfg.Store.Path)
	assert.Equal(t, ":9090", cfg.Ops.Addr)
	// Untouched keys keep their defaults.
	assert.Equal(t, 120*time.Second, cfg.Game.VoteDeadline)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:test-token")
	t.Setenv("STORE_PATH", "/data/env.db")

	dir := t.TempDir()
	path := filepath.Join(dir, "killergame.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  path: /tmp/file.db\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/env.db", cfg.Store.Path)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Bot: BotSettings{
				Token:         "123:token",
				UpdateTimeout: 30,
				SendRate:      20,
				SendBurst:     5,
				LogLevel:      "info",
			},
			Game: GameSettings{
				MinPlayers:       3,
				MaxPlayers:       10,
				NicknameTimeout:  time.Minute,
				VoteDeadline:     2 * time.Minute,
				CurseDeleteDelay: 500 * time.Millisecond,
			},
			Store: StoreSettings{Path: "test.db", PurgeAge: time.Hour},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing token", func(c *Config) { c.Bot.Token = "" }, "BOT_TOKEN"},
		{"too few players", func(c *Config) { c.Game.MinPlayers = 2 }, "minPlayers"},
		{"max below min", func(c *Config) { c.Game.MaxPlayers = 2 }, "maxPlayers"},
		{"zero nickname timeout", func(c *Config) { c.Game.NicknameTimeout = 0 }, "nicknameTimeout"},
		{"zero vote deadline", func(c *Config) { c.Game.VoteDeadline = 0 }, "voteDeadline"},
		{"negative delete delay", func(c *Config) { c.Game.CurseDeleteDelay = -time.Second }, "curseDeleteDelay"},
		{"empty store path", func(c *Config) { c.Store.Path = "" }, "store.path"},
		{"zero send rate", func(c *Config) { c.Bot.SendRate = 0 }, "sendRate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
