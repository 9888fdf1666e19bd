package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration using Viper
// Priority order: Environment variables > Config file > Defaults
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("killergame")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/killergame")
	}

	// Enable environment variable binding
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// These allow both KILLERGAME-style keys and the plain names to work
	v.BindEnv("bot.token", "BOT_TOKEN")
	v.BindEnv("bot.loglevel", "LOG_LEVEL")
	v.BindEnv("store.path", "STORE_PATH")
	v.BindEnv("ops.addr", "OPS_ADDR")

	// Game defaults follow the stock rules
	v.SetDefault("game.minplayers", 3)
	v.SetDefault("game.maxplayers", 10)
	v.SetDefault("game.nicknametimeout", "60s")
	v.SetDefault("game.votedeadline", "120s")
	v.SetDefault("game.cursedeletedelay", "500ms")

	// Bot defaults
	v.SetDefault("bot.updatetimeout", 30)
	v.SetDefault("bot.sendrate", 20.0)
	v.SetDefault("bot.sendburst", 5)
	v.SetDefault("bot.loglevel", "info")

	// Store defaults
	v.SetDefault("store.path", "killergame.db")
	v.SetDefault("store.purgeschedule", "0 3 * * *")
	v.SetDefault("store.purgeage", "48h")

	// Ops defaults: empty address disables the ops server
	v.SetDefault("ops.addr", "")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults cover it
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !strings.Contains(err.Error(), "no such file or directory") {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
