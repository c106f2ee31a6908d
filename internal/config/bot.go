package config

import (
	"time"

	"github.com/spf13/viper"
)

// BotConfig is everything the bot process needs beyond the store settings
// (those live with the database package).
type BotConfig struct {
	Token      string        // Telegram bot token
	CuratorID  int64         // the single super-admin account
	InviteLink string        // club invite rendered as a QR, optional
	PurgeGrace time.Duration // pause between purge ack and wipe
	Port       string        // ops HTTP server port
}

// LoadBotConfig reads the bot configuration with defaults.
func LoadBotConfig() *BotConfig {
	viper.SetDefault("bot.invite_link", "")
	viper.SetDefault("bot.purge_grace", 3*time.Second)
	viper.SetDefault("port", "8080")

	return &BotConfig{
		Token:      viper.GetString("bot.token"),
		CuratorID:  viper.GetInt64("bot.curator_id"),
		InviteLink: viper.GetString("bot.invite_link"),
		PurgeGrace: viper.GetDuration("bot.purge_grace"),
		Port:       viper.GetString("port"),
	}
}
