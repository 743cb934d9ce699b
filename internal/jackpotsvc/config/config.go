package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/models"
)

type Config struct {
	Port      string
	JWTSecret string
	BotToken  string
	BotName   string

	// OracleURL switches the draw to the external randomness service.
	// Empty keeps the local provably fair source.
	OracleURL string

	// AdminTelegramIDs may use the admin endpoints.
	AdminTelegramIDs []string

	RoundDefaults models.RoundConfig
}

func Load() Config {
	cfg := Config{
		Port:      getenv("PORT", "8080"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		BotToken:  os.Getenv("BOT_TOKEN"),
		BotName:   getenv("BOT_NAME", "StarsJackpotBot"),
		OracleURL: os.Getenv("RANDOM_ORACLE_URL"),
		RoundDefaults: models.RoundConfig{
			MaxParticipants: getenvInt("ROUND_MAX_PARTICIPANTS", 5),
			MinBet:          getenvDecimal("ROUND_MIN_BET", "1"),
			FeePercent:      getenvDecimal("ROUND_FEE_PERCENT", "5"),
		},
	}

	if ids := os.Getenv("ADMIN_TELEGRAM_IDS"); ids != "" {
		for _, id := range strings.Split(ids, ",") {
			if id = strings.TrimSpace(id); id != "" {
				cfg.AdminTelegramIDs = append(cfg.AdminTelegramIDs, id)
			}
		}
	}

	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET is empty, tokens will not survive restarts across instances")
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warnf("bad %s value %q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getenvDecimal(key, fallback string) decimal.Decimal {
	v := os.Getenv(key)
	if v == "" {
		v = fallback
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		log.Warnf("bad %s value %q, using %s", key, v, fallback)
		d, _ = decimal.NewFromString(fallback)
	}
	return d
}
