package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// Config holds the process settings. Durations ending in MS are
// milliseconds.
type Config struct {
	Port                     string
	DatabaseURL              string
	ServerTickMS             int
	AlarmIntervalMS          int
	StartCountdownMS         int
	RoleTurnMS               int
	LoversTurnMS             int
	VoteMS                   int
	WakeDelayMS              int
	PhasePauseMS             int
	HappeningMS              int
	HappeningDelayMS         int
	EndCountdownMS           int
	ClientMsgRate            float64
	ClientMsgBurst           int
	RosterPath               string
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeSeconds int
}

func Default() Config {
	return Config{
		Port:                     "8080",
		ServerTickMS:             50,
		AlarmIntervalMS:          1000,
		StartCountdownMS:         5000,
		RoleTurnMS:               15000,
		LoversTurnMS:             15000,
		VoteMS:                   30000,
		WakeDelayMS:              5000,
		PhasePauseMS:             10000,
		HappeningMS:              15000,
		HappeningDelayMS:         2000,
		EndCountdownMS:           100,
		ClientMsgRate:            60,
		ClientMsgBurst:           120,
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
	}
}

func Load() Config {
	cfg := Default()
	if raw := os.Getenv("PORT"); raw != "" {
		cfg.Port = raw
	}
	if raw := os.Getenv("DATABASE_URL"); raw != "" {
		cfg.DatabaseURL = raw
	}
	if raw := os.Getenv("ROSTER_PATH"); raw != "" {
		cfg.RosterPath = raw
	}
	positiveInt(&cfg.ServerTickMS, "SERVER_TICK_MS")
	positiveInt(&cfg.AlarmIntervalMS, "ALARM_INTERVAL_MS")
	positiveInt(&cfg.StartCountdownMS, "START_COUNTDOWN_MS")
	positiveInt(&cfg.RoleTurnMS, "ROLE_TURN_MS")
	positiveInt(&cfg.LoversTurnMS, "LOVERS_TURN_MS")
	positiveInt(&cfg.VoteMS, "VOTE_MS")
	positiveInt(&cfg.WakeDelayMS, "WAKE_DELAY_MS")
	positiveInt(&cfg.PhasePauseMS, "PHASE_PAUSE_MS")
	positiveInt(&cfg.HappeningMS, "HAPPENING_MS")
	positiveInt(&cfg.HappeningDelayMS, "HAPPENING_DELAY_MS")
	positiveInt(&cfg.EndCountdownMS, "END_COUNTDOWN_MS")
	positiveInt(&cfg.ClientMsgBurst, "CLIENT_MSG_BURST")
	positiveInt(&cfg.DBMaxOpenConns, "DB_MAX_OPEN_CONNS")
	positiveInt(&cfg.DBMaxIdleConns, "DB_MAX_IDLE_CONNS")
	positiveInt(&cfg.DBConnMaxLifetimeSeconds, "DB_CONN_MAX_LIFETIME_SECONDS")
	if raw := os.Getenv("CLIENT_MSG_RATE"); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil && value > 0 {
			cfg.ClientMsgRate = value
		}
	}
	return cfg
}

func positiveInt(dest *int, key string) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	if value, err := strconv.Atoi(raw); err == nil && value > 0 {
		*dest = value
	}
}
