package config

import (
	"os"
	"strconv"

	"ccox_dashboard/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string
	JWTSecret   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Mining economy
	MiningRewardCCOX  float64
	MiningDurationHrs int
	AutoSwapThreshold float64
	ReferralBonusCCOX float64
	SwapMaturityDays  int
}

// Load reads configuration from the environment (.env is honored in dev).
func Load() *Config {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	// Economy defaults mirror production values: 2 CCOX per 24h session,
	// auto-swap once locked balance reaches 50, 1 CCOX referral bonus,
	// swaps mature after 7 days.
	reward := 2.0
	if v := os.Getenv("MINING_REWARD_CCOX"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			reward = f
		}
	}

	durationHrs := 24
	if v := os.Getenv("MINING_DURATION_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			durationHrs = n
		}
	}

	swapThreshold := 50.0
	if v := os.Getenv("AUTO_SWAP_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			swapThreshold = f
		}
	}

	referralBonus := 1.0
	if v := os.Getenv("REFERRAL_BONUS_CCOX"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			referralBonus = f
		}
	}

	swapMaturityDays := 7
	if v := os.Getenv("SWAP_MATURITY_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			swapMaturityDays = n
		}
	}

	return &Config{
		AppPort:           port,
		DatabaseURL:       dbURL,
		JWTSecret:         jwtSecret,
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           redisDB,
		MiningRewardCCOX:  reward,
		MiningDurationHrs: durationHrs,
		AutoSwapThreshold: swapThreshold,
		ReferralBonusCCOX: referralBonus,
		SwapMaturityDays:  swapMaturityDays,
	}
}
