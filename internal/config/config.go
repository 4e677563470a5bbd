package config

import (
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	// Keeper
	KeeperURL    string
	PrivateKey   string
	TxAttempts   int
	TxSleep      time.Duration
	TokenAddress common.Address

	// Contract addresses
	TemplateAddress          common.Address
	LockRewardAddress        common.Address
	AccessSecretStoreAddress common.Address
	EscrowRewardAddress      common.Address
	AgreementStoreAddress    common.Address
	ConditionStoreAddress    common.Address

	// Purchase saga
	PurchaseTimeout time.Duration
	PollerRetries   int
	PollerInterval  time.Duration

	// Metadata store
	AquariusURL string

	// Provider daemon
	ProviderPort string

	// Optional backing stores
	PostgresDSN   string
	RedisURL      string
	MigrationsDir string
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		KeeperURL:    getEnv("KEEPER_URL", "http://localhost:8545"),
		PrivateKey:   getEnv("ACCOUNT_PRIVATE_KEY", ""),
		TxAttempts:   getEnvInt("TX_RECEIPT_ATTEMPTS", 40),
		TxSleep:      time.Duration(getEnvInt("TX_RECEIPT_SLEEP_MS", 1500)) * time.Millisecond,
		TokenAddress: getAddr("TOKEN_ADDRESS"),

		TemplateAddress:          getAddr("TEMPLATE_ADDRESS"),
		LockRewardAddress:        getAddr("LOCK_REWARD_CONDITION_ADDRESS"),
		AccessSecretStoreAddress: getAddr("ACCESS_SECRET_STORE_CONDITION_ADDRESS"),
		EscrowRewardAddress:      getAddr("ESCROW_REWARD_ADDRESS"),
		AgreementStoreAddress:    getAddr("AGREEMENT_STORE_MANAGER_ADDRESS"),
		ConditionStoreAddress:    getAddr("CONDITION_STORE_MANAGER_ADDRESS"),

		PurchaseTimeout: time.Duration(getEnvInt("PURCHASE_TIMEOUT_SECONDS", 120)) * time.Second,
		PollerRetries:   getEnvInt("STATUS_POLLER_RETRIES", 2),
		PollerInterval:  time.Duration(getEnvInt("STATUS_POLLER_INTERVAL_MS", 10000)) * time.Millisecond,

		AquariusURL: getEnv("AQUARIUS_URL", "http://localhost:5000"),

		ProviderPort: getEnv("PROVIDER_PORT", "8030"),

		PostgresDSN:   getEnv("POSTGRES_DSN", ""),
		RedisURL:      getEnv("REDIS_URL", ""),
		MigrationsDir: getEnv("MIGRATIONS_DIR", "migrations"),
	}
}

func (c *Config) Validate(log *zap.Logger) {
	if c.PrivateKey == "" {
		log.Warn("ACCOUNT_PRIVATE_KEY is not set")
	}
	for name, addr := range map[string]common.Address{
		"TOKEN_ADDRESS":                         c.TokenAddress,
		"TEMPLATE_ADDRESS":                      c.TemplateAddress,
		"LOCK_REWARD_CONDITION_ADDRESS":         c.LockRewardAddress,
		"ACCESS_SECRET_STORE_CONDITION_ADDRESS": c.AccessSecretStoreAddress,
		"ESCROW_REWARD_ADDRESS":                 c.EscrowRewardAddress,
		"AGREEMENT_STORE_MANAGER_ADDRESS":       c.AgreementStoreAddress,
		"CONDITION_STORE_MANAGER_ADDRESS":       c.ConditionStoreAddress,
	} {
		if addr == (common.Address{}) {
			log.Warn("contract address is not set", zap.String("key", name))
		}
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

func getAddr(key string) common.Address {
	return common.HexToAddress(os.Getenv(key))
}
