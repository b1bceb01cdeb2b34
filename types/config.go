package types

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type (
	Config struct {
		Name string
		RPC  string

		Factory             string
		WrapNativeToken     string
		Stablecoins         []string
		CanonicalPair       string
		CanonicalStablecoin string
		PairInitCodeHash    string

		// Declared for parity with the deployed mappings, no handler reads it.
		MinimumUSDThresholdNewPairs  decimal.Decimal
		MinimumLiquidityThresholdETH decimal.Decimal

		StartBlock     uint64
		BlockBatchSize uint64
		PollInterval   time.Duration

		DataDir  string
		UseCache bool
		Debug    bool
	}
)

// DefaultConfig returns the Base mainnet deployment.
func DefaultConfig() Config {
	return Config{
		Name:            "base",
		Factory:         "0x8909Dc15e40173Ff4699343b6eB8132c65e18eC6",
		WrapNativeToken: "0x4200000000000000000000000000000000000006",
		Stablecoins: []string{
			"0x833589fcd6edb6e08f4c7c32d4f71b54bda02913", // USDC
			"0xd9aaec86b65d86f6a7b5b1b0c42ffa531710b6ca", // USDbC
			"0x50c5725949a6f0c72e6c4a641f24049a917db0cb", // DAI
		},
		CanonicalPair:                "0x88a43bbdf9d098eec7bceda4e2494615dfd9bb9c",
		MinimumUSDThresholdNewPairs:  decimal.NewFromInt(50),
		MinimumLiquidityThresholdETH: decimal.RequireFromString("0.01"),
		BlockBatchSize:               2000,
		PollInterval:                 2 * time.Second,
		UseCache:                     true,
	}
}

// LoadConfig reads an optional .env file at path and overlays environment
// variables on top of DefaultConfig.
func LoadConfig(path string) Config {
	if path != "" {
		_ = godotenv.Load(path)
	}

	def := DefaultConfig()
	return Config{
		Name:                         getEnv("INDEXER_NAME", def.Name),
		RPC:                          getEnv("INDEXER_RPC", def.RPC),
		Factory:                      getEnv("INDEXER_FACTORY", def.Factory),
		WrapNativeToken:              getEnv("INDEXER_WRAP_NATIVE_TOKEN", def.WrapNativeToken),
		Stablecoins:                  getEnvAsSlice("INDEXER_STABLECOINS", def.Stablecoins, ","),
		CanonicalPair:                getEnv("INDEXER_CANONICAL_PAIR", def.CanonicalPair),
		CanonicalStablecoin:          getEnv("INDEXER_CANONICAL_STABLECOIN", def.CanonicalStablecoin),
		PairInitCodeHash:             getEnv("INDEXER_PAIR_INIT_CODE_HASH", def.PairInitCodeHash),
		MinimumUSDThresholdNewPairs:  getEnvAsDecimal("INDEXER_MIN_USD_NEW_PAIRS", def.MinimumUSDThresholdNewPairs),
		MinimumLiquidityThresholdETH: getEnvAsDecimal("INDEXER_MIN_LIQUIDITY_ETH", def.MinimumLiquidityThresholdETH),
		StartBlock:                   getEnvAsUint("INDEXER_START_BLOCK", def.StartBlock),
		BlockBatchSize:               getEnvAsUint("INDEXER_BLOCK_BATCH_SIZE", def.BlockBatchSize),
		PollInterval:                 getEnvAsDuration("INDEXER_POLL_INTERVAL", def.PollInterval),
		DataDir:                      getEnv("INDEXER_DATA_DIR", def.DataDir),
		UseCache:                     getEnvAsBool("INDEXER_USE_CACHE", def.UseCache),
		Debug:                        getEnvAsBool("INDEXER_DEBUG", def.Debug),
	}
}

// ID normalizes an address to the lower-case hex form used as entity id.
func ID(address common.Address) string {
	return strings.ToLower(address.Hex())
}

// NormalizeID lower-cases a hex address string.
func NormalizeID(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

func (c *Config) BaseAsset() string {
	return NormalizeID(c.WrapNativeToken)
}

func (c *Config) FactoryID() string {
	return NormalizeID(c.Factory)
}

func (c *Config) IsBaseAsset(id string) bool {
	return id == c.BaseAsset()
}

func (c *Config) IsStablecoin(id string) bool {
	return lo.ContainsBy(c.Stablecoins, func(s string) bool { return NormalizeID(s) == id })
}

// IsWhitelisted reports whether pairs against id are trusted price sources.
func (c *Config) IsWhitelisted(id string) bool {
	return c.IsBaseAsset(id) || c.IsStablecoin(id)
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvAsUint(key string, defaultVal uint64) uint64 {
	if value, err := strconv.ParseUint(getEnv(key, ""), 10, 64); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsDecimal(key string, defaultVal decimal.Decimal) decimal.Decimal {
	if value, err := decimal.NewFromString(getEnv(key, "")); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsSlice(key string, defaultVal []string, sep string) []string {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultVal
	}
	return lo.Map(strings.Split(valStr, sep), func(s string, _ int) string { return strings.TrimSpace(s) })
}
