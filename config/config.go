// Package config loads pipeline configuration from a yaml file with flag and
// environment overrides. Secrets (keeper key, LLM API key) come from the
// environment only.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Environment variables holding secrets.
const (
	EnvKeeperKey = "KEEPER_PRIVATE_KEY"
	EnvLLMAPIKey = "LLM_API_KEY"
)

// Defaults.
const (
	defaultTickBlocks      = 2
	defaultBlockTime       = 400 * time.Millisecond
	defaultOracleTimeout   = 3 * time.Second
	defaultReceiptTimeout  = 10 * time.Second
	defaultDecisionTimeout = 30 * time.Second
	defaultListenAddr      = ":8080"
	defaultWALDir          = "./wal/decisions"
	defaultAgentsFile      = "./data/agents.json"
	defaultStreamSymbol    = "ETHUSDC"
	defaultStreamCommodity = "MON_USDC"
)

// CommoditySeed is a tracked commodity and its bootstrap price. A zero seed
// means the commodity has no fallback price until a live feed delivers one.
type CommoditySeed struct {
	Name      string
	SeedPrice decimal.Decimal
}

// Config is the resolved runtime configuration.
type Config struct {
	RPCURL   string
	WSRPCURL string
	ChainID  int64

	OracleContract string
	MarketContract string
	AgentContract  string
	KeeperKey      string

	TickBlocks      int
	BlockTime       time.Duration
	OracleTimeout   time.Duration
	ReceiptTimeout  time.Duration
	DecisionTimeout time.Duration

	Commodities     []CommoditySeed
	StreamSymbol    string
	StreamCommodity string

	LLMAPIURL string
	LLMAPIKey string
	LLMModel  string

	ListenAddr string
	WALDir     string
	AgentsFile string
}

// CommodityNames returns the tracked commodity identifiers in config order.
func (c Config) CommodityNames() []string {
	names := make([]string, 0, len(c.Commodities))
	for _, seed := range c.Commodities {
		names = append(names, seed.Name)
	}
	return names
}

// Seeds returns the non-zero bootstrap prices keyed by commodity.
func (c Config) Seeds() map[string]decimal.Decimal {
	seeds := make(map[string]decimal.Decimal, len(c.Commodities))
	for _, seed := range c.Commodities {
		if seed.SeedPrice.GreaterThan(decimal.Zero) {
			seeds[seed.Name] = seed.SeedPrice
		}
	}
	return seeds
}

// TickInterval is the wall-clock period of the decision loop.
func (c Config) TickInterval() time.Duration {
	return time.Duration(c.TickBlocks) * c.BlockTime
}

// ConfigTmp is the raw yaml shape, also used by the setup wizard to generate
// a config file.
type ConfigTmp struct {
	RPCURL   string `yaml:"rpc_url"`
	WSRPCURL string `yaml:"ws_rpc_url"`
	ChainID  int64  `yaml:"chain_id"`

	OracleContract string `yaml:"oracle_contract"`
	MarketContract string `yaml:"market_contract"`
	AgentContract  string `yaml:"agent_contract"`

	TickBlocks      int           `yaml:"tick_blocks,omitempty"`
	BlockTime       time.Duration `yaml:"block_time,omitempty"`
	OracleTimeout   time.Duration `yaml:"oracle_timeout,omitempty"`
	ReceiptTimeout  time.Duration `yaml:"receipt_timeout,omitempty"`
	DecisionTimeout time.Duration `yaml:"decision_timeout,omitempty"`

	Commodities []struct {
		Name      string `yaml:"name"`
		SeedPrice string `yaml:"seed_price,omitempty"`
	} `yaml:"commodities,omitempty"`
	StreamSymbol    string `yaml:"stream_symbol,omitempty"`
	StreamCommodity string `yaml:"stream_commodity,omitempty"`

	LLMAPIURL string `yaml:"llm_api_url,omitempty"`
	LLMModel  string `yaml:"llm_model,omitempty"`

	ListenAddr string `yaml:"listen_addr,omitempty"`
	WALDir     string `yaml:"wal_dir,omitempty"`
	AgentsFile string `yaml:"agents_file,omitempty"`
}

// Get parses flags and loads the yaml config.
func Get() (Config, error) {
	path := flag.String("config", "config.yaml", "path to yaml config")
	flag.Parse()
	return getYaml(*path)
}

func getYaml(path string) (Config, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var tmp ConfigTmp
	if err := yaml.Unmarshal(payload, &tmp); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg := Config{
		RPCURL:          tmp.RPCURL,
		WSRPCURL:        tmp.WSRPCURL,
		ChainID:         tmp.ChainID,
		OracleContract:  tmp.OracleContract,
		MarketContract:  tmp.MarketContract,
		AgentContract:   tmp.AgentContract,
		KeeperKey:       os.Getenv(EnvKeeperKey),
		TickBlocks:      tmp.TickBlocks,
		BlockTime:       tmp.BlockTime,
		OracleTimeout:   tmp.OracleTimeout,
		ReceiptTimeout:  tmp.ReceiptTimeout,
		DecisionTimeout: tmp.DecisionTimeout,
		StreamSymbol:    tmp.StreamSymbol,
		StreamCommodity: tmp.StreamCommodity,
		LLMAPIURL:       tmp.LLMAPIURL,
		LLMAPIKey:       os.Getenv(EnvLLMAPIKey),
		LLMModel:        tmp.LLMModel,
		ListenAddr:      tmp.ListenAddr,
		WALDir:          tmp.WALDir,
		AgentsFile:      tmp.AgentsFile,
	}

	if cfg.RPCURL == "" {
		return Config{}, fmt.Errorf("'rpc_url' param is required in yaml config")
	}
	if cfg.ChainID == 0 {
		return Config{}, fmt.Errorf("'chain_id' param is required in yaml config")
	}

	for _, entry := range tmp.Commodities {
		if entry.Name == "" {
			return Config{}, fmt.Errorf("commodity entry without 'name' in yaml config")
		}
		seed := decimal.Zero
		if entry.SeedPrice != "" {
			seed, err = decimal.NewFromString(entry.SeedPrice)
			if err != nil {
				return Config{}, fmt.Errorf("incorrect 'seed_price' for commodity %s: %w", entry.Name, err)
			}
		}
		cfg.Commodities = append(cfg.Commodities, CommoditySeed{Name: entry.Name, SeedPrice: seed})
	}
	if len(cfg.Commodities) == 0 {
		cfg.Commodities = defaultCommodities()
	}

	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.TickBlocks <= 0 {
		cfg.TickBlocks = defaultTickBlocks
	}
	if cfg.BlockTime <= 0 {
		cfg.BlockTime = defaultBlockTime
	}
	if cfg.OracleTimeout <= 0 {
		cfg.OracleTimeout = defaultOracleTimeout
	}
	if cfg.ReceiptTimeout <= 0 {
		cfg.ReceiptTimeout = defaultReceiptTimeout
	}
	if cfg.DecisionTimeout <= 0 {
		cfg.DecisionTimeout = defaultDecisionTimeout
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if cfg.WALDir == "" {
		cfg.WALDir = defaultWALDir
	}
	if cfg.AgentsFile == "" {
		cfg.AgentsFile = defaultAgentsFile
	}
	if cfg.StreamSymbol == "" {
		cfg.StreamSymbol = defaultStreamSymbol
	}
	if cfg.StreamCommodity == "" {
		cfg.StreamCommodity = defaultStreamCommodity
	}
}

func defaultCommodities() []CommoditySeed {
	return []CommoditySeed{
		{Name: "GHOST_ORE", SeedPrice: decimal.NewFromFloat(1.00)},
		{Name: "PHANTOM_GAS", SeedPrice: decimal.NewFromFloat(2.50)},
		{Name: "VOID_CHIP", SeedPrice: decimal.NewFromFloat(5.00)},
		{Name: "MON_USDC"},
	}
}
