package infra

import (
	"errors"
	"fmt"
	"os"

	"asset_ledger/internal/domain"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds every application setting. LoadConfig reads the YAML file and
// then lets environment variables override it.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Ledger struct {
		ListingFee decimal.Decimal `yaml:"listing_fee"`
		Operator   string          `yaml:"operator"`  // fee account
		Custodian  string          `yaml:"custodian"` // escrow and custody account
	} `yaml:"ledger"`

	Storage struct {
		Path string `yaml:"path"` // empty: per-user data dir
	} `yaml:"storage"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`

	// Genesis seeds the sandbox registry and vault.
	Genesis struct {
		Accounts []GenesisAccount `yaml:"accounts"`
		Assets   []GenesisAsset   `yaml:"assets"`
	} `yaml:"genesis"`
}

type GenesisAccount struct {
	Identity string          `yaml:"identity"`
	Balance  decimal.Decimal `yaml:"balance"`
}

type GenesisAsset struct {
	Collection string `yaml:"collection"`
	Token      string `yaml:"token"`
	Owner      string `yaml:"owner"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML bytes, applies defaults and environment overrides,
// then validates.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	cfg.applyDefaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if err := overrideWithEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// A missing file is not an error; existing variables are not overwritten.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

func (c *Config) applyDefaults() {
	c.App.Name = "asset-ledger"
	c.Ledger.ListingFee = decimal.Zero
	c.Ledger.Operator = "operator"
	c.Ledger.Custodian = "ledger"
	c.Server.Addr = "localhost:8080"
	c.Logging.Level = "info"
	c.Logging.Dir = "logs"
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Ledger.ListingFee.IsNegative() {
		return invalid("ledger.listing_fee", "must not be negative")
	}
	if c.Ledger.Operator == "" {
		return invalid("ledger.operator", "is required")
	}
	if c.Ledger.Custodian == "" {
		return invalid("ledger.custodian", "is required")
	}
	if c.Ledger.Operator == c.Ledger.Custodian {
		return invalid("ledger.custodian", "must differ from operator")
	}
	if c.Server.Addr == "" {
		return invalid("server.addr", "is required")
	}

	for i, a := range c.Genesis.Accounts {
		if a.Identity == "" || a.Balance.IsNegative() {
			return invalid(fmt.Sprintf("genesis.accounts[%d]", i), "needs an identity and a non-negative balance")
		}
	}
	seen := make(map[domain.AssetRef]bool, len(c.Genesis.Assets))
	for i, a := range c.Genesis.Assets {
		ref := domain.AssetRef{Collection: a.Collection, Token: a.Token}
		if a.Collection == "" || a.Token == "" || a.Owner == "" {
			return invalid(fmt.Sprintf("genesis.assets[%d]", i), "needs collection, token and owner")
		}
		if seen[ref] {
			return invalid(fmt.Sprintf("genesis.assets[%d]", i), "duplicate asset "+ref.String())
		}
		seen[ref] = true
	}

	return nil
}

func invalid(field, msg string) error {
	return &domain.ConfigError{Field: field, Err: errors.New(msg)}
}

// overrideWithEnv overrides settings from LEDGER_* environment variables.
func overrideWithEnv(cfg *Config) error {
	if fee := os.Getenv("LEDGER_LISTING_FEE"); fee != "" {
		v, err := decimal.NewFromString(fee)
		if err != nil {
			return &domain.ConfigError{Field: "LEDGER_LISTING_FEE", Err: err}
		}
		cfg.Ledger.ListingFee = v
	}
	if op := os.Getenv("LEDGER_OPERATOR"); op != "" {
		cfg.Ledger.Operator = op
	}
	if c := os.Getenv("LEDGER_CUSTODIAN"); c != "" {
		cfg.Ledger.Custodian = c
	}
	if p := os.Getenv("LEDGER_DB_PATH"); p != "" {
		cfg.Storage.Path = p
	}
	if addr := os.Getenv("LEDGER_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if lvl := os.Getenv("LEDGER_LOG_LEVEL"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if dir := os.Getenv("LEDGER_LOG_DIR"); dir != "" {
		cfg.Logging.Dir = dir
	}
	return nil
}
