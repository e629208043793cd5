package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TableTier is a named blind level offered to players.
type TableTier struct {
	ID         string `json:"id" yaml:"id"`
	SmallBlind int64  `json:"small_blind" yaml:"small_blind"`
	BigBlind   int64  `json:"big_blind" yaml:"big_blind"`
}

// RedisConfig locates the Redis game store.
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

// NATSConfig locates the event bus.
type NATSConfig struct {
	URL           string `json:"url" yaml:"url"`
	SubjectPrefix string `json:"subject_prefix" yaml:"subject_prefix"`
}

type GameConfig struct {
	MaxSeats      int         `json:"max_seats" yaml:"max_seats"`
	Currency      string      `json:"currency" yaml:"currency"`
	StartingChips int64       `json:"starting_chips" yaml:"starting_chips"`
	DefaultTable  string      `json:"default_table" yaml:"default_table"`
	Tables        []TableTier `json:"tables" yaml:"tables"`
	Redis         RedisConfig `json:"redis" yaml:"redis"`
	NATS          NATSConfig  `json:"nats" yaml:"nats"`
}

const (
	defaultMaxSeats      = 6
	defaultCurrency      = "chips"
	defaultStartingChips = 10000
	defaultSmallBlind    = 10
	defaultBigBlind      = 20
	defaultSubjectPrefix = "poker.game"
)

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// Default returns the configuration used when no file is present.
func Default() *GameConfig {
	c := &GameConfig{}
	c.applyDefaults()
	return c
}

// Load reads a JSON or YAML (by extension) configuration file.
func Load(path string) (*GameConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read game config: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes configuration bytes; ext selects YAML for ".yaml"/".yml", JSON otherwise.
func Parse(data []byte, ext string) (*GameConfig, error) {
	var c GameConfig
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal game config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal game config: %w", err)
		}
	}
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadGameConfig loads the process-wide configuration from path once.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		cfg, loadErr = Load(path)
	})
	return loadErr
}

// GetGameConfig returns the process-wide configuration, or defaults if none was loaded.
func GetGameConfig() *GameConfig {
	if cfg == nil {
		return Default()
	}
	return cfg
}

// ApplyEnv overrides fields from runtime environment variables.
func (c *GameConfig) ApplyEnv(env map[string]string) {
	if val, ok := env["poker_max_seats"]; ok {
		if i, err := strconv.Atoi(val); err == nil && i >= 2 {
			c.MaxSeats = i
		}
	}
	if val, ok := env["poker_currency"]; ok && val != "" {
		c.Currency = val
	}
	if val, ok := env["poker_starting_chips"]; ok {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil && i >= 0 {
			c.StartingChips = i
		}
	}
	if val, ok := env["poker_redis_addr"]; ok {
		c.Redis.Addr = val
	}
	if val, ok := env["poker_nats_url"]; ok {
		c.NATS.URL = val
	}
}

// ResolveTable returns tableID when it names a configured tier, otherwise the default tier.
func (c *GameConfig) ResolveTable(tableID string) string {
	for _, tier := range c.Tables {
		if tableID != "" && tier.ID == tableID {
			return tableID
		}
	}
	return c.DefaultTable
}

// Blinds returns the blinds for a table tier, falling back to the default tier.
func (c *GameConfig) Blinds(tableID string) (small, big int64) {
	target := tableID
	if target == "" {
		target = c.DefaultTable
	}
	for _, tier := range c.Tables {
		if tier.ID == target {
			return tier.SmallBlind, tier.BigBlind
		}
	}
	for _, tier := range c.Tables {
		if tier.ID == c.DefaultTable {
			return tier.SmallBlind, tier.BigBlind
		}
	}
	return defaultSmallBlind, defaultBigBlind
}

func (c *GameConfig) applyDefaults() {
	if c.MaxSeats == 0 {
		c.MaxSeats = defaultMaxSeats
	}
	if c.Currency == "" {
		c.Currency = defaultCurrency
	}
	if c.StartingChips == 0 {
		c.StartingChips = defaultStartingChips
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = defaultSubjectPrefix
	}
}

func (c *GameConfig) validate() error {
	if c.MaxSeats < 2 {
		return fmt.Errorf("max_seats must be at least 2, got %d", c.MaxSeats)
	}
	for _, tier := range c.Tables {
		if tier.SmallBlind <= 0 || tier.BigBlind < tier.SmallBlind {
			return fmt.Errorf("table %q has invalid blinds %d/%d", tier.ID, tier.SmallBlind, tier.BigBlind)
		}
	}
	return nil
}
