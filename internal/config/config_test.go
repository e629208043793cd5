package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlConfig = `
max_seats: 4
currency: gold
default_table: low
tables:
  - id: low
    small_blind: 5
    big_blind: 10
  - id: high
    small_blind: 50
    big_blind: 100
redis:
  addr: localhost:6379
  db: 2
`

func TestParseYAML(t *testing.T) {
	c, err := Parse([]byte(yamlConfig), ".yaml")
	require.NoError(t, err)

	assert.Equal(t, 4, c.MaxSeats)
	assert.Equal(t, "gold", c.Currency)
	assert.Equal(t, int64(defaultStartingChips), c.StartingChips)
	assert.Equal(t, "localhost:6379", c.Redis.Addr)
	assert.Equal(t, 2, c.Redis.DB)
	assert.Equal(t, defaultSubjectPrefix, c.NATS.SubjectPrefix)

	small, big := c.Blinds("high")
	assert.Equal(t, int64(50), small)
	assert.Equal(t, int64(100), big)

	small, big = c.Blinds("")
	assert.Equal(t, int64(5), small)
	assert.Equal(t, int64(10), big)

	small, big = c.Blinds("missing")
	assert.Equal(t, int64(5), small)
	assert.Equal(t, int64(10), big)
}

func TestResolveTable(t *testing.T) {
	c, err := Parse([]byte(yamlConfig), ".yaml")
	require.NoError(t, err)

	assert.Equal(t, "high", c.ResolveTable("high"))
	assert.Equal(t, "low", c.ResolveTable(""))
	assert.Equal(t, "low", c.ResolveTable("missing"))
	assert.Equal(t, "", Default().ResolveTable("high"))
}

func TestParseJSON(t *testing.T) {
	c, err := Parse([]byte(`{"max_seats": 2, "tables": [{"id": "x", "small_blind": 1, "big_blind": 2}]}`), ".json")
	require.NoError(t, err)
	assert.Equal(t, 2, c.MaxSeats)
	assert.Equal(t, defaultCurrency, c.Currency)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "one seat", data: `{"max_seats": 1}`},
		{name: "inverted blinds", data: `{"tables": [{"id": "x", "small_blind": 20, "big_blind": 10}]}`},
		{name: "malformed", data: `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), ".json")
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.yml")
	require.NoError(t, os.WriteFile(path, []byte(yamlConfig), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gold", c.Currency)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	c := Default()
	c.ApplyEnv(map[string]string{
		"poker_max_seats":      "9",
		"poker_currency":       "coins",
		"poker_starting_chips": "500",
		"poker_redis_addr":     "redis:6379",
		"poker_nats_url":       "nats://bus:4222",
	})
	assert.Equal(t, 9, c.MaxSeats)
	assert.Equal(t, "coins", c.Currency)
	assert.Equal(t, int64(500), c.StartingChips)
	assert.Equal(t, "redis:6379", c.Redis.Addr)
	assert.Equal(t, "nats://bus:4222", c.NATS.URL)

	c.ApplyEnv(map[string]string{"poker_max_seats": "1"})
	assert.Equal(t, 9, c.MaxSeats)
}
