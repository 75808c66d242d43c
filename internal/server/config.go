package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/Rekiiel/Poker/internal/table"
)

// ServerConfig represents the complete server configuration. Both
// blocks are optional; missing ones fall back to the defaults.
type ServerConfig struct {
	Server *ServerSettings `hcl:"server,block"`
	Tables *TableDefaults  `hcl:"table_defaults,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// TableDefaults applies to every table the registry creates
type TableDefaults struct {
	MaxPlayers      int `hcl:"max_players,optional"`
	SmallBlind      int `hcl:"small_blind,optional"`
	BigBlind        int `hcl:"big_blind,optional"`
	StartChips      int `hcl:"start_chips,optional"`
	NextHandDelayMS int `hcl:"next_hand_delay_ms,optional"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	def := table.DefaultConfig()
	return &ServerConfig{
		Server: &ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Tables: &TableDefaults{
			MaxPlayers:      def.MaxPlayers,
			SmallBlind:      def.SmallBlind,
			BigBlind:        def.BigBlind,
			StartChips:      def.StartChips,
			NextHandDelayMS: int(def.NextHandDelay / time.Millisecond),
		},
	}
}

// LoadServerConfig loads server configuration from an HCL file. A
// missing file yields the defaults.
func LoadServerConfig(filename string) (*ServerConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	def := DefaultServerConfig()
	if config.Server == nil {
		config.Server = def.Server
	} else {
		if config.Server.Address == "" {
			config.Server.Address = def.Server.Address
		}
		if config.Server.Port == 0 {
			config.Server.Port = def.Server.Port
		}
		if config.Server.LogLevel == "" {
			config.Server.LogLevel = def.Server.LogLevel
		}
	}
	if config.Tables == nil {
		config.Tables = def.Tables
	} else {
		if config.Tables.MaxPlayers == 0 {
			config.Tables.MaxPlayers = def.Tables.MaxPlayers
		}
		if config.Tables.SmallBlind == 0 {
			config.Tables.SmallBlind = def.Tables.SmallBlind
		}
		if config.Tables.BigBlind == 0 {
			config.Tables.BigBlind = def.Tables.BigBlind
		}
		if config.Tables.StartChips == 0 {
			config.Tables.StartChips = def.Tables.StartChips
		}
		if config.Tables.NextHandDelayMS == 0 {
			config.Tables.NextHandDelayMS = def.Tables.NextHandDelayMS
		}
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	t := c.Tables
	if t.SmallBlind <= 0 {
		return fmt.Errorf("small blind must be positive")
	}
	if t.BigBlind <= t.SmallBlind {
		return fmt.Errorf("big blind must be greater than small blind")
	}
	if t.MaxPlayers < 2 || t.MaxPlayers > 10 {
		return fmt.Errorf("max players must be between 2 and 10")
	}
	if t.StartChips < t.BigBlind {
		return fmt.Errorf("starting stack must cover at least the big blind")
	}
	if t.NextHandDelayMS < 0 {
		return fmt.Errorf("next hand delay must not be negative")
	}

	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// TableConfig converts the defaults into an engine table configuration
func (c *ServerConfig) TableConfig() table.Config {
	return table.Config{
		MaxPlayers:    c.Tables.MaxPlayers,
		SmallBlind:    c.Tables.SmallBlind,
		BigBlind:      c.Tables.BigBlind,
		StartChips:    c.Tables.StartChips,
		NextHandDelay: time.Duration(c.Tables.NextHandDelayMS) * time.Millisecond,
	}
}
