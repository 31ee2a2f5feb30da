package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/bokk3/gamble-fun-sub001/internal/ai"
)

// Config is the complete server configuration.
type Config struct {
	Server   ServerSettings  `hcl:"server,block"`
	Tables   []TableConfig   `hcl:"table,block"`
	Profiles []ProfileConfig `hcl:"ai_profile,block"`
}

// ServerSettings contains server-level configuration.
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
	DataDir  string `hcl:"data_dir,optional"`
}

// TableConfig defines one poker table.
type TableConfig struct {
	Name            string   `hcl:"name,label"`
	MaxSeats        int      `hcl:"max_seats,optional"`
	SmallBlind      int      `hcl:"small_blind"`
	BigBlind        int      `hcl:"big_blind"`
	BuyInMin        int      `hcl:"buy_in_min,optional"`
	BuyInMax        int      `hcl:"buy_in_max,optional"`
	TurnTimeoutSecs int      `hcl:"turn_timeout_secs,optional"`
	InterHandSecs   int      `hcl:"inter_hand_secs,optional"`
	GraceWindowSecs int      `hcl:"grace_window_secs,optional"`
	Bots            []string `hcl:"bots,optional"`
}

// ProfileConfig defines one AI playing style.
type ProfileConfig struct {
	Name           string  `hcl:"name,label"`
	Style          string  `hcl:"style"`
	Skill          string  `hcl:"skill,optional"`
	Aggression     float64 `hcl:"aggression,optional"`
	BluffFrequency float64 `hcl:"bluff_frequency,optional"`
	FoldToPressure float64 `hcl:"fold_to_pressure,optional"`
	Bankroll       int     `hcl:"bankroll,optional"`
}

// DefaultConfig returns the configuration used when no file is present: one
// low-stakes table with a pair of house bots.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
			DataDir:  "data",
		},
		Tables: []TableConfig{
			{
				Name:            "main",
				MaxSeats:        6,
				SmallBlind:      1,
				BigBlind:        2,
				BuyInMin:        100,
				BuyInMax:        1000,
				TurnTimeoutSecs: 30,
				InterHandSecs:   3,
				GraceWindowSecs: 60,
				Bots:            []string{"rocky", "station"},
			},
		},
		Profiles: []ProfileConfig{
			{
				Name: "rocky", Style: "rock", Skill: "intermediate",
				Aggression: 0.3, BluffFrequency: 0.02, FoldToPressure: 0.6, Bankroll: 5000,
			},
			{
				Name: "station", Style: "calling_station", Skill: "beginner",
				Aggression: 0.2, BluffFrequency: 0.05, FoldToPressure: 0.1, Bankroll: 5000,
			},
		},
	}
}

// LoadConfig reads an HCL configuration file, applies defaults and validates
// the result. A missing file yields the defaults.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse config: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("decode config: %s", diags.Error())
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.DataDir == "" {
		c.Server.DataDir = "data"
	}

	for i := range c.Tables {
		t := &c.Tables[i]
		if t.MaxSeats == 0 {
			t.MaxSeats = 6
		}
		if t.BuyInMin == 0 {
			t.BuyInMin = t.BigBlind * 50
		}
		if t.BuyInMax == 0 {
			t.BuyInMax = t.BigBlind * 500
		}
		if t.TurnTimeoutSecs == 0 {
			t.TurnTimeoutSecs = 30
		}
		if t.InterHandSecs == 0 {
			t.InterHandSecs = 3
		}
		if t.GraceWindowSecs == 0 {
			t.GraceWindowSecs = 60
		}
	}

	for i := range c.Profiles {
		p := &c.Profiles[i]
		if p.Skill == "" {
			p.Skill = "intermediate"
		}
		if p.Aggression == 0 {
			p.Aggression = 0.5
		}
		if p.Bankroll == 0 {
			p.Bankroll = 5000
		}
	}
}

// Validate checks cross-field and cross-block consistency.
func (c *Config) Validate() error {
	if len(c.Tables) == 0 {
		return fmt.Errorf("config: at least one table block required")
	}

	profiles := make(map[string]bool, len(c.Profiles))
	for _, p := range c.Profiles {
		if profiles[p.Name] {
			return fmt.Errorf("config: duplicate ai_profile %q", p.Name)
		}
		profiles[p.Name] = true
		if _, err := ai.ParseStyle(p.Style); err != nil {
			return fmt.Errorf("config: ai_profile %q: %w", p.Name, err)
		}
		if _, err := ai.ParseSkill(p.Skill); err != nil {
			return fmt.Errorf("config: ai_profile %q: %w", p.Name, err)
		}
		if p.Aggression < 0 || p.Aggression > 1 {
			return fmt.Errorf("config: ai_profile %q: aggression must be in [0,1]", p.Name)
		}
		if p.BluffFrequency < 0 || p.BluffFrequency > 1 {
			return fmt.Errorf("config: ai_profile %q: bluff_frequency must be in [0,1]", p.Name)
		}
		if p.FoldToPressure < 0 || p.FoldToPressure > 1 {
			return fmt.Errorf("config: ai_profile %q: fold_to_pressure must be in [0,1]", p.Name)
		}
	}

	seen := make(map[string]bool, len(c.Tables))
	for _, t := range c.Tables {
		if seen[t.Name] {
			return fmt.Errorf("config: duplicate table %q", t.Name)
		}
		seen[t.Name] = true
		if t.SmallBlind <= 0 || t.BigBlind <= 0 {
			return fmt.Errorf("config: table %q: blinds must be positive", t.Name)
		}
		if t.SmallBlind >= t.BigBlind {
			return fmt.Errorf("config: table %q: small blind must be below big blind", t.Name)
		}
		if t.BuyInMin > t.BuyInMax {
			return fmt.Errorf("config: table %q: buy_in_min exceeds buy_in_max", t.Name)
		}
		if t.MaxSeats < 2 || t.MaxSeats > 10 {
			return fmt.Errorf("config: table %q: max_seats must be in [2,10]", t.Name)
		}
		for _, bot := range t.Bots {
			if !profiles[bot] {
				return fmt.Errorf("config: table %q references unknown ai_profile %q", t.Name, bot)
			}
		}
	}
	return nil
}

// Profile converts a profile block into the engine's representation. The
// style and skill are already validated.
func (p ProfileConfig) Profile() ai.Profile {
	style, _ := ai.ParseStyle(p.Style)
	skill, _ := ai.ParseSkill(p.Skill)
	return ai.Profile{
		ID:             p.Name,
		Name:           p.Name,
		Style:          style,
		Skill:          skill,
		Aggression:     p.Aggression,
		BluffFrequency: p.BluffFrequency,
		FoldToPressure: p.FoldToPressure,
		Bankroll:       p.Bankroll,
	}
}

// TurnTimeout returns the table's action deadline.
func (t TableConfig) TurnTimeout() time.Duration {
	return time.Duration(t.TurnTimeoutSecs) * time.Second
}

// InterHandDelay returns the pause between hands.
func (t TableConfig) InterHandDelay() time.Duration {
	return time.Duration(t.InterHandSecs) * time.Second
}

// GraceWindow returns the reconnection window for dropped players.
func (t TableConfig) GraceWindow() time.Duration {
	return time.Duration(t.GraceWindowSecs) * time.Second
}
