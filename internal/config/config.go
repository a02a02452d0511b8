package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the questing simulation.
type Config struct {
	LogLevel string `yaml:"log_level"`

	// Runtime switches initial values (operator may flip them later)
	QuestingEnabled   bool `yaml:"questing_enabled"`
	TimeGatingEnabled bool `yaml:"time_gating_enabled"`

	Questing   Questing       `yaml:"questing"`
	Simulation Simulation     `yaml:"simulation"`
	Database   DatabaseConfig `yaml:"database"`
}

// Simulation holds parameters of the demo world driven by cmd/questsim.
type Simulation struct {
	Agents       int           `yaml:"agents"`
	GroupSize    int           `yaml:"group_size"` // boss + followers
	Objectives   int           `yaml:"objectives"`
	WorldExtent  float64       `yaml:"world_extent"`
	MoveSpeed    float64       `yaml:"move_speed"` // units per second
	TickInterval time.Duration `yaml:"tick_interval"`
	StartDelay   time.Duration `yaml:"start_delay"` // simulated agent generation time
	Duration     time.Duration `yaml:"duration"`    // 0 = until signal
	Seed         uint64        `yaml:"seed"`

	// Reinforcement waves spawned after the start, one group each
	Waves        int           `yaml:"waves"`
	WaveInterval time.Duration `yaml:"wave_interval"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
// Event persistence is disabled when Host is empty.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`

	EventQueueSize int           `yaml:"event_queue_size"`
	FlushInterval  time.Duration `yaml:"flush_interval"`
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Default returns Config with sensible defaults.
func Default() Config {
	return Config{
		LogLevel:          "info",
		QuestingEnabled:   true,
		TimeGatingEnabled: true,
		Questing:          DefaultQuesting(),
		Simulation: Simulation{
			Agents:       60,
			GroupSize:    3,
			Objectives:   40,
			WorldExtent:  500,
			MoveSpeed:    4,
			TickInterval: 100 * time.Millisecond,
			StartDelay:   2 * time.Second,
			Seed:         1,
			Waves:        3,
			WaveInterval: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Port:           5432,
			User:           "questbots",
			Password:       "questbots",
			DBName:         "questbots",
			SSLMode:        "disable",
			EventQueueSize: 4096,
			FlushInterval:  time.Second,
		},
	}
}

// Load loads config from a YAML file.
// If the file doesn't exist, returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Questing.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}
