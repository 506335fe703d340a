package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"parking-system/internal/parking"
)

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig
	Parking ParkingConfig

	Environment string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// ParkingConfig holds the engine's construction-time setup.
type ParkingConfig struct {
	Owner             string
	RefundOverpayment bool
	ArchivePath       string
	Categories        map[parking.Category]parking.CategoryConfig
}

// Addr returns the HTTP listen address in host:port format.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// EngineConfig translates the parking section into the engine's config.
func (p *ParkingConfig) EngineConfig() parking.Config {
	return parking.Config{
		Owner:             p.Owner,
		Categories:        p.Categories,
		RefundOverpayment: p.RefundOverpayment,
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func categoryKey(prefix string, c parking.Category) string {
	return fmt.Sprintf("%s_%s_%s",
		prefix,
		strings.ToUpper(c.Vehicle.String()),
		strings.ToUpper(c.Lane.String()))
}

// Load reads configuration from environment variables and an optional .env
// file.
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	viper.SetDefault("ENVIRONMENT", "development")

	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("SERVER_READ_TIMEOUT", "15s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "15s")
	viper.SetDefault("SERVER_IDLE_TIMEOUT", "60s")

	viper.SetDefault("PARKING_OWNER", "")
	viper.SetDefault("PARKING_REFUND_OVERPAYMENT", false)
	viper.SetDefault("PARKING_ARCHIVE_PATH", "parking-tickets.db")

	// Per-category capacity and initial hourly rate, e.g.
	// PARKING_CAPACITY_CAR_NORMAL, PARKING_RATE_CAR_FASTLANE. The rate
	// default matches the deployment default of the original system.
	for _, c := range parking.Categories() {
		viper.SetDefault(categoryKey("PARKING_CAPACITY", c), 10)
		viper.SetDefault(categoryKey("PARKING_RATE", c), 2)
	}

	// Missing .env is fine; plain env vars are used instead.
	_ = viper.ReadInConfig()

	cfg := &Config{
		Environment: viper.GetString("ENVIRONMENT"),
		Server: ServerConfig{
			Host:         viper.GetString("SERVER_HOST"),
			Port:         viper.GetInt("SERVER_PORT"),
			ReadTimeout:  viper.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout: viper.GetDuration("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:  viper.GetDuration("SERVER_IDLE_TIMEOUT"),
		},
		Parking: ParkingConfig{
			Owner:             viper.GetString("PARKING_OWNER"),
			RefundOverpayment: viper.GetBool("PARKING_REFUND_OVERPAYMENT"),
			ArchivePath:       viper.GetString("PARKING_ARCHIVE_PATH"),
			Categories:        make(map[parking.Category]parking.CategoryConfig),
		},
	}

	for _, c := range parking.Categories() {
		cfg.Parking.Categories[c] = parking.CategoryConfig{
			Capacity:    viper.GetInt(categoryKey("PARKING_CAPACITY", c)),
			RatePerHour: viper.GetInt64(categoryKey("PARKING_RATE", c)),
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Parking.Owner == "" {
		return fmt.Errorf("PARKING_OWNER is required")
	}
	for cat, cc := range c.Parking.Categories {
		if cc.Capacity < 0 {
			return fmt.Errorf("capacity for %s must be non-negative", cat)
		}
		if cc.RatePerHour < 0 {
			return fmt.Errorf("rate for %s must be non-negative", cat)
		}
	}
	return nil
}
