// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"instrument-service/internal/scpi"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Bench    BenchConfig    `mapstructure:"bench"`
	Sweep    SweepConfig    `mapstructure:"sweep"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	App      AppConfig      `mapstructure:"app"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host" validate:"required"`
	Port         string        `mapstructure:"port" validate:"required"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig represents the results database configuration
type DatabaseConfig struct {
	Host         string        `mapstructure:"host" validate:"required"`
	Port         int           `mapstructure:"port" validate:"required"`
	User         string        `mapstructure:"user" validate:"required"`
	Password     string        `mapstructure:"password" validate:"required"`
	DBName       string        `mapstructure:"dbname" validate:"required"`
	SSLMode      string        `mapstructure:"sslmode"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	MaxLifetime  time.Duration `mapstructure:"max_lifetime"`
}

// BenchConfig represents the test bench: which instruments exist, how to
// reach them, and the bus gateways they share.
type BenchConfig struct {
	Gateway     string             `mapstructure:"gateway"`
	AltGateway  string             `mapstructure:"alt_gateway"`
	Wireless    bool               `mapstructure:"wireless"`
	Simulate    bool               `mapstructure:"simulate"`
	Timeout     time.Duration      `mapstructure:"timeout"`
	MaxAttempts int                `mapstructure:"max_attempts"`
	Instruments []InstrumentConfig `mapstructure:"instruments"`
}

// InstrumentConfig represents one bench instrument. Exactly one addressing
// variant (gpib, host, usb, serial_port) must be set.
type InstrumentConfig struct {
	Name       string `mapstructure:"name" validate:"required"`
	GPIB       int    `mapstructure:"gpib"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	USBVendor  string `mapstructure:"usb_vendor"`
	USBProduct string `mapstructure:"usb_product"`
	USBSerial  string `mapstructure:"usb_serial"`
	SerialPort string `mapstructure:"serial_port"`
	BaudRate   int    `mapstructure:"baud_rate"`
	HiSLIP     bool   `mapstructure:"hislip"`

	// SimIDN scripts the identification reply when the bench runs simulated,
	// so the registry dispatches to the same adapter it would pick on
	// hardware.
	SimIDN string `mapstructure:"sim_idn"`
}

// SweepConfig represents defaults for measurement sweeps
type SweepConfig struct {
	SettleDelay time.Duration `mapstructure:"settle_delay"`
	OPCPoll     time.Duration `mapstructure:"opc_poll"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level" validate:"required"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// AppConfig represents application metadata
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Version     string `mapstructure:"version" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required"`
	Debug       bool   `mapstructure:"debug"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./internal/config")
	viper.AddConfigPath("../../internal/config")

	// Environment variable support
	viper.SetEnvPrefix("INSTRUMENT_SERVICE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine: defaults plus environment carry a
		// simulated bench.
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8086")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "instrument_service")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.max_lifetime", "5m")

	// Bench defaults
	viper.SetDefault("bench.gateway", "")
	viper.SetDefault("bench.alt_gateway", "")
	viper.SetDefault("bench.wireless", false)
	viper.SetDefault("bench.simulate", false)
	viper.SetDefault("bench.timeout", "5s")
	viper.SetDefault("bench.max_attempts", 10)

	// Sweep defaults
	viper.SetDefault("sweep.settle_delay", "200ms")
	viper.SetDefault("sweep.opc_poll", "200ms")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age", 28)
	viper.SetDefault("logging.compress", true)

	// App defaults
	viper.SetDefault("app.name", "instrument-service")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if config.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if config.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}

	validEnvs := []string{"development", "staging", "production", "test"}
	isValidEnv := false
	for _, env := range validEnvs {
		if config.App.Environment == env {
			isValidEnv = true
			break
		}
	}
	if !isValidEnv {
		return fmt.Errorf("app.environment must be one of: %v", validEnvs)
	}

	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	isValidLevel := false
	for _, level := range validLevels {
		if config.Logging.Level == level {
			isValidLevel = true
			break
		}
	}
	if !isValidLevel {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	seen := make(map[string]bool, len(config.Bench.Instruments))
	for _, inst := range config.Bench.Instruments {
		if inst.Name == "" {
			return fmt.Errorf("bench.instruments entries require a name")
		}
		if seen[inst.Name] {
			return fmt.Errorf("duplicate bench instrument name %q", inst.Name)
		}
		seen[inst.Name] = true
		if _, err := inst.Address(); err != nil {
			return fmt.Errorf("bench instrument %q: %w", inst.Name, err)
		}
	}

	return nil
}

// Address converts an instrument entry into a validated bus address.
func (ic InstrumentConfig) Address() (scpi.Address, error) {
	addr := scpi.Address{
		Host:       ic.Host,
		Port:       ic.Port,
		SerialPort: ic.SerialPort,
		BaudRate:   ic.BaudRate,
	}
	if ic.GPIB != 0 {
		gpib, err := scpi.NewGPIBNumber(ic.GPIB)
		if err != nil {
			return scpi.Address{}, err
		}
		addr.GPIB = &gpib
	}
	if ic.USBVendor != "" || ic.USBProduct != "" {
		addr.USB = &scpi.USBID{
			Vendor:  ic.USBVendor,
			Product: ic.USBProduct,
			Serial:  ic.USBSerial,
		}
	}
	if err := addr.Validate(); err != nil {
		return scpi.Address{}, err
	}
	return addr, nil
}

// Options builds the session options for an instrument entry, layering the
// bench-wide transport settings under the per-instrument ones.
func (c *Config) Options(ic InstrumentConfig) scpi.Options {
	opts := scpi.Options{
		Simulate:    c.Bench.Simulate,
		Wireless:    c.Bench.Wireless,
		HiSLIP:      ic.HiSLIP,
		Gateway:     c.Bench.Gateway,
		AltGateway:  c.Bench.AltGateway,
		Timeout:     c.Bench.Timeout,
		MaxAttempts: c.Bench.MaxAttempts,
	}
	if c.Bench.Simulate && ic.SimIDN != "" {
		opts.SimResponses = map[string]string{"*IDN?": ic.SimIDN}
	}
	return opts
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.DBName, c.Database.SSLMode)
}

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction checks if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment checks if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsDebugEnabled checks if debug mode is enabled
func (c *Config) IsDebugEnabled() bool {
	return c.App.Debug || c.IsDevelopment()
}
