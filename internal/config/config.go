// Package config assembles the application configuration from defaults,
// command line flags, a .env file and environment variables, and validates
// the result.
package config

import (
	"flag"
	"log"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds the runtime settings of the FetchCart companion.
type Config struct {
	// RunAddr is the address the local HTTP surface listens on.
	RunAddr string `env:"SERVER_ADDRESS" validate:"hostname_port"`

	// BackendAPIBase is the base URL of the remote FetchCart backend.
	BackendAPIBase string `env:"BACKEND_URL" validate:"url"`

	LogLevel string `env:"LOG_LEVEL" validate:"loglevel"`

	// StateFileName selects the JSON file snapshot keeper when non-empty
	// and no database DSN is configured.
	StateFileName string `env:"STATE_FILE_PATH" validate:"filepath"`

	// DatabaseDSN selects the PostgreSQL snapshot keeper when non-empty.
	DatabaseDSN         string        `env:"DATABASE_DSN"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT"`
	MigrationsDir       string        `env:"MIGRATIONS_DIR"`

	// SnapshotNamespace keys the durable state record.
	SnapshotNamespace string `env:"SNAPSHOT_NAMESPACE"`

	// RequestTimeout bounds every call to the remote backend.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	// FlushInterval and ChannelCapacity tune the write-behind persister.
	FlushInterval   time.Duration `env:"FLUSH_INTERVAL"`
	ChannelCapacity int           `env:"CHANNEL_CAPACITY"`
}

var defaultConfig = Config{
	RunAddr:             "localhost:8090",
	BackendAPIBase:      "http://localhost:3000",
	LogLevel:            "info",
	StateFileName:       "fetchcart_state.json",
	DatabaseDSN:         "",
	DBConnectionTimeout: 10 * time.Second,
	MigrationsDir:       "cmd/fetchcart/migrations",
	SnapshotNamespace:   "fetchcart",
	RequestTimeout:      30 * time.Second,
	FlushInterval:       2 * time.Second,
	ChannelCapacity:     16,
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	if path == "" {
		return true
	}
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[value]
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("filepath", validateFilePath)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}

func applyDefaults(values *Config, defaults Config) {
	*values = defaults
}

// InitOption customizes the behavior of New.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing disables command line flag parsing.
// Useful in tests where the flag set is already consumed.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// New builds a Config from defaults, flags, .env file and environment
// variables (in increasing priority) and validates it.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	values := &Config{}
	applyDefaults(values, defaultConfig)

	if !options.disableFlagsParsing {
		flag.StringVar(&values.RunAddr, "a", values.RunAddr, "address and port of the local HTTP surface")
		flag.StringVar(&values.BackendAPIBase, "b", values.BackendAPIBase, "base URL of the remote FetchCart backend")
		flag.StringVar(&values.LogLevel, "l", values.LogLevel, "logger level")
		flag.StringVar(&values.StateFileName, "f", values.StateFileName, "JSON file name with the persisted session state")
		flag.StringVar(&values.DatabaseDSN, "d", values.DatabaseDSN, "database connection string for the snapshot keeper")
		flag.Parse()
	}

	valuesFromEnv := Config{}
	if err := env.Parse(&valuesFromEnv); err != nil {
		return nil, err
	}

	if valuesFromEnv.RunAddr != "" {
		values.RunAddr = valuesFromEnv.RunAddr
	}

	if valuesFromEnv.BackendAPIBase != "" {
		values.BackendAPIBase = valuesFromEnv.BackendAPIBase
	}

	if valuesFromEnv.LogLevel != "" {
		values.LogLevel = valuesFromEnv.LogLevel
	}

	if valuesFromEnv.StateFileName != "" {
		values.StateFileName = valuesFromEnv.StateFileName
	}

	if valuesFromEnv.DatabaseDSN != "" {
		values.DatabaseDSN = valuesFromEnv.DatabaseDSN
	}

	if valuesFromEnv.DBConnectionTimeout != 0 {
		values.DBConnectionTimeout = valuesFromEnv.DBConnectionTimeout
	}

	if valuesFromEnv.MigrationsDir != "" {
		values.MigrationsDir = valuesFromEnv.MigrationsDir
	}

	if valuesFromEnv.SnapshotNamespace != "" {
		values.SnapshotNamespace = valuesFromEnv.SnapshotNamespace
	}

	if valuesFromEnv.RequestTimeout != 0 {
		values.RequestTimeout = valuesFromEnv.RequestTimeout
	}

	if valuesFromEnv.FlushInterval != 0 {
		values.FlushInterval = valuesFromEnv.FlushInterval
	}

	if valuesFromEnv.ChannelCapacity != 0 {
		values.ChannelCapacity = valuesFromEnv.ChannelCapacity
	}

	if err := values.validate(); err != nil {
		return nil, err
	}

	return values, nil
}
