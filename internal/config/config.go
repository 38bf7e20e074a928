// Package config loads the application configuration from defaults,
// command-line flags, an optional JSON config file and environment
// variables — later sources override earlier ones — and validates the
// result.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config carries every runtime knob of the service.
type Config struct {
	RunAddr                    string        `env:"SERVER_ADDRESS" json:"server_address" validate:"hostname_port"`
	LogLevel                   string        `env:"LOG_LEVEL" json:"log_level" validate:"loglevel"`
	DBFileName                 string        `env:"FILE_STORAGE_PATH" json:"file_storage_path" validate:"filepath"`
	DatabaseDSN                string        `env:"DATABASE_DSN" json:"database_dsn"`
	DBConnectionTimeout        time.Duration `env:"DB_CONNECTION_TIMEOUT" json:"db_connection_timeout"`
	MigrationsDir              string        `env:"MIGRATIONS_DIR" json:"migrations_dir"`
	AuthCookieName             string        `env:"AUTH_COOKIE_NAME" json:"auth_cookie_name"`
	AuthCookieSigningSecretKey string        `env:"AUTH_COOKIE_SIGNING_SECRET_KEY" json:"auth_cookie_signing_secret_key"`
	TrustedSubnet              string        `env:"TRUSTED_SUBNET" json:"trusted_subnet"`
	ViaCEPBaseURL              string        `env:"VIACEP_BASE_URL" json:"viacep_base_url" validate:"url"`
	GeocoderBaseURL            string        `env:"GEOCODER_BASE_URL" json:"geocoder_base_url" validate:"url"`
	GeocoderUserAgent          string        `env:"GEOCODER_USER_AGENT" json:"geocoder_user_agent"`
	LookupTimeout              time.Duration `env:"LOOKUP_TIMEOUT" json:"lookup_timeout"`
	ChannelCapacity            int           `env:"CHANNEL_CAPACITY" json:"channel_capacity"`
	DelayBetweenQueueFetches   time.Duration `env:"DELAY_BETWEEN_QUEUE_FETCHES" json:"delay_between_queue_fetches"`
}

var defaultConfig = Config{
	RunAddr:                    ":8080",
	LogLevel:                   "info",
	DBConnectionTimeout:        10 * time.Second,
	MigrationsDir:              "cmd/agenda/migrations",
	AuthCookieName:             "agenda_auth",
	AuthCookieSigningSecretKey: "c3VwZXItc2VjcmV0LWtleQ==",
	ViaCEPBaseURL:              "https://viacep.com.br/ws",
	GeocoderBaseURL:            "https://nominatim.openstreetmap.org",
	GeocoderUserAgent:          "agenda/1.0",
	LookupTimeout:              5 * time.Second,
	ChannelCapacity:            64,
	DelayBetweenQueueFetches:   30 * time.Second,
}

func applyDefaults(values *Config, defaults Config) {
	*values = defaults
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
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

func (c *Config) applyJSONFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, c)
}

// InitOption customizes New.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing disables flag.Parse — useful in tests where
// the flag set would collide with the test binary's own flags.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// New builds a validated Config. Source priority, lowest to highest:
// built-in defaults, command-line flags, the JSON file named by the
// CONFIG env var or the -c flag, environment variables.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	values := &Config{}
	applyDefaults(values, defaultConfig)

	configFile := ""
	if !options.disableFlagsParsing {
		flag.StringVar(&values.RunAddr, "a", values.RunAddr, "address and port to run server")
		flag.StringVar(&values.LogLevel, "l", values.LogLevel, "logger level")
		flag.StringVar(&values.DBFileName, "f", values.DBFileName, "JSON file name with the address-book snapshot")
		flag.StringVar(&values.DatabaseDSN, "d", values.DatabaseDSN, "a string with the database connection details")
		flag.StringVar(&values.TrustedSubnet, "t", values.TrustedSubnet, "trusted subnet in CIDR notation for the internal stats endpoint")
		flag.StringVar(&configFile, "c", configFile, "path to a JSON config file")
		flag.Parse()
	}

	if fromEnv := os.Getenv("CONFIG"); fromEnv != "" {
		configFile = fromEnv
	}
	if configFile != "" {
		if err := values.applyJSONFile(configFile); err != nil {
			return nil, err
		}
	}

	// env.Parse only assigns fields whose variable is actually set, so
	// the environment cleanly overrides everything before it.
	if err := env.Parse(values); err != nil {
		return nil, err
	}

	if err := values.validate(); err != nil {
		return nil, err
	}

	return values, nil
}
