// Package config loads the process configuration.
//
// Values are read from an optional .env file, an optional configuration file
// pointed to by CONFIG_FILE and the environment, with the environment taking precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strconv"
	"strings"

	"github.com/envelope-zero/budget-engine/internal/models"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	APIURL           *url.URL
	Port             string
	LogFormat        string
	GinMode          string
	CORSAllowOrigins []string
	EnablePprof      bool
	Database         Database
	Settings         Settings
}

// Database configures the connection to the database.
type Database struct {
	Driver   string
	Path     string
	Host     string
	User     string
	Password string
	Name     string
}

// DSN returns the data source name for the configured driver.
func (d Database) DSN() string {
	if d.Driver == DriverPostgres {
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s", dsnValue(d.Host), dsnValue(d.User), dsnValue(d.Password), dsnValue(d.Name))
	}

	return d.Path
}

var dsnEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// dsnValue quotes a keyword/value connection string value so that spaces
// and quotes are kept.
func dsnValue(s string) string {
	return "'" + dsnEscaper.Replace(s) + "'"
}

// Settings are the engine defaults. They are loaded once per process and
// passed to the engine explicitly.
type Settings struct {
	DefaultRolloverMode       models.RolloverMode
	DefaultMaxRolloverPeriods int   // Used for limited rollover when an envelope does not set its own limit
	DefaultScale              int32 // Number of decimal places for budgets without a known currency
	CopyAllocationsOnRollover bool  // Seed the next period's allocation with the closing period's allocation
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		DefaultRolloverMode:       models.RolloverUnlimited,
		DefaultMaxRolloverPeriods: 3,
		DefaultScale:              2,
		CopyAllocationsOnRollover: false,
	}
}

func setDefaults(v *viper.Viper) {
	defaults := DefaultSettings()

	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_FORMAT", "")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("CORS_ALLOW_ORIGINS", "")
	v.SetDefault("ENABLE_PPROF", false)
	v.SetDefault("DB_DRIVER", DriverSQLite)
	v.SetDefault("DB_PATH", "data/budget-engine.db")
	v.SetDefault("DB_HOST", "")
	v.SetDefault("DB_USER", "")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "")
	v.SetDefault("DEFAULT_ROLLOVER_MODE", string(defaults.DefaultRolloverMode))
	v.SetDefault("DEFAULT_MAX_ROLLOVER_PERIODS", defaults.DefaultMaxRolloverPeriods)
	v.SetDefault("DEFAULT_SCALE", defaults.DefaultScale)
	v.SetDefault("COPY_ALLOCATIONS_ON_ROLLOVER", defaults.CopyAllocationsOnRollover)
}

// Load reads the configuration and validates it.
func Load() (Config, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("could not read .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("could not read config file %s: %w", file, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	var problems []string

	apiURL, err := url.Parse(v.GetString("API_URL"))
	if v.GetString("API_URL") == "" {
		problems = append(problems, "API_URL must be set")
	} else if err != nil || apiURL.Scheme == "" || apiURL.Host == "" {
		problems = append(problems, fmt.Sprintf("API_URL %q is not a valid absolute URL", v.GetString("API_URL")))
	}

	c := Config{
		APIURL:           apiURL,
		Port:             v.GetString("PORT"),
		LogFormat:        v.GetString("LOG_FORMAT"),
		GinMode:          v.GetString("GIN_MODE"),
		CORSAllowOrigins: strings.Fields(v.GetString("CORS_ALLOW_ORIGINS")),
		EnablePprof:      v.GetBool("ENABLE_PPROF"),
		Database: Database{
			Driver:   v.GetString("DB_DRIVER"),
			Path:     v.GetString("DB_PATH"),
			Host:     v.GetString("DB_HOST"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
		},
		Settings: Settings{
			DefaultRolloverMode:       models.RolloverMode(v.GetString("DEFAULT_ROLLOVER_MODE")),
			DefaultMaxRolloverPeriods: v.GetInt("DEFAULT_MAX_ROLLOVER_PERIODS"),
			DefaultScale:              v.GetInt32("DEFAULT_SCALE"),
			CopyAllocationsOnRollover: v.GetBool("COPY_ALLOCATIONS_ON_ROLLOVER"),
		},
	}

	if err := c.Validate(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}

	return c, nil
}

// Validate reports all configuration problems at once.
func (c Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			problems = append(problems, "DB_PATH must be set when using the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.Host == "" || c.Database.Name == "" {
			problems = append(problems, "DB_HOST and DB_NAME must be set when using the postgres driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid DB_DRIVER '%s': must be one of [%s %s]", c.Database.Driver, DriverSQLite, DriverPostgres))
	}

	if err := c.Settings.Validate(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}

	return nil
}

// Validate checks the engine settings.
func (s Settings) Validate() error {
	var problems []string

	if !s.DefaultRolloverMode.Valid() {
		problems = append(problems, fmt.Sprintf("invalid DEFAULT_ROLLOVER_MODE '%s'", s.DefaultRolloverMode))
	}

	if s.DefaultMaxRolloverPeriods < 1 {
		problems = append(problems, "DEFAULT_MAX_ROLLOVER_PERIODS must be at least 1")
	}

	if s.DefaultScale < 0 || s.DefaultScale > 8 {
		problems = append(problems, "DEFAULT_SCALE must be between 0 and 8")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}

	return nil
}
