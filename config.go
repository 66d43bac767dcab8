package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the configuration struct for the service.
type Config struct {
	// Venue selects the market data provider (binance, binance-futures, capital).
	Venue string
	// Assets represents the correlated group of monitored symbols.
	Assets []string
	// Direction is the watched crossing direction (CROSS_OVER or CROSS_UNDER).
	Direction string
	// Period is the reference window (a calendar period name or an interval tag).
	Period string
	// Timezone is the fallback timezone for period resolution.
	Timezone string
	// Cadence is the strategy run cadence as a duration string.
	Cadence string
	// CapitalAPIKey is the capital.com API key.
	CapitalAPIKey string
	// CapitalIdentifier is the capital.com account identifier.
	CapitalIdentifier string
	// CapitalPassword is the capital.com account password.
	CapitalPassword string

	registeredFlags map[string]bool
}

// Validate asserts the config sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if cfg.Venue == "" {
		errs = errors.Join(errs, fmt.Errorf("venue cannot be an empty string"))
	}
	if len(cfg.Assets) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no assets provided for monitor service"))
	}
	if cfg.Direction == "" {
		errs = errors.Join(errs, fmt.Errorf("direction cannot be an empty string"))
	}
	if cfg.Period == "" {
		errs = errors.Join(errs, fmt.Errorf("period cannot be an empty string"))
	}

	return errs
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
func (cfg *Config) registerFlag(name string, value interface{}, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch val.Elem().Kind() {
	case reflect.String:
		flag.StringVar(value.(*string), name, defValue, usage)
	case reflect.Bool:
		var def bool
		if defValue != "" {
			def, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	case reflect.Int:
		var def int
		if defValue != "" {
			def, _ = strconv.Atoi(defValue)
		}
		flag.IntVar(value.(*int), name, def, usage)
	case reflect.Slice:
		// Only handle []string
		if val.Elem().Type().Elem().Kind() == reflect.String {
			var def []string
			if defValue != "" {
				def = strings.Split(defValue, ",")
			}
			flag.Func(name, usage, func(s string) error {
				*value.(*[]string) = strings.Split(s, ",")
				return nil
			})
			// Set default if not provided via flag
			if len(def) > 0 {
				*value.(*[]string) = def
			}
		} else {
			return fmt.Errorf("%s: unsupported slice type", name)
		}
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	// Register command line arguments using loaded environment variables as defaults.
	err = cfg.registerFlag("venue", &cfg.Venue, "the market data venue")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("assets", &cfg.Assets, "the correlated group of monitored symbols")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("direction", &cfg.Direction, "the watched crossing direction")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("period", &cfg.Period, "the reference window period")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("timezone", &cfg.Timezone, "the fallback timezone for period resolution")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("cadence", &cfg.Cadence, "the strategy run cadence")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("capitalapikey", &cfg.CapitalAPIKey, "the capital.com api key")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("capitalidentifier", &cfg.CapitalIdentifier, "the capital.com account identifier")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("capitalpassword", &cfg.CapitalPassword, "the capital.com account password")
	if err != nil {
		return err
	}

	// Parse command-line flags.
	flag.Parse()

	return cfg.Validate()
}
