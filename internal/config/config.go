package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const envPrefix = "FOODMEMORY_"

// Config holds the application configuration. Values are layered from
// defaults, an optional YAML file, FOODMEMORY_* environment variables and
// finally command-line flags.
type Config struct {
	DatabasePath   string  `koanf:"database_path" validate:"required"`
	Listen         string  `koanf:"listen" validate:"required"`
	PlacesAPIKey   string  `koanf:"places_api_key"`
	LocationBias   string  `koanf:"location_bias"`
	AllowedChatIDs []int64 `koanf:"allowed_chat_ids"`
}

// Load builds the configuration. configFile may be empty; flags may be nil.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configFile, err)
		}
	}

	// FOODMEMORY_DATABASE_PATH becomes database_path, and so on.
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	if flags != nil {
		// Flag names are dashed; config keys use underscores.
		err := k.Load(posflag.ProviderWithValue(flags, ".", k, func(key, value string) (string, interface{}) {
			return strings.ReplaceAll(key, "-", "_"), value
		}), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to load flag config: %w", err)
		}
	}

	cfg := &Config{
		DatabasePath: "foodmemory.db",
		Listen:       ":8080",
		LocationBias: "Orange County, CA",
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// AllowedChat reports whether a chat may use the service. An empty list
// allows everyone.
func (c *Config) AllowedChat(id int64) bool {
	if len(c.AllowedChatIDs) == 0 {
		return true
	}
	for _, allowed := range c.AllowedChatIDs {
		if allowed == id {
			return true
		}
	}
	return false
}
