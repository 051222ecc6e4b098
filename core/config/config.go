package config

import (
	"fmt"
	"reflect"
	"strings"

	"docpipe/core/logger"
	"docpipe/core/server"
	"docpipe/core/store"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// BuilderConfig wires a named source and target store into an
// incremental copy stage.
type BuilderConfig struct {
	// Source and Target name entries of the Stores map.
	Source string `mapstructure:"source"`
	Target string `mapstructure:"target"`
	// ChunkSize is the batch size per update.
	ChunkSize int `mapstructure:"chunk_size" default:"1000"`
	// Workers bounds concurrent item processing.
	Workers int `mapstructure:"workers" default:"1"`
}

// Config holds all configuration for the application.
type Config struct {
	// Server holds configuration for the HTTP query API.
	Server server.Config `mapstructure:"server"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Builder holds configuration for the copy builder run by the CLI.
	Builder BuilderConfig `mapstructure:"builder"`
	// Stores maps store names to their declarative configuration. Loaded
	// from the config file; environment variables cannot express it.
	Stores map[string]store.Config `mapstructure:"stores"`
}

// Store returns the named store configuration.
func (c *Config) Store(name string) (store.Config, error) {
	cfg, ok := c.Stores[name]
	if !ok {
		return store.Config{}, fmt.Errorf("no store named %q configured", name)
	}
	if cfg.Name == "" {
		cfg.Name = name
	}
	return cfg, nil
}

// LoadConfig loads configuration from an optional config file, a .env
// file and environment variables, in increasing precedence for the
// scalar sections.
func LoadConfig(path string) (*Config, error) {
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}
	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. SERVER_PORT -> server.port)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("docpipe")
	v.AddConfigPath(path)
	if err := v.ReadInConfig(); err != nil {
		// The file is optional; scalar sections still work from env.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default
// values in Viper based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}
		if field.Type.Kind() == reflect.Map {
			continue // maps come from the config file only
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
