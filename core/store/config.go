package store

import (
	"fmt"

	"docpipe/core/database"
	"docpipe/core/storage"
)

// Config describes a store declaratively, as loaded from the application
// configuration. Which options matter depends on Type; unrecognized
// combinations fail construction, not first use.
type Config struct {
	// Type selects the backend kind: memory, mongo, json, sql, blob,
	// alias or vault.
	Type string `mapstructure:"type"`
	// Name is the collection name (or a label for in-process stores).
	Name string `mapstructure:"name"`
	// Key is the upsert key field or fields.
	Key []string `mapstructure:"key"`
	// LuField is the last-updated field name.
	LuField string `mapstructure:"lu_field"`

	// Connection target for mongo stores.
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`

	// VaultPath locates credentials for vault stores.
	VaultPath string `mapstructure:"vault_path"`

	// Paths and Compression configure json file stores.
	Paths       []string `mapstructure:"paths"`
	Compression bool     `mapstructure:"compression"`

	// Table and SQL configure relational stores.
	Table string          `mapstructure:"table"`
	SQL   database.Config `mapstructure:"sql"`

	// Object storage target and payload field for blob stores.
	Storage      storage.Config `mapstructure:"storage"`
	PayloadField string         `mapstructure:"payload_field"`

	// Aliases holds the external->internal field mapping for alias
	// stores.
	Aliases map[string]string `mapstructure:"aliases"`

	// Source is the wrapped store for derived kinds (alias) and the
	// metadata store for blob.
	Source *Config `mapstructure:"source"`
}

func (c Config) options() Options {
	return Options{Key: c.Key, LastUpdatedField: c.LuField}
}

// FromConfig constructs a disconnected Store from its configuration.
func FromConfig(cfg Config) (Store, error) {
	switch cfg.Type {
	case "memory":
		return NewMemory(cfg.Name, cfg.options()), nil

	case "mongo":
		return NewMongo(MongoConfig{
			Host:       cfg.Host,
			Port:       cfg.Port,
			Database:   cfg.Database,
			Collection: cfg.Collection,
			Username:   cfg.Username,
			Password:   cfg.Password,
		}, cfg.options()), nil

	case "json":
		if len(cfg.Paths) == 0 {
			return nil, fmt.Errorf("json store %q: no paths configured", cfg.Name)
		}
		return NewJSONFile(cfg.Paths, cfg.Compression, cfg.options()), nil

	case "sql":
		return NewSQLFromConfig(cfg.SQL, cfg.Table, cfg.options()), nil

	case "blob":
		if cfg.Source == nil {
			return nil, fmt.Errorf("blob store %q: no source (metadata) store configured", cfg.Name)
		}
		meta, err := FromConfig(*cfg.Source)
		if err != nil {
			return nil, err
		}
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return nil, err
		}
		return NewBlob(meta, client, cfg.Storage.Bucket, BlobOptions{
			Options:      cfg.options(),
			PayloadField: cfg.PayloadField,
		}), nil

	case "alias":
		if cfg.Source == nil {
			return nil, fmt.Errorf("alias store %q: no source store configured", cfg.Name)
		}
		if len(cfg.Aliases) == 0 {
			return nil, fmt.Errorf("alias store %q: no aliases configured", cfg.Name)
		}
		inner, err := FromConfig(*cfg.Source)
		if err != nil {
			return nil, err
		}
		return NewAlias(inner, cfg.Aliases), nil

	case "vault":
		return NewVault(cfg.Collection, cfg.VaultPath, VaultOptions{Options: cfg.options()})

	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}
