package main

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

const (
	SourceSQLite   = "sqlite3"
	SourcePostgres = "postgres"
	SourceParse    = "parse"
	SourceMongo    = "mongo"
)

type Config struct {
	Source string      `mapstructure:"source" validate:"required,oneof=sqlite3 postgres parse mongo"`
	DB     DBConfig    `mapstructure:"db" validate:"-"`
	Parse  ParseConfig `mapstructure:"parse" validate:"-"`
	Mongo  MongoConfig `mapstructure:"mongo" validate:"-"`
	Page   PageConfig  `mapstructure:"page"`
	Watch  WatchConfig `mapstructure:"watch"`
	Log    LogConfig   `mapstructure:"log"`
}

type DBConfig struct {
	File string `mapstructure:"file"`
	DSN  string `mapstructure:"dsn"`
}

type ParseConfig struct {
	BaseURL     string `mapstructure:"base_url" validate:"required,url"`
	AppID       string `mapstructure:"app_id" validate:"required"`
	RESTKey     string `mapstructure:"rest_key"`
	MasterKey   string `mapstructure:"master_key"`
	AccessToken string `mapstructure:"access_token"`
	Class       string `mapstructure:"class" validate:"required"`
	RateLimit   int    `mapstructure:"rate_limit" validate:"min=0"`
}

type MongoConfig struct {
	URI        string `mapstructure:"uri" validate:"required"`
	Database   string `mapstructure:"database" validate:"required"`
	Collection string `mapstructure:"collection" validate:"required"`
}

type PageConfig struct {
	Limit int `mapstructure:"limit" validate:"min=1"`
}

type WatchConfig struct {
	Schedule string `mapstructure:"schedule" validate:"required"`
}

type LogConfig struct {
	File  string `mapstructure:"file" validate:"required"`
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

func newViper(fs afero.Fs, path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(path)
	v.SetEnvPrefix("LOADER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("source", SourceSQLite)
	v.SetDefault("db.file", "records.db")
	v.SetDefault("parse.class", "Record")
	v.SetDefault("parse.rate_limit", 10)
	v.SetDefault("mongo.collection", "records")
	v.SetDefault("page.limit", 10)
	v.SetDefault("watch.schedule", "@every 30s")
	v.SetDefault("log.file", "log.jsonl")
	v.SetDefault("log.level", "info")

	// Keys only known through env vars still need a default for Unmarshal to see them.
	for _, key := range []string{"db.dsn", "parse.base_url", "parse.app_id", "parse.rest_key",
		"parse.master_key", "parse.access_token", "mongo.uri", "mongo.database"} {
		v.SetDefault(key, "")
	}

	ok, err := afero.Exists(fs, path)
	if err != nil {
		return nil, err
	}
	if ok {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	return v, nil
}

func loadConfig(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &cfg, nil
}

// validate checks the common settings plus the block for the selected source only.
func (c *Config) validate() error {
	val := validator.New()
	if err := val.Struct(c); err != nil {
		return err
	}

	switch c.Source {
	case SourceSQLite:
		if c.DB.File == "" {
			return fmt.Errorf("db.file is required for source %s", c.Source)
		}
	case SourcePostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn is required for source %s", c.Source)
		}
	case SourceParse:
		return val.Struct(c.Parse)
	case SourceMongo:
		return val.Struct(c.Mongo)
	}

	return nil
}

func (c *Config) IsSQL() bool {
	return c.Source == SourceSQLite || c.Source == SourcePostgres
}
