package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/duke605/parse-loader/parse"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sarulabs/di"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/ratelimit"
	"golang.org/x/oauth2"
)

const (
	SrvCtnKeyFs              = "fs"
	SrvCtnKeyViper           = "viper"
	SrvCtnKeyConfig          = "config"
	SrvCtnKeyDatabase        = "database"
	SrvCtnKeyRecordsRepo     = "recordsRepo"
	SrvCtnKeyParseClient     = "parseClient"
	SrvCtnKeyMongoClient     = "mongoClient"
	SrvCtnKeyMongoCollection = "mongoCollection"
)

var srvCtn di.Container

func buildContainer(fs afero.Fs, configPath string) (di.Container, error) {
	builder, err := di.NewBuilder()
	if err != nil {
		return nil, err
	}

	err = builder.Add(
		di.Def{
			Name:  SrvCtnKeyFs,
			Scope: di.App,
			Build: func(ctn di.Container) (interface{}, error) {
				return fs, nil
			},
		},
		di.Def{
			Name:  SrvCtnKeyViper,
			Scope: di.App,
			Build: func(ctn di.Container) (interface{}, error) {
				return newViper(ctn.Get(SrvCtnKeyFs).(afero.Fs), configPath)
			},
		},
		di.Def{
			Name:  SrvCtnKeyConfig,
			Scope: di.App,
			Build: func(ctn di.Container) (interface{}, error) {
				return loadConfig(ctn.Get(SrvCtnKeyViper).(*viper.Viper))
			},
		},
		di.Def{
			Name:  SrvCtnKeyDatabase,
			Scope: di.App,
			Build: func(ctn di.Container) (interface{}, error) {
				return openDatabase(ctn.Get(SrvCtnKeyConfig).(*Config))
			},
			Close: func(obj interface{}) error {
				return obj.(*sqlx.DB).Close()
			},
		},
		di.Def{
			Name:  SrvCtnKeyRecordsRepo,
			Scope: di.App,
			Build: func(ctn di.Container) (interface{}, error) {
				cfg := ctn.Get(SrvCtnKeyConfig).(*Config)
				db := ctn.Get(SrvCtnKeyDatabase).(*sqlx.DB)
				return NewRecordsRepo(db, placeholderFor(cfg.Source)), nil
			},
		},
		di.Def{
			Name:  SrvCtnKeyParseClient,
			Scope: di.App,
			Build: func(ctn di.Container) (interface{}, error) {
				return newParseClient(ctn.Get(SrvCtnKeyConfig).(*Config))
			},
		},
		di.Def{
			Name:  SrvCtnKeyMongoClient,
			Scope: di.App,
			Build: func(ctn di.Container) (interface{}, error) {
				cfg := ctn.Get(SrvCtnKeyConfig).(*Config)
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
			},
			Close: func(obj interface{}) error {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return obj.(*mongo.Client).Disconnect(ctx)
			},
		},
		di.Def{
			Name:  SrvCtnKeyMongoCollection,
			Scope: di.App,
			Build: func(ctn di.Container) (interface{}, error) {
				cfg := ctn.Get(SrvCtnKeyConfig).(*Config)
				client := ctn.Get(SrvCtnKeyMongoClient).(*mongo.Client)
				return client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection), nil
			},
		},
	)
	if err != nil {
		return nil, err
	}

	return builder.Build(), nil
}

func openDatabase(cfg *Config) (*sqlx.DB, error) {
	switch cfg.Source {
	case SourceSQLite:
		connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", cfg.DB.File)
		return sqlx.Connect("sqlite3", connStr)
	case SourcePostgres:
		return sqlx.Connect("postgres", cfg.DB.DSN)
	}

	return nil, fmt.Errorf("source %s is not backed by a SQL database", cfg.Source)
}

func placeholderFor(source string) sq.PlaceholderFormat {
	if source == SourcePostgres {
		return sq.Dollar
	}

	return sq.Question
}

func newParseClient(cfg *Config) (parse.Client, error) {
	httpClient := http.DefaultClient
	if cfg.Parse.AccessToken != "" {
		t := oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.Parse.AccessToken,
			TokenType:   "bearer",
		})
		httpClient = oauth2.NewClient(context.Background(), t)
	}

	limiter := ratelimit.NewUnlimited()
	if cfg.Parse.RateLimit > 0 {
		limiter = ratelimit.New(cfg.Parse.RateLimit)
	}

	return parse.NewClient(cfg.Parse.BaseURL, cfg.Parse.AppID,
		parse.ClientOptionWithHTTPClient(httpClient),
		parse.ClientOptionWithRESTKey(cfg.Parse.RESTKey),
		parse.ClientOptionWithMasterKey(cfg.Parse.MasterKey),
		parse.ClientOptionWithRateLimit(limiter),
	)
}
