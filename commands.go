package main

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/duke605/parse-loader/loader"
	"github.com/duke605/parse-loader/mongoquery"
	"github.com/duke605/parse-loader/parse"
	"github.com/duke605/parse-loader/utils"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var errNotSQL = errors.New("this command needs a sqlite3 or postgres source")

var rootCommand = &cobra.Command{
	Use:   filepath.Base(os.Args[0]),
	Short: "Pages through records held in SQL, Parse Server or MongoDB",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configPath := utils.Must(cmd.Flags().GetString("config"))
		fs := afero.NewOsFs()
		ctn, err := buildContainer(fs, configPath)
		if err != nil {
			return err
		}

		srvCtn = ctn
		cfg, err := configFromContainer()
		if err != nil {
			return err
		}

		return setupLogging(fs, cfg.Log)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if srvCtn == nil {
			return nil
		}

		return srvCtn.Delete()
	},
}

var browseCommand = &cobra.Command{
	Use:   "browse",
	Short: "Interactively pages through records read from stdin commands",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		cmd.SilenceUsage = true
		defer utils.ReturnPanic(&err)

		l, err := newLoaderFromFlags(cmd)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), browseHelp)
		return NewPageService(l, cmd.OutOrStdout()).Browse(cmd.Context(), cmd.InOrStdin())
	},
}

var watchCommand = &cobra.Command{
	Use:   "watch",
	Short: "Reloads the current page on a schedule",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		cmd.SilenceUsage = true
		defer utils.ReturnPanic(&err)

		cfg := utils.Must(configFromContainer())
		schedule := utils.Must(cmd.Flags().GetString("schedule"))
		if schedule == "" {
			schedule = cfg.Watch.Schedule
		}

		l, err := newLoaderFromFlags(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := NewPageService(l, cmd.OutOrStdout())
		if err := srv.printPage(ctx, "reload", l.Reload); err != nil {
			return err
		}

		slog.InfoContext(ctx, "Watching page", "schedule", schedule, "skip", l.Skip(), "limit", l.Limit())
		if err := srv.Watch(ctx, schedule); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Exiting!")
		return nil
	},
}

var exportCommand = &cobra.Command{
	Use:   "export <file>",
	Short: "Writes every record from the starting skip onwards to a JSON lines file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		cmd.SilenceUsage = true
		defer utils.ReturnPanic(&err)

		fs := srvCtn.Get(SrvCtnKeyFs).(afero.Fs)
		batchSize := utils.Must(cmd.Flags().GetInt("batch"))
		l, err := newLoaderFromFlags(cmd)
		if err != nil {
			return err
		}

		start := time.Now()
		n, err := NewPageService(l, cmd.OutOrStdout()).Export(cmd.Context(), fs, args[0], batchSize)
		if err != nil {
			return fmt.Errorf("exported %d record(s) before failing: %w", n, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d record(s) to %s. Took %s\n", n, args[0], HumanDuration(time.Since(start)))
		return nil
	},
}

var seedCommand = &cobra.Command{
	Use:   "seed",
	Short: "Inserts sample records into the SQL source",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		cmd.SilenceUsage = true
		defer utils.ReturnPanic(&err)

		if !utils.Must(configFromContainer()).IsSQL() {
			return errNotSQL
		}

		repo := srvCtn.Get(SrvCtnKeyRecordsRepo).(*RecordsRepo)
		count := utils.Must(cmd.Flags().GetInt("count"))
		if err := repo.InsertMany(cmd.Context(), sampleRecords(count, time.Now())); err != nil {
			return err
		}

		total, err := repo.Count(cmd.Context(), nil)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Inserted %d record(s), %d in total\n", count, total)
		return nil
	},
}

//go:embed migrations/*/*.sql
var migrationFS embed.FS

var migrateCommand = &cobra.Command{
	Use:   "migrate",
	Short: "Applies all available migrations.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		cmd.SilenceUsage = true
		defer utils.ReturnPanic(&err)

		db, dir, err := migrationTarget()
		if err != nil {
			return err
		}

		return goose.Up(db.DB, dir)
	},
}

var rollbackMigrationCommand = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Rolls back a single migration from the current version.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		cmd.SilenceUsage = true
		defer utils.ReturnPanic(&err)

		db, dir, err := migrationTarget()
		if err != nil {
			return err
		}

		return goose.Down(db.DB, dir)
	},
}

var makeMigrationCommand = &cobra.Command{
	Use:   "make:migration <name>",
	Short: "Create writes a new blank migration file for the configured SQL source.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		cfg, err := configFromContainer()
		if err != nil {
			return err
		}
		if !cfg.IsSQL() {
			return errNotSQL
		}

		return goose.Create(nil, filepath.Join("migrations", cfg.Source), args[0], "sql")
	},
}

func init() {
	rootCommand.PersistentFlags().String("config", ".env.yaml", "path to the YAML config file")

	for _, cmd := range []*cobra.Command{browseCommand, watchCommand, exportCommand} {
		cmd.Flags().Int("limit", 0, "page size (defaults to page.limit from the config)")
		cmd.Flags().Int("skip", 0, "offset of the first page")
		cmd.Flags().String("where", "", `JSON object of constraints, e.g. {"title":"abc"}`)
	}
	watchCommand.Flags().String("schedule", "", "cron schedule (defaults to watch.schedule from the config)")
	exportCommand.Flags().Int("batch", 100, "number of records written per flush")
	seedCommand.Flags().Int("count", 50, "number of records to insert")

	rootCommand.AddCommand(
		browseCommand,
		watchCommand,
		exportCommand,
		seedCommand,
		migrateCommand,
		rollbackMigrationCommand,
		makeMigrationCommand,
	)
}

func configFromContainer() (*Config, error) {
	obj, err := srvCtn.SafeGet(SrvCtnKeyConfig)
	if err != nil {
		return nil, err
	}

	return obj.(*Config), nil
}

func migrationTarget() (*sqlx.DB, string, error) {
	cfg, err := configFromContainer()
	if err != nil {
		return nil, "", err
	}
	if !cfg.IsSQL() {
		return nil, "", errNotSQL
	}
	if err := goose.SetDialect(cfg.Source); err != nil {
		return nil, "", err
	}

	goose.SetBaseFS(migrationFS)
	db := srvCtn.Get(SrvCtnKeyDatabase).(*sqlx.DB)
	return db, "migrations/" + cfg.Source, nil
}

// newLoaderFromFlags builds a loader over the configured source using the --limit,
// --skip and --where flags.
func newLoaderFromFlags(cmd *cobra.Command) (*loader.Loader[Record], error) {
	cfg, err := configFromContainer()
	if err != nil {
		return nil, err
	}

	limit := utils.Must(cmd.Flags().GetInt("limit"))
	if limit == 0 {
		limit = cfg.Page.Limit
	}
	skip := utils.Must(cmd.Flags().GetInt("skip"))
	where, err := ParseWhere(utils.Must(cmd.Flags().GetString("where")))
	if err != nil {
		return nil, fmt.Errorf("invalid --where: %w", err)
	}

	q, err := newRecordQuery(cfg, where)
	if err != nil {
		return nil, err
	}

	return loader.New(q,
		loader.WithLimit(limit),
		loader.WithSkip(skip),
		loader.WithLogger(slog.Default()),
	)
}

func newRecordQuery(cfg *Config, where map[string]any) (loader.Query[Record], error) {
	switch cfg.Source {
	case SourceSQLite, SourcePostgres:
		repo := srvCtn.Get(SrvCtnKeyRecordsRepo).(*RecordsRepo)
		return repo.Query(where)
	case SourceParse:
		client := srvCtn.Get(SrvCtnKeyParseClient).(parse.Client)
		return parse.NewQuery[Record](client, cfg.Parse.Class).Where(where).Order("createdAt", "objectId"), nil
	case SourceMongo:
		coll := srvCtn.Get(SrvCtnKeyMongoCollection).(*mongo.Collection)
		var filter interface{}
		if where != nil {
			filter = bson.M(where)
		}
		return mongoquery.New[Record](coll, filter,
			mongoquery.WithSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}),
			mongoquery.WithLogger(slog.Default()),
		), nil
	}

	return nil, fmt.Errorf("unknown source %q", cfg.Source)
}

func sampleRecords(n int, now time.Time) []*Record {
	return utils.Map(make([]struct{}, n), func(_ struct{}, i int) *Record {
		r := &Record{
			Title:     fmt.Sprintf("Sample record %d", i+1),
			CreatedAt: now.Add(time.Duration(i) * time.Millisecond),
		}
		if i%3 == 0 {
			r.Note = fmt.Sprintf("every third record has a note (%d)", i+1)
		}
		return r
	})
}
