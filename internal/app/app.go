// Package app builds stage handlers and their backends from configuration.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "modernc.org/sqlite"

	"github.com/lox/weatheretl/internal/awsutil"
	"github.com/lox/weatheretl/internal/blob"
	"github.com/lox/weatheretl/internal/collect"
	"github.com/lox/weatheretl/internal/config"
	"github.com/lox/weatheretl/internal/export"
	"github.com/lox/weatheretl/internal/ingest"
	"github.com/lox/weatheretl/internal/owm"
	"github.com/lox/weatheretl/internal/store"
	"github.com/lox/weatheretl/internal/stream"
)

var ErrNoSQLite = errors.New("SQLITE_PATH is not configured")

// App owns process-wide clients. It is built once per process and shared by
// every invocation that process serves.
type App struct {
	cfg config.Config
	log *slog.Logger

	awsCfg  *aws.Config
	sqlite  *store.SQLite
	closers []func()
}

func New(cfg config.Config, log *slog.Logger) *App {
	if log == nil {
		log = slog.Default()
	}
	return &App{cfg: cfg, log: log}
}

func (a *App) Config() config.Config {
	return a.cfg
}

func (a *App) Logger() *slog.Logger {
	return a.log
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) aws(ctx context.Context) (aws.Config, error) {
	if a.awsCfg != nil {
		return *a.awsCfg, nil
	}
	cfg, err := awsutil.Load(ctx, a.cfg.Region)
	if err != nil {
		return aws.Config{}, err
	}
	a.awsCfg = &cfg
	return cfg, nil
}

// SQLite opens and migrates the local database on first use.
func (a *App) SQLite(ctx context.Context) (*store.SQLite, error) {
	if a.sqlite != nil {
		return a.sqlite, nil
	}
	if a.cfg.SQLitePath == "" {
		return nil, ErrNoSQLite
	}

	db, err := sql.Open("sqlite", a.cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.NewSQLite(db, a.log)
	if err := st.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	a.sqlite = st
	a.closers = append(a.closers, func() { db.Close() })
	return st, nil
}

func (a *App) Publisher(ctx context.Context) (stream.Publisher, error) {
	switch a.cfg.StreamBackend {
	case config.StreamKafka:
		k, err := stream.NewKafkaProducer(a.cfg.KafkaBrokers, a.cfg.KafkaTopic, a.log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, k.Close)
		return k, nil
	default:
		awsCfg, err := a.aws(ctx)
		if err != nil {
			return nil, err
		}
		return stream.NewKinesis(kinesis.NewFromConfig(awsCfg), a.cfg.StreamName, a.log), nil
	}
}

// Consumer is only available for the Kafka backend; Kinesis batches are
// delivered by the Lambda event source mapping.
func (a *App) Consumer() (*stream.Kafka, error) {
	if a.cfg.StreamBackend != config.StreamKafka {
		return nil, fmt.Errorf("consume requires STREAM_BACKEND=kafka, have %q", a.cfg.StreamBackend)
	}
	k, err := stream.NewKafkaConsumer(a.cfg.KafkaBrokers, a.cfg.KafkaTopic, a.cfg.KafkaGroup, a.log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, k.Close)
	return k, nil
}

func (a *App) Table(ctx context.Context) (store.Table, error) {
	switch a.cfg.TableBackend {
	case config.TableSQLite:
		return a.SQLite(ctx)
	default:
		awsCfg, err := a.aws(ctx)
		if err != nil {
			return nil, err
		}
		return store.NewDynamo(dynamodb.NewFromConfig(awsCfg), a.cfg.TableName), nil
	}
}

func (a *App) Uploader(ctx context.Context) (blob.Uploader, error) {
	switch a.cfg.BlobBackend {
	case config.BlobFTP:
		return blob.NewFTP(a.cfg.FTPAddr, a.cfg.FTPUser, a.cfg.FTPPassword, a.cfg.FTPDir), nil
	default:
		awsCfg, err := a.aws(ctx)
		if err != nil {
			return nil, err
		}
		return blob.NewS3(s3.NewFromConfig(awsCfg), a.cfg.BucketName), nil
	}
}

func (a *App) Collector(ctx context.Context) (*collect.Collector, error) {
	if err := a.cfg.Validate(config.StageCollect); err != nil {
		return nil, err
	}
	pub, err := a.Publisher(ctx)
	if err != nil {
		return nil, err
	}
	provider := owm.NewClient(nil, a.cfg.OWMAPIKey, a.cfg.OWMBaseURL)
	return collect.New(provider, pub, a.log), nil
}

func (a *App) Ingester(ctx context.Context) (*ingest.Ingester, error) {
	if err := a.cfg.Validate(config.StageIngest); err != nil {
		return nil, err
	}
	table, err := a.Table(ctx)
	if err != nil {
		return nil, err
	}
	ing := ingest.New(table, a.log)
	if a.cfg.SQLitePath != "" {
		st, err := a.SQLite(ctx)
		if err != nil {
			return nil, err
		}
		ing.SetRejectArchive(st)
	}
	return ing, nil
}

func (a *App) Exporter(ctx context.Context) (*export.Exporter, error) {
	if err := a.cfg.Validate(config.StageExport); err != nil {
		return nil, err
	}
	table, err := a.Table(ctx)
	if err != nil {
		return nil, err
	}
	up, err := a.Uploader(ctx)
	if err != nil {
		return nil, err
	}
	return export.New(table, up, a.log), nil
}
