// Package config reads pipeline settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Stage string

const (
	StageCollect Stage = "collect"
	StageIngest  Stage = "ingest"
	StageExport  Stage = "export"
)

const (
	StreamKinesis = "kinesis"
	StreamKafka   = "kafka"
	TableDynamo   = "dynamodb"
	TableSQLite   = "sqlite"
	BlobS3        = "s3"
	BlobFTP       = "ftp"
)

// Config holds every recognized setting. The env tag lists accepted
// variable names in lookup order.
type Config struct {
	AppEnv   string     `env:"APP_ENV" validate:"oneof=dev prod"`
	LogLevel slog.Level `env:"LOG_LEVEL"`

	Region string `env:"region,AWS_REGION"`

	OWMAPIKey  string `env:"owm_api_key,OWM_API_KEY" validate:"required"`
	OWMBaseURL string `env:"OWM_BASE_URL"`

	StreamBackend string   `env:"STREAM_BACKEND" validate:"oneof=kinesis kafka"`
	StreamName    string   `env:"kinesis_stream_name,KINESIS_STREAM_NAME" validate:"required_if=StreamBackend kinesis"`
	KafkaBrokers  []string `env:"KAFKA_BROKERS" validate:"required_if=StreamBackend kafka"`
	KafkaTopic    string   `env:"KAFKA_TOPIC" validate:"required_if=StreamBackend kafka"`
	KafkaGroup    string   `env:"KAFKA_GROUP"`

	TableBackend string `env:"TABLE_BACKEND" validate:"oneof=dynamodb sqlite"`
	TableName    string `env:"dynamo_db_table,table_name,DYNAMO_DB_TABLE,TABLE_NAME" validate:"required_if=TableBackend dynamodb"`
	SQLitePath   string `env:"SQLITE_PATH" validate:"required_if=TableBackend sqlite"`

	BlobBackend string `env:"BLOB_BACKEND" validate:"oneof=s3 ftp"`
	BucketName  string `env:"bucket_name,BUCKET_NAME" validate:"required_if=BlobBackend s3"`
	FTPAddr     string `env:"FTP_ADDR" validate:"required_if=BlobBackend ftp"`
	FTPUser     string `env:"FTP_USER"`
	FTPPassword string `env:"FTP_PASSWORD"`
	FTPDir      string `env:"FTP_DIR"`

	CollectInterval time.Duration `env:"COLLECT_INTERVAL" validate:"gt=0"`
	ExportHour      int           `env:"EXPORT_HOUR" validate:"min=0,max=23"`
	HTTPAddr        string        `env:"HTTP_ADDR"`

	RejectRetentionDays int `env:"REJECT_RETENTION_DAYS" validate:"min=1"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("env"), ",")
		return name
	})
	return v
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment alone.
func FromEnv() (Config, error) {
	level, err := parseLogLevel(getenvDefault("info", "LOG_LEVEL"))
	if err != nil {
		return Config{}, err
	}

	interval, err := time.ParseDuration(getenvDefault("10m", "COLLECT_INTERVAL"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid COLLECT_INTERVAL: %w", err)
	}

	exportHour, err := strconv.Atoi(getenvDefault("0", "EXPORT_HOUR"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid EXPORT_HOUR: %w", err)
	}

	retention, err := strconv.Atoi(getenvDefault("30", "REJECT_RETENTION_DAYS"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid REJECT_RETENTION_DAYS: %w", err)
	}

	cfg := Config{
		AppEnv:   strings.ToLower(getenvDefault("prod", "APP_ENV")),
		LogLevel: level,

		Region: getenv("region", "AWS_REGION"),

		OWMAPIKey:  getenv("owm_api_key", "OWM_API_KEY"),
		OWMBaseURL: getenv("OWM_BASE_URL"),

		StreamBackend: strings.ToLower(getenvDefault(StreamKinesis, "STREAM_BACKEND")),
		StreamName:    getenv("kinesis_stream_name", "KINESIS_STREAM_NAME"),
		KafkaBrokers:  splitList(getenv("KAFKA_BROKERS")),
		KafkaTopic:    getenv("KAFKA_TOPIC"),
		KafkaGroup:    getenvDefault("weatheretl-ingester", "KAFKA_GROUP"),

		TableBackend: strings.ToLower(getenvDefault(TableDynamo, "TABLE_BACKEND")),
		TableName:    getenv("dynamo_db_table", "table_name", "DYNAMO_DB_TABLE", "TABLE_NAME"),
		SQLitePath:   getenv("SQLITE_PATH"),

		BlobBackend: strings.ToLower(getenvDefault(BlobS3, "BLOB_BACKEND")),
		BucketName:  getenv("bucket_name", "BUCKET_NAME"),
		FTPAddr:     getenv("FTP_ADDR"),
		FTPUser:     getenv("FTP_USER"),
		FTPPassword: getenv("FTP_PASSWORD"),
		FTPDir:      getenv("FTP_DIR"),

		CollectInterval: interval,
		ExportHour:      exportHour,
		HTTPAddr:        getenvDefault(":8080", "HTTP_ADDR"),

		RejectRetentionDays: retention,
	}
	if err := validate.StructPartial(cfg, "AppEnv"); err != nil {
		return Config{}, describe(err)
	}
	return cfg, nil
}

var stageFields = map[Stage][]string{
	StageCollect: {"OWMAPIKey", "StreamBackend", "StreamName", "KafkaBrokers", "KafkaTopic"},
	StageIngest:  {"TableBackend", "TableName", "SQLitePath"},
	StageExport:  {"TableBackend", "TableName", "SQLitePath", "BlobBackend", "BucketName", "FTPAddr"},
}

// Validate checks the settings a stage needs are present. Nothing is
// defaulted for identifiers: a missing stream, table or bucket is an error.
func (c Config) Validate(stage Stage) error {
	fields, ok := stageFields[stage]
	if !ok {
		return fmt.Errorf("unknown stage %q", stage)
	}
	if err := validate.StructPartial(c, fields...); err != nil {
		return describe(err)
	}
	if c.usesAWS(stage) && c.Region == "" {
		return fmt.Errorf("missing required setting region for stage %s", stage)
	}
	return nil
}

// ValidateSchedule checks the extra settings used by the local scheduler.
func (c Config) ValidateSchedule() error {
	if err := validate.StructPartial(c, "CollectInterval", "ExportHour", "RejectRetentionDays"); err != nil {
		return describe(err)
	}
	return nil
}

func (c Config) usesAWS(stage Stage) bool {
	switch stage {
	case StageCollect:
		return c.StreamBackend == StreamKinesis
	case StageIngest:
		return c.TableBackend == TableDynamo
	case StageExport:
		return c.TableBackend == TableDynamo || c.BlobBackend == BlobS3
	}
	return false
}

// IsDev reports whether human-readable logging should be used.
func (c Config) IsDev() bool {
	return c.AppEnv == "dev"
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", "required_if":
			msgs = append(msgs, "missing required setting "+fe.Field())
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("invalid %s %q (allowed: %s)", fe.Field(), fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", ")))
		default:
			msgs = append(msgs, fmt.Sprintf("invalid %s %v", fe.Field(), fe.Value()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

// getenv returns the first non-empty value among keys.
func getenv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func getenvDefault(def string, keys ...string) string {
	if v := getenv(keys...); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
