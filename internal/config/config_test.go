package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

var allKeys = []string{
	"APP_ENV", "LOG_LEVEL", "region", "AWS_REGION",
	"owm_api_key", "OWM_API_KEY", "OWM_BASE_URL",
	"STREAM_BACKEND", "kinesis_stream_name", "KINESIS_STREAM_NAME",
	"KAFKA_BROKERS", "KAFKA_TOPIC", "KAFKA_GROUP",
	"TABLE_BACKEND", "dynamo_db_table", "table_name", "DYNAMO_DB_TABLE", "TABLE_NAME", "SQLITE_PATH",
	"BLOB_BACKEND", "bucket_name", "BUCKET_NAME", "FTP_ADDR", "FTP_USER", "FTP_PASSWORD", "FTP_DIR",
	"COLLECT_INTERVAL", "EXPORT_HOUR", "HTTP_ADDR", "REJECT_RETENTION_DAYS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	got, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v, want nil", err)
	}

	if got.AppEnv != "prod" || got.IsDev() {
		t.Errorf("AppEnv = %q, want prod", got.AppEnv)
	}
	if got.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", got.LogLevel, slog.LevelInfo)
	}
	if got.StreamBackend != StreamKinesis || got.TableBackend != TableDynamo || got.BlobBackend != BlobS3 {
		t.Errorf("backends = %s/%s/%s", got.StreamBackend, got.TableBackend, got.BlobBackend)
	}
	if got.CollectInterval != 10*time.Minute {
		t.Errorf("CollectInterval = %v", got.CollectInterval)
	}
	if got.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", got.HTTPAddr)
	}
	if got.RejectRetentionDays != 30 {
		t.Errorf("RejectRetentionDays = %d, want 30", got.RejectRetentionDays)
	}
}

func TestFromEnv_Aliases(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		check func(Config) string
	}{
		{"lower api key", "owm_api_key", "k1", func(c Config) string { return c.OWMAPIKey }},
		{"upper api key", "OWM_API_KEY", "k2", func(c Config) string { return c.OWMAPIKey }},
		{"lower stream", "kinesis_stream_name", "weather", func(c Config) string { return c.StreamName }},
		{"ingester table", "dynamo_db_table", "weather-t", func(c Config) string { return c.TableName }},
		{"exporter table", "table_name", "weather-t", func(c Config) string { return c.TableName }},
		{"bucket", "bucket_name", "exports", func(c Config) string { return c.BucketName }},
		{"aws region", "AWS_REGION", "eu-central-1", func(c Config) string { return c.Region }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, "  "+tt.value+" ")

			got, err := FromEnv()
			if err != nil {
				t.Fatalf("FromEnv() error = %v", err)
			}
			if v := tt.check(got); v != tt.value {
				t.Errorf("value = %q, want %q", v, tt.value)
			}
		})
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value, wantErr string
	}{
		{"log level", "LOG_LEVEL", "verbose", "invalid LOG_LEVEL"},
		{"app env", "APP_ENV", "staging", "invalid APP_ENV"},
		{"interval", "COLLECT_INTERVAL", "often", "invalid COLLECT_INTERVAL"},
		{"export hour", "EXPORT_HOUR", "noon", "invalid EXPORT_HOUR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := FromEnv()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("FromEnv() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" INFO ", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := parseLogLevel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		AppEnv:          "prod",
		Region:          "eu-central-1",
		OWMAPIKey:       "key",
		StreamBackend:   StreamKinesis,
		StreamName:      "weather-stream",
		TableBackend:    TableDynamo,
		TableName:       "weather",
		BlobBackend:     BlobS3,
		BucketName:      "exports",
		CollectInterval: time.Minute,
	}

	tests := []struct {
		name    string
		stage   Stage
		mutate  func(*Config)
		wantErr string
	}{
		{"collect ok", StageCollect, func(*Config) {}, ""},
		{"ingest ok", StageIngest, func(*Config) {}, ""},
		{"export ok", StageExport, func(*Config) {}, ""},
		{"collect without api key", StageCollect, func(c *Config) { c.OWMAPIKey = "" }, "missing required setting owm_api_key"},
		{"collect without stream", StageCollect, func(c *Config) { c.StreamName = "" }, "missing required setting kinesis_stream_name"},
		{"collect without region", StageCollect, func(c *Config) { c.Region = "" }, "missing required setting region"},
		{"collect via kafka needs brokers", StageCollect, func(c *Config) {
			c.StreamBackend, c.StreamName, c.Region = StreamKafka, "", ""
			c.KafkaTopic = "weather"
		}, "missing required setting KAFKA_BROKERS"},
		{"collect via kafka ok without region", StageCollect, func(c *Config) {
			c.StreamBackend, c.Region = StreamKafka, ""
			c.KafkaBrokers, c.KafkaTopic = []string{"localhost:9092"}, "weather"
		}, ""},
		{"unknown stream backend", StageCollect, func(c *Config) { c.StreamBackend = "sqs" }, "invalid STREAM_BACKEND"},
		{"ingest ignores missing api key", StageIngest, func(c *Config) { c.OWMAPIKey = "" }, ""},
		{"ingest without table", StageIngest, func(c *Config) { c.TableName = "" }, "missing required setting dynamo_db_table"},
		{"ingest via sqlite needs path", StageIngest, func(c *Config) { c.TableBackend = TableSQLite }, "missing required setting SQLITE_PATH"},
		{"ingest via sqlite ok", StageIngest, func(c *Config) {
			c.TableBackend, c.SQLitePath, c.Region, c.TableName = TableSQLite, "weather.db", "", ""
		}, ""},
		{"export without bucket", StageExport, func(c *Config) { c.BucketName = "" }, "missing required setting bucket_name"},
		{"export via ftp needs addr", StageExport, func(c *Config) { c.BlobBackend = BlobFTP }, "missing required setting FTP_ADDR"},
		{"export local needs no region", StageExport, func(c *Config) {
			c.TableBackend, c.SQLitePath = TableSQLite, "weather.db"
			c.BlobBackend, c.FTPAddr, c.Region = BlobFTP, "localhost:21", ""
		}, ""},
		{"unknown stage", Stage("transform"), func(*Config) {}, "unknown stage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate(tt.stage)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSchedule(t *testing.T) {
	cfg := Config{CollectInterval: time.Minute, ExportHour: 24, RejectRetentionDays: 30}
	if err := cfg.ValidateSchedule(); err == nil {
		t.Error("ValidateSchedule() error = nil for hour 24")
	}
	cfg.ExportHour = 23
	if err := cfg.ValidateSchedule(); err != nil {
		t.Errorf("ValidateSchedule() error = %v", err)
	}
	cfg.RejectRetentionDays = 0
	if err := cfg.ValidateSchedule(); err == nil {
		t.Error("ValidateSchedule() error = nil for zero retention")
	}
}
