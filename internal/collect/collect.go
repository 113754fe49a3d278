// Package collect polls the weather provider and publishes one reading to
// the stream per invocation.
package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lox/weatheretl/internal/models"
	"github.com/lox/weatheretl/internal/owm"
	"github.com/lox/weatheretl/internal/stream"
)

const (
	Place        = "Berlin,DE"
	City         = "Berlin"
	PartitionKey = "partitionKey"

	SuccessBody = "Weather data collected and sent to stream"

	// TimestampLayout matches Python's isoformat() with microseconds.
	TimestampLayout = "2006-01-02T15:04:05.000000"
	// EpochLayout is used for provider epoch seconds rendered in UTC.
	EpochLayout = "2006-01-02T15:04:05"
)

// Provider returns current conditions for a place query.
type Provider interface {
	Current(ctx context.Context, query string) (*owm.Observation, error)
}

type Collector struct {
	provider Provider
	stream   stream.Publisher
	log      *slog.Logger
	now      func() time.Time
}

func New(provider Provider, publisher stream.Publisher, log *slog.Logger) *Collector {
	if log == nil {
		log = slog.Default()
	}
	return &Collector{
		provider: provider,
		stream:   publisher,
		log:      log,
		now:      time.Now,
	}
}

// Collect fetches the current observation and publishes it as one message.
func (c *Collector) Collect(ctx context.Context) (models.WeatherReading, error) {
	obs, err := c.provider.Current(ctx, Place)
	if err != nil {
		return models.WeatherReading{}, fmt.Errorf("fetch weather for %s: %w", Place, err)
	}

	reading := BuildReading(obs, c.now())
	if err := reading.Validate(); err != nil {
		return models.WeatherReading{}, fmt.Errorf("build reading: %w", err)
	}

	payload, err := json.Marshal(reading)
	if err != nil {
		return models.WeatherReading{}, fmt.Errorf("encode reading: %w", err)
	}

	if err := c.stream.Publish(ctx, PartitionKey, payload); err != nil {
		return models.WeatherReading{}, fmt.Errorf("publish reading: %w", err)
	}

	c.log.Info("reading published",
		"city", reading.City,
		"timestamp", reading.Timestamp,
		"temp", reading.Temperature.Temp.String(),
		"status", reading.Status,
	)
	return reading, nil
}

// Handle runs one collection and maps the outcome onto the result envelope.
func (c *Collector) Handle(ctx context.Context) (models.Result, error) {
	if _, err := c.Collect(ctx); err != nil {
		c.log.Error("collection failed", "err", err)
		return models.Failure(err.Error()), nil
	}
	return models.OK(SuccessBody), nil
}

// BuildReading shapes a provider observation into a WeatherReading stamped
// with the Berlin-local collection time derived from now.
func BuildReading(obs *owm.Observation, now time.Time) models.WeatherReading {
	return models.WeatherReading{
		City: City,
		Temperature: models.Temperature{
			Temp:      obs.Main.Temp,
			TempMax:   obs.Main.TempMax,
			TempMin:   obs.Main.TempMin,
			FeelsLike: obs.Main.FeelsLike,
		},
		Humidity: obs.Main.Humidity,
		Pressure: models.Pressure{
			Press:    obs.Main.Pressure,
			SeaLevel: obs.Main.SeaLevel,
		},
		Wind: models.Wind{
			Speed: obs.Wind.Speed,
			Deg:   obs.Wind.Deg,
			Gust:  obs.Wind.Gust,
		},
		Clouds:         obs.Clouds.All,
		Status:         obs.Status(),
		DetailedStatus: obs.DetailedStatus(),
		Sunrise:        epochString(obs.Sys.Sunrise),
		Sunset:         epochString(obs.Sys.Sunset),
		RefTime:        epochString(obs.Dt),
		Timestamp:      BerlinTimestamp(now),
	}
}

func epochString(sec int64) string {
	if sec == 0 {
		return ""
	}
	return time.Unix(sec, 0).UTC().Format(EpochLayout)
}
