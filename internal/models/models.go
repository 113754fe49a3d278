package models

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// Field names shared by the stream payload and the table schema.
const (
	FieldCity      = "city"
	FieldTimestamp = "timestamp"
)

var validate = validator.New()

type Temperature struct {
	Temp      json.Number `json:"temp,omitempty"`
	TempMax   json.Number `json:"temp_max,omitempty"`
	TempMin   json.Number `json:"temp_min,omitempty"`
	FeelsLike json.Number `json:"feels_like,omitempty"`
}

type Pressure struct {
	Press    json.Number `json:"press,omitempty"`
	SeaLevel json.Number `json:"sea_level,omitempty"`
}

type Wind struct {
	Speed json.Number `json:"speed,omitempty"`
	Deg   json.Number `json:"deg,omitempty"`
	Gust  json.Number `json:"gust,omitempty"` // only reported in gusty conditions
}

// WeatherReading is a single observation as published to the stream.
// Numeric values are kept as their decimal text so nothing is rounded
// between the provider response and the exported file. A value the provider
// did not report is left out rather than written as 0.
type WeatherReading struct {
	City           string      `json:"city" validate:"required"`
	Temperature    Temperature `json:"temperature"`
	Humidity       json.Number `json:"humidity,omitempty"`
	Pressure       Pressure    `json:"pressure"`
	Wind           Wind        `json:"wind"`
	Clouds         json.Number `json:"clouds,omitempty"`
	Status         string      `json:"status"`
	DetailedStatus string      `json:"detailed_status"`
	Sunrise        string      `json:"sunrise"`
	Sunset         string      `json:"sunset"`
	RefTime        string      `json:"ref_time"`
	Timestamp      string      `json:"timestamp" validate:"required"`
}

// Validate reports whether the reading carries its required fields.
func (r WeatherReading) Validate() error {
	return validate.Struct(r)
}

// Result is the response envelope every stage handler returns.
type Result struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

func OK(body string) Result {
	return Result{StatusCode: http.StatusOK, Body: body}
}

func Failure(body string) Result {
	return Result{StatusCode: http.StatusInternalServerError, Body: body}
}

func (r Result) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
