package collect

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/lox/weatheretl/internal/models"
	"github.com/lox/weatheretl/internal/owm"
)

type fakeProvider struct {
	obs   *owm.Observation
	err   error
	query string
}

func (f *fakeProvider) Current(_ context.Context, query string) (*owm.Observation, error) {
	f.query = query
	return f.obs, f.err
}

type fakePublisher struct {
	key      string
	payloads [][]byte
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, key string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.key = key
	f.payloads = append(f.payloads, data)
	return nil
}

func testObservation() *owm.Observation {
	var obs owm.Observation
	raw := `{
		"weather": [{"main": "Rain", "description": "light rain"}],
		"main": {"temp": 7.3, "feels_like": 4.95, "temp_min": 6.11, "temp_max": 8.33,
		         "pressure": 1013.25, "humidity": 81, "sea_level": 1013.25},
		"wind": {"speed": 4.63, "deg": 240, "gust": 9.77},
		"clouds": {"all": 100},
		"dt": 1709373600,
		"sys": {"sunrise": 1709359512, "sunset": 1709399137},
		"name": "Berlin"
	}`
	if err := json.Unmarshal([]byte(raw), &obs); err != nil {
		panic(err)
	}
	return &obs
}

func TestBerlinOffset(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want time.Duration
	}{
		{"winter", time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC), time.Hour},
		{"before spring change", time.Date(2024, 3, 31, 0, 59, 59, 0, time.UTC), time.Hour},
		{"at spring change", time.Date(2024, 3, 31, 1, 0, 0, 0, time.UTC), 2 * time.Hour},
		{"summer", time.Date(2024, 7, 15, 9, 0, 0, 0, time.UTC), 2 * time.Hour},
		{"before autumn change", time.Date(2024, 10, 27, 0, 59, 59, 0, time.UTC), 2 * time.Hour},
		{"at autumn change", time.Date(2024, 10, 27, 1, 0, 0, 0, time.UTC), time.Hour},
		{"december", time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC), time.Hour},
		{"2025 spring change", time.Date(2025, 3, 30, 1, 0, 0, 0, time.UTC), 2 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BerlinOffset(tt.at); got != tt.want {
				t.Errorf("BerlinOffset(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestLastSunday(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2024, time.March, 31},
		{2024, time.October, 27},
		{2025, time.March, 30},
		{2025, time.October, 26},
		{2026, time.March, 29},
	}
	for _, tt := range tests {
		got := lastSunday(tt.year, tt.month)
		if got.Day() != tt.want || got.Weekday() != time.Sunday {
			t.Errorf("lastSunday(%d, %s) = %v, want day %d", tt.year, tt.month, got, tt.want)
		}
	}
}

func TestBerlinTimestamp(t *testing.T) {
	at := time.Date(2024, 3, 2, 11, 30, 15, 123456000, time.UTC)
	if got := BerlinTimestamp(at); got != "2024-03-02T12:30:15.123456" {
		t.Errorf("BerlinTimestamp = %q", got)
	}
}

func TestBuildReading(t *testing.T) {
	now := time.Date(2024, 3, 2, 11, 0, 0, 0, time.UTC)
	r := BuildReading(testObservation(), now)

	if r.City != "Berlin" {
		t.Errorf("City = %q", r.City)
	}
	if r.Timestamp != "2024-03-02T12:00:00.000000" {
		t.Errorf("Timestamp = %q", r.Timestamp)
	}
	if r.Pressure.Press.String() != "1013.25" || r.Pressure.SeaLevel.String() != "1013.25" {
		t.Errorf("Pressure = %+v", r.Pressure)
	}
	if r.Temperature.FeelsLike.String() != "4.95" {
		t.Errorf("FeelsLike = %s", r.Temperature.FeelsLike)
	}
	if r.Wind.Gust.String() != "9.77" {
		t.Errorf("Gust = %s", r.Wind.Gust)
	}
	if r.Status != "Rain" || r.DetailedStatus != "light rain" {
		t.Errorf("status = %q / %q", r.Status, r.DetailedStatus)
	}
	if r.Sunrise != "2024-03-02T06:05:12" {
		t.Errorf("Sunrise = %q", r.Sunrise)
	}
	if r.RefTime != "2024-03-02T10:00:00" {
		t.Errorf("RefTime = %q", r.RefTime)
	}
	if err := r.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestBuildReading_MissingNumbersOmitted(t *testing.T) {
	var obs owm.Observation
	raw := `{
		"weather": [{"main": "Clear", "description": "clear sky"}],
		"main": {"temp": 1.5, "temp_min": 0.2, "temp_max": 2.1, "pressure": 1021},
		"wind": {"speed": 0.51},
		"clouds": {"all": 0},
		"dt": 1709373600
	}`
	if err := json.Unmarshal([]byte(raw), &obs); err != nil {
		t.Fatal(err)
	}

	payload, err := json.Marshal(BuildReading(&obs, time.Date(2024, 3, 2, 11, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	item, err := models.ParseItem(payload)
	if err != nil {
		t.Fatalf("ParseItem: %v", err)
	}

	for _, path := range [][]string{{"wind", "deg"}, {"humidity"}, {"wind", "gust"}} {
		if v, ok := item.Lookup(path...); ok {
			t.Errorf("%v = %v, want absent", path, v)
		}
	}
	if v, _ := item.Lookup("wind", "speed"); v != json.Number("0.51") {
		t.Errorf("wind.speed = %v, want 0.51", v)
	}
	if v, _ := item.Lookup("clouds"); v != json.Number("0") {
		t.Errorf("clouds = %v, want reported 0 kept", v)
	}
}

func TestCollectorHandle(t *testing.T) {
	provider := &fakeProvider{obs: testObservation()}
	pub := &fakePublisher{}
	c := New(provider, pub, nil)
	c.now = func() time.Time { return time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC) }

	res, err := c.Handle(context.Background())
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.StatusCode != http.StatusOK || res.Body != SuccessBody {
		t.Errorf("result = %+v", res)
	}
	if provider.query != "Berlin,DE" {
		t.Errorf("query = %q", provider.query)
	}
	if pub.key != "partitionKey" || len(pub.payloads) != 1 {
		t.Fatalf("published key = %q count = %d", pub.key, len(pub.payloads))
	}

	item, err := models.ParseItem(pub.payloads[0])
	if err != nil {
		t.Fatalf("ParseItem: %v", err)
	}
	city, ts := item.Key()
	if city == "" || ts == "" {
		t.Errorf("key = (%q, %q), want both non-empty", city, ts)
	}
	if ts != "2024-07-01T10:00:00.000000" {
		t.Errorf("timestamp = %q, want summer offset applied", ts)
	}
	if v, _ := item.Lookup("pressure", "press"); v != json.Number("1013.25") {
		t.Errorf("pressure.press = %#v", v)
	}
}

func TestCollectorHandle_Failures(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeProvider
		pub      *fakePublisher
	}{
		{"provider error", &fakeProvider{err: owm.ErrCircuitOpen}, &fakePublisher{}},
		{"publish error", &fakeProvider{obs: testObservation()}, &fakePublisher{err: errors.New("ResourceNotFoundException")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.provider, tt.pub, nil)
			res, err := c.Handle(context.Background())
			if err != nil {
				t.Fatalf("Handle returned error: %v", err)
			}
			if res.StatusCode != http.StatusInternalServerError {
				t.Errorf("StatusCode = %d, want 500", res.StatusCode)
			}
			if res.Body == "" {
				t.Error("Body is empty, want error text")
			}
			if len(tt.pub.payloads) != 0 {
				t.Errorf("published %d payloads, want 0", len(tt.pub.payloads))
			}
		})
	}
}
