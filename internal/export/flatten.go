package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/lox/weatheretl/internal/models"
)

type column struct {
	Name string
	Path []string
}

var columns = []column{
	{"City", []string{"city"}},
	{"Timestamp", []string{"timestamp"}},
	{"Temp", []string{"temperature", "temp"}},
	{"Temp Max", []string{"temperature", "temp_max"}},
	{"Temp Min", []string{"temperature", "temp_min"}},
	{"Feels Like", []string{"temperature", "feels_like"}},
	{"Humidity", []string{"humidity"}},
	{"Pressure", []string{"pressure", "press"}},
	{"Sea Level Pressure", []string{"pressure", "sea_level"}},
	{"Wind Speed", []string{"wind", "speed"}},
	{"Wind Deg", []string{"wind", "deg"}},
	{"Wind Gust", []string{"wind", "gust"}},
	{"Clouds", []string{"clouds"}},
	{"Status", []string{"status"}},
	{"Detailed Status", []string{"detailed_status"}},
	{"Sunrise", []string{"sunrise"}},
	{"Sunset", []string{"sunset"}},
	{"Ref Time", []string{"ref_time"}},
}

// Columns returns the export header in order.
func Columns() []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}

// Row is one flattened item, aligned with Columns.
type Row []string

// Flatten projects a stored item onto the fixed column set. Missing values
// become empty cells.
func Flatten(item models.Item) Row {
	row := make(Row, len(columns))
	for i, c := range columns {
		v, _ := item.Lookup(c.Path...)
		row[i] = cell(v)
	}
	return row
}

func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "True"
		}
		return "False"
	case map[string]any, models.Item, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

// WriteCSV writes the header followed by rows.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns()); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
