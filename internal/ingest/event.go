package ingest

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformedEvent = errors.New("malformed event")
	ErrMissingRecords = errors.New("the 'Records' key is missing from the event payload")
)

// Keys are matched exactly, so objects are decoded into raw maps rather than
// structs (encoding/json matches struct fields case-insensitively).
type object map[string]json.RawMessage

func parseEvent(raw []byte) ([]json.RawMessage, error) {
	var ev object
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	rawRecords, ok := ev["Records"]
	if !ok || string(rawRecords) == "null" {
		return nil, ErrMissingRecords
	}
	var records []json.RawMessage
	if err := json.Unmarshal(rawRecords, &records); err != nil {
		return nil, fmt.Errorf("%w: Records: %v", ErrMalformedEvent, err)
	}
	return records, nil
}

// recordData returns kinesis.data, or false when the record lacks it.
func recordData(raw json.RawMessage) (string, bool) {
	var rec object
	if err := json.Unmarshal(raw, &rec); err != nil {
		return "", false
	}
	var kinesis object
	if err := json.Unmarshal(rec["kinesis"], &kinesis); err != nil || kinesis == nil {
		return "", false
	}
	rawData, ok := kinesis["data"]
	if !ok {
		return "", false
	}
	var data string
	if err := json.Unmarshal(rawData, &data); err != nil {
		return "", false
	}
	return data, true
}

// EventFromPayloads wraps raw stream payloads in the same envelope the
// Kinesis trigger delivers, so other transports reuse one handler.
func EventFromPayloads(payloads [][]byte) (json.RawMessage, error) {
	type data struct {
		Data string `json:"data"`
	}
	type rec struct {
		Kinesis data `json:"kinesis"`
	}
	records := make([]rec, 0, len(payloads))
	for _, p := range payloads {
		records = append(records, rec{Kinesis: data{Data: base64.StdEncoding.EncodeToString(p)}})
	}
	b, err := json.Marshal(map[string]any{"Records": records})
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return b, nil
}
