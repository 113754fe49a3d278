package ingest

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lox/weatheretl/internal/models"
)

// SkipReason tags why a record was not written.
type SkipReason string

const (
	SkipInvalidStructure SkipReason = "invalid_structure"
	SkipEmptyPayload     SkipReason = "empty_payload"
	SkipBadEncoding      SkipReason = "bad_encoding"
	SkipBadJSON          SkipReason = "bad_json"
	SkipMissingField     SkipReason = "missing_field"
)

var errNotUTF8 = errors.New("payload is not valid UTF-8")

// decodePayload turns a Base64 stream payload into its JSON text.
func decodePayload(data string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(data))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errNotUTF8
	}
	return string(b), nil
}

// ValidateItem checks the fields that key a row are present.
func ValidateItem(item models.Item) error {
	if err := item.RequireStrings(models.FieldCity, models.FieldTimestamp); err != nil {
		return fmt.Errorf("'city' or 'timestamp' key is missing in the payload: %w", err)
	}
	return nil
}
