package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeJSON decodes a single JSON document into a generic value.
// Numbers are kept as json.Number so they are re-encoded exactly as received.
// A leading UTF-8 byte order mark is ignored.
func DecodeJSON(data []byte) (interface{}, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("empty JSON document")
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var value interface{}
	if err := decoder.Decode(&value); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}

	// Reject trailing content after the first document
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON document")
	}

	return value, nil
}

// EncodeJSON serializes a decoded value back into its compact JSON form.
// HTML characters are written as-is so stored bytes match what the upstream sent.
func EncodeJSON(value interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, value); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// WriteJSON writes value to w as one JSON document followed by a newline, without HTML escaping
func WriteJSON(w io.Writer, value interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(value); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
