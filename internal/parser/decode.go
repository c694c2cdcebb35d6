package parser

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dennisdiepolder/activations/backend/internal/types"
)

// FormatError is returned when an upstream payload is not an array of rows
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "invalid data format: " + e.Reason
}

// DecodeRows decodes a JSON payload into positional rows
func DecodeRows(payload []byte) ([]types.RawRow, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, &FormatError{Reason: "expected array of rows"}
	}
	if raw == nil {
		// a JSON null is not an array
		return nil, &FormatError{Reason: "expected array of rows, got null"}
	}

	rows := make([]types.RawRow, 0, len(raw))
	for i, msg := range raw {
		trimmed := bytes.TrimSpace(msg)
		if len(trimmed) == 0 || trimmed[0] != '[' {
			return nil, &FormatError{Reason: fmt.Sprintf("row %d is not an array", i)}
		}
		var row types.RawRow
		if err := json.Unmarshal(trimmed, &row); err != nil {
			return nil, &FormatError{Reason: fmt.Sprintf("row %d: %v", i, err)}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
