package parser

import (
	"math"
	"strconv"
	"strings"

	"github.com/dennisdiepolder/activations/backend/internal/types"
)

// Parse converts raw sheet rows into records, skipping the header prefix.
// Malformed numeric cells read as zero.
func Parse(rows []types.RawRow, aggregate bool) []types.ActivationRecord {
	if len(rows) < HeaderRows {
		return []types.ActivationRecord{}
	}

	schema := SchemaFor(aggregate)
	records := make([]types.ActivationRecord, 0, len(rows)-HeaderRows)
	for _, row := range rows[HeaderRows:] {
		records = append(records, schema.read(row))
	}
	return records
}

// Normalize parses and filters rows in one step
func Normalize(rows []types.RawRow, aggregate bool) []types.ActivationRecord {
	return Filter(Parse(rows, aggregate))
}

func (s Schema) read(row types.RawRow) types.ActivationRecord {
	return types.ActivationRecord{
		EmployeeID: cellString(row, s.EmployeeID),
		AgentName:  cellString(row, s.AgentName),
		Silver:     nonNegative(cellInt(row, s.Silver)),
		Gold:       nonNegative(cellInt(row, s.Gold)),
		Platinum:   nonNegative(cellInt(row, s.Platinum)),
		Standard:   nonNegative(cellInt(row, s.Standard)),
		Total:      nonNegative(cellInt(row, s.Total)),
		Target:     nonNegative(cellInt(row, s.Target)),
		Achieved:   nonNegative(cellInt(row, s.Achieved)),
		Remaining:  cellInt(row, s.Remaining),
	}
}

func cell(row types.RawRow, idx int) any {
	if idx < 0 || idx >= len(row) {
		return nil
	}
	return row[idx]
}

// cellString renders a cell as text; integral numbers drop their fraction
func cellString(row types.RawRow, idx int) string {
	switch v := cell(row, idx).(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// cellInt reads the leading integer of a cell, or zero
func cellInt(row types.RawRow, idx int) int {
	switch v := cell(row, idx).(type) {
	case float64:
		// outside the int range there is no integer to read
		if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) >= math.MaxInt {
			return 0
		}
		return int(v)
	case int:
		return v
	case string:
		return leadingInt(v)
	default:
		return 0
	}
}

// leadingInt parses an optional sign followed by digits, ignoring the rest
func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
