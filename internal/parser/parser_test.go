package parser

import (
	"errors"
	"testing"

	"github.com/dennisdiepolder/activations/backend/internal/types"
	"github.com/google/go-cmp/cmp"
)

var header = []types.RawRow{
	{"Emp ID", "Agent Name", "Silver", "Gold", "Platinum", "Standard", "Target", "Achieved", "Remaining"},
	{"", "", "", "", "", "", "", "", ""},
}

func withHeader(rows ...types.RawRow) []types.RawRow {
	return append(append([]types.RawRow{}, header...), rows...)
}

func TestParseShortInput(t *testing.T) {
	tests := []struct {
		name string
		rows []types.RawRow
	}{
		{"nil", nil},
		{"empty", []types.RawRow{}},
		{"one row", []types.RawRow{{"E1", "Alice", 1, 2, 3, 4, 10, 8, 2}}},
		{"header only", header},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, aggregate := range []bool{true, false} {
				got := Parse(tt.rows, aggregate)
				if got == nil {
					t.Fatal("expected empty slice, got nil")
				}
				if len(got) != 0 {
					t.Errorf("expected no records, got %d", len(got))
				}
			}
		})
	}
}

func TestParseAggregateView(t *testing.T) {
	rows := withHeader(types.RawRow{"E1", "Alice", 1.0, 2.0, 3.0, 4.0, 10.0, 8.0, 2.0})

	got := Parse(rows, true)
	want := []types.ActivationRecord{{
		EmployeeID: "E1",
		AgentName:  "Alice",
		Silver:     1,
		Gold:       2,
		Platinum:   3,
		Standard:   4,
		Target:     10,
		Achieved:   8,
		Remaining:  2,
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParsePeriodView(t *testing.T) {
	rows := withHeader(types.RawRow{"E2", "Bob", "1", "0", "2", "5", "8", "99", "42"})

	got := Parse(rows, false)
	want := []types.ActivationRecord{{
		EmployeeID: "E2",
		AgentName:  "Bob",
		Silver:     1,
		Platinum:   2,
		Standard:   5,
		Total:      8,
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseLenientNumbers(t *testing.T) {
	tests := []struct {
		name string
		cell any
		want int
	}{
		{"text", "n/a", 0},
		{"empty", "", 0},
		{"nil", nil, 0},
		{"bool", true, 0},
		{"float", 7.9, 7},
		{"numeric string", " 12 ", 12},
		{"leading digits", "12abc", 12},
		{"decimal string", "3.7", 3},
		{"plus sign", "+4", 4},
		{"negative clamps", "-5", 0},
		{"negative float clamps", -2.0, 0},
		{"sign only", "-", 0},
		{"beyond int32", 3e9, 3000000000},
		{"huge", 1e300, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := withHeader(types.RawRow{"E1", "Alice", tt.cell, tt.cell, tt.cell, tt.cell, tt.cell, tt.cell})
			got := Parse(rows, true)
			if len(got) != 1 {
				t.Fatalf("expected 1 record, got %d", len(got))
			}
			r := got[0]
			for name, v := range map[string]int{
				"silver": r.Silver, "gold": r.Gold, "platinum": r.Platinum,
				"standard": r.Standard, "target": r.Target, "achieved": r.Achieved,
			} {
				if v != tt.want {
					t.Errorf("%s: expected %d, got %d", name, tt.want, v)
				}
			}
		})
	}
}

func TestParseRemainingKeepsSign(t *testing.T) {
	rows := withHeader(types.RawRow{"E1", "Alice", 0, 0, 0, 0, 10.0, 12.0, "-2"})

	got := Parse(rows, true)
	if got[0].Remaining != -2 {
		t.Errorf("expected remaining -2, got %d", got[0].Remaining)
	}
}

func TestParseShortRowReadsZero(t *testing.T) {
	rows := withHeader(types.RawRow{"E1", "Alice", 3.0})

	got := Parse(rows, true)
	want := []types.ActivationRecord{{EmployeeID: "E1", AgentName: "Alice", Silver: 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseNumericEmployeeID(t *testing.T) {
	rows := withHeader(types.RawRow{1001.0, "Alice"})

	got := Parse(rows, false)
	if got[0].EmployeeID != "1001" {
		t.Errorf("expected employee id 1001, got %q", got[0].EmployeeID)
	}
}

func TestParseKeepsAgentNameUntrimmed(t *testing.T) {
	rows := withHeader(types.RawRow{"E1", " Alice "})

	got := Parse(rows, false)
	if got[0].AgentName != " Alice " {
		t.Errorf("expected agent name to pass through, got %q", got[0].AgentName)
	}
}

func TestNormalize(t *testing.T) {
	rows := withHeader(
		types.RawRow{"E1", "Alice", 1.0, 0, 0, 0, 5.0},
		types.RawRow{"", "   "},
		types.RawRow{"E3", "Carol", 0, 1.0, 0, 0, 2.0},
		types.RawRow{"Total", "", 1.0, 1.0, 0, 0, 7.0},
	)

	got := Normalize(rows, false)
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].AgentName != "Alice" || got[1].AgentName != "Carol" {
		t.Errorf("unexpected agents: %q, %q", got[0].AgentName, got[1].AgentName)
	}
}

func TestDecodeRows(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		rows    int
		wantErr bool
	}{
		{"array of rows", `[["a","b"],["c",1,null]]`, 2, false},
		{"empty array", `[]`, 0, false},
		{"object", `{"error":"no sheet"}`, 0, true},
		{"null", `null`, 0, true},
		{"string", `"oops"`, 0, true},
		{"row not array", `[["a"],"b"]`, 0, true},
		{"null row", `[null]`, 0, true},
		{"garbage", `<html>`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := DecodeRows([]byte(tt.payload))
			if tt.wantErr {
				var fe *FormatError
				if !errors.As(err, &fe) {
					t.Fatalf("expected FormatError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(rows) != tt.rows {
				t.Errorf("expected %d rows, got %d", tt.rows, len(rows))
			}
		})
	}
}

func TestDecodeRowsCellTypes(t *testing.T) {
	rows, err := DecodeRows([]byte(`[["E1", 2, true, null]]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := types.RawRow{"E1", 2.0, true, nil}
	if diff := cmp.Diff(want, rows[0]); diff != "" {
		t.Errorf("DecodeRows() mismatch (-want +got):\n%s", diff)
	}
}
