package aggregator

import (
	"testing"

	"github.com/dennisdiepolder/activations/backend/internal/parser"
	"github.com/dennisdiepolder/activations/backend/internal/types"
)

func TestSummarizeEmpty(t *testing.T) {
	if got := Summarize(nil); got != (types.TotalsSummary{}) {
		t.Errorf("expected zero summary, got %+v", got)
	}
}

func TestSummarize(t *testing.T) {
	records := []types.ActivationRecord{
		{Silver: 1, Gold: 2, Platinum: 3, Standard: 4, Total: 10},
		{Silver: 5, Gold: 6, Platinum: 7, Standard: 8, Total: 26},
	}

	got := Summarize(records)
	want := types.TotalsSummary{Silver: 6, Gold: 8, Platinum: 10, Standard: 12, Total: 36}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestSummarizeRemainingIdentity(t *testing.T) {
	tests := []struct {
		name    string
		records []types.ActivationRecord
	}{
		{"consistent rows", []types.ActivationRecord{
			{Target: 10, Achieved: 8, Remaining: 2},
			{Target: 5, Achieved: 1, Remaining: 4},
		}},
		{"stale upstream remaining", []types.ActivationRecord{
			{Target: 10, Achieved: 8, Remaining: 100},
			{Target: 5, Achieved: 1, Remaining: -40},
		}},
		{"over achieved", []types.ActivationRecord{
			{Target: 3, Achieved: 9},
		}},
		{"period rows only", []types.ActivationRecord{
			{Total: 4}, {Total: 7},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize(tt.records)
			if s.Remaining != s.Target-s.Achieved {
				t.Errorf("remaining %d != target %d - achieved %d", s.Remaining, s.Target, s.Achieved)
			}
		})
	}
}

func TestSummarizeRowsUntouched(t *testing.T) {
	records := []types.ActivationRecord{{Target: 10, Achieved: 8, Remaining: 100}}

	Summarize(records)

	if records[0].Remaining != 100 {
		t.Errorf("row remaining changed to %d", records[0].Remaining)
	}
}

func TestSummarizeParsedMasterRow(t *testing.T) {
	rows := []types.RawRow{
		{"Emp ID", "Agent"},
		{"", ""},
		{"E1", "Alice", 1.0, 2.0, 3.0, 4.0, 10.0, 8.0, 2.0},
	}

	records := parser.Normalize(rows, true)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.Target != 10 || r.Achieved != 8 {
		t.Fatalf("unexpected record %+v", r)
	}

	if got := Summarize(records).Remaining; got != 2 {
		t.Errorf("expected summary remaining 2, got %d", got)
	}
}
