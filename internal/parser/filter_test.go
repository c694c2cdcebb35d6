package parser

import (
	"testing"

	"github.com/dennisdiepolder/activations/backend/internal/types"
	"github.com/google/go-cmp/cmp"
)

func TestFilter(t *testing.T) {
	records := []types.ActivationRecord{
		{EmployeeID: "E1", AgentName: "Alice", Silver: 1},
		{EmployeeID: "E2", AgentName: ""},
		{EmployeeID: "E3", AgentName: " \t"},
		{EmployeeID: "Total", AgentName: "Everyone", Silver: 9},
		{EmployeeID: "", AgentName: "Total", Silver: 9},
		{EmployeeID: "", AgentName: "Bob", Gold: 2},
	}

	got := Filter(records)
	want := []types.ActivationRecord{
		{EmployeeID: "E1", AgentName: "Alice", Silver: 1},
		{EmployeeID: "", AgentName: "Bob", Gold: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Filter() mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterNeverReturnsTotals(t *testing.T) {
	records := []types.ActivationRecord{
		{EmployeeID: "Total", AgentName: "Total"},
		{EmployeeID: "Total", AgentName: "x"},
		{EmployeeID: "x", AgentName: "Total"},
	}

	for _, r := range Filter(records) {
		if r.IsTotal() {
			t.Errorf("filter returned sentinel row %+v", r)
		}
	}
}

func TestFilterIdempotent(t *testing.T) {
	records := []types.ActivationRecord{
		{EmployeeID: "E1", AgentName: "Alice"},
		{EmployeeID: "Total", AgentName: "Total"},
		{EmployeeID: "E2", AgentName: ""},
		{EmployeeID: "E3", AgentName: "Carol", Target: 3},
	}

	once := Filter(records)
	twice := Filter(once)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("Filter() not idempotent (-once +twice):\n%s", diff)
	}
}

func TestFilterEmpty(t *testing.T) {
	if got := Filter(nil); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}
