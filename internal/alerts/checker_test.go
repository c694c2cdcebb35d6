package alerts

import (
	"testing"

	"github.com/dennisdiepolder/activations/backend/internal/types"
)

func TestDecorateAggregateRows(t *testing.T) {
	tests := []struct {
		name     string
		record   types.ActivationRecord
		wantPct  float64
		onTarget bool
		rule     string
		severity types.AlertSeverity
	}{
		{"on target", types.ActivationRecord{AgentName: "A", Target: 10, Achieved: 10}, 100, true, "", ""},
		{"over target", types.ActivationRecord{AgentName: "A", Target: 10, Achieved: 15}, 150, true, "", ""},
		{"slightly behind", types.ActivationRecord{AgentName: "A", Target: 10, Achieved: 8}, 80, false, "below_target", types.SeverityWarning},
		{"far behind", types.ActivationRecord{AgentName: "A", Target: 10, Achieved: 2}, 20, false, "below_target", types.SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := Decorate([]types.ActivationRecord{tt.record}, types.ViewAggregate)
			row := rows[0]

			if row.AchievementPct == nil {
				t.Fatal("expected achievement percentage")
			}
			if *row.AchievementPct != tt.wantPct {
				t.Errorf("expected %.1f%%, got %.1f%%", tt.wantPct, *row.AchievementPct)
			}
			if row.OnTarget != tt.onTarget {
				t.Errorf("expected onTarget %v, got %v", tt.onTarget, row.OnTarget)
			}

			if tt.rule == "" {
				if len(row.Alerts) != 0 {
					t.Errorf("expected no alerts, got %+v", row.Alerts)
				}
				return
			}
			if len(row.Alerts) != 1 {
				t.Fatalf("expected 1 alert, got %d", len(row.Alerts))
			}
			if row.Alerts[0].Rule != tt.rule || row.Alerts[0].Severity != tt.severity {
				t.Errorf("unexpected alert %+v", row.Alerts[0])
			}
		})
	}
}

func TestDecorateZeroTarget(t *testing.T) {
	rows := Decorate([]types.ActivationRecord{{AgentName: "A", Achieved: 3}}, types.ViewAggregate)

	if rows[0].AchievementPct != nil {
		t.Errorf("expected no percentage, got %v", *rows[0].AchievementPct)
	}
	if len(rows[0].Alerts) != 0 {
		t.Errorf("expected no alerts, got %+v", rows[0].Alerts)
	}
}

func TestDecoratePeriodRows(t *testing.T) {
	records := []types.ActivationRecord{
		{AgentName: "A", Total: 0},
		{AgentName: "B", Total: 3},
	}

	rows := Decorate(records, types.ViewPeriod)
	if len(rows[0].Alerts) != 1 || rows[0].Alerts[0].Rule != "no_activations" {
		t.Errorf("expected no_activations alert, got %+v", rows[0].Alerts)
	}
	if len(rows[1].Alerts) != 0 {
		t.Errorf("expected no alerts, got %+v", rows[1].Alerts)
	}
}

func TestDecorateSearchRowsUseLabel(t *testing.T) {
	rows := Decorate([]types.ActivationRecord{{AgentName: "A", PeriodLabel: "2025-01-02"}}, types.ViewSearch)

	if len(rows[0].Alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(rows[0].Alerts))
	}
	if rows[0].Alerts[0].Message != "No activations on 2025-01-02" {
		t.Errorf("unexpected message %q", rows[0].Alerts[0].Message)
	}
}

func TestCheckTargetAlertsResets(t *testing.T) {
	rows := []types.RowView{{
		ActivationRecord: types.ActivationRecord{AgentName: "A", Target: 1, Achieved: 1},
		Alerts:           []types.AgentAlert{{Rule: "stale"}},
	}}

	CheckTargetAlerts(rows, types.ViewAggregate)

	if len(rows[0].Alerts) != 0 {
		t.Errorf("expected alerts to be cleared, got %+v", rows[0].Alerts)
	}
}
