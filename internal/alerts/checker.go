package alerts

import (
	"fmt"

	"github.com/dennisdiepolder/activations/backend/internal/types"
)

// criticalPct is the achievement below which a miss becomes critical
const criticalPct = 50.0

// Decorate wraps records into row views with achievement figures and alerts
func Decorate(records []types.ActivationRecord, view types.ViewKind) []types.RowView {
	rows := make([]types.RowView, len(records))
	for i, r := range records {
		rows[i] = types.RowView{ActivationRecord: r}
		if pct, ok := AchievementPct(r); ok {
			rows[i].AchievementPct = &pct
			rows[i].OnTarget = pct >= 100
		}
	}
	CheckTargetAlerts(rows, view)
	return rows
}

// AchievementPct returns achieved as a percentage of target. Period
// records and rows without a target have no percentage.
func AchievementPct(r types.ActivationRecord) (float64, bool) {
	if r.Target <= 0 {
		return 0, false
	}
	return float64(r.Achieved) * 100 / float64(r.Target), true
}

// CheckTargetAlerts evaluates alert rules for a slice of rows,
// mutating each row's Alerts field in place.
func CheckTargetAlerts(rows []types.RowView, view types.ViewKind) {
	for i := range rows {
		rows[i].Alerts = nil

		if pct, ok := AchievementPct(rows[i].ActivationRecord); ok {
			if pct < 100 {
				severity := types.SeverityWarning
				if pct < criticalPct {
					severity = types.SeverityCritical
				}
				rows[i].Alerts = append(rows[i].Alerts, types.AgentAlert{
					Rule:     "below_target",
					Severity: severity,
					Message:  fmt.Sprintf("%.1f%% of target, %d to go", pct, rows[i].Target-rows[i].Achieved),
				})
			}
			continue
		}

		isPeriod := view == types.ViewPeriod || rows[i].PeriodLabel != ""
		if isPeriod && rows[i].Total == 0 {
			msg := "No activations"
			if rows[i].PeriodLabel != "" {
				msg += " on " + rows[i].PeriodLabel
			}
			rows[i].Alerts = append(rows[i].Alerts, types.AgentAlert{
				Rule:     "no_activations",
				Severity: types.SeverityWarning,
				Message:  msg,
			})
		}
	}
}
