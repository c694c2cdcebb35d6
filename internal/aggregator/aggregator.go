package aggregator

import (
	"sort"
	"strings"

	"github.com/dennisdiepolder/activations/backend/internal/types"
)

// Aggregate builds the listing shown for a search query.
//
// With an empty query the current view is returned without sentinel rows.
// Otherwise agents of the current view whose name contains the query are
// matched, and when period views are available their rows are collected
// across every period in ascending label order. If that yields nothing the
// current-view matches are returned instead.
func Aggregate(current []types.ActivationRecord, periods map[string][]types.ActivationRecord, query string) []types.ActivationRecord {
	term := strings.ToLower(strings.TrimSpace(query))
	if term == "" {
		return withoutTotals(current)
	}

	matches := make([]types.ActivationRecord, 0)
	names := make(map[string]struct{})
	for _, r := range current {
		if r.IsTotal() || !strings.Contains(strings.ToLower(r.AgentName), term) {
			continue
		}
		matches = append(matches, r)
		names[r.AgentName] = struct{}{}
	}

	if len(periods) == 0 {
		return matches
	}

	daily := make([]types.ActivationRecord, 0)
	for _, label := range PeriodLabels(periods) {
		for _, r := range periods[label] {
			if r.IsTotal() {
				continue
			}
			if _, ok := names[r.AgentName]; !ok {
				continue
			}
			r.PeriodLabel = label
			daily = append(daily, r)
		}
	}

	if len(daily) == 0 {
		return matches
	}
	return daily
}

// PeriodLabels returns the labels of the period views in ascending order,
// leaving out the master sheet.
func PeriodLabels(periods map[string][]types.ActivationRecord) []string {
	labels := make([]string, 0, len(periods))
	for label := range periods {
		if label == types.MasterSheet {
			continue
		}
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

func withoutTotals(records []types.ActivationRecord) []types.ActivationRecord {
	out := make([]types.ActivationRecord, 0, len(records))
	for _, r := range records {
		if !r.IsTotal() {
			out = append(out, r)
		}
	}
	return out
}
