package aggregator

import "github.com/dennisdiepolder/activations/backend/internal/types"

// Summarize sums every counter of the listing. The summed remaining is
// discarded and replaced with target minus achieved.
func Summarize(records []types.ActivationRecord) types.TotalsSummary {
	var s types.TotalsSummary
	for _, r := range records {
		s.Silver += r.Silver
		s.Gold += r.Gold
		s.Platinum += r.Platinum
		s.Standard += r.Standard
		s.Total += r.Total
		s.Target += r.Target
		s.Achieved += r.Achieved
		s.Remaining += r.Remaining
	}
	s.Remaining = s.Target - s.Achieved
	return s
}
