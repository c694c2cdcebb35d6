package parser

import (
	"strings"

	"github.com/dennisdiepolder/activations/backend/internal/types"
)

// Filter drops blank rows and "Total" sentinel rows. Values are not touched.
func Filter(records []types.ActivationRecord) []types.ActivationRecord {
	out := make([]types.ActivationRecord, 0, len(records))
	for _, r := range records {
		if strings.TrimSpace(r.AgentName) == "" || r.IsTotal() {
			continue
		}
		out = append(out, r)
	}
	return out
}
