// Package clarification converts a turn's missing/ambiguous slot sets
// and NLU issue shapes into the canonical reason code and data payload
// surfaced to the caller.
package clarification

import (
	"sort"

	"github.com/slotwise/dialog-orchestrator/internal/domain"
)

// Build maps missing and issues to a ClarificationOutcome. missing is
// TurnFinalizer's missing_slots (never recomputed here); issues is the
// NLU response's issues map.
func Build(missing []domain.SlotKey, issues map[domain.SlotKey]domain.Issue) domain.ClarificationOutcome {
	reason := reasonFor(missing)

	missingStrings := make([]string, 0, len(missing))
	for _, m := range missing {
		missingStrings = append(missingStrings, string(m))
	}
	sort.Strings(missingStrings)

	ambiguous := make([]string, 0)
	data := map[string]any{}
	for slot, issue := range issues {
		if issue.Kind != domain.IssueAmbiguous {
			continue
		}
		ambiguous = append(ambiguous, string(slot))
		if issue.Rich != nil {
			data[string(slot)] = issue.Rich
		}
	}
	sort.Strings(ambiguous)

	data["reason"] = reason
	data["missing"] = missingStrings
	data["ambiguous"] = ambiguous

	return domain.ClarificationOutcome{
		Reason:    reason,
		Missing:   missingStrings,
		Ambiguous: ambiguous,
		Data:      data,
	}
}

// reasonFor applies the exact-set table before falling back to
// the contains-time / otherwise rules.
func reasonFor(missing []domain.SlotKey) domain.ClarificationReason {
	set := toSet(missing)

	switch {
	case len(set) == 2 && set[domain.SlotStartDate] && set[domain.SlotEndDate]:
		return domain.ReasonMissingDateRange
	case len(set) == 1 && set[domain.SlotStartDate]:
		return domain.ReasonMissingStartDate
	case len(set) == 1 && set[domain.SlotEndDate]:
		return domain.ReasonMissingEndDate
	case len(set) == 1 && set[domain.SlotTime]:
		return domain.ReasonMissingTime
	case len(set) == 1 && set[domain.SlotDate]:
		return domain.ReasonMissingDate
	case set[domain.SlotTime]:
		return domain.ReasonMissingTime
	// MISSING_TIME > MISSING_DATE > MISSING_SERVICE > MISSING_CONTEXT
	// ordering applies once the exact-set cases above are exhausted.
	case set[domain.SlotDate]:
		return domain.ReasonMissingDate
	case set[domain.SlotServiceID]:
		return domain.ReasonMissingService
	case len(missing) == 0:
		return domain.ReasonMissingContext
	default:
		return domain.ReasonNeedsClarification
	}
}

func toSet(keys []domain.SlotKey) map[domain.SlotKey]bool {
	set := make(map[domain.SlotKey]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}
