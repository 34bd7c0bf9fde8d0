// Package domainfilter drops slots that do not belong to an intent's
// domain, preventing a service-turn `date` from leaking into a
// reservation turn's `start_date` or vice versa. A small pure function
// over the domain package's closed vocabulary.
package domainfilter

import (
	"github.com/slotwise/dialog-orchestrator/internal/domain"
	"github.com/slotwise/dialog-orchestrator/internal/slotcontract"
	"github.com/slotwise/dialog-orchestrator/pkg/logger"
)

// Apply retains only the keys of slots valid for intent's domain, per
// slotcontract.DomainSlotSet. Dropped keys are traced at debug level. If
// the input was non-empty and the output is empty, that is logged at
// error level, since the filter must never silently discard every slot
// the NLU produced, but the (likely correct, if suspicious) empty result is
// still returned; the orchestrator layer decides how to react.
func Apply(log *logger.Logger, slots domain.Slots, intent domain.Intent) domain.Slots {
	allowed := slotcontract.DomainSlotSet(intent)
	out := domain.NewSlots()
	for _, k := range slots.Keys() {
		v, _ := slots.Get(k)
		if _, ok := allowed[k]; ok {
			out.Set(k, v)
			continue
		}
		if log != nil {
			log.Debug("domain filter dropped slot", "slot", string(k), "intent", string(intent))
		}
	}
	if slots.Len() > 0 && out.Len() == 0 && log != nil {
		log.Error("domain filter emptied a non-empty slot set", "intent", string(intent), "input_keys", domain.SortedKeyStrings(slots.Keys()))
	}
	return out
}
