// Package intentresolver maps normalized user text plus entity hints to
// a canonical Intent via deterministic, ordered signal rules. No ML.
package intentresolver

import (
	"regexp"
	"strings"
	"sync"

	"github.com/slotwise/dialog-orchestrator/internal/domain"
	"github.com/slotwise/dialog-orchestrator/internal/registry"
)

// Result is the (intent, confidence) pair IntentResolver produces.
type Result struct {
	Intent     domain.Intent
	Confidence float64
}

// Resolve evaluates non-booking signals first
// (in registry.PriorityOrder), then booking_mode authoritatively decides
// CREATE_APPOINTMENT vs CREATE_RESERVATION. entities carries whatever
// entity kinds the NLU already extracted (e.g. "booking_id", "service"),
// used only to grade confidence, never to pick the intent itself.
func Resolve(reg *registry.Registry, text string, entities map[string]string, bookingMode domain.Domain) Result {
	normalized := normalize(text)
	tokens := strings.Fields(normalized)

	if reg != nil {
		for _, name := range reg.PriorityOrder() {
			entry, ok := reg.SignalsFor(name)
			if !ok {
				continue
			}
			if matches(entry.Signals, normalized, tokens) {
				confidence := confidenceFor(entry, entities)
				return Result{Intent: domain.Intent(name), Confidence: confidence}
			}
		}
	}

	// No non-booking signal matched: booking_mode is authoritative and
	// signals never override it.
	switch bookingMode {
	case domain.DomainService:
		return Result{Intent: domain.IntentCreateAppointment, Confidence: 0.75}
	case domain.DomainReservation:
		return Result{Intent: domain.IntentCreateReservation, Confidence: 0.75}
	default:
		return Result{Intent: domain.IntentUnknown, Confidence: 0.0}
	}
}

func confidenceFor(entry registry.SignalEntry, entities map[string]string) float64 {
	if len(entry.RequiredSlots) == 0 {
		return 0.85
	}
	for _, slot := range entry.RequiredSlots {
		if _, ok := entities[slot]; ok {
			return 0.95
		}
	}
	return 0.85
}

var normalizeStrip = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

// normalize lowercases the sentence and strips punctuation.
func normalize(text string) string {
	lower := strings.ToLower(text)
	stripped := normalizeStrip.ReplaceAllString(lower, " ")
	return strings.Join(strings.Fields(stripped), " ")
}

func matches(sig registry.Signals, normalized string, tokens []string) bool {
	for _, phrase := range sig.Any {
		if matchAny(phrase, normalized) {
			return true
		}
	}
	for _, set := range sig.All {
		if matchAll(set, tokens) {
			return true
		}
	}
	for _, seq := range sig.Ordered {
		if matchOrdered(seq, tokens) {
			return true
		}
	}
	return false
}

var wordBoundaryCache sync.Map

// matchAny requires a whole-word phrase match, avoiding substring hits
// like "book" matching inside "booking status".
func matchAny(phrase, normalized string) bool {
	phrase = normalize(phrase)
	if phrase == "" {
		return false
	}
	cached, ok := wordBoundaryCache.Load(phrase)
	var re *regexp.Regexp
	if ok {
		re = cached.(*regexp.Regexp)
	} else {
		re = regexp.MustCompile(`\b` + regexp.QuoteMeta(phrase) + `\b`)
		wordBoundaryCache.Store(phrase, re)
	}
	return re.MatchString(normalized)
}

// matchAll requires every token in set to appear as a set, any order
//.
func matchAll(set []string, tokens []string) bool {
	if len(set) == 0 {
		return false
	}
	present := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		present[t] = struct{}{}
	}
	for _, want := range set {
		if _, ok := present[want]; !ok {
			return false
		}
	}
	return true
}

// matchOrdered requires every token of seq to appear in input order, not
// necessarily contiguously.
func matchOrdered(seq []string, tokens []string) bool {
	if len(seq) == 0 {
		return false
	}
	idx := 0
	for _, tok := range tokens {
		if idx == len(seq) {
			break
		}
		if tok == seq[idx] {
			idx++
		}
	}
	return idx == len(seq)
}
