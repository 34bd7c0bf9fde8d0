package domain

import (
	"encoding/json"
	"sort"
)

// SlotKey is a name drawn from the closed slot vocabulary.
type SlotKey string

const (
	SlotServiceID     SlotKey = "service_id"
	SlotDate          SlotKey = "date"
	SlotTime          SlotKey = "time"
	SlotStartDate     SlotKey = "start_date"
	SlotEndDate       SlotKey = "end_date"
	SlotDateRange     SlotKey = "date_range"
	SlotDatetimeRange SlotKey = "datetime_range"
	SlotHasDatetime   SlotKey = "has_datetime"
	SlotBookingID     SlotKey = "booking_id"
	SlotDuration      SlotKey = "duration"
)

// DateRange is the {start,end} struct value a date_range slot carries.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Slots is a closed-vocabulary, presence-tracked bag of slot values. A key
// is "present" only if it was explicitly Set; presence is never inferred
// from a zero value.
type Slots struct {
	values map[SlotKey]any
}

// NewSlots returns an empty slot bag.
func NewSlots() Slots {
	return Slots{values: make(map[SlotKey]any)}
}

// Clone returns a deep-enough copy (values are immutable primitives or
// DateRange, so a shallow map copy suffices) safe to mutate independently.
func (s Slots) Clone() Slots {
	out := NewSlots()
	for k, v := range s.values {
		out.values[k] = v
	}
	return out
}

// Has reports whether the slot is present.
func (s Slots) Has(key SlotKey) bool {
	if s.values == nil {
		return false
	}
	_, ok := s.values[key]
	return ok
}

// Get returns the raw value and whether it was present.
func (s Slots) Get(key SlotKey) (any, bool) {
	if s.values == nil {
		return nil, false
	}
	v, ok := s.values[key]
	return v, ok
}

// GetString returns a string slot value, empty if absent or not a string.
func (s Slots) GetString(key SlotKey) string {
	v, ok := s.Get(key)
	if !ok {
		return ""
	}
	str, _ := v.(string)
	return str
}

// GetBool returns a bool slot value.
func (s Slots) GetBool(key SlotKey) bool {
	v, ok := s.Get(key)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// GetDateRange returns a date_range slot value.
func (s Slots) GetDateRange(key SlotKey) (DateRange, bool) {
	v, ok := s.Get(key)
	if !ok {
		return DateRange{}, false
	}
	dr, ok := v.(DateRange)
	return dr, ok
}

// Set writes a value unconditionally, overwriting any existing entry.
func (s *Slots) Set(key SlotKey, value any) {
	if s.values == nil {
		s.values = make(map[SlotKey]any)
	}
	s.values[key] = value
}

// SetIfAbsent writes a value only if the key is not already present.
// Returns true if the write happened. This is the primitive every
// Promoter rule builds on.
func (s *Slots) SetIfAbsent(key SlotKey, value any) bool {
	if s.Has(key) {
		return false
	}
	s.Set(key, value)
	return true
}

// Delete removes a key. The Merger, Promoter and DomainFilter never call
// it.
func (s *Slots) Delete(key SlotKey) {
	if s.values == nil {
		return
	}
	delete(s.values, key)
}

// Keys returns the present slot keys, sorted for deterministic iteration.
func (s Slots) Keys() []SlotKey {
	keys := make([]SlotKey, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Len reports how many slots are present.
func (s Slots) Len() int {
	return len(s.values)
}

// KeySet returns the present keys as a set, for set-difference style
// comparisons (required ∖ present).
func (s Slots) KeySet() map[SlotKey]struct{} {
	out := make(map[SlotKey]struct{}, len(s.values))
	for k := range s.values {
		out[k] = struct{}{}
	}
	return out
}

// Merge copies every non-nil value of other over s, leaving any key of s
// absent from other untouched. This is the merge operator applied when
// s holds session slots and other holds freshly extracted NLU slots.
func (s *Slots) Merge(other Slots) {
	for _, k := range other.Keys() {
		v, _ := other.Get(k)
		if v == nil {
			continue
		}
		s.Set(k, v)
	}
}

// MarshalJSON renders the slot bag as a plain object, the boundary shape
// SessionStore persists.
func (s Slots) MarshalJSON() ([]byte, error) {
	if s.values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.values)
}

// UnmarshalJSON restores a slot bag from its persisted object form.
// date_range values round-trip as DateRange structs rather than raw
// maps so GetDateRange keeps working after a SessionStore read.
func (s *Slots) UnmarshalJSON(data []byte) error {
	var raw map[SlotKey]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	values := make(map[SlotKey]any, len(raw))
	for k, v := range raw {
		if k == SlotDateRange {
			var dr DateRange
			if err := json.Unmarshal(v, &dr); err == nil {
				values[k] = dr
				continue
			}
		}
		var out any
		if err := json.Unmarshal(v, &out); err != nil {
			return err
		}
		values[k] = out
	}
	s.values = values
	return nil
}

// SortedKeyStrings renders Keys() as strings, the shape missing_slots and
// ambiguous lists are serialized in.
func SortedKeyStrings(keys []SlotKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}
