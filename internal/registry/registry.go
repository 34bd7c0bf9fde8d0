// Package registry loads the two orchestrator-specific YAML documents,
// intent_execution.yaml and intent_signals.yaml, once per process and
// exposes them as immutable, typed tables. Grounded on
// internal/config.Load's viper usage, but pointed at a dedicated
// viper.New() instance so the service config and the intent registry
// never share state.
package registry

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// WhenMissing is the {any_of:[slot,...]} condition a fallback action
// fires under.
type WhenMissing struct {
	AnyOf []string `mapstructure:"any_of"`
}

// Fallback is one commit-or-fallback entry of intent_execution.yaml.
type Fallback struct {
	Action      string      `mapstructure:"action"`
	WhenMissing WhenMissing `mapstructure:"when_missing"`
}

// Commit is the primary action an intent commits to when READY.
type Commit struct {
	Action string `mapstructure:"action"`
}

// ExecutionEntry is one INTENT_NAME entry of intent_execution.yaml.
type ExecutionEntry struct {
	Commit    Commit     `mapstructure:"commit"`
	Fallbacks []Fallback `mapstructure:"fallbacks"`
}

// ExecutionConfig is the parsed intent_execution.yaml document.
type ExecutionConfig struct {
	Intents map[string]ExecutionEntry `mapstructure:"intents"`
}

// Signals is the {any, all, ordered} signal set for one intent.
type Signals struct {
	Any     []string   `mapstructure:"any"`
	All     [][]string `mapstructure:"all"`
	Ordered [][]string `mapstructure:"ordered"`
}

// SignalEntry is one INTENT_NAME entry of intent_signals.yaml.
type SignalEntry struct {
	Signals             Signals  `mapstructure:"signals"`
	RequiredSlots       []string `mapstructure:"required_slots"`
	IntentDefiningSlots []string `mapstructure:"intent_defining_slots"`
	IsBooking           bool     `mapstructure:"is_booking"`
}

// SignalsConfig is the parsed intent_signals.yaml document.
type SignalsConfig struct {
	Intents map[string]SignalEntry `mapstructure:"intents"`
}

// Registry bundles both immutable-after-warmup YAML tables.
type Registry struct {
	Execution ExecutionConfig
	Signals   SignalsConfig
}

var (
	once     sync.Once
	instance *Registry
	loadErr  error
)

// Load reads both YAML documents from dir exactly once per process
// (single-flight behind sync.Once); subsequent calls return the
// cached result regardless of dir. Tests that need a fresh load should
// call LoadFrom directly instead.
func Load(dir string) (*Registry, error) {
	once.Do(func() {
		instance, loadErr = LoadFrom(dir)
	})
	return instance, loadErr
}

// LoadFrom reads both YAML documents from dir unconditionally, bypassing
// the process-wide single-flight guard. Used by tests and by Load's
// first caller.
func LoadFrom(dir string) (*Registry, error) {
	exec, err := loadExecution(dir)
	if err != nil {
		return nil, err
	}
	signals, err := loadSignals(dir)
	if err != nil {
		return nil, err
	}
	return &Registry{Execution: *exec, Signals: *signals}, nil
}

func loadExecution(dir string) (*ExecutionConfig, error) {
	v := viper.New()
	v.SetConfigName("intent_execution")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read intent_execution.yaml: %w", err)
	}
	var cfg ExecutionConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal intent_execution.yaml: %w", err)
	}
	return &cfg, nil
}

func loadSignals(dir string) (*SignalsConfig, error) {
	v := viper.New()
	v.SetConfigName("intent_signals")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read intent_signals.yaml: %w", err)
	}
	var cfg SignalsConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal intent_signals.yaml: %w", err)
	}
	return &cfg, nil
}

// ExecutionFor returns the execution entry for intent, and whether one
// was configured.
func (r *Registry) ExecutionFor(intent string) (ExecutionEntry, bool) {
	if r == nil {
		return ExecutionEntry{}, false
	}
	e, ok := r.Execution.Intents[intent]
	if !ok {
		// viper lower-cases map keys when it reads YAML.
		e, ok = r.Execution.Intents[strings.ToLower(intent)]
	}
	return e, ok
}

// SignalsFor returns the signal entry for intent, and whether one was
// configured.
func (r *Registry) SignalsFor(intent string) (SignalEntry, bool) {
	if r == nil {
		return SignalEntry{}, false
	}
	e, ok := r.Signals.Intents[intent]
	if !ok {
		e, ok = r.Signals.Intents[strings.ToLower(intent)]
	}
	return e, ok
}

// priorityOrder is the signal evaluation order: PAYMENT first,
// RECOMMENDATION last. Intents not in this list (the booking intents,
// UNKNOWN) are never matched by signal, only by booking_mode.
var priorityOrder = []string{
	"PAYMENT",
	"CANCEL_BOOKING",
	"MODIFY_BOOKING",
	"BOOKING_INQUIRY",
	"AVAILABILITY",
	"DETAILS",
	"QUOTE",
	"DISCOVERY",
	"RECOMMENDATION",
}

// PriorityOrder returns the signal-matching priority order.
func (r *Registry) PriorityOrder() []string {
	return priorityOrder
}
