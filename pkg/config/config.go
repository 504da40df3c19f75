package config

// Config represents the complete configuration for a rule session.
type Config struct {
	// Fire loop configuration
	Fire FireConfig `yaml:"fire,omitempty" validate:"omitempty"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging,omitempty" validate:"omitempty"`

	// Aggregate node defaults
	Aggregates AggregateConfig `yaml:"aggregates,omitempty" validate:"omitempty"`
}

// FireConfig controls the agenda drain loop.
type FireConfig struct {
	// MaxCycles bounds the number of activations consumed by a single Fire
	// call. Zero means unbounded. A rule cascade that exceeds the bound
	// stops with a CycleLimitExceeded error.
	MaxCycles int `yaml:"max_cycles" validate:"gte=0"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Severity is the minimum severity emitted (DEBUG, INFO, WARN, ERROR, FATAL)
	Severity string `yaml:"severity,omitempty" validate:"omitempty,oneof=DEBUG INFO WARN ERROR FATAL"`

	// UseColors enables ANSI colors on console output
	UseColors bool `yaml:"use_colors,omitempty"`
}

// AggregateConfig holds defaults for aggregate nodes.
type AggregateConfig struct {
	// EmitEmptyGroups selects the collection aggregator the network builder
	// uses for an aggregate pattern that names none: Collect (emits an empty
	// collection for a group with no facts) when true, CollectNonEmpty when
	// false. Aggregators named explicitly on a pattern ignore this setting.
	EmitEmptyGroups bool `yaml:"emit_empty_groups,omitempty"`
}

// Default returns the default engine configuration.
func Default() *Config {
	return &Config{
		Fire: FireConfig{
			MaxCycles: 0,
		},
		Logging: LoggingConfig{
			Severity:  "INFO",
			UseColors: true,
		},
		Aggregates: AggregateConfig{
			EmitEmptyGroups: true,
		},
	}
}
