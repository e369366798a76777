package rdffusion

import "runtime"

// OptimizationLevel names a planner tier. lowering.Plan accepts every
// level but runs the same steps for each (lowering plus encoding
// placement); no base optimizer rule and no expression simplifier is
// applied at any level.
type OptimizationLevel string

const (
	// OptimizationNone is the lowering-only tier.
	OptimizationNone OptimizationLevel = "none"
	// OptimizationDefault is the tier for the SPARQL-expression
	// simplifier around a base optimizer subset; it plans the same way
	// as OptimizationNone.
	OptimizationDefault OptimizationLevel = "default"
	// OptimizationFull is the tier for the full base optimizer suite; it
	// plans the same way as OptimizationNone.
	OptimizationFull OptimizationLevel = "full"
)

// LoggingConfig controls structured-logging behavior. Carried as an
// ambient concern regardless of which SPARQL features are in scope,
// following the teacher's LoggingConfig (config.go).
type LoggingConfig struct {
	Level          string `json:"level"`
	EnableStructured bool `json:"enableStructured"`
	LogSlowQueries bool   `json:"logSlowQueries"`
}

// Config consolidates the engine options named in the external-interfaces
// configuration table.
type Config struct {
	// TargetPartitions is the fan-out of physical plans. Defaults to
	// runtime.NumCPU().
	TargetPartitions int `json:"targetPartitions"`
	// BatchSize is the number of rows per Arrow record batch.
	BatchSize int `json:"batchSize"`
	// OptimizationLevel selects the planner aggressiveness.
	OptimizationLevel OptimizationLevel `json:"optimizationLevel"`
	// BaseIRI is the base used for relative IRI resolution in queries.
	BaseIRI string `json:"baseIri"`
	// UnionDefaultGraph treats the default graph as the union over all
	// named graphs when true.
	UnionDefaultGraph bool `json:"unionDefaultGraph"`
	// Logging holds structured-logging settings.
	Logging LoggingConfig `json:"logging"`
}

// DefaultConfig returns the engine's default configuration.
func DefaultConfig() *Config {
	return &Config{
		TargetPartitions:  runtime.NumCPU(),
		BatchSize:         8 * 1024,
		OptimizationLevel: OptimizationDefault,
		UnionDefaultGraph: false,
		Logging: LoggingConfig{
			Level:            "info",
			EnableStructured: true,
			LogSlowQueries:   true,
		},
	}
}

// Validate checks the configuration for internally-consistent values.
func (c *Config) Validate() error {
	if c.TargetPartitions <= 0 {
		return NewSyntaxError("INVALID_TARGET_PARTITIONS", "targetPartitions must be greater than 0")
	}
	if c.BatchSize <= 0 {
		return NewSyntaxError("INVALID_BATCH_SIZE", "batchSize must be greater than 0")
	}
	switch c.OptimizationLevel {
	case OptimizationNone, OptimizationDefault, OptimizationFull:
	default:
		return NewSyntaxError("INVALID_OPTIMIZATION_LEVEL", "optimizationLevel must be one of none|default|full")
	}
	return nil
}
