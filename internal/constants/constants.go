// Package constants provides named constants used throughout the fedq codebase.
// This centralizes magic numbers for better maintainability and documentation.
package constants

// Agent hyperparameter defaults.
const (
	// DefaultAlpha is the default learning rate for Bellman updates.
	DefaultAlpha = 0.1

	// DefaultGamma is the default discount factor for future rewards.
	DefaultGamma = 0.95

	// DefaultEpsilon is the starting exploration rate.
	DefaultEpsilon = 1.0

	// DefaultEpsilonDecay is the per-episode multiplicative decay applied
	// to epsilon.
	DefaultEpsilonDecay = 0.995

	// DefaultEpsilonFloor is the lowest value epsilon may decay to.
	// Keeping a small floor preserves residual exploration.
	DefaultEpsilonFloor = 0.01
)

// Federation constants.
const (
	// DefaultConvergenceThreshold is the avg-delta below which successive
	// merges are considered converged. Empirical; overridable via config.
	DefaultConvergenceThreshold = 0.01

	// DefaultChangedEpsilon is the per-value difference below which a
	// state is not counted as changed. Filters floating-point noise.
	DefaultChangedEpsilon = 1e-9

	// DefaultFederationInterval is the mean episode count between
	// federation rounds.
	DefaultFederationInterval = 100

	// DefaultPerformanceWindow is the half-window size for the
	// plateau-detection trigger. The trigger inspects the most recent
	// 2*window episode rewards.
	DefaultPerformanceWindow = 20

	// DefaultImprovementThreshold is the relative reward improvement at
	// or below which learning is considered plateaued.
	DefaultImprovementThreshold = 0.01

	// RelativeEpsilon guards divisions by near-zero magnitudes when
	// computing relative deltas and relative improvement.
	RelativeEpsilon = 1e-9
)

// Wire format constants.
const (
	// SchemaVersion is the current serialized model schema version.
	// Decode rejects payloads declaring any other version.
	SchemaVersion = 1
)

// Workspace file names under the fedq directory.
const (
	// FedqDirName is the per-workspace data directory.
	FedqDirName = ".fedq"

	// ConfigFileName is the workspace configuration file.
	ConfigFileName = "config.yaml"

	// CheckpointDBName is the SQLite checkpoint database file.
	CheckpointDBName = "checkpoints.db"

	// RoundLogName is the JSONL federation-round trace file.
	RoundLogName = "rounds.jsonl"
)
