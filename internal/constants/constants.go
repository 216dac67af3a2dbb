// Package constants provides named constants used throughout the cambtest codebase.
// This centralizes defaults and file-naming conventions shared between packages.
package constants

// Invocation defaults
const (
	// DefaultOutFilesDir is the output subdirectory created inside the ini directory.
	DefaultOutFilesDir = "test_outputs"

	// DefaultBaseSettings is the settings file every generated config inherits from.
	DefaultBaseSettings = "params.ini"

	// DefaultProg is the simulation executable run against each config.
	DefaultProg = "./camb"

	// DefaultDiffTolerance is the absolute tolerance for the numeric diff.
	// Two values are equivalent only when |a-b| is strictly less than it.
	DefaultDiffTolerance = 1e-5
)

// File naming conventions
const (
	// ConfigExt is the extension of materialized configuration files.
	ConfigExt = ".ini"

	// InheritPrefix prefixes the staged copy of the base settings file.
	InheritPrefix = "inheritbase_"

	// ConfigMarker marks a file as an input descriptor rather than an output.
	// Any file whose name contains it is ignored by output counting and diffing.
	ConfigMarker = ".ini"

	// StateDirName is the per-ini-directory directory holding history and event logs.
	StateDirName = ".cambtest"

	// ConfigFileName is the optional per-ini-directory configuration file.
	ConfigFileName = "cambtest.yaml"
)

// Generator constants
const (
	// DefaultCrossPrecision is the number of decimals used when a cross-sweep
	// value is formatted into an overlay name.
	DefaultCrossPrecision = 3
)

// History constants
const (
	// DefaultHistoryLimit is the number of rows listed by `cambtest history`.
	DefaultHistoryLimit = 10
)
