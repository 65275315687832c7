package model

// Version constants for the task document and engine.
const (
	// DocumentVersion is the task document schema version.
	DocumentVersion = "1"

	// EngineVersion is the popdyn engine version.
	EngineVersion = "0.1.0"
)
