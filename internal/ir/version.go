package ir

// Version constants for the configuration schema and the builder.
const (
	// SchemaVersion is the QueryConfiguration schema version.
	SchemaVersion = "1"

	// BuilderVersion is the reportbuilder version.
	BuilderVersion = "0.1.0"
)
