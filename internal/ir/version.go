package ir

// Version constants for the persisted schema and the script host.
const (
	// SchemaVersion is the sqlite schema version stored in user_version.
	SchemaVersion = 1

	// HostVersion identifies the script host contract exposed to guests.
	HostVersion = "req1-host/1"
)
