package domain

// Participant ties a live connection to a display name within one room.
// The connection id is owned by the transport layer.
type Participant struct {
	ConnectionID string `json:"id"`
	DisplayName  string `json:"username"`
}

func NewParticipant(connectionID, displayName string) Participant {
	if displayName == "" {
		displayName = DefaultDisplayName
	}
	return Participant{
		ConnectionID: connectionID,
		DisplayName:  displayName,
	}
}
