package messaging

const (
	EventRoomCreated   = "room.created"
	EventRoomReclaimed = "room.reclaimed"
)

type RoomEvent struct {
	RoomID           string `json:"roomId"`
	Language         string `json:"language,omitempty"`
	ParticipantCount int    `json:"participantCount"`
}
