package rooms

type createRoomResponse struct {
	RoomID string `json:"roomId"`
}

type roomResponse struct {
	RoomID           string `json:"roomId"`
	Language         string `json:"language"`
	ParticipantCount int    `json:"participantCount"`
}
