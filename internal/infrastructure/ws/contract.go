package ws

import (
	"encoding/json"
	"errors"

	"codepair/internal/domain"
)

var errMissingType = errors.New("message has no type")

// Message is the wire envelope for both directions. RoomID rides on the
// envelope so a single connection can multiplex several rooms.
type Message struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// envelope is the inbound variant with the payload still raw; decoding is
// deferred until the event type is known.
type envelope struct {
	Type   string          `json:"type"`
	RoomID string          `json:"roomId,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Inbound payloads. A roomId inside the payload wins over the envelope one.
type JoinRoomPayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username,omitempty"`
}

type LeaveRoomPayload struct {
	RoomID string `json:"roomId"`
}

type CodeChangePayload struct {
	RoomID   string `json:"roomId"`
	Code     string `json:"code"`
	Language string `json:"language,omitempty"`
}

type LanguageChangePayload struct {
	RoomID   string `json:"roomId"`
	Language string `json:"language"`
}

// Outbound payloads.
type ErrorPayload struct {
	Message string `json:"message"`
}

type CodeUpdatePayload struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

type UserJoinedPayload struct {
	UserID           string `json:"userId"`
	Username         string `json:"username"`
	ParticipantCount int    `json:"participantCount"`
}

type UserLeftPayload struct {
	UserID           string `json:"userId"`
	ParticipantCount int    `json:"participantCount"`
}

type ParticipantsUpdatePayload struct {
	Participants []domain.Participant `json:"participants"`
	Count        int                  `json:"count"`
}

type LanguageUpdatePayload struct {
	Language string `json:"language"`
}

// decodeEnvelope validates a raw frame at the connection boundary. The
// payload stays raw; it is decoded once the event type is known.
func decodeEnvelope(raw []byte) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	if env.Type == "" {
		return nil, errMissingType
	}
	return &env, nil
}

func NewError(roomID, message string) *Message {
	return &Message{
		Type:   ErrorEvent,
		RoomID: roomID,
		Data: ErrorPayload{
			Message: message,
		},
	}
}

func NewCodeUpdate(roomID, code, language string) *Message {
	return &Message{
		Type:   CodeUpdate,
		RoomID: roomID,
		Data: CodeUpdatePayload{
			Code:     code,
			Language: language,
		},
	}
}

func NewUserJoined(roomID string, p domain.Participant, count int) *Message {
	return &Message{
		Type:   UserJoined,
		RoomID: roomID,
		Data: UserJoinedPayload{
			UserID:           p.ConnectionID,
			Username:         p.DisplayName,
			ParticipantCount: count,
		},
	}
}

func NewUserLeft(roomID, connectionID string, count int) *Message {
	return &Message{
		Type:   UserLeft,
		RoomID: roomID,
		Data: UserLeftPayload{
			UserID:           connectionID,
			ParticipantCount: count,
		},
	}
}

func NewParticipantsUpdate(roomID string, participants []domain.Participant) *Message {
	return &Message{
		Type:   ParticipantsUpdate,
		RoomID: roomID,
		Data: ParticipantsUpdatePayload{
			Participants: participants,
			Count:        len(participants),
		},
	}
}

func NewLanguageUpdate(roomID, language string) *Message {
	return &Message{
		Type:   LanguageUpdate,
		RoomID: roomID,
		Data: LanguageUpdatePayload{
			Language: language,
		},
	}
}
