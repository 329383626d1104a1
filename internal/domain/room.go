package domain

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

const (
	roomIDLength = 8

	DefaultLanguage    = "javascript"
	DefaultDisplayName = "Anonymous"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Room is the unit of shared session state: the document text, the selected
// language and the ordered participant list. The registry is the only owner
// of a Room's lifetime.
type Room struct {
	ID           string        `json:"id"`
	Code         string        `json:"code"`
	Language     string        `json:"language"`
	Participants []Participant `json:"participants"`
}

// RoomRegistry is the single source of truth for room state. All mutation
// goes through it; returned rooms are snapshots, safe to read without
// coordinating with the caller that triggered the mutation.
type RoomRegistry interface {
	Create(ctx context.Context) (*Room, error)
	Get(ctx context.Context, id string) (*Room, error)
	Delete(ctx context.Context, id string) error
	Join(ctx context.Context, roomID string, p Participant) (*Room, bool, error)
	Leave(ctx context.Context, roomID, connectionID string) (*Room, bool, error)
	SetCode(ctx context.Context, roomID, code, language string) (*Room, error)
	SetLanguage(ctx context.Context, roomID, language string) (*Room, error)
}

// NewRoomID allocates an opaque 8-character room token. Collisions are not
// checked; at the scale this serves, a clash within the live set is not a
// realistic concern.
func NewRoomID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:roomIDLength]
}

func NewRoom(id, language string) *Room {
	if language == "" {
		language = DefaultLanguage
	}
	return &Room{
		ID:           id,
		Code:         "",
		Language:     language,
		Participants: make([]Participant, 0, 4),
	}
}

// AddParticipant appends p in join order. Joining twice with the same
// connection id is a no-op; the existing entry is kept untouched.
func (r *Room) AddParticipant(p Participant) bool {
	if r.HasParticipant(p.ConnectionID) {
		return false
	}
	r.Participants = append(r.Participants, p)
	return true
}

// RemoveParticipant deletes the entry for connectionID, preserving the join
// order of everyone else. Removing an absent participant is a no-op.
func (r *Room) RemoveParticipant(connectionID string) bool {
	for i, p := range r.Participants {
		if p.ConnectionID == connectionID {
			r.Participants = append(r.Participants[:i], r.Participants[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Room) HasParticipant(connectionID string) bool {
	for _, p := range r.Participants {
		if p.ConnectionID == connectionID {
			return true
		}
	}
	return false
}

func (r *Room) ParticipantCount() int {
	return len(r.Participants)
}

// Snapshot returns a deep copy that later mutations cannot touch.
func (r *Room) Snapshot() *Room {
	cpy := *r
	cpy.Participants = make([]Participant, len(r.Participants))
	copy(cpy.Participants, r.Participants)
	return &cpy
}
