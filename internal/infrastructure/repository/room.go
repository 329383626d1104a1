package repository

import (
	"context"
	"sync"

	"codepair/internal/domain"
)

type roomRegistry struct {
	rooms           map[string]*domain.Room // ID -> Room
	defaultLanguage string
	mu              *sync.RWMutex
}

// NewRoomRegistry builds the in-memory registry. State is process-local:
// created at startup, discarded at exit, nothing persisted.
func NewRoomRegistry(defaultLanguage string) domain.RoomRegistry {
	if defaultLanguage == "" {
		defaultLanguage = domain.DefaultLanguage
	}
	return &roomRegistry{
		rooms:           make(map[string]*domain.Room),
		defaultLanguage: defaultLanguage,
		mu:              &sync.RWMutex{},
	}
}

// Create allocates a fresh id and inserts an empty room. It never fails.
func (r *roomRegistry) Create(ctx context.Context) (*domain.Room, error) {
	room := domain.NewRoom(domain.NewRoomID(), r.defaultLanguage)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.rooms[room.ID] = room

	return room.Snapshot(), nil
}

func (r *roomRegistry) Get(ctx context.Context, id string) (*domain.Room, error) {
	if id == "" {
		return nil, domain.ErrRoomNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	room, exists := r.rooms[id]
	if !exists {
		return nil, domain.ErrRoomNotFound
	}

	return room.Snapshot(), nil
}

// Delete removes a room by id (idempotent).
func (r *roomRegistry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.rooms, id)
	return nil
}

// Join adds p to the room's participant list. The second return reports
// whether p was actually added; rejoining with a known connection id leaves
// the list untouched.
func (r *roomRegistry) Join(ctx context.Context, roomID string, p domain.Participant) (*domain.Room, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[roomID]
	if !exists {
		return nil, false, domain.ErrRoomNotFound
	}

	added := room.AddParticipant(p)
	return room.Snapshot(), added, nil
}

// Leave removes the participant with connectionID. The second return reports
// whether an entry was actually removed.
func (r *roomRegistry) Leave(ctx context.Context, roomID, connectionID string) (*domain.Room, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[roomID]
	if !exists {
		return nil, false, domain.ErrRoomNotFound
	}

	removed := room.RemoveParticipant(connectionID)
	return room.Snapshot(), removed, nil
}

// SetCode replaces the document text. A non-empty language also replaces the
// room language; this mirrors the dedicated language path and is kept on
// purpose (clients may bundle a language switch with a code edit).
func (r *roomRegistry) SetCode(ctx context.Context, roomID, code, language string) (*domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[roomID]
	if !exists {
		return nil, domain.ErrRoomNotFound
	}

	room.Code = code
	if language != "" {
		room.Language = language
	}

	return room.Snapshot(), nil
}

func (r *roomRegistry) SetLanguage(ctx context.Context, roomID, language string) (*domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[roomID]
	if !exists {
		return nil, domain.ErrRoomNotFound
	}

	room.Language = language
	return room.Snapshot(), nil
}
