package repository

import (
	"context"
	"sync"
	"time"

	"codepair/internal/domain"
)

const DefaultGraceWindow = 5 * time.Minute

// Reaper reclaims rooms that stay empty for a grace window. It is keyed by
// room id only and re-reads the registry when a timer fires, so a room
// recreated under a reused id is never destroyed by a stale timer.
type Reaper struct {
	registry  domain.RoomRegistry
	grace     time.Duration
	onReclaim func(roomID string)

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewReaper(registry domain.RoomRegistry, grace time.Duration, onReclaim func(roomID string)) *Reaper {
	if grace <= 0 {
		grace = DefaultGraceWindow
	}
	return &Reaper{
		registry:  registry,
		grace:     grace,
		onReclaim: onReclaim,
		timers:    make(map[string]*time.Timer),
	}
}

// Schedule arms reclamation of roomID after the grace window. Scheduling an
// already-armed id restarts its window.
func (r *Reaper) Schedule(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.timers[roomID]; ok {
		t.Stop()
	}
	r.timers[roomID] = time.AfterFunc(r.grace, func() {
		r.reclaim(roomID)
	})
}

// reclaim checks current registry state by id and count, not a captured
// reference: if the room is gone or has been repopulated, nothing happens.
func (r *Reaper) reclaim(roomID string) {
	r.mu.Lock()
	delete(r.timers, roomID)
	r.mu.Unlock()

	room, err := r.registry.Get(context.Background(), roomID)
	if err != nil || room.ParticipantCount() > 0 {
		return
	}

	_ = r.registry.Delete(context.Background(), roomID)

	if r.onReclaim != nil {
		r.onReclaim(roomID)
	}
}

// Stop cancels all pending timers (shutdown and tests).
func (r *Reaper) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, t := range r.timers {
		t.Stop()
		delete(r.timers, id)
	}
}
