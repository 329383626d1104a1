package ws

import (
	"context"
	"encoding/json"
	"log"

	"codepair/internal/domain"
	"codepair/internal/infrastructure/metrics"
)

// Scheduler arms deferred reclamation of a room that dropped to zero
// participants. It must key by room id, never by room reference.
type Scheduler interface {
	Schedule(roomID string)
}

// Core processes every protocol event on a single goroutine. Events from
// one connection arrive in order; no two events ever mutate a room
// concurrently, so the handlers below need no locking of their own.
type Core struct {
	registry domain.RoomRegistry
	manager  *RoomManager
	reaper   Scheduler
	metrics  *metrics.Metrics
	register chan *Client
	events   chan event
	quit     chan struct{}
}

type eventKind int

const (
	frame eventKind = iota
	disconnected
)

type event struct {
	client   *Client
	kind     eventKind
	envelope *envelope
}

func NewCore(registry domain.RoomRegistry, manager *RoomManager, reaper Scheduler, m *metrics.Metrics) *Core {
	return &Core{
		registry: registry,
		manager:  manager,
		reaper:   reaper,
		metrics:  m,
		register: make(chan *Client),
		events:   make(chan event, 256),
		quit:     make(chan struct{}),
	}
}

func (c *Core) Run() {
	for {
		select {
		case cl := <-c.register:
			if c.metrics != nil {
				c.metrics.ConnectedClients.Inc()
			}
			log.Printf("client %s connected", cl.ID)

		case ev := <-c.events:
			c.handle(ev)

		case <-c.quit:
			return
		}
	}
}

func (c *Core) Stop() {
	close(c.quit)
}

func (c *Core) Register() chan<- *Client {
	return c.register
}

// dispatch feeds the event loop. Frames and the trailing disconnect of one
// connection share this channel, so teardown can never overtake an event
// that arrived before it.
func (c *Core) dispatch(ev event) {
	c.events <- ev
}

func (c *Core) handle(ev event) {
	if ev.kind == disconnected {
		c.handleDisconnect(ev.client)
		return
	}

	env := ev.envelope
	if c.metrics != nil {
		c.metrics.EventsProcessed.WithLabelValues(env.Type).Inc()
	}

	switch env.Type {
	case JoinRoom:
		var p JoinRoomPayload
		if !c.decode(ev.client, env, &p) {
			return
		}
		if p.RoomID == "" {
			p.RoomID = env.RoomID
		}
		c.handleJoin(ev.client, p)

	case LeaveRoom:
		var p LeaveRoomPayload
		if !c.decode(ev.client, env, &p) {
			return
		}
		if p.RoomID == "" {
			p.RoomID = env.RoomID
		}
		c.handleLeave(ev.client, p.RoomID)

	case CodeChange:
		var p CodeChangePayload
		if !c.decode(ev.client, env, &p) {
			return
		}
		if p.RoomID == "" {
			p.RoomID = env.RoomID
		}
		c.handleCodeChange(ev.client, p)

	case LanguageChange:
		var p LanguageChangePayload
		if !c.decode(ev.client, env, &p) {
			return
		}
		if p.RoomID == "" {
			p.RoomID = env.RoomID
		}
		c.handleLanguageChange(ev.client, p)

	default:
		c.manager.SendTo(ev.client, NewError("", "unknown event type: "+env.Type))
	}
}

// decode unmarshals the payload for one event kind. Malformed payloads are
// answered to the sender only and mutate nothing.
func (c *Core) decode(cl *Client, env *envelope, into any) bool {
	if len(env.Data) == 0 {
		return true
	}
	if err := json.Unmarshal(env.Data, into); err != nil {
		c.manager.SendTo(cl, NewError(env.RoomID, "invalid "+env.Type+" payload"))
		return false
	}
	return true
}

// handleJoin implements join-room. An unknown room id produces exactly one
// error to the joiner and no state change. On success the joiner gets the
// current document snapshot, everyone else a user-joined notice, and all
// members a fresh participant list reflecting the post-join state.
func (c *Core) handleJoin(cl *Client, p JoinRoomPayload) {
	room, _, err := c.registry.Join(context.Background(), p.RoomID, domain.NewParticipant(cl.ID, p.Username))
	if err != nil {
		c.manager.SendTo(cl, NewError(p.RoomID, "Room not found"))
		return
	}

	c.manager.Subscribe(room.ID, cl)

	// The registry entry carries the display name that sticks on rejoin.
	self := domain.NewParticipant(cl.ID, p.Username)
	for _, q := range room.Participants {
		if q.ConnectionID == cl.ID {
			self = q
			break
		}
	}

	c.manager.SendTo(cl, NewCodeUpdate(room.ID, room.Code, room.Language))
	c.manager.BroadcastExcept(room.ID, cl.ID, NewUserJoined(room.ID, self, room.ParticipantCount()))
	c.manager.Broadcast(room.ID, NewParticipantsUpdate(room.ID, room.Participants))

	log.Printf("client %s (%s) joined room %s", cl.ID, self.DisplayName, room.ID)
}

// handleLeave implements leave-room and the per-room half of disconnect.
// A missing or unknown room id is tolerated silently: the client's local
// state may simply lag behind a reclaimed room.
func (c *Core) handleLeave(cl *Client, roomID string) {
	if roomID == "" {
		return
	}

	c.manager.Unsubscribe(roomID, cl)

	room, removed, err := c.registry.Leave(context.Background(), roomID, cl.ID)
	if err != nil || !removed {
		return
	}

	c.manager.Broadcast(roomID, NewUserLeft(roomID, cl.ID, room.ParticipantCount()))
	c.manager.Broadcast(roomID, NewParticipantsUpdate(roomID, room.Participants))

	if room.ParticipantCount() == 0 && c.reaper != nil {
		c.reaper.Schedule(roomID)
	}

	log.Printf("client %s left room %s", cl.ID, roomID)
}

// handleCodeChange applies a document edit and fans the snapshot out to
// every member except the editor. The optional language field also switches
// the room language; see the registry for why that path is kept.
func (c *Core) handleCodeChange(cl *Client, p CodeChangePayload) {
	if p.RoomID == "" {
		return
	}

	room, err := c.registry.SetCode(context.Background(), p.RoomID, p.Code, p.Language)
	if err != nil {
		return
	}

	c.manager.BroadcastExcept(p.RoomID, cl.ID, NewCodeUpdate(p.RoomID, room.Code, room.Language))
}

// handleLanguageChange switches the room language and notifies every
// member, the sender included.
func (c *Core) handleLanguageChange(cl *Client, p LanguageChangePayload) {
	if p.RoomID == "" {
		return
	}

	room, err := c.registry.SetLanguage(context.Background(), p.RoomID, p.Language)
	if err != nil {
		return
	}

	c.manager.Broadcast(p.RoomID, NewLanguageUpdate(p.RoomID, room.Language))
}

// handleDisconnect treats a transport drop as an implicit leave from every
// room the connection belonged to, then releases the write pump.
func (c *Core) handleDisconnect(cl *Client) {
	for _, roomID := range c.manager.Memberships(cl.ID) {
		c.handleLeave(cl, roomID)
	}

	close(cl.Message)

	if c.metrics != nil {
		c.metrics.ConnectedClients.Dec()
	}
	log.Printf("client %s disconnected", cl.ID)
}
