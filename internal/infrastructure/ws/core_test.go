package ws

import (
	"context"
	"encoding/json"
	"testing"

	"codepair/internal/domain"
	"codepair/internal/infrastructure/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScheduler struct {
	scheduled []string
}

func (s *stubScheduler) Schedule(roomID string) {
	s.scheduled = append(s.scheduled, roomID)
}

// newTestCore builds a core whose handlers are driven synchronously; no
// goroutines, no sockets. Clients never start their pumps, so outbound
// traffic accumulates on their buffered queues for inspection.
func newTestCore(t *testing.T) (*Core, domain.RoomRegistry, *stubScheduler) {
	t.Helper()
	registry := repository.NewRoomRegistry("")
	scheduler := &stubScheduler{}
	core := NewCore(registry, NewRoomManager(), scheduler, nil)
	return core, registry, scheduler
}

func newTestClient(id string) *Client {
	return NewClient(nil, id)
}

func createRoom(t *testing.T, registry domain.RoomRegistry) string {
	t.Helper()
	room, err := registry.Create(context.Background())
	require.NoError(t, err)
	return room.ID
}

// drain empties a client's outbound queue.
func drain(cl *Client) []*Message {
	var msgs []*Message
	for {
		select {
		case m := <-cl.Message:
			msgs = append(msgs, m)
		default:
			return msgs
		}
	}
}

func typesOf(msgs []*Message) []string {
	types := make([]string, 0, len(msgs))
	for _, m := range msgs {
		types = append(types, m.Type)
	}
	return types
}

func TestJoinUnknownRoom(t *testing.T) {
	core, registry, _ := newTestCore(t)
	cl := newTestClient("conn-a")

	core.handleJoin(cl, JoinRoomPayload{RoomID: "badroom", Username: "A"})

	msgs := drain(cl)
	require.Len(t, msgs, 1, "exactly one message to the joiner")
	assert.Equal(t, ErrorEvent, msgs[0].Type)
	assert.Equal(t, ErrorPayload{Message: "Room not found"}, msgs[0].Data)

	_, err := registry.Get(context.Background(), "badroom")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound, "no registry mutation on failed join")
	assert.Empty(t, core.manager.Memberships("conn-a"))
}

func TestJoinSequence(t *testing.T) {
	core, registry, _ := newTestCore(t)
	roomID := createRoom(t, registry)

	a := newTestClient("conn-a")
	b := newTestClient("conn-b")

	core.handleJoin(a, JoinRoomPayload{RoomID: roomID, Username: "A"})

	aMsgs := drain(a)
	require.Equal(t, []string{CodeUpdate, ParticipantsUpdate}, typesOf(aMsgs))
	assert.Equal(t, CodeUpdatePayload{Code: "", Language: "javascript"}, aMsgs[0].Data)

	list := aMsgs[1].Data.(ParticipantsUpdatePayload)
	assert.Equal(t, 1, list.Count)
	require.Len(t, list.Participants, 1)
	assert.Equal(t, "A", list.Participants[0].DisplayName)

	core.handleJoin(b, JoinRoomPayload{RoomID: roomID, Username: "B"})

	aMsgs = drain(a)
	require.Equal(t, []string{UserJoined, ParticipantsUpdate}, typesOf(aMsgs))
	assert.Equal(t, UserJoinedPayload{UserID: "conn-b", Username: "B", ParticipantCount: 2}, aMsgs[0].Data)

	bMsgs := drain(b)
	require.Equal(t, []string{CodeUpdate, ParticipantsUpdate}, typesOf(bMsgs), "the joiner never sees their own user-joined")

	list = bMsgs[1].Data.(ParticipantsUpdatePayload)
	assert.Equal(t, 2, list.Count)
	// Join order is preserved in the snapshot.
	assert.Equal(t, "conn-a", list.Participants[0].ConnectionID)
	assert.Equal(t, "conn-b", list.Participants[1].ConnectionID)
}

func TestJoinWithoutUsername(t *testing.T) {
	core, registry, _ := newTestCore(t)
	roomID := createRoom(t, registry)

	cl := newTestClient("conn-a")
	core.handleJoin(cl, JoinRoomPayload{RoomID: roomID})

	msgs := drain(cl)
	list := msgs[1].Data.(ParticipantsUpdatePayload)
	assert.Equal(t, domain.DefaultDisplayName, list.Participants[0].DisplayName)
}

func TestRejoinIsIdempotent(t *testing.T) {
	core, registry, _ := newTestCore(t)
	roomID := createRoom(t, registry)

	cl := newTestClient("conn-a")
	core.handleJoin(cl, JoinRoomPayload{RoomID: roomID, Username: "A"})
	drain(cl)

	core.handleJoin(cl, JoinRoomPayload{RoomID: roomID, Username: "A2"})

	room, err := registry.Get(context.Background(), roomID)
	require.NoError(t, err)
	require.Equal(t, 1, room.ParticipantCount())
	assert.Equal(t, "A", room.Participants[0].DisplayName, "rejoin updates nothing")

	msgs := drain(cl)
	require.Equal(t, []string{CodeUpdate, ParticipantsUpdate}, typesOf(msgs), "rejoiner is re-sent the current snapshot")
}

func TestCodeChangeExcludesSender(t *testing.T) {
	core, registry, _ := newTestCore(t)
	roomID := createRoom(t, registry)

	a := newTestClient("conn-a")
	b := newTestClient("conn-b")
	core.handleJoin(a, JoinRoomPayload{RoomID: roomID, Username: "A"})
	core.handleJoin(b, JoinRoomPayload{RoomID: roomID, Username: "B"})
	drain(a)
	drain(b)

	core.handleCodeChange(a, CodeChangePayload{RoomID: roomID, Code: "x=1"})

	assert.Empty(t, drain(a), "code-update is never echoed to the editor")

	bMsgs := drain(b)
	require.Equal(t, []string{CodeUpdate}, typesOf(bMsgs))
	assert.Equal(t, CodeUpdatePayload{Code: "x=1", Language: "javascript"}, bMsgs[0].Data)
}

func TestCodeChangeWithLanguage(t *testing.T) {
	core, registry, _ := newTestCore(t)
	roomID := createRoom(t, registry)

	a := newTestClient("conn-a")
	b := newTestClient("conn-b")
	core.handleJoin(a, JoinRoomPayload{RoomID: roomID, Username: "A"})
	core.handleJoin(b, JoinRoomPayload{RoomID: roomID, Username: "B"})
	drain(a)
	drain(b)

	core.handleCodeChange(a, CodeChangePayload{RoomID: roomID, Code: "print(1)", Language: "python"})

	room, err := registry.Get(context.Background(), roomID)
	require.NoError(t, err)
	assert.Equal(t, "python", room.Language, "code-change may carry a language switch")

	bMsgs := drain(b)
	require.Len(t, bMsgs, 1)
	assert.Equal(t, CodeUpdatePayload{Code: "print(1)", Language: "python"}, bMsgs[0].Data)
}

func TestCodeChangeUnknownRoomIsSilent(t *testing.T) {
	core, _, _ := newTestCore(t)
	cl := newTestClient("conn-a")

	core.handleCodeChange(cl, CodeChangePayload{RoomID: "badroom", Code: "x"})
	core.handleCodeChange(cl, CodeChangePayload{RoomID: "", Code: "x"})

	assert.Empty(t, drain(cl))
}

func TestLanguageChangeIncludesSender(t *testing.T) {
	core, registry, _ := newTestCore(t)
	roomID := createRoom(t, registry)

	a := newTestClient("conn-a")
	b := newTestClient("conn-b")
	core.handleJoin(a, JoinRoomPayload{RoomID: roomID, Username: "A"})
	core.handleJoin(b, JoinRoomPayload{RoomID: roomID, Username: "B"})
	drain(a)
	drain(b)

	core.handleLanguageChange(a, LanguageChangePayload{RoomID: roomID, Language: "python"})

	for _, cl := range []*Client{a, b} {
		msgs := drain(cl)
		require.Equal(t, []string{LanguageUpdate}, typesOf(msgs), "client %s", cl.ID)
		assert.Equal(t, LanguageUpdatePayload{Language: "python"}, msgs[0].Data)
	}
}

func TestLeaveNotifiesRemaining(t *testing.T) {
	core, registry, scheduler := newTestCore(t)
	roomID := createRoom(t, registry)

	a := newTestClient("conn-a")
	b := newTestClient("conn-b")
	core.handleJoin(a, JoinRoomPayload{RoomID: roomID, Username: "A"})
	core.handleJoin(b, JoinRoomPayload{RoomID: roomID, Username: "B"})
	drain(a)
	drain(b)

	core.handleLeave(a, roomID)

	assert.Empty(t, drain(a), "the leaver gets no notifications")

	bMsgs := drain(b)
	require.Equal(t, []string{UserLeft, ParticipantsUpdate}, typesOf(bMsgs))
	assert.Equal(t, UserLeftPayload{UserID: "conn-a", ParticipantCount: 1}, bMsgs[0].Data)

	list := bMsgs[1].Data.(ParticipantsUpdatePayload)
	assert.Equal(t, 1, list.Count)

	assert.Empty(t, scheduler.scheduled, "room is not empty yet")
	assert.Empty(t, core.manager.Memberships("conn-a"))
}

func TestLastLeaveSchedulesReclaim(t *testing.T) {
	core, registry, scheduler := newTestCore(t)
	roomID := createRoom(t, registry)

	a := newTestClient("conn-a")
	core.handleJoin(a, JoinRoomPayload{RoomID: roomID, Username: "A"})
	drain(a)

	core.handleLeave(a, roomID)

	assert.Equal(t, []string{roomID}, scheduler.scheduled)

	// The empty room stays queryable until the reaper fires.
	room, err := registry.Get(context.Background(), roomID)
	require.NoError(t, err)
	assert.Equal(t, 0, room.ParticipantCount())
}

func TestLeaveToleratesStaleReferences(t *testing.T) {
	core, registry, scheduler := newTestCore(t)
	roomID := createRoom(t, registry)

	cl := newTestClient("conn-a")

	core.handleLeave(cl, "")        // falsy id
	core.handleLeave(cl, "badroom") // unknown room
	core.handleLeave(cl, roomID)    // not a member

	assert.Empty(t, drain(cl))
	assert.Empty(t, scheduler.scheduled)
	_, err := registry.Get(context.Background(), roomID)
	assert.NoError(t, err)
}

func TestDisconnectLeavesEveryRoom(t *testing.T) {
	core, registry, scheduler := newTestCore(t)
	room1 := createRoom(t, registry)
	room2 := createRoom(t, registry)

	a := newTestClient("conn-a")
	b := newTestClient("conn-b")

	core.handleJoin(a, JoinRoomPayload{RoomID: room1, Username: "A"})
	core.handleJoin(a, JoinRoomPayload{RoomID: room2, Username: "A"})
	core.handleJoin(b, JoinRoomPayload{RoomID: room1, Username: "B"})
	drain(a)
	drain(b)

	core.handleDisconnect(a)

	bMsgs := drain(b)
	require.Equal(t, []string{UserLeft, ParticipantsUpdate}, typesOf(bMsgs))
	assert.Equal(t, UserLeftPayload{UserID: "conn-a", ParticipantCount: 1}, bMsgs[0].Data)

	for _, roomID := range []string{room1, room2} {
		room, err := registry.Get(context.Background(), roomID)
		require.NoError(t, err)
		assert.False(t, room.HasParticipant("conn-a"), "room %s", roomID)
	}

	// room2 dropped to zero, room1 still has B.
	assert.Equal(t, []string{room2}, scheduler.scheduled)
	assert.Empty(t, core.manager.Memberships("conn-a"))

	_, open := <-a.Message
	assert.False(t, open, "write pump queue is closed after teardown")
}

func TestUnknownEventType(t *testing.T) {
	core, _, _ := newTestCore(t)
	cl := newTestClient("conn-a")

	core.handle(event{client: cl, kind: frame, envelope: &envelope{Type: "run-code"}})

	msgs := drain(cl)
	require.Len(t, msgs, 1)
	assert.Equal(t, ErrorEvent, msgs[0].Type)
}

func TestMalformedPayload(t *testing.T) {
	core, registry, _ := newTestCore(t)
	roomID := createRoom(t, registry)

	cl := newTestClient("conn-a")
	core.handle(event{client: cl, kind: frame, envelope: &envelope{
		Type: JoinRoom,
		Data: json.RawMessage(`"not an object"`),
	}})

	msgs := drain(cl)
	require.Len(t, msgs, 1)
	assert.Equal(t, ErrorEvent, msgs[0].Type)

	room, err := registry.Get(context.Background(), roomID)
	require.NoError(t, err)
	assert.Equal(t, 0, room.ParticipantCount())
}

func TestEnvelopeRoomIDFallback(t *testing.T) {
	core, registry, _ := newTestCore(t)
	roomID := createRoom(t, registry)

	cl := newTestClient("conn-a")
	core.handle(event{client: cl, kind: frame, envelope: &envelope{
		Type:   JoinRoom,
		RoomID: roomID,
		Data:   json.RawMessage(`{"username":"A"}`),
	}})

	room, err := registry.Get(context.Background(), roomID)
	require.NoError(t, err)
	assert.Equal(t, 1, room.ParticipantCount())
}

func TestDecodeEnvelope(t *testing.T) {
	env, err := decodeEnvelope([]byte(`{"type":"join-room","data":{"roomId":"abc"}}`))
	require.NoError(t, err)
	assert.Equal(t, JoinRoom, env.Type)

	_, err = decodeEnvelope([]byte(`{"data":{}}`))
	assert.ErrorIs(t, err, errMissingType)

	_, err = decodeEnvelope([]byte(`not json`))
	assert.Error(t, err)
}
