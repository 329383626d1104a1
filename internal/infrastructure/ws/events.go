package ws

// Inbound event types (client -> server).
const (
	JoinRoom       = "join-room"
	LeaveRoom      = "leave-room"
	CodeChange     = "code-change"
	LanguageChange = "language-change"
)

// Outbound event types (server -> client).
const (
	ErrorEvent         = "error"
	CodeUpdate         = "code-update"
	UserJoined         = "user-joined"
	UserLeft           = "user-left"
	ParticipantsUpdate = "participants-update"
	LanguageUpdate     = "language-update"
)
