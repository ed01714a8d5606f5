package gateway

import "github.com/CrowdSynth/coordinator/internal/types"

// simpleMessage carries only a type tag, used for room_ended and ping.
type simpleMessage struct {
	Type types.MessageType `json:"type"`
}

type errorMessage struct {
	Type    types.MessageType `json:"type"`
	Message string            `json:"message"`
}

func newError(message string) errorMessage {
	return errorMessage{Type: types.MsgError, Message: message}
}

type roomCreatedMessage struct {
	Type     types.MessageType `json:"type"`
	RoomID   string            `json:"room_id"`
	RoomName string            `json:"room_name"`
	JoinURL  string            `json:"join_url"`
	Role     types.RoleType    `json:"role"`
}

type joinedMessage struct {
	Type   types.MessageType `json:"type"`
	RoomID string            `json:"room_id"`
	Role   types.RoleType    `json:"role"`
	UserID string            `json:"user_id"`
}

type roomClosedMessage struct {
	Type    types.MessageType `json:"type"`
	Message string            `json:"message"`
}

type applauseLevelMessage struct {
	Type      types.MessageType `json:"type"`
	Volume    float64           `json:"volume"`
	ClapRate  float64           `json:"clap_rate"`
	Intensity float64           `json:"intensity"`
	Density   float64           `json:"density"`
	Zone      string            `json:"zone"`
	Loud      bool              `json:"loud"`
}

type dropProgressMessage struct {
	Type   types.MessageType `json:"type"`
	Count  int               `json:"count"`
	Needed int               `json:"needed"`
}

type dropAlreadyVotedMessage struct {
	Type   types.MessageType `json:"type"`
	Count  int               `json:"count"`
	Needed int               `json:"needed"`
}

type dropIncomingMessage struct {
	Type      types.MessageType `json:"type"`
	InSeconds int               `json:"in_seconds"`
	Count     int               `json:"count"`
	Needed    int               `json:"needed"`
}

type dropTriggeredMessage struct {
	Type    types.MessageType `json:"type"`
	Message string            `json:"message"`
}

type dropResetMessage struct {
	Type    types.MessageType `json:"type"`
	Needed  int               `json:"needed"`
	Message string            `json:"message"`
}

type streamErrorMessage struct {
	Type    types.MessageType `json:"type"`
	Message string            `json:"message"`
}

// stateUpdateMessage embeds types.StateUpdate so its fields promote to the
// top level of the marshaled JSON, alongside the type tag.
type stateUpdateMessage struct {
	Type types.MessageType `json:"type"`
	types.StateUpdate
}
