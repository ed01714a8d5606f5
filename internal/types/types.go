// Package types defines shared wire and domain types for the coordinator.
package types

import "encoding/json"

// RoleType identifies which musical dimension a participant controls.
type RoleType string

const (
	RoleDrummer        RoleType = "drummer"
	RoleVibeSetter     RoleType = "vibe_setter"
	RoleGenreDJ        RoleType = "genre_dj"
	RoleInstrumentalist RoleType = "instrumentalist"
	RoleEnergy         RoleType = "energy"
	RoleUnknown        RoleType = "unknown"
)

// RoleOrder is the newcomer assignment order; exhausted primaries fall back
// to RoleEnergy, which may be shared by multiple participants.
var RoleOrder = []RoleType{RoleDrummer, RoleVibeSetter, RoleGenreDJ, RoleInstrumentalist}

func ParseRole(s string) (RoleType, bool) {
	switch RoleType(s) {
	case RoleDrummer, RoleVibeSetter, RoleGenreDJ, RoleInstrumentalist, RoleEnergy:
		return RoleType(s), true
	default:
		return RoleUnknown, false
	}
}

// MessageType enumerates inbound/outbound websocket message kinds.
type MessageType string

const (
	// Client -> server
	MsgCreateRoom    MessageType = "create_room"
	MsgJoinRoom      MessageType = "join_room"
	MsgStartMusic    MessageType = "start_music"
	MsgStopMusic     MessageType = "stop_music"
	MsgCloseRoom     MessageType = "close_room"
	MsgEndStream     MessageType = "end_stream"
	MsgLeaveRoom     MessageType = "leave_room"
	MsgInputUpdate   MessageType = "input_update"
	MsgApplauseUpdate MessageType = "applause_update"
	MsgDrop          MessageType = "drop"

	// Server -> client
	MsgRoomCreated     MessageType = "room_created"
	MsgJoined          MessageType = "joined"
	MsgStateUpdate     MessageType = "state_update"
	MsgMusicStarted    MessageType = "music_started"
	MsgMusicStopped    MessageType = "music_stopped"
	MsgRoomClosed      MessageType = "room_closed"
	MsgRoomEnded       MessageType = "room_ended"
	MsgApplauseLevel   MessageType = "applause_level"
	MsgDropProgress    MessageType = "drop_progress"
	MsgDropAlreadyVoted MessageType = "drop_already_voted"
	MsgDropIncoming    MessageType = "drop_incoming"
	MsgDropTriggered   MessageType = "drop_triggered"
	MsgDropReset       MessageType = "drop_reset"
	MsgStreamError     MessageType = "stream_error"
	MsgError           MessageType = "error"
	MsgPing            MessageType = "ping"
)

// RoomID is a six-character uppercase alphanumeric room identifier.
type RoomID string

// UserID is a client-supplied, expected-stable-across-reconnects identifier.
type UserID string

// ConnectionID is minted server-side per duplex connection, used for
// drop-vote dedup independent of the client-controlled UserID.
type ConnectionID string

// InputPayload is the sparse, role-specific payload carried by input_update.
type InputPayload struct {
	BPM          *int     `json:"bpm,omitempty"`
	Mood         *string  `json:"mood,omitempty"`
	Genre        *string  `json:"genre,omitempty"`
	Instrument   *string  `json:"instrument,omitempty"`
	Density      *float64 `json:"density,omitempty"`
	Brightness   *float64 `json:"brightness,omitempty"`
	CustomPrompt *string  `json:"custom_prompt,omitempty"`
}

// WeightedPrompt is a textual music description paired with a relative weight.
type WeightedPrompt struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

// ArbitrationResult is what the Arbitrator client produces each tick.
type ArbitrationResult struct {
	Prompts    []WeightedPrompt
	BPM        int
	Density    float64
	Brightness float64
	Reasoning  string
}

// TimelineEvent is a structured entry retained in a room's bounded ring.
type TimelineEvent struct {
	Time   int64  `json:"time"`
	Source string `json:"source"`
	Text   string `json:"text"`
}

// InboundMessage is the envelope for every client -> server frame.
type InboundMessage struct {
	Type    MessageType     `json:"type"`
	RoomID  string          `json:"room_id,omitempty"`
	UserID  string          `json:"user_id"`
	Role    string          `json:"role,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// CreateRoomPayload is the payload of a create_room inbound message.
type CreateRoomPayload struct {
	DeviceName  string `json:"device_name"`
	RoomName    string `json:"room_name"`
	DisplayName string `json:"display_name"`
}

// JoinRoomPayload is the payload of a join_room inbound message.
type JoinRoomPayload struct {
	RoomID      string `json:"room_id"`
	DisplayName string `json:"display_name"`
}

// InputUpdatePayload is the payload of an input_update inbound message.
type InputUpdatePayload struct {
	Role    string       `json:"role"`
	Payload InputPayload `json:"payload"`
}

// ApplausePayload is the payload of an applause_update inbound message.
type ApplausePayload struct {
	Volume   float64 `json:"volume"`
	ClapRate float64 `json:"clap_rate"`
}

// ParticipantView is the per-participant shape embedded in state_update.
type ParticipantView struct {
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name"`
	IsHost      bool   `json:"is_host"`
}

// StateUpdate is the outbound snapshot broadcast after every mutation.
type StateUpdate struct {
	RoomName         string                   `json:"room_name"`
	IsPlaying        bool                     `json:"is_playing"`
	ActivePrompts    []WeightedPrompt         `json:"active_prompts"`
	BPM              int                      `json:"bpm"`
	Density          float64                  `json:"density"`
	Brightness       float64                  `json:"brightness"`
	CurrentInputs    map[string]InputPayload  `json:"current_inputs"`
	InfluenceWeights map[string]float64       `json:"influence_weights"`
	Participants     []ParticipantView        `json:"participants"`
	Timeline         []TimelineEvent          `json:"timeline"`
	GeminiReasoning  string                   `json:"gemini_reasoning,omitempty"`
}
