package ws

import "encoding/json"

// IncomingWSMessage - кадр от клиента
type IncomingWSMessage struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// OutgoingWSMessage - кадр клиенту
type OutgoingWSMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Интенты клиента
const (
	ActionJoinRoom      = "join_room"
	ActionViewChat      = "view_chat"
	ActionStopViewChat  = "stop_view_chat"
	ActionFocusChanged  = "focus_changed"
	ActionSendMessage   = "send_message"
	ActionEditMessage   = "edit_message"
	ActionDeleteMessage = "delete_message"
	ActionBulkDelete    = "bulk_delete"
	ActionMarkRead      = "mark_read"
	ActionTyping        = "typing"
	ActionStopTyping    = "stop_typing"
	ActionReact         = "react"
	ActionToggleMute    = "toggle_mute"
	ActionCallStart     = "call_start"
	ActionCallAnswer    = "call_answer"
	ActionCallICE       = "call_ice"
	ActionCallQuality   = "call_quality"
	ActionCallReject    = "call_reject"
	ActionCallEnd       = "call_end"
)

// События звонков и ошибок (события чата - в services/chat)
const (
	EventCallIncoming      = "call_incoming"
	EventCallAnswer        = "call_answer"
	EventCallICECandidate  = "call_ice_candidate"
	EventCallQualityUpdate = "call_quality_update"
	EventCallRejected      = "call_rejected"
	EventCallEnd           = "call_end"

	EventActionFailedMute = "action_failed_mute"
	EventActionFailed     = "action_failed"
)

// ActionFailedPayload - ошибка интента, уходит только отправителю
type ActionFailedPayload struct {
	Action   string `json:"action"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Details  any    `json:"details,omitempty"`
	ClientID string `json:"client_id,omitempty"`
}

// MutedPayload - отказ отправки из-за мута аккаунта
type MutedPayload struct {
	Reason   string `json:"reason"`
	Until    any    `json:"until,omitempty"`
	ClientID string `json:"client_id,omitempty"`
}
