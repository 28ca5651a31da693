package websocket

import "encoding/json"

// Client -> server events.
const (
	EventConversationJoin  = "conversation:join"
	EventConversationLeave = "conversation:leave"
	EventMessageSend       = "message:send"
	EventTypingStart       = "typing:start"
	EventTypingStop        = "typing:stop"
	EventMessageSeen       = "message:seen"
)

// Server -> client events.
const (
	EventUserOnline         = "user:online"
	EventUserOffline        = "user:offline"
	EventConversationJoined = "conversation:joined"
	EventConversationLeft   = "conversation:left"
	EventMessageNew         = "message:new"
	EventMessageSent        = "message:sent"
	EventTypingUpdate       = "typing:update"
	EventError              = "error"
)

// ClientEvent is the inbound frame: an event name plus its payload.
type ClientEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Envelope serializes an outbound frame. Marshal errors can only come from
// programmer-supplied payloads, so they are swallowed the way the rest of
// the hub treats serialization.
func Envelope(event string, data interface{}) []byte {
	frame, _ := json.Marshal(map[string]interface{}{
		"event": event,
		"data":  data,
	})
	return frame
}

func roomName(conversationId string) string {
	return "conversation:" + conversationId
}
