package ws

import "encoding/json"

const (
	// client -> server
	OpHeartbeat   = "heartbeat"
	OpSubscribe   = "subscribe"
	OpUnsubscribe = "unsubscribe"
	OpMessageSend = "message.send"

	// server -> client
	OpHeartbeatAck = "heartbeat.ack"
	OpMessageNew   = "message.new"
	OpError        = "error"
)

type Event struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"data,omitempty"`
}

type SubscribeData struct {
	ChannelID uint `json:"channel"`
}

type MessageSendData struct {
	ChannelID uint   `json:"channel"`
	Content   string `json:"content"`
}

type ErrorData struct {
	Reason string `json:"reason"`
}

func newEvent(op string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Op: op, Data: raw})
}
