package broadcast

import "encoding/json"

type FrameType string

const (
	FrameTick     FrameType = "tick"
	FrameCandle   FrameType = "candle"
	FrameOrder    FrameType = "order"
	FramePosition FrameType = "position"
	FrameMetrics  FrameType = "metrics"
	FrameLedger   FrameType = "ledger"
)

// Frame is the JSON envelope every outbound message is wrapped in.
type Frame struct {
	Type FrameType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

func encodeFrame(frameType FrameType, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: frameType, Data: payload})
}

// subscription is what a client asks for. Empty symbol list means all
// symbols; an empty account id means no account-scoped frames.
type subscription struct {
	Symbols   []string `json:"symbols,omitempty"`
	AccountID string   `json:"account_id,omitempty"`
}
