package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/satriahrh/palmistry/domain"
	"github.com/satriahrh/palmistry/domain/entities"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Supported message types
const (
	MessageTypeAnalyze  MessageType = "analyze"
	MessageTypeProgress MessageType = "progress"
	MessageTypeResult   MessageType = "result"
	MessageTypeError    MessageType = "error"
	MessageTypePing     MessageType = "ping"
	MessageTypePong     MessageType = "pong"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
	MessageID string      `json:"message_id,omitempty"`
}

// AnalyzeMessage asks the relay to read a palm. Image is a data URI or raw
// base64 exactly as on the HTTP route.
type AnalyzeMessage struct {
	BaseMessage
	Image  string `json:"image"`
	Zodiac string `json:"zodiac"`
}

// ProgressMessage carries the current loading text.
type ProgressMessage struct {
	BaseMessage
	Message string `json:"message"`
}

// ResultMessage carries a finished reading.
type ResultMessage struct {
	BaseMessage
	Result entities.AnalysisResult `json:"result"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	BaseMessage
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Raw   string `json:"raw,omitempty"`
}

// PongMessage answers a ping.
type PongMessage struct {
	BaseMessage
}

func newBase(t MessageType) BaseMessage {
	return BaseMessage{
		Type:      t,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		MessageID: uuid.NewString(),
	}
}

// NewProgressMessage creates a progress message.
func NewProgressMessage(text string) ProgressMessage {
	return ProgressMessage{BaseMessage: newBase(MessageTypeProgress), Message: text}
}

// NewResultMessage creates a result message.
func NewResultMessage(result entities.AnalysisResult) ResultMessage {
	return ResultMessage{BaseMessage: newBase(MessageTypeResult), Result: result}
}

// NewErrorMessage converts err into the wire error shape used by the HTTP
// routes: message, kind and, for unusable model output, the raw text.
func NewErrorMessage(err error) ErrorMessage {
	raw, _ := domain.RawText(err)
	return ErrorMessage{
		BaseMessage: newBase(MessageTypeError),
		Error:       domain.Message(err),
		Kind:        domain.Kind(err),
		Raw:         raw,
	}
}

// ParseClientMessage decodes an incoming text frame.
func ParseClientMessage(data []byte) (any, error) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, domain.Wrap(domain.ErrValidation, "parse message", "invalid JSON", err)
	}

	switch base.Type {
	case MessageTypeAnalyze:
		var msg AnalyzeMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, domain.Wrap(domain.ErrValidation, "parse message", "invalid analyze message", err)
		}
		return msg, nil
	case MessageTypePing:
		return base, nil
	case "":
		return nil, domain.Wrap(domain.ErrValidation, "parse message", "missing type", nil)
	default:
		return nil, domain.Wrap(domain.ErrValidation, "parse message", fmt.Sprintf("unknown message type: %s", base.Type), nil)
	}
}
