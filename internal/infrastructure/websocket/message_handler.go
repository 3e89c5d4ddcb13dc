package websocket

import (
	"context"
	"encoding/json"

	"portfoliochat/internal/usecase"
	"portfoliochat/pkg/errors"
	"portfoliochat/pkg/logger"
)

// Inbound message types
const (
	MessageTypePing              = "ping"
	MessageTypeJoinConversation  = "join_conversation"
	MessageTypeLeaveConversation = "leave_conversation"
	MessageTypeSendMessage       = "send_message"
	MessageTypeStopTyping        = "stop_typing"
	MessageTypeMarkRead          = "mark_read"
	MessageTypeEditMessage       = "edit_message"
	MessageTypeDeleteMessage     = "delete_message"
	MessageTypeWatchPresence     = "watch_presence"
)

// Outbound message types. "typing" is used in both directions: inbound it
// is a keystroke, outbound it carries who is typing.
const (
	MessageTypeTyping        = "typing"
	MessageTypeConversations = "conversations"
	MessageTypeMessages      = "messages"
	MessageTypePresence      = "presence"
	MessageTypeAck           = "ack"
	MessageTypeError         = "error"
	MessageTypePong          = "pong"
)

// WSMessage is an inbound frame. RequestID is echoed on the ack or error.
type WSMessage struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// WSEvent is an outbound frame.
type WSEvent struct {
	Type           string      `json:"type"`
	RequestID      string      `json:"request_id,omitempty"`
	ConversationID string      `json:"conversation_id,omitempty"`
	Data           interface{} `json:"data,omitempty"`
	Timestamp      string      `json:"timestamp"`
}

type ConversationData struct {
	ConversationID string `json:"conversation_id"`
}

type SendMessageData struct {
	TempID         string `json:"temp_id,omitempty"`
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
}

type MessageActionData struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	Text           string `json:"text,omitempty"`
}

type WatchPresenceData struct {
	UIDs []string `json:"uids"`
}

type TypingData struct {
	UIDs []string `json:"uids"`
}

type PresenceData struct {
	Online []string `json:"online"`
}

type AckData struct {
	TempID    string `json:"temp_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HandleMessage applies one inbound frame to the session and returns the
// reply for the sender, if any. Typing frames are fire-and-forget.
func HandleMessage(ctx context.Context, session *usecase.Session, raw []byte) *WSEvent {
	var msg WSMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return errorEvent("", errors.BadRequest("Invalid message format", err))
	}
	if session == nil {
		return errorEvent(msg.RequestID, errors.Unauthorized("No active session", nil))
	}

	switch msg.Type {
	case MessageTypePing:
		return &WSEvent{Type: MessageTypePong, RequestID: msg.RequestID}

	case MessageTypeJoinConversation:
		var data ConversationData
		if err := decode(msg.Data, &data); err != nil {
			return errorEvent(msg.RequestID, err)
		}
		if err := session.EnterConversation(ctx, data.ConversationID); err != nil {
			return errorEvent(msg.RequestID, err)
		}
		return ack(msg.RequestID, data.ConversationID, AckData{})

	case MessageTypeLeaveConversation:
		var data ConversationData
		if err := decode(msg.Data, &data); err != nil {
			return errorEvent(msg.RequestID, err)
		}
		session.LeaveConversation(data.ConversationID)
		return ack(msg.RequestID, data.ConversationID, AckData{})

	case MessageTypeSendMessage:
		var data SendMessageData
		if err := decode(msg.Data, &data); err != nil {
			return errorEvent(msg.RequestID, err)
		}
		id, err := session.SendMessage(ctx, data.ConversationID, data.Text)
		if err != nil {
			return errorEvent(msg.RequestID, err)
		}
		return ack(msg.RequestID, data.ConversationID, AckData{TempID: data.TempID, MessageID: id})

	case MessageTypeTyping, MessageTypeStopTyping:
		var data ConversationData
		if err := decode(msg.Data, &data); err != nil {
			return errorEvent(msg.RequestID, err)
		}
		var err error
		if msg.Type == MessageTypeTyping {
			err = session.Keystroke(data.ConversationID)
		} else {
			err = session.StopTyping(data.ConversationID)
		}
		if err != nil {
			logger.Debug("Typing ignored for %s: %v", session.UID(), err)
		}
		return nil

	case MessageTypeMarkRead:
		var data ConversationData
		if err := decode(msg.Data, &data); err != nil {
			return errorEvent(msg.RequestID, err)
		}
		if err := session.MarkAsRead(ctx, data.ConversationID); err != nil {
			return errorEvent(msg.RequestID, err)
		}
		return ack(msg.RequestID, data.ConversationID, AckData{})

	case MessageTypeEditMessage, MessageTypeDeleteMessage:
		var data MessageActionData
		if err := decode(msg.Data, &data); err != nil {
			return errorEvent(msg.RequestID, err)
		}
		var err error
		if msg.Type == MessageTypeEditMessage {
			err = session.EditMessage(ctx, data.ConversationID, data.MessageID, data.Text)
		} else {
			err = session.DeleteMessage(ctx, data.ConversationID, data.MessageID)
		}
		if err != nil {
			return errorEvent(msg.RequestID, err)
		}
		return ack(msg.RequestID, data.ConversationID, AckData{MessageID: data.MessageID})

	case MessageTypeWatchPresence:
		var data WatchPresenceData
		if err := decode(msg.Data, &data); err != nil {
			return errorEvent(msg.RequestID, err)
		}
		if err := session.WatchPresence(data.UIDs); err != nil {
			return errorEvent(msg.RequestID, err)
		}
		return ack(msg.RequestID, "", AckData{})

	default:
		logger.Warn("Unknown message type from %s: %s", session.UID(), msg.Type)
		return errorEvent(msg.RequestID, errors.BadRequest("Unknown message type: "+msg.Type, nil))
	}
}

func decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return errors.BadRequest("Message data is required", nil)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.BadRequest("Invalid message data", err)
	}
	return nil
}

func ack(requestID, conversationID string, data AckData) *WSEvent {
	return &WSEvent{Type: MessageTypeAck, RequestID: requestID, ConversationID: conversationID, Data: data}
}

func errorEvent(requestID string, err error) *WSEvent {
	data := ErrorData{Code: errors.CodeOf(err), Message: "An unexpected error occurred"}
	if appErr, ok := errors.As(err); ok {
		data.Message = appErr.Message
	} else {
		logger.Error("WebSocket handler error: %v", err)
	}
	return &WSEvent{Type: MessageTypeError, RequestID: requestID, Data: data}
}
