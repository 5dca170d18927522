package ws

import (
	"encoding/json"
	"errors"

	"mchat_backend/internal/logger"
	"mchat_backend/internal/models/chat"
	chatsvc "mchat_backend/internal/services/chat"
	"mchat_backend/internal/validator"
	"mchat_backend/pkg/apperrors"
)

type chatRequest struct {
	ChatID string `json:"chat_id" validate:"required,chat-id"`
}

type focusRequest struct {
	Focused *bool `json:"focused" validate:"required"`
}

type editRequest struct {
	MessageID string `json:"message_id" validate:"required,max=26"`
	Content   string `json:"content" validate:"required,max=4000"`
}

type messageRequest struct {
	MessageID string `json:"message_id" validate:"required,max=26"`
}

type bulkDeleteRequest struct {
	ChatID     string   `json:"chat_id" validate:"required,chat-id"`
	MessageIDs []string `json:"message_ids" validate:"required,min=1,max=200,dive,required,max=26"`
}

type reactRequest struct {
	MessageID string `json:"message_id" validate:"required,max=26"`
	Emoji     string `json:"emoji" validate:"required,max=32"`
}

type muteRequest struct {
	ChatID string `json:"chat_id" validate:"required,chat-id"`
	Muted  *bool  `json:"muted"` // nil - переключить
}

// decode разбирает и валидирует payload; при ошибке сам отвечает клиенту
func (c *Client) decode(msg IncomingWSMessage, dst any) bool {
	if err := json.Unmarshal(msg.Data, dst); err != nil {
		c.fail(msg.Action, "", apperrors.NewBadRequestError("Invalid payload"))
		return false
	}
	if err := c.manager.validate.Validate(dst); err != nil {
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			c.fail(msg.Action, "", apperrors.ValidationError(verr.Errors))
		} else {
			c.fail(msg.Action, "", apperrors.InternalError(err))
		}
		return false
	}
	return true
}

// handleMessage - централизованный роутер интентов
func (c *Client) handleMessage(msg IncomingWSMessage) {
	m := c.manager
	ctx := c.Ctx

	switch msg.Action {

	// --- комнаты и присутствие ---
	case ActionJoinRoom:
		var req chatRequest
		if !c.decode(msg, &req) {
			return
		}
		id, err := m.svc.Reads.JoinRoom(ctx, m.db, c.UserID, req.ChatID)
		if err != nil {
			c.fail(msg.Action, "", err)
			return
		}
		m.JoinRoom(c, id.String())

	case ActionViewChat, ActionStopViewChat:
		var req chatRequest
		if !c.decode(msg, &req) {
			return
		}
		id, err := chat.ParseChatID(req.ChatID)
		if err != nil || !id.Has(c.UserID) {
			c.fail(msg.Action, "", apperrors.ErrChatAccessDenied)
			return
		}
		if msg.Action == ActionViewChat {
			m.presence.SetViewing(c.UserID, c.ID, id.String())
		} else {
			m.presence.ClearViewing(c.UserID, id.String())
		}

	case ActionFocusChanged:
		var req focusRequest
		if !c.decode(msg, &req) {
			return
		}
		m.presence.SetFocus(c.UserID, *req.Focused)

	// --- сообщения ---
	case ActionSendMessage:
		var req chatsvc.SendMessageInput
		if !c.decode(msg, &req) {
			return
		}
		req.SenderID = c.UserID
		if req.ClientID != "" {
			ctx = logger.WithCorrelationID(ctx, req.ClientID)
		}
		if _, err := m.svc.Messages.SendMessage(ctx, m.db, req); err != nil {
			c.fail(msg.Action, req.ClientID, err)
		}

	case ActionEditMessage:
		var req editRequest
		if !c.decode(msg, &req) {
			return
		}
		if _, err := m.svc.Messages.EditMessage(ctx, m.db, c.UserID, req.MessageID, req.Content); err != nil {
			c.fail(msg.Action, "", err)
		}

	case ActionDeleteMessage:
		var req messageRequest
		if !c.decode(msg, &req) {
			return
		}
		if err := m.svc.Messages.DeleteMessage(ctx, m.db, c.UserID, c.Role, req.MessageID); err != nil {
			c.fail(msg.Action, "", err)
		}

	case ActionBulkDelete:
		var req bulkDeleteRequest
		if !c.decode(msg, &req) {
			return
		}
		if _, err := m.svc.Messages.BulkDeleteMessages(ctx, m.db, c.UserID, c.Role, req.ChatID, req.MessageIDs); err != nil {
			c.fail(msg.Action, "", err)
		}

	case ActionMarkRead:
		var req chatRequest
		if !c.decode(msg, &req) {
			return
		}
		if _, err := m.svc.Reads.MarkRead(ctx, m.db, c.UserID, req.ChatID); err != nil {
			c.fail(msg.Action, "", err)
		}

	case ActionTyping, ActionStopTyping:
		var req chatRequest
		if !c.decode(msg, &req) {
			return
		}
		if err := m.svc.Reads.Typing(ctx, m.db, c.UserID, req.ChatID, msg.Action == ActionTyping); err != nil {
			c.fail(msg.Action, "", err)
		}

	case ActionReact:
		var req reactRequest
		if !c.decode(msg, &req) {
			return
		}
		if _, err := m.svc.Reactions.ToggleReaction(ctx, m.db, c.UserID, req.MessageID, req.Emoji); err != nil {
			c.fail(msg.Action, "", err)
		}

	case ActionToggleMute:
		var req muteRequest
		if !c.decode(msg, &req) {
			return
		}
		var err error
		if req.Muted == nil {
			_, err = m.svc.States.ToggleMute(ctx, m.db, c.UserID, req.ChatID)
		} else {
			_, err = m.svc.States.SetMuted(ctx, m.db, c.UserID, req.ChatID, *req.Muted)
		}
		if err != nil {
			c.fail(msg.Action, "", err)
		}

	// --- звонки ---
	case ActionCallStart:
		var req CallStartRequest
		if !c.decode(msg, &req) {
			return
		}
		if err := m.calls.Start(c.UserID, c.Name, c.ID, req); err != nil {
			c.fail(msg.Action, "", err)
		}

	case ActionCallAnswer:
		var req CallAnswerRequest
		if !c.decode(msg, &req) {
			return
		}
		if err := m.calls.Answer(c.UserID, c.ID, req); err != nil {
			c.fail(msg.Action, "", err)
		}

	case ActionCallICE:
		var req CallICERequest
		if !c.decode(msg, &req) {
			return
		}
		if err := m.calls.ICE(c.UserID, req); err != nil {
			c.fail(msg.Action, "", err)
		}

	case ActionCallQuality:
		var req CallQualityRequest
		if !c.decode(msg, &req) {
			return
		}
		if err := m.calls.Quality(c.UserID, req); err != nil {
			c.fail(msg.Action, "", err)
		}

	case ActionCallReject, ActionCallEnd:
		var req CallHangupRequest
		if !c.decode(msg, &req) {
			return
		}
		var err error
		if msg.Action == ActionCallReject {
			err = m.calls.Reject(c.UserID, req)
		} else {
			err = m.calls.End(c.UserID, req)
		}
		if err != nil {
			c.fail(msg.Action, "", err)
		}

	default:
		c.fail(msg.Action, "", apperrors.NewBadRequestError("Unknown action"))
	}
}
