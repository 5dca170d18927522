package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"mchat_backend/internal/logger"
	"mchat_backend/internal/metrics"
	"mchat_backend/internal/models"
	"mchat_backend/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client - одно живое соединение (вкладка/устройство)
type Client struct {
	ID     string
	UserID string
	Name   string
	Role   models.UserRole
	Conn   *websocket.Conn
	Send   chan []byte
	Ctx    context.Context

	manager   *Manager
	rooms     map[string]struct{} // под manager.mu
	closeOnce sync.Once
}

func newClient(manager *Manager, conn *websocket.Conn, user *models.User) *Client {
	connID := uuid.NewString()
	ctx := logger.WithConnID(logger.WithUserID(context.Background(), user.ID), connID)
	return &Client{
		ID:      connID,
		UserID:  user.ID,
		Name:    user.Name,
		Role:    user.Role,
		Conn:    conn,
		Send:    make(chan []byte, manager.opts.SendBuffer),
		Ctx:     ctx,
		manager: manager,
		rooms:   make(map[string]struct{}),
	}
}

// enqueue не блокируется: переполненный буфер - клиент отключается
func (c *Client) enqueue(frame []byte) {
	select {
	case c.Send <- frame:
	default:
		metrics.DroppedEvents.Inc()
		logger.WSLog("send_buffer_full", c.UserID, c.ID, nil)
		c.kick()
	}
}

func (c *Client) kick() {
	c.closeOnce.Do(func() {
		_ = c.Conn.Close()
	})
}

func (c *Client) readPump() {
	defer func() {
		c.manager.Disconnect(c)
		c.kick()
	}()

	opts := c.manager.opts
	c.Conn.SetReadLimit(opts.MaxMessageBytes)
	_ = c.Conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	// pong продлевает аренду соединения
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WSLog("read_error", c.UserID, c.ID, err)
			}
			return
		}
		_ = c.Conn.SetReadDeadline(time.Now().Add(opts.PongWait))

		var msg IncomingWSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.fail("", "", apperrors.NewBadRequestError("Malformed frame"))
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	opts := c.manager.opts
	ticker := time.NewTicker(opts.PingInterval)
	defer func() {
		ticker.Stop()
		c.kick()
	}()

	for {
		select {
		case frame, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.WSLog("write_error", c.UserID, c.ID, err)
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// fail отвечает отправителю интента. Мут - отдельное событие с причиной и сроком.
func (c *Client) fail(action, clientID string, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.InternalError(err)
	}
	if appErr.HTTPCode >= 500 {
		logger.CtxError(c.Ctx, "Intent failed", "action", action, "error", err)
	} else {
		logger.CtxDebug(c.Ctx, "Intent rejected", "action", action, "code", appErr.Code)
	}

	if appErr.Code == apperrors.CodeUserMuted {
		payload := MutedPayload{ClientID: clientID}
		if details, ok := appErr.Details.(apperrors.RestrictionDetails); ok {
			payload.Reason = details.Reason
			if details.Until != nil {
				payload.Until = details.Until.UTC().Format(time.RFC3339)
			}
		}
		c.manager.sendTo(c, EventActionFailedMute, payload)
		return
	}

	c.manager.sendTo(c, EventActionFailed, ActionFailedPayload{
		Action:   action,
		Code:     string(appErr.Code),
		Message:  appErr.Message,
		Details:  appErr.Details,
		ClientID: clientID,
	})
}
