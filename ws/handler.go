package ws

import (
	"errors"
	"net/http"
	"time"

	"mchat_backend/internal/logger"
	"mchat_backend/internal/middleware"
	"mchat_backend/internal/repositories"
	"mchat_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	Manager  *Manager
	users    repositories.UserRepository
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(manager *Manager, users repositories.UserRepository) *WebSocketHandler {
	allowed := make(map[string]struct{}, len(manager.opts.AllowedOrigins))
	for _, origin := range manager.opts.AllowedOrigins {
		allowed[origin] = struct{}{}
	}

	return &WebSocketHandler{
		Manager: manager,
		users:   users,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// ServeWS - точка входа соединения. Пользователь уже аутентифицирован
// middleware; забаненные получают 403 до апгрейда.
func (h *WebSocketHandler) ServeWS(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		apperrors.HandleError(c, apperrors.NewUnauthorizedError("Unauthorized"))
		return
	}

	user, err := h.users.FindByID(h.Manager.db, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			apperrors.HandleError(c, apperrors.ErrUserNotFound)
			return
		}
		apperrors.HandleError(c, apperrors.StoreFailure(err))
		return
	}
	if user.BannedAt(time.Now()) {
		var reason string
		if user.BanReason != nil {
			reason = *user.BanReason
		}
		apperrors.HandleError(c, apperrors.ErrSenderBanned(reason, user.BanExpiresAt))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WSLog("upgrade", userID, "", err)
		return
	}

	client := newClient(h.Manager, conn, user)
	h.Manager.Connect(client)

	go client.writePump()
	go client.readPump()
}
