package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mchat_backend/internal/app"
	"mchat_backend/internal/config"
	"mchat_backend/internal/models"
	"mchat_backend/internal/ratelimit"
	"mchat_backend/test/helpers"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// TestServer - приложение целиком поверх in-memory базы
type TestServer struct {
	Server    *httptest.Server
	DB        *gorm.DB
	Container *app.Container
}

func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.Env = "test"
	cfg.JWT.Secret = helpers.TestJWTSecret
	cfg.Chat.RateLimitPerMinute = 30
	cfg.Chat.AppURL = "https://chat.example"
	cfg.Defaults()

	db := helpers.NewTestDB(t)
	container := app.Build(cfg, db, ratelimit.NewMemoryLimiter(cfg.Chat.RateLimitPerMinute, time.Minute))
	server := httptest.NewServer(container.Router)

	t.Cleanup(func() {
		server.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, container.Manager.Shutdown(ctx))
		container.Messages.Wait()
	})
	return &TestServer{Server: server, DB: db, Container: container}
}

// SendRequest выполняет HTTP запрос от имени пользователя (nil - анонимно)
func (ts *TestServer) SendRequest(t *testing.T, method, path string, user *models.User, body io.Reader) (int, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, ts.Server.URL+path, body)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+helpers.TokenFor(t, user))
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

// Dial открывает websocket; при отказе в апгрейде возвращает статус ответа
func (ts *TestServer) Dial(t *testing.T, user *models.User) (*WSClient, int) {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.Server.URL, "http") + "/ws?token=" + helpers.TokenFor(t, user)
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		require.NotNil(t, resp, "dial: %v", err)
		return nil, resp.StatusCode
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &WSClient{conn: conn}, resp.StatusCode
}

type WSClient struct {
	conn *websocket.Conn
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (c *WSClient) Send(t *testing.T, action string, data any) {
	t.Helper()
	require.NoError(t, c.conn.WriteJSON(map[string]any{"action": action, "data": data}))
}

// Expect пропускает посторонние события, пока не придет нужное
func (c *WSClient) Expect(t *testing.T, event string, into any) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for {
		require.NoError(t, c.conn.SetReadDeadline(deadline))
		var f frame
		require.NoError(t, c.conn.ReadJSON(&f), "ожидали событие %s", event)
		if f.Event != event {
			continue
		}
		if into != nil {
			require.NoError(t, json.Unmarshal(f.Data, into))
		}
		return
	}
}

// Join подписывает соединение на комнату и ждет подтверждения от сервера
func (c *WSClient) Join(t *testing.T, chatID string) {
	t.Helper()
	c.Send(t, "join_room", map[string]string{"chat_id": chatID})
	c.Expect(t, "unread_count_cleared", nil)
}
