package integration_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"mchat_backend/test/helpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type messageView struct {
	ID       string `json:"id"`
	ChatID   string `json:"chat_id"`
	SenderID string `json:"sender_id"`
	Content  string `json:"content"`
	Edited   bool   `json:"edited"`
}

type newChatView struct {
	ChatID   string      `json:"chat_id"`
	Message  messageView `json:"message"`
	ClientID string      `json:"client_id"`
	Partner  struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"partner"`
}

func TestChatFlow_PrivateConversation(t *testing.T) {
	ts := NewTestServer(t)
	alice := helpers.CreateUser(t, ts.DB, "alice")
	bob := helpers.CreateUser(t, ts.DB, "bob")
	chatID := helpers.PrivateChat(t, alice, bob)

	aliceWS, status := ts.Dial(t, alice)
	require.Equal(t, http.StatusSwitchingProtocols, status)
	bobWS, _ := ts.Dial(t, bob)

	aliceWS.Join(t, chatID)
	bobWS.Join(t, chatID)

	// первое сообщение создает чат у обоих
	aliceWS.Send(t, "send_message", map[string]any{"chat_id": chatID, "content": "привет", "client_id": "c-1"})

	var mine newChatView
	aliceWS.Expect(t, "new_chat_created", &mine)
	assert.Equal(t, chatID, mine.ChatID)
	assert.Equal(t, "c-1", mine.ClientID)
	assert.Equal(t, bob.ID, mine.Partner.ID)

	var theirs newChatView
	bobWS.Expect(t, "new_chat_created", &theirs)
	assert.Equal(t, alice.ID, theirs.Partner.ID)
	assert.Equal(t, "привет", theirs.Message.Content)
	assert.Equal(t, mine.Message.ID, theirs.Message.ID)

	// второе - обычное new_message
	bobWS.Send(t, "send_message", map[string]any{"chat_id": chatID, "content": "здравствуй"})
	var reply struct {
		Message messageView `json:"message"`
	}
	aliceWS.Expect(t, "new_message", &reply)
	assert.Equal(t, bob.ID, reply.Message.SenderID)

	// история по HTTP, от старых к новым
	code, body := ts.SendRequest(t, http.MethodGet, "/api/v1/chats/"+chatID+"/messages", alice, nil)
	require.Equal(t, http.StatusOK, code, string(body))

	var history struct {
		ChatID   string        `json:"chat_id"`
		Messages []messageView `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(body, &history))
	require.Len(t, history.Messages, 2)
	assert.Equal(t, "привет", history.Messages[0].Content)
	assert.Equal(t, "здравствуй", history.Messages[1].Content)

	// непрочитанное у алисы сброшено при входе в комнату, у боба - тоже
	code, body = ts.SendRequest(t, http.MethodGet, "/api/v1/chats", alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), chatID)
}

func TestChatFlow_EditAndMarkRead(t *testing.T) {
	ts := NewTestServer(t)
	alice := helpers.CreateUser(t, ts.DB, "alice")
	bob := helpers.CreateUser(t, ts.DB, "bob")
	chatID := helpers.PrivateChat(t, alice, bob)

	aliceWS, _ := ts.Dial(t, alice)
	bobWS, _ := ts.Dial(t, bob)
	aliceWS.Join(t, chatID)
	bobWS.Join(t, chatID)

	aliceWS.Send(t, "send_message", map[string]any{"chat_id": chatID, "content": "черновик"})
	var created newChatView
	bobWS.Expect(t, "new_chat_created", &created)

	aliceWS.Send(t, "edit_message", map[string]any{"message_id": created.Message.ID, "content": "итог"})
	var edited struct {
		Message messageView `json:"message"`
	}
	bobWS.Expect(t, "message_edited", &edited)
	assert.Equal(t, "итог", edited.Message.Content)
	assert.True(t, edited.Message.Edited)

	bobWS.Send(t, "mark_read", map[string]any{"chat_id": chatID})
	var read struct {
		ReaderID   string   `json:"reader_id"`
		MessageIDs []string `json:"message_ids"`
	}
	aliceWS.Expect(t, "messages_read", &read)
	assert.Equal(t, bob.ID, read.ReaderID)
	assert.Equal(t, []string{created.Message.ID}, read.MessageIDs)
}

func TestChatFlow_MutedSenderGetsReason(t *testing.T) {
	ts := NewTestServer(t)
	alice := helpers.CreateUser(t, ts.DB, "alice", helpers.WithMute(time.Now().Add(time.Hour), "спам"))

	aliceWS, _ := ts.Dial(t, alice)
	aliceWS.Send(t, "send_message", map[string]any{"chat_id": "global", "content": "hi", "client_id": "c-9"})

	var muted struct {
		Reason   string `json:"reason"`
		Until    string `json:"until"`
		ClientID string `json:"client_id"`
	}
	aliceWS.Expect(t, "action_failed_mute", &muted)
	assert.Equal(t, "спам", muted.Reason)
	assert.NotEmpty(t, muted.Until)
	assert.Equal(t, "c-9", muted.ClientID)
}

func TestChatFlow_HistoryAccessDenied(t *testing.T) {
	ts := NewTestServer(t)
	alice := helpers.CreateUser(t, ts.DB, "alice")
	bob := helpers.CreateUser(t, ts.DB, "bob")
	carol := helpers.CreateUser(t, ts.DB, "carol")

	code, _ := ts.SendRequest(t, http.MethodGet, "/api/v1/chats/"+helpers.PrivateChat(t, alice, bob)+"/messages", carol, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = ts.SendRequest(t, http.MethodGet, "/api/v1/chats/global/messages?limit=500", alice, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}
