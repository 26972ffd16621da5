package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordedCall struct {
	path    string
	payload map[string]any
}

func newTestClient(t *testing.T, handler func(call recordedCall) string) (*Client, *[]recordedCall) {
	t.Helper()

	var calls []recordedCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(body, &payload))

		call := recordedCall{path: r.URL.Path, payload: payload}
		calls = append(calls, call)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, handler(call))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, "123:abc", srv.Client(), zap.NewNop())
	return client, &calls
}

func TestSendMessageDecodesResult(t *testing.T) {
	client, calls := newTestClient(t, func(recordedCall) string {
		return `{"ok":true,"result":{"message_id":42,"chat":{"id":7}}}`
	})

	msg, err := client.SendMessage(context.Background(), 7, "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(42), msg.MessageID)
	assert.Equal(t, int64(7), msg.Chat.ID)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "/bot123:abc/sendMessage", call.path)
	assert.Equal(t, "hello", call.payload["text"])
	assert.Equal(t, "Markdown", call.payload["parse_mode"])
	assert.NotContains(t, call.payload, "reply_markup")
}

func TestSendMessageIncludesKeyboard(t *testing.T) {
	client, calls := newTestClient(t, func(recordedCall) string {
		return `{"ok":true,"result":{"message_id":1,"chat":{"id":7}}}`
	})

	keyboard := &InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{
			{{Text: "Back", CallbackData: "back_to_designer"}},
		},
	}
	_, err := client.SendMessage(context.Background(), 7, "hi", keyboard)
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	markup, ok := (*calls)[0].payload["reply_markup"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, markup, "inline_keyboard")
}

func TestSendPhotoPayload(t *testing.T) {
	client, calls := newTestClient(t, func(recordedCall) string {
		return `{"ok":true,"result":{"message_id":9,"chat":{"id":7}}}`
	})

	msg, err := client.SendPhoto(context.Background(), 7, "https://cdn.example/img.png", "caption", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(9), msg.MessageID)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "/bot123:abc/sendPhoto", call.path)
	assert.Equal(t, "https://cdn.example/img.png", call.payload["photo"])
	assert.Equal(t, "caption", call.payload["caption"])
}

func TestAPIErrorSurfacesDescription(t *testing.T) {
	client, _ := newTestClient(t, func(recordedCall) string {
		return `{"ok":false,"description":"Bad Request: chat not found"}`
	})

	_, err := client.SendMessage(context.Background(), 7, "hello", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestFileURL(t *testing.T) {
	client, calls := newTestClient(t, func(recordedCall) string {
		return `{"ok":true,"result":{"file_id":"f1","file_path":"photos/file_0.jpg"}}`
	})

	url, err := client.FileURL(context.Background(), "f1")
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "/bot123:abc/getFile", call.path)
	assert.Equal(t, "f1", call.payload["file_id"])

	assert.Contains(t, url, "/file/bot123:abc/photos/file_0.jpg")
}

func TestEditMessageMediaNestsPhoto(t *testing.T) {
	client, calls := newTestClient(t, func(recordedCall) string {
		return `{"ok":true,"result":true}`
	})

	err := client.EditMessageMedia(context.Background(), 7, 42, "https://cdn.example/new.png", "updated", nil)
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	media, ok := (*calls)[0].payload["media"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "photo", media["type"])
	assert.Equal(t, "https://cdn.example/new.png", media["media"])
	assert.Equal(t, "updated", media["caption"])
}

func TestAnswerCallbackQueryOmitsEmptyText(t *testing.T) {
	client, calls := newTestClient(t, func(recordedCall) string {
		return `{"ok":true,"result":true}`
	})

	require.NoError(t, client.AnswerCallbackQuery(context.Background(), "cb1", "", false))
	require.NoError(t, client.AnswerCallbackQuery(context.Background(), "cb2", "done", true))

	require.Len(t, *calls, 2)
	assert.NotContains(t, (*calls)[0].payload, "text")
	assert.Equal(t, "done", (*calls)[1].payload["text"])
	assert.Equal(t, true, (*calls)[1].payload["show_alert"])
}
