package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"sjsage522/jobfeedworker/internal/crawler"
	apperrors "sjsage522/jobfeedworker/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTelegram records sendMessage calls and fails those whose text contains
// failOn.
type fakeTelegram struct {
	mu       sync.Mutex
	requests []map[string]interface{}
	paths    []string
	failOn   string
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.requests = append(f.requests, body)
	f.paths = append(f.paths, r.URL.Path)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if text, _ := body["text"].(string); f.failOn != "" && strings.Contains(text, f.failOn) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities"}`))
		return
	}
	w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":1760601600,"chat":{"id":42,"type":"private"},"text":"ok"}}`))
}

func newTestTransport(t *testing.T, fake *fakeTelegram) *TelegramTransport {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	transport, err := NewTelegramTransport(TelegramConfig{
		Token:          "123:abc",
		ChatID:         "42",
		APIURL:         server.URL,
		DisablePreview: true,
	})
	require.NoError(t, err)
	return transport
}

func TestTelegramTransportSend(t *testing.T) {
	fake := &fakeTelegram{}
	transport := newTestTransport(t, fake)

	require.NoError(t, transport.Send(context.Background(), `Title: Go \- remote`))

	require.Len(t, fake.requests, 1)
	assert.Equal(t, "/bot123:abc/sendMessage", fake.paths[0])
	req := fake.requests[0]
	assert.Equal(t, "42", req["chat_id"])
	assert.Equal(t, `Title: Go \- remote`, req["text"])
	assert.Equal(t, "MarkdownV2", req["parse_mode"])
}

func TestTelegramTransportRejects(t *testing.T) {
	fake := &fakeTelegram{failOn: "broken"}
	transport := newTestTransport(t, fake)

	err := transport.Send(context.Background(), "broken")
	assert.Error(t, err)
	assert.Len(t, fake.requests, 1)
}

func TestNewTelegramTransportRequiresCredentials(t *testing.T) {
	_, err := NewTelegramTransport(TelegramConfig{ChatID: "42"})
	assert.Error(t, err)
	_, err = NewTelegramTransport(TelegramConfig{Token: "123:abc"})
	assert.Error(t, err)
}

func TestNotifierOutcomes(t *testing.T) {
	fake := &fakeTelegram{failOn: "Broken"}
	n := NewNotifier(newTestTransport(t, fake), "Upwork", 0, nil)
	ctx := context.Background()

	outcome, err := n.Notify(ctx, crawler.JobRecord{Title: "Working", Link: "https://example.com/1"})
	assert.NoError(t, err)
	assert.Equal(t, Delivered, outcome)

	outcome, err = n.Notify(ctx, crawler.JobRecord{Title: "Broken", Link: "https://example.com/2"})
	require.Error(t, err)
	assert.Equal(t, Failed, outcome)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeDelivery))
	assert.Contains(t, err.Error(), "https://example.com/2")

	require.Len(t, fake.requests, 2)
	assert.Contains(t, fake.requests[0]["text"], "New Upwork Job:")
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "delivered", Delivered.String())
	assert.Equal(t, "failed", Failed.String())
}
