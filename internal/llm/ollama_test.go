package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSendsSystemAndUserMessages(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(chatResponse{
			Message: Message{Role: "assistant", Content: "the review"},
		})
	}))
	defer srv.Close()

	c := NewOllamaChat(srv.URL, "qwen3:8b")
	out, err := c.Generate(context.Background(), "be strict", "review this")
	require.NoError(t, err)
	assert.Equal(t, "the review", out)

	assert.Equal(t, "qwen3:8b", gotReq.Model)
	assert.False(t, gotReq.Stream)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, Message{Role: "system", Content: "be strict"}, gotReq.Messages[0])
	assert.Equal(t, Message{Role: "user", Content: "review this"}, gotReq.Messages[1])
}

func TestGenerateOmitsEmptySystem(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(chatResponse{Message: Message{Content: "ok"}})
	}))
	defer srv.Close()

	_, err := NewOllamaChat(srv.URL, "m").Generate(context.Background(), "", "hi")
	require.NoError(t, err)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
}

func TestGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewOllamaChat(srv.URL, "m").Generate(context.Background(), "", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
