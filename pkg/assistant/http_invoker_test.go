package assistant

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPInvokerUnwrapsEnvelope(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotPrompt = req["prompt"]
		json.NewEncoder(w).Encode(map[string]string{"response": "all tidy"})
	}))
	defer srv.Close()

	invoker := NewHTTPInvoker(srv.URL, "")
	out, err := invoker.Invoke(context.Background(), "describe my habits")
	require.NoError(t, err)
	assert.Equal(t, "all tidy", out)
	assert.Equal(t, "describe my habits", gotPrompt)
}

func TestHTTPInvokerReturnsRawText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"summary": "plain completion"}`)
	}))
	defer srv.Close()

	invoker := NewHTTPInvoker(srv.URL, "")
	out, err := invoker.Invoke(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, `{"summary": "plain completion"}`, out)
}

func TestHTTPInvokerSendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	invoker := NewHTTPInvoker(srv.URL, "secret")
	_, err := invoker.Invoke(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", gotAuth)
}

func TestHTTPInvokerRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	invoker := NewHTTPInvoker(srv.URL, "")
	_, err := invoker.Invoke(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
