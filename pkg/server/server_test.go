package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"collegehub_ai/pkg/ai"
	"collegehub_ai/pkg/chat"
	"collegehub_ai/pkg/config"
	"collegehub_ai/pkg/contextsvc"
	"collegehub_ai/pkg/identity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChat struct {
	resp    chat.Response
	err     error
	gotReq  chat.Request
	gotMeta chat.Meta
}

func (s *stubChat) Chat(_ context.Context, req chat.Request, meta chat.Meta) (chat.Response, error) {
	s.gotReq = req
	s.gotMeta = meta
	return s.resp, s.err
}

type capturingProvider struct {
	reply     string
	gotSystem string
}

func (p *capturingProvider) CreateChatCompletion(_ context.Context, req ai.ChatRequest) (ai.ChatResponse, error) {
	for _, msg := range req.Messages {
		if msg.Role == "system" {
			p.gotSystem = msg.Content
		}
	}
	return ai.ChatResponse{Content: p.reply, Model: req.Model}, nil
}

func doRequest(t *testing.T, handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	srv := New(config.Default(), &stubChat{})

	rec := doRequest(t, srv.Handler(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "AI service is running", body["status"])
	assert.Equal(t, config.DefaultModel, body["model"])
}

func TestChatEndpoint_EndToEnd(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/context/u1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"username":"Alice"}`))
	}))
	defer upstream.Close()

	provider := &capturingProvider{reply: "Hi Alice, how can I help?"}
	svc := chat.NewService(
		provider,
		contextsvc.NewClient(upstream.URL, time.Second),
		identity.NewResolver("test-secret"),
		config.DefaultModel,
	)
	srv := New(config.Default(), svc)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"user_id":"u1","message":"Hi","history":[]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := doRequest(t, srv.Handler(), req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "u1", body["user_id"])
	assert.Equal(t, "Hi Alice, how can I help?", body["response"])

	assert.Contains(t, provider.gotSystem, "Name: Alice")
	assert.Contains(t, provider.gotSystem, "Role: Student")
	assert.Contains(t, provider.gotSystem, "Institution: N/A at N/A")
	assert.Contains(t, provider.gotSystem, "None found.")
	assert.Contains(t, provider.gotSystem, "No upcoming assignments.")

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestChatEndpoint_ForwardsCredentials(t *testing.T) {
	stub := &stubChat{resp: chat.Response{UserID: "u1", Reply: "ok"}}
	srv := New(config.Default(), stub)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"user_id":"u1","message":"Hi"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer some-token")
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	req.AddCookie(&http.Cookie{Name: "user_id", Value: "cookie-user"})
	rec := doRequest(t, srv.Handler(), req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Bearer some-token", stub.gotMeta.AuthHeader)
	assert.Equal(t, "cookie-user", stub.gotMeta.CookieUserID)
	assert.Equal(t, "203.0.113.7", stub.gotMeta.RemoteIP)
	assert.NotEmpty(t, stub.gotMeta.RequestID)
	assert.Equal(t, "u1", stub.gotReq.UserID)
	assert.Equal(t, "Hi", stub.gotReq.Message)
}

func TestChatEndpoint_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"missing identity", identity.ErrNoIdentity, http.StatusBadRequest},
		{"user not found", contextsvc.ErrNotFound, http.StatusNotFound},
		{"auth required", contextsvc.ErrAuthRequired, http.StatusUnauthorized},
		{"upstream unavailable", contextsvc.ErrUnavailable, http.StatusServiceUnavailable},
		{"upstream unreachable", contextsvc.ErrUnreachable, http.StatusServiceUnavailable},
		{"not configured", ai.ErrNotConfigured, http.StatusInternalServerError},
		{"invalid context", chat.ErrInvalidContext, http.StatusInternalServerError},
		{"retries exhausted", chat.ErrExhausted, http.StatusInternalServerError},
		{"other model error", context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := New(config.Default(), &stubChat{err: tt.err})

			req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"user_id":"u1","message":"Hi"}`))
			req.Header.Set("Content-Type", "application/json")
			rec := doRequest(t, srv.Handler(), req)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestChatEndpoint_RejectsMalformedBody(t *testing.T) {
	srv := New(config.Default(), &stubChat{})

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	rec := doRequest(t, srv.Handler(), req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv := New(config.Default(), &stubChat{})

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := doRequest(t, srv.Handler(), req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSPreflight_DisallowedOrigin(t *testing.T) {
	srv := New(config.Default(), &stubChat{})

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := doRequest(t, srv.Handler(), req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", clientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(r))
}
