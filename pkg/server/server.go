// Package server exposes the chat pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"collegehub_ai/pkg/ai"
	"collegehub_ai/pkg/chat"
	"collegehub_ai/pkg/config"
	"collegehub_ai/pkg/contextsvc"
	"collegehub_ai/pkg/identity"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
)

// ChatHandler is the orchestrator surface the server depends on.
type ChatHandler interface {
	Chat(ctx context.Context, req chat.Request, meta chat.Meta) (chat.Response, error)
}

// Server wires the HTTP routes.
type Server struct {
	echo  *echo.Echo
	chat  ChatHandler
	model string
}

// New builds the echo app: CORS per the configured allow-list, a health
// route, and the chat endpoint.
func New(cfg config.Config, chatSvc ChatHandler) *Server {
	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:     []string{"*"},
	}))

	s := &Server{
		echo:  e,
		chat:  chatSvc,
		model: cfg.GeminiModel,
	}

	e.GET("/", s.handleHealth)
	e.POST("/chat", s.handleChat)

	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "AI service is running",
		"model":  s.model,
	})
}

func (s *Server) handleChat(c *echo.Context) error {
	var req chat.Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	r := c.Request()
	meta := chat.Meta{
		AuthHeader: r.Header.Get("Authorization"),
		RemoteIP:   clientIP(r),
		RequestID:  uuid.New().String(),
	}
	if cookie, err := r.Cookie("user_id"); err == nil {
		meta.CookieUserID = cookie.Value
	}

	c.Response().Header().Set("X-Request-ID", meta.RequestID)

	resp, err := s.chat.Chat(r.Context(), req, meta)
	if err != nil {
		return chatError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

// chatError maps pipeline failures onto the client-facing status taxonomy.
func chatError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, identity.ErrNoIdentity):
		return echo.NewHTTPError(http.StatusBadRequest, identity.ErrNoIdentity.Error())
	case errors.Is(err, contextsvc.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "User not found.")
	case errors.Is(err, contextsvc.ErrAuthRequired):
		return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required. Please provide valid JWT token.")
	case errors.Is(err, contextsvc.ErrUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Backend data service error.")
	case errors.Is(err, contextsvc.ErrUnreachable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Could not connect to backend service.")
	case errors.Is(err, ai.ErrNotConfigured):
		return echo.NewHTTPError(http.StatusInternalServerError, "AI service not initialized or invalid API key.")
	case errors.Is(err, chat.ErrInvalidContext):
		return echo.NewHTTPError(http.StatusInternalServerError, "Invalid context data.")
	case errors.Is(err, chat.ErrExhausted):
		return echo.NewHTTPError(http.StatusInternalServerError, "Gemini service unavailable after retries.")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Gemini API error.")
	}
}

// clientIP reports the caller network origin, honoring proxy headers.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
