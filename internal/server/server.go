// Package server exposes conversations and webhook ingestion over HTTP.
package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/iksnae/wa-history/internal"
)

// MaxWebhookBody caps the size of a single webhook document
const MaxWebhookBody = 4 << 20

// Handler handles HTTP requests.
type Handler struct {
	ingestor *internal.Ingestor
	now      func() time.Time
}

// NewHandler creates a new handler.
func NewHandler(ingestor *internal.Ingestor) *Handler {
	return &Handler{ingestor: ingestor, now: time.Now}
}

// New builds the echo server with routes and middleware registered.
func New(h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	h.RegisterRoutes(e)
	return e
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/messages/conversations", h.ListConversations)
	e.GET("/api/messages/:wa_id", h.GetMessages)
	e.POST("/api/messages", h.SendMessage)
	e.PUT("/api/messages/status/:wa_id/:message_id", h.UpdateStatus)

	e.POST("/webhook", h.Webhook)
	e.POST("/webhook/process", h.Webhook)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// ListConversations returns every stored conversation.
// GET /api/messages/conversations
func (h *Handler) ListConversations(c echo.Context) error {
	convs, err := h.ingestor.Store().ListAll(c.Request().Context())
	if err != nil {
		internal.LogError("Failed to list conversations: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to fetch conversations"})
	}
	return c.JSON(http.StatusOK, convs)
}

// GetMessages returns the messages of one conversation.
// GET /api/messages/:wa_id
func (h *Handler) GetMessages(c echo.Context) error {
	waID := c.Param("wa_id")
	conv, err := h.ingestor.Store().FindByConversationID(c.Request().Context(), waID)
	if errors.Is(err, internal.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "conversation not found"})
	}
	if err != nil {
		internal.LogError("Failed to load conversation %s: %v", waID, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to fetch messages"})
	}
	return c.JSON(http.StatusOK, conv.Messages)
}

type sendMessageRequest struct {
	WaID string `json:"wa_id"`
	Text string `json:"text"`
}

// SendMessage records an outbound message.
// POST /api/messages
func (h *Handler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	conv, _, err := h.ingestor.AppendOutbound(c.Request().Context(), req.WaID, req.Text)
	if errors.Is(err, internal.ErrInvalidInput) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing wa_id or text"})
	}
	if err != nil {
		internal.LogError("Failed to send message to %s: %v", req.WaID, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to send message"})
	}
	return c.JSON(http.StatusCreated, conv)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus overwrites the status of one message.
// PUT /api/messages/status/:wa_id/:message_id
func (h *Handler) UpdateStatus(c echo.Context) error {
	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	waID := c.Param("wa_id")
	msg, err := h.ingestor.SetStatus(c.Request().Context(), waID, c.Param("message_id"), req.Status)
	switch {
	case errors.Is(err, internal.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing status"})
	case errors.Is(err, internal.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case err != nil:
		internal.LogError("Failed to update status in %s: %v", waID, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to update status"})
	}
	return c.JSON(http.StatusOK, msg)
}

// Webhook ingests the request body as one raw document.
// POST /webhook
func (h *Handler) Webhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, MaxWebhookBody+1))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read body"})
	}
	if len(body) > MaxWebhookBody {
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": "payload too large"})
	}

	doc := internal.RawDocument{
		Name: "webhook-" + h.now().UTC().Format("20060102T150405.000Z"),
		Data: body,
	}
	result, err := h.ingestor.Ingest(c.Request().Context(), []internal.RawDocument{doc})
	if err != nil {
		internal.LogError("Webhook ingest failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error":  "failed to store payload",
			"result": result,
		})
	}
	return c.JSON(http.StatusOK, result)
}
