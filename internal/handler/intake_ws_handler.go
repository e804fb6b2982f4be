package handler

import (
	"lab-compare-be/internal/pkg/logger"
	"lab-compare-be/internal/service"
	internalWS "lab-compare-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type IntakeWsHandler struct {
	hub        *internalWS.Hub
	dispatcher service.IDispatcherService
	readLimit  int64
	logger     logger.ILogger
}

func NewIntakeWsHandler(hub *internalWS.Hub, dispatcher service.IDispatcherService, maxDocumentBytes int64, log logger.ILogger) *IntakeWsHandler {
	return &IntakeWsHandler{
		hub:        hub,
		dispatcher: dispatcher,
		readLimit:  internalWS.ReadLimit(maxDocumentBytes),
		logger:     log,
	}
}

func (h *IntakeWsHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/intake/ws", h.ServeWs)
}

// ServeWs upgrades the request into an intake chat for ?user_id=.
func (h *IntakeWsHandler) ServeWs(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	if userID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing query parameter 'user_id'")
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("IntakeWsHandler", "Starting WebSocket session", map[string]interface{}{"user_id": userID})
		internalWS.ServeWs(h.hub, h.dispatcher, conn, userID, h.readLimit)
		h.logger.Info("IntakeWsHandler", "WebSocket session ended", map[string]interface{}{"user_id": userID})
	})(c)
}
