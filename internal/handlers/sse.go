package handlers

import (
  "strings"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/wishcord/wishcord-backend/internal/logger"
  "github.com/wishcord/wishcord-backend/internal/middleware"
  "github.com/wishcord/wishcord-backend/internal/sse"
)

type SSEHandler struct {
  log *logger.Logger
  hub *sse.SSEHub
}

func NewSSEHandler(log *logger.Logger, hub *sse.SSEHub) *SSEHandler {
  return &SSEHandler{
    log: log.With("handler", "SSEHandler"),
    hub: hub,
  }
}

// GET /sse/stream?wallet=&wishes=id1,id2
// Every stream gets the feed channel; wish channels are opt-in.
func (h *SSEHandler) Stream(c *gin.Context) {
  wallet := c.Query("wallet")
  if wallet == "" {
    wallet = middleware.WalletFromContext(c)
  }

  client := h.hub.NewSSEClient(wallet)
  h.hub.AddChannel(client, sse.FeedChannel)

  for _, raw := range strings.Split(c.Query("wishes"), ",") {
    raw = strings.TrimSpace(raw)
    if raw == "" {
      continue
    }
    wishID, err := uuid.Parse(raw)
    if err != nil {
      continue
    }
    h.hub.AddChannel(client, sse.WishChannel(wishID))
  }

  defer h.hub.CloseClient(client)
  h.hub.ServeHTTP(c.Writer, c.Request, client)
}
