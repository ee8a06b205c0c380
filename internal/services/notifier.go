package services

import (
  "context"

  "github.com/wishcord/wishcord-backend/internal/clients/redis"
  "github.com/wishcord/wishcord-backend/internal/logger"
  "github.com/wishcord/wishcord-backend/internal/sse"
)

// Notifier delivers change notifications to the local SSE hub and, when a
// redis bus is configured, to every other instance. A client may see the
// same message twice (local broadcast plus bus echo); merges are keyed by
// row id so duplicates are harmless.
type Notifier interface {
  Broadcast(ctx context.Context, msg sse.SSEMessage)
}

type notifier struct {
  log *logger.Logger
  hub *sse.SSEHub
  bus redis.SSEBus
}

func NewNotifier(log *logger.Logger, hub *sse.SSEHub, bus redis.SSEBus) Notifier {
  return &notifier{
    log: log.With("service", "Notifier"),
    hub: hub,
    bus: bus,
  }
}

func (n *notifier) Broadcast(ctx context.Context, msg sse.SSEMessage) {
  if n.hub != nil {
    n.hub.Broadcast(msg)
  }
  if n.bus != nil {
    if err := n.bus.Publish(ctx, msg); err != nil {
      n.log.Warn("Failed to publish SSE message to redis bus", "channel", msg.Channel, "event", msg.Event, "error", err)
    }
  }
}
