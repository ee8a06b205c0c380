package sse

import (
  "testing"

  "github.com/google/uuid"

  "github.com/wishcord/wishcord-backend/internal/logger"
)

func newTestHub(t *testing.T) *SSEHub {
  t.Helper()
  log, err := logger.New("development")
  if err != nil {
    t.Fatalf("logger init: %v", err)
  }
  return NewSSEHub(log)
}

func TestBroadcastReachesSubscribedClient(t *testing.T) {
  hub := newTestHub(t)
  client := hub.NewSSEClient("walletA")
  hub.AddChannel(client, FeedChannel)

  hub.Broadcast(SSEMessage{Channel: FeedChannel, Event: SSEEventWishCreated})

  select {
  case msg := <-client.Outbound:
    if msg.Event != SSEEventWishCreated {
      t.Fatalf("got event %q, want %q", msg.Event, SSEEventWishCreated)
    }
  default:
    t.Fatalf("subscribed client received nothing")
  }
}

func TestBroadcastSkipsOtherChannels(t *testing.T) {
  hub := newTestHub(t)
  client := hub.NewSSEClient("walletA")
  hub.AddChannel(client, WishChannel(uuid.New()))

  hub.Broadcast(SSEMessage{Channel: WishChannel(uuid.New()), Event: SSEEventReplyCreated})

  select {
  case msg := <-client.Outbound:
    t.Fatalf("client on a different wish channel received %v", msg)
  default:
  }
}

func TestRemoveClientDropsSubscriptions(t *testing.T) {
  hub := newTestHub(t)
  client := hub.NewSSEClient("walletA")
  hub.AddChannel(client, FeedChannel)
  hub.RemoveClient(client)

  hub.Broadcast(SSEMessage{Channel: FeedChannel, Event: SSEEventWishCreated})

  select {
  case msg := <-client.Outbound:
    t.Fatalf("removed client received %v", msg)
  default:
  }
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
  hub := newTestHub(t)
  client := hub.NewSSEClient("walletA")
  hub.AddChannel(client, FeedChannel)

  // Fill the outbound buffer and one more; the overflow must not block.
  for i := 0; i < cap(client.Outbound)+1; i++ {
    hub.Broadcast(SSEMessage{Channel: FeedChannel, Event: SSEEventWishCreated})
  }

  if got := len(client.Outbound); got != cap(client.Outbound) {
    t.Fatalf("outbound length = %d, want full buffer %d", got, cap(client.Outbound))
  }
}
