package services

import (
  "strings"
  "testing"
  "time"

  "github.com/google/uuid"

  "github.com/wishcord/wishcord-backend/internal/types"
)

func strPtr(s string) *string { return &s }

func TestAssembleWishContext(t *testing.T) {
  wish := &types.Wish{
    ID:       uuid.New(),
    Username: "rudolfan",
    WishText: "I want a bike",
  }

  t.Run("text_only", func(t *testing.T) {
    got := AssembleWishContext(wish, "")
    want := "rudolfan wishes: I want a bike"
    if got != want {
      t.Fatalf("context = %q, want %q", got, want)
    }
  })

  t.Run("with_image_description", func(t *testing.T) {
    got := AssembleWishContext(wish, "A red bicycle in the snow.")
    if !strings.Contains(got, "[Attached image] A red bicycle in the snow.") {
      t.Fatalf("image description not labelled in %q", got)
    }
  })

  t.Run("with_audio_notice", func(t *testing.T) {
    w := *wish
    w.AudioURL = strPtr("https://cdn.example/audio/x.webm")
    got := AssembleWishContext(&w, "")
    if !strings.Contains(got, "spoken aloud") {
      t.Fatalf("audio notice missing in %q", got)
    }
  })
}

func TestAssembleThreadContext(t *testing.T) {
  wishID := uuid.New()
  wish := &types.Wish{
    ID:       wishID,
    Username: "rudolfan",
    WishText: "I want a bike",
  }
  replies := []*types.Reply{
    {WishID: wishID, Username: "frostfan", ReplyText: "same tbh", CreatedAt: time.Now().Add(-2 * time.Minute)},
    {WishID: wishID, Username: "SantaMod69", ReplyText: "GRANTED. Ride safe.", CreatedAt: time.Now().Add(-1 * time.Minute)},
  }

  got := AssembleThreadContext(wish, replies)

  if !strings.HasPrefix(got, "Original wish from rudolfan: I want a bike") {
    t.Fatalf("thread context missing wish header: %q", got)
  }
  // Prior replies in chronological order, each prefixed by author.
  first := strings.Index(got, "frostfan: same tbh")
  second := strings.Index(got, "SantaMod69: GRANTED. Ride safe.")
  if first == -1 || second == -1 {
    t.Fatalf("thread context missing replies: %q", got)
  }
  if first > second {
    t.Fatalf("replies out of order in %q", got)
  }
}

func TestAssembleCallContext(t *testing.T) {
  history := []ConversationTurn{
    {Role: "user", Text: "hi santa"},
    {Role: "assistant", Text: "Ho ho. What do you want?"},
    {Role: "", Text: "a pony"},
  }
  got := AssembleCallContext("actually two ponies", history)
  if !strings.HasSuffix(got, "user: actually two ponies") {
    t.Fatalf("fresh message must come last: %q", got)
  }
  if !strings.Contains(got, "assistant: Ho ho. What do you want?") {
    t.Fatalf("assistant turn missing: %q", got)
  }
  // Blank role defaults to user.
  if !strings.Contains(got, "user: a pony") {
    t.Fatalf("blank role not defaulted: %q", got)
  }
}

func TestExtensionForMime(t *testing.T) {
  cases := map[string]string{
    "audio/mpeg":  ".mp3",
    "audio/wav":   ".wav",
    "audio/webm":  ".webm",
    "audio/m4a":   ".m4a",
    "":            ".webm",
    "text/plain":  ".webm",
    "AUDIO/MPEG":  ".mp3",
  }
  for mime, want := range cases {
    if got := extensionForMime(mime); got != want {
      t.Fatalf("extensionForMime(%q) = %q, want %q", mime, got, want)
    }
  }
}
