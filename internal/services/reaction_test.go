package services

import (
  "testing"

  "github.com/google/uuid"

  "github.com/wishcord/wishcord-backend/internal/types"
)

func TestGroupReactions(t *testing.T) {
  wishID := uuid.New()
  reactions := []*types.Reaction{
    {WishID: wishID, WalletAddress: "walletA", Emoji: "🎄"},
    {WishID: wishID, WalletAddress: "walletB", Emoji: "🎄"},
    {WishID: wishID, WalletAddress: "walletA", Emoji: "👍"},
  }

  groups := GroupReactions(reactions)
  if len(groups) != 2 {
    t.Fatalf("got %d groups, want 2", len(groups))
  }

  tree := groups[0]
  if tree.Emoji != "🎄" || tree.Count != 2 {
    t.Fatalf("first group = %+v, want 🎄 count 2", tree)
  }
  if len(tree.Users) != 2 || tree.Users[0] != "walletA" || tree.Users[1] != "walletB" {
    t.Fatalf("🎄 users = %v, want [walletA walletB]", tree.Users)
  }

  thumb := groups[1]
  if thumb.Emoji != "👍" || thumb.Count != 1 || len(thumb.Users) != 1 || thumb.Users[0] != "walletA" {
    t.Fatalf("second group = %+v, want 👍 count 1 from walletA", thumb)
  }
}

func TestGroupReactionsEmpty(t *testing.T) {
  if groups := GroupReactions(nil); len(groups) != 0 {
    t.Fatalf("expected no groups, got %v", groups)
  }
}

func TestGroupReactionsStableTieBreak(t *testing.T) {
  wishID := uuid.New()
  reactions := []*types.Reaction{
    {WishID: wishID, WalletAddress: "b", Emoji: "🔥"},
    {WishID: wishID, WalletAddress: "a", Emoji: "⭐"},
  }
  groups := GroupReactions(reactions)
  if len(groups) != 2 {
    t.Fatalf("got %d groups, want 2", len(groups))
  }
  // Equal counts sort by emoji for a stable payload.
  if groups[0].Emoji > groups[1].Emoji {
    t.Fatalf("tie-break not applied: %v", groups)
  }
}
