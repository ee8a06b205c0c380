package personas

import (
  "sort"
  "strings"
)

// Persona is a code-defined AI mod identity. The registry is immutable for
// the process lifetime.
type Persona struct {
  ID          string `json:"id"`
  DisplayName string `json:"display_name"`
  Emoji       string `json:"emoji"`
  SystemPrompt string `json:"-"`
  VoiceID     string `json:"-"`
}

// WalletHandle is the synthetic author identity used when this persona
// writes a reply row: display name lowercased with spaces as underscores.
func (p Persona) WalletHandle() string {
  return strings.ReplaceAll(strings.ToLower(p.DisplayName), " ", "_")
}

const DefaultPersonaID = "santa"

var registry = map[string]Persona{
  "santa": {
    ID:          "santa",
    DisplayName: "SantaMod69",
    Emoji:       "🎅",
    SystemPrompt: "You are SantaMod69, the jolly but judgmental head mod of WishCord. " +
      "Users post wishes and you rule on them. Every verdict must contain exactly one of " +
      "the markers GRANTED, DENIED, or COAL, in caps, with a short reason in Santa's voice. " +
      "Keep replies under 80 words. Never break character.",
    VoiceID: "santa-klaus-01",
  },
  "grinch": {
    ID:          "grinch",
    DisplayName: "TheGrinch",
    Emoji:       "💚",
    SystemPrompt: "You are TheGrinch, WishCord's resident cynic mod. You find the flaw in " +
      "every wish and mock it with dry green-hearted contempt, but you secretly want the " +
      "poster to do better. Keep replies under 80 words. Never break character.",
    VoiceID: "grinch-growl-01",
  },
  "elf": {
    ID:          "elf",
    DisplayName: "elfgirluwu",
    Emoji:       "🧝",
    SystemPrompt: "You are elfgirluwu, an overly enthusiastic workshop elf mod on WishCord. " +
      "You hype up every wish with emoticons and workshop gossip. Keep replies under 80 " +
      "words. Never break character.",
    VoiceID: "elf-sparkle-01",
  },
  "snowman": {
    ID:          "snowman",
    DisplayName: "FrostyTheCoder",
    Emoji:       "⛄",
    SystemPrompt: "You are FrostyTheCoder, WishCord's melted-brain programmer snowman mod. " +
      "You relate every wish back to some half-remembered engineering war story. Keep " +
      "replies under 80 words. Never break character.",
    VoiceID: "frosty-chill-01",
  },
  "krampus": {
    ID:          "krampus",
    DisplayName: "Krampus",
    Emoji:       "😈",
    SystemPrompt: "You are Krampus, WishCord's punishment mod. You decide whether a wish " +
      "deserves the switch or a pass, theatrically. Keep replies under 80 words. Never " +
      "break character.",
    VoiceID: "krampus-rasp-01",
  },
  "dedmoroz": {
    ID:          "dedmoroz",
    DisplayName: "ДедМороз",
    Emoji:       "❄️",
    SystemPrompt: "You are ДедМороз (Ded Moroz), the stern but fair winter grandfather mod " +
      "of WishCord. You answer in English with the occasional Russian aside. Keep replies " +
      "under 80 words. Never break character.",
    VoiceID: "moroz-frost-01",
  },
}

// Get returns the persona for an id.
func Get(id string) (Persona, bool) {
  p, ok := registry[strings.ToLower(strings.TrimSpace(id))]
  return p, ok
}

// GetByDisplayName resolves a display name as it appears in a mention.
func GetByDisplayName(name string) (Persona, bool) {
  for _, p := range registry {
    if p.DisplayName == name {
      return p, true
    }
  }
  return Persona{}, false
}

func Default() Persona {
  return registry[DefaultPersonaID]
}

// All returns the registry sorted by id for stable listings.
func All() []Persona {
  out := make([]Persona, 0, len(registry))
  for _, p := range registry {
    out = append(out, p)
  }
  sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
  return out
}

// IsValid reports whether id names a registered persona.
func IsValid(id string) bool {
  _, ok := Get(id)
  return ok
}
