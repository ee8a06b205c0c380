package personas

import "testing"

func TestParseMentionsOrder(t *testing.T) {
  cases := []struct {
    name string
    text string
    want []string
  }{
    {
      name: "single_mention",
      text: "hey @SantaMod69 I want a bike",
      want: []string{"santa"},
    },
    {
      name: "first_match_wins_order",
      text: "hello @FrostyTheCoder and @SantaMod69",
      want: []string{"snowman", "santa"},
    },
    {
      name: "no_mention",
      text: "just wishing into the void",
      want: nil,
    },
    {
      name: "at_without_known_name",
      text: "email me @example.com please",
      want: nil,
    },
    {
      name: "non_latin_display_name",
      text: "@ДедМороз bring snow",
      want: []string{"dedmoroz"},
    },
    {
      name: "repeated_mentions_kept",
      text: "@Krampus @Krampus please",
      want: []string{"krampus", "krampus"},
    },
    {
      name: "mid_sentence",
      text: "I asked @elfgirluwu about the workshop",
      want: []string{"elf"},
    },
    {
      name: "trailing_word_rune_rejected",
      text: "ping @SantaMod69xyz now",
      want: nil,
    },
    {
      name: "leading_word_rune_rejected",
      text: "mail foo@SantaMod69 today",
      want: nil,
    },
    {
      name: "punctuation_boundary_accepted",
      text: "(@SantaMod69), got a minute?",
      want: []string{"santa"},
    },
    {
      name: "non_latin_trailing_punctuation",
      text: "спасибо @ДедМороз!",
      want: []string{"dedmoroz"},
    },
    {
      name: "non_latin_trailing_word_rune_rejected",
      text: "спасибо @ДедМорозу",
      want: nil,
    },
  }

  for _, tc := range cases {
    t.Run(tc.name, func(t *testing.T) {
      got := ParseMentions(tc.text)
      if len(got) != len(tc.want) {
        t.Fatalf("ParseMentions(%q) returned %d mentions, want %d", tc.text, len(got), len(tc.want))
      }
      for i, m := range got {
        if m.PersonaID != tc.want[i] {
          t.Fatalf("mention %d resolved to %q, want %q", i, m.PersonaID, tc.want[i])
        }
      }
    })
  }
}

func TestPrimaryPersonaFirstMatch(t *testing.T) {
  p, ok := PrimaryPersona("hello @FrostyTheCoder and @SantaMod69")
  if !ok {
    t.Fatalf("expected a primary persona")
  }
  if p.ID != "snowman" {
    t.Fatalf("primary persona = %q, want snowman", p.ID)
  }
}

func TestPrimaryPersonaNone(t *testing.T) {
  if _, ok := PrimaryPersona("no mods here"); ok {
    t.Fatalf("expected no primary persona")
  }
}
