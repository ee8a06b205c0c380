package personas

import (
  "regexp"
  "sort"
  "strings"
  "unicode"
  "unicode/utf8"
)

// Mention is a single @DisplayName token found in free text. PersonaID is
// empty when the matched name has no registry entry; with the pattern built
// from the registry itself that should not happen, but callers must not
// assume it.
type Mention struct {
  DisplayName string
  PersonaID   string
}

// mentionPattern matches @<DisplayName> for every registered display name.
// Names are regexp-quoted and sorted longest first so a name that prefixes
// another cannot shadow it. Display names may contain non-Latin characters,
// so the pattern is an explicit alternation rather than a \w class.
var mentionPattern = buildMentionPattern()

func buildMentionPattern() *regexp.Regexp {
  names := make([]string, 0, len(registry))
  for _, p := range registry {
    names = append(names, p.DisplayName)
  }
  sort.Slice(names, func(i, j int) bool {
    if len(names[i]) != len(names[j]) {
      return len(names[i]) > len(names[j])
    }
    return names[i] < names[j]
  })
  quoted := make([]string, 0, len(names))
  for _, n := range names {
    quoted = append(quoted, regexp.QuoteMeta(n))
  }
  return regexp.MustCompile(`@(` + strings.Join(quoted, "|") + `)`)
}

// isWordRune reports whether r would extend an identifier-like token.
// RE2 has no lookarounds and \b is ASCII-only, which breaks on the
// non-Latin display names, so boundary checks happen outside the pattern.
func isWordRune(r rune) bool {
  return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// boundedAt reports whether the match at [start, end) stands alone: the
// rune before the '@' and the rune after the name must not be word runes.
// This keeps "foo@SantaMod69" and "@SantaMod69xyz" from resolving.
func boundedAt(text string, start, end int) bool {
  if start > 0 {
    if r, _ := utf8.DecodeLastRuneInString(text[:start]); isWordRune(r) {
      return false
    }
  }
  if end < len(text) {
    if r, _ := utf8.DecodeRuneInString(text[end:]); isWordRune(r) {
      return false
    }
  }
  return true
}

// ParseMentions returns every persona mention in text, ordered by first
// appearance. Repeated mentions of the same persona are kept; callers that
// want the primary persona take the first element.
func ParseMentions(text string) []Mention {
  idx := mentionPattern.FindAllStringSubmatchIndex(text, -1)
  if len(idx) == 0 {
    return nil
  }
  out := make([]Mention, 0, len(idx))
  for _, m := range idx {
    if !boundedAt(text, m[0], m[1]) {
      continue
    }
    name := text[m[2]:m[3]]
    mention := Mention{DisplayName: name}
    if p, ok := GetByDisplayName(name); ok {
      mention.PersonaID = p.ID
    }
    out = append(out, mention)
  }
  if len(out) == 0 {
    return nil
  }
  return out
}

// PrimaryPersona resolves the single persona that drives enrichment: the
// first resolved mention in text order.
func PrimaryPersona(text string) (Persona, bool) {
  for _, m := range ParseMentions(text) {
    if m.PersonaID == "" {
      continue
    }
    if p, ok := Get(m.PersonaID); ok {
      return p, true
    }
  }
  return Persona{}, false
}
