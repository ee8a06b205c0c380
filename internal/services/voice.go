package services

import (
  "bytes"
  "context"
  "encoding/base64"
  "fmt"
  "strings"

  "github.com/google/uuid"
  "golang.org/x/sync/errgroup"

  "github.com/wishcord/wishcord-backend/internal/logger"
  "github.com/wishcord/wishcord-backend/internal/personas"
)

type TranscribeResult struct {
  Text      string `json:"text"`
  AudioURL  string `json:"audioUrl"`
  AudioPath string `json:"audioPath"`
}

type ConversationTurn struct {
  Role string `json:"role"`
  Text string `json:"text"`
}

type RespondResult struct {
  Text  string `json:"text"`
  Audio string `json:"audio"` // base64 mp3
}

// VoiceService backs the voice surface: wish audio intake and the live-call
// respond loop.
type VoiceService interface {
  TranscribeUpload(ctx context.Context, audio []byte, mimeType string) (*TranscribeResult, error)
  Respond(ctx context.Context, personaID, userMessage string, history []ConversationTurn) (*RespondResult, error)
}

type voiceService struct {
  log    *logger.Logger
  voice  VoiceClient
  ai     AIClient
  bucket BucketService
}

func NewVoiceService(log *logger.Logger, voice VoiceClient, ai AIClient, bucket BucketService) VoiceService {
  return &voiceService{
    log:    log.With("service", "VoiceService"),
    voice:  voice,
    ai:     ai,
    bucket: bucket,
  }
}

// TranscribeUpload stores the raw audio and transcribes it. The two legs
// are independent, so they run concurrently; either failure fails the
// upload as a whole.
func (vs *voiceService) TranscribeUpload(ctx context.Context, audio []byte, mimeType string) (*TranscribeResult, error) {
  if len(audio) == 0 {
    return nil, fmt.Errorf("empty audio upload")
  }

  key := fmt.Sprintf("%s/%s%s", BucketPrefixAudio, uuid.New(), extensionForMime(mimeType))

  var text string
  g, gctx := errgroup.WithContext(ctx)
  g.Go(func() error {
    return vs.bucket.UploadFile(gctx, key, mimeType, bytes.NewReader(audio))
  })
  g.Go(func() error {
    t, err := vs.voice.Transcribe(gctx, audio, mimeType)
    if err != nil {
      return fmt.Errorf("transcribe: %w", err)
    }
    text = t
    return nil
  })
  if err := g.Wait(); err != nil {
    return nil, err
  }

  return &TranscribeResult{
    Text:      text,
    AudioURL:  vs.bucket.GetPublicURL(key),
    AudioPath: key,
  }, nil
}

// Respond generates a short spoken reply for the live-call feature: persona
// text generation followed by synthesis with the persona's voice.
func (vs *voiceService) Respond(ctx context.Context, personaID, userMessage string, history []ConversationTurn) (*RespondResult, error) {
  persona, ok := personas.Get(personaID)
  if !ok {
    return nil, fmt.Errorf("unknown persona %q", personaID)
  }
  userMessage = strings.TrimSpace(userMessage)
  if userMessage == "" {
    return nil, fmt.Errorf("userMessage is required")
  }

  text, err := vs.ai.Generate(ctx, persona.SystemPrompt, AssembleCallContext(userMessage, history))
  if err != nil {
    return nil, fmt.Errorf("generate call reply: %w", err)
  }

  audio, err := vs.voice.Synthesize(ctx, text, persona.VoiceID)
  if err != nil {
    return nil, fmt.Errorf("synthesize call reply: %w", err)
  }

  return &RespondResult{
    Text:  text,
    Audio: base64.StdEncoding.EncodeToString(audio),
  }, nil
}

// AssembleCallContext folds the running conversation into a single context
// string, oldest turn first, the fresh user message last.
func AssembleCallContext(userMessage string, history []ConversationTurn) string {
  var sb strings.Builder
  for _, turn := range history {
    text := strings.TrimSpace(turn.Text)
    if text == "" {
      continue
    }
    role := strings.TrimSpace(turn.Role)
    if role == "" {
      role = "user"
    }
    sb.WriteString(role)
    sb.WriteString(": ")
    sb.WriteString(text)
    sb.WriteString("\n")
  }
  sb.WriteString("user: ")
  sb.WriteString(userMessage)
  return sb.String()
}
