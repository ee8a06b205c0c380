package services

import (
  "bytes"
  "context"
  "encoding/json"
  "fmt"
  "io"
  "mime/multipart"
  "net/http"
  "os"
  "strings"
  "time"

  "github.com/wishcord/wishcord-backend/internal/logger"
)

// VoiceClient covers both directions of the media pipeline: speech-to-text
// for uploaded wish audio and text-to-speech for persona replies.
type VoiceClient interface {
  Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
  Synthesize(ctx context.Context, text string, voiceID string) ([]byte, error)
}

type voiceClient struct {
  log        *logger.Logger
  ttsBaseURL string
  ttsAPIKey  string
  sttBaseURL string
  sttAPIKey  string
  sttModel   string
  httpClient *http.Client
}

func NewVoiceClient(log *logger.Logger) (VoiceClient, error) {
  ttsKey := os.Getenv("ELEVENLABS_API_KEY")
  if ttsKey == "" {
    return nil, fmt.Errorf("missing ELEVENLABS_API_KEY")
  }
  ttsBase := os.Getenv("ELEVENLABS_BASE_URL")
  if ttsBase == "" {
    ttsBase = "https://api.elevenlabs.io"
  }

  sttKey := os.Getenv("OPENAI_API_KEY")
  if sttKey == "" {
    return nil, fmt.Errorf("missing OPENAI_API_KEY")
  }
  sttBase := os.Getenv("OPENAI_BASE_URL")
  if sttBase == "" {
    sttBase = "https://api.openai.com"
  }
  sttModel := os.Getenv("WHISPER_MODEL")
  if sttModel == "" {
    sttModel = "whisper-1"
  }

  return &voiceClient{
    log:        log.With("service", "VoiceClient"),
    ttsBaseURL: ttsBase,
    ttsAPIKey:  ttsKey,
    sttBaseURL: sttBase,
    sttAPIKey:  sttKey,
    sttModel:   sttModel,
    httpClient: &http.Client{Timeout: 90 * time.Second},
  }, nil
}

type transcriptionResponse struct {
  Text string `json:"text"`
}

func (c *voiceClient) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
  if len(audio) == 0 {
    return "", fmt.Errorf("empty audio payload")
  }

  var body bytes.Buffer
  writer := multipart.NewWriter(&body)

  filename := "audio" + extensionForMime(mimeType)
  part, err := writer.CreateFormFile("file", filename)
  if err != nil {
    return "", err
  }
  if _, err := part.Write(audio); err != nil {
    return "", err
  }
  if err := writer.WriteField("model", c.sttModel); err != nil {
    return "", err
  }
  if err := writer.Close(); err != nil {
    return "", err
  }

  req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sttBaseURL+"/v1/audio/transcriptions", &body)
  if err != nil {
    return "", err
  }
  req.Header.Set("Authorization", "Bearer "+c.sttAPIKey)
  req.Header.Set("Content-Type", writer.FormDataContentType())

  resp, err := c.httpClient.Do(req)
  if err != nil {
    return "", err
  }
  raw, readErr := io.ReadAll(resp.Body)
  _ = resp.Body.Close()
  if readErr != nil {
    return "", readErr
  }
  if resp.StatusCode < 200 || resp.StatusCode >= 300 {
    return "", fmt.Errorf("whisper http %d: %s", resp.StatusCode, string(raw))
  }

  var decoded transcriptionResponse
  if err := json.Unmarshal(raw, &decoded); err != nil {
    return "", fmt.Errorf("whisper decode error: %w", err)
  }
  return strings.TrimSpace(decoded.Text), nil
}

type synthesizeRequest struct {
  Text    string `json:"text"`
  ModelID string `json:"model_id,omitempty"`
}

func (c *voiceClient) Synthesize(ctx context.Context, text string, voiceID string) ([]byte, error) {
  text = strings.TrimSpace(text)
  if text == "" {
    return nil, fmt.Errorf("empty synthesis text")
  }
  if voiceID == "" {
    return nil, fmt.Errorf("missing voice id")
  }

  payload, err := json.Marshal(synthesizeRequest{Text: text, ModelID: "eleven_multilingual_v2"})
  if err != nil {
    return nil, err
  }

  url := fmt.Sprintf("%s/v1/text-to-speech/%s", c.ttsBaseURL, voiceID)
  req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
  if err != nil {
    return nil, err
  }
  req.Header.Set("xi-api-key", c.ttsAPIKey)
  req.Header.Set("Content-Type", "application/json")
  req.Header.Set("Accept", "audio/mpeg")

  resp, err := c.httpClient.Do(req)
  if err != nil {
    return nil, err
  }
  raw, readErr := io.ReadAll(resp.Body)
  _ = resp.Body.Close()
  if readErr != nil {
    return nil, readErr
  }
  if resp.StatusCode < 200 || resp.StatusCode >= 300 {
    return nil, fmt.Errorf("elevenlabs http %d: %s", resp.StatusCode, string(raw))
  }
  if len(raw) == 0 {
    return nil, fmt.Errorf("elevenlabs returned empty audio")
  }
  return raw, nil
}

func extensionForMime(mimeType string) string {
  switch strings.ToLower(strings.TrimSpace(mimeType)) {
  case "audio/mpeg", "audio/mp3":
    return ".mp3"
  case "audio/wav", "audio/x-wav":
    return ".wav"
  case "audio/ogg":
    return ".ogg"
  case "audio/webm":
    return ".webm"
  case "audio/mp4", "audio/m4a", "audio/x-m4a":
    return ".m4a"
  default:
    return ".webm"
  }
}
