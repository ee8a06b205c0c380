package handlers

import (
  "fmt"
  "io"
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/wishcord/wishcord-backend/internal/logger"
  "github.com/wishcord/wishcord-backend/internal/services"
)

// Uploaded wish audio is short; 15MB covers a couple of minutes of webm.
const maxAudioUploadBytes = 15 << 20

type VoiceHandler struct {
  log          *logger.Logger
  voiceService services.VoiceService
}

func NewVoiceHandler(log *logger.Logger, voiceService services.VoiceService) *VoiceHandler {
  return &VoiceHandler{
    log:          log.With("handler", "VoiceHandler"),
    voiceService: voiceService,
  }
}

// POST /api/voice/transcribe (multipart, field "audio")
func (h *VoiceHandler) Transcribe(c *gin.Context) {
  fileHeader, err := c.FormFile("audio")
  if err != nil {
    RespondError(c, http.StatusBadRequest, fmt.Errorf("audio file is required: %w", err))
    return
  }
  if fileHeader.Size > maxAudioUploadBytes {
    RespondError(c, http.StatusBadRequest, fmt.Errorf("audio file too large"))
    return
  }

  f, err := fileHeader.Open()
  if err != nil {
    RespondError(c, http.StatusInternalServerError, err)
    return
  }
  defer f.Close()

  audio, err := io.ReadAll(io.LimitReader(f, maxAudioUploadBytes+1))
  if err != nil {
    RespondError(c, http.StatusInternalServerError, err)
    return
  }
  if len(audio) > maxAudioUploadBytes {
    RespondError(c, http.StatusBadRequest, fmt.Errorf("audio file too large"))
    return
  }

  result, err := h.voiceService.TranscribeUpload(c.Request.Context(), audio, fileHeader.Header.Get("Content-Type"))
  if err != nil {
    RespondError(c, http.StatusInternalServerError, err)
    return
  }

  RespondOK(c, gin.H{
    "text":      result.Text,
    "audioUrl":  result.AudioURL,
    "audioPath": result.AudioPath,
  })
}

type respondRequest struct {
  Persona             string                      `json:"persona"`
  UserMessage         string                      `json:"userMessage"`
  ConversationHistory []services.ConversationTurn `json:"conversationHistory"`
}

// POST /api/voice/respond
// Live-call turn: text plus base64 audio in one response.
func (h *VoiceHandler) Respond(c *gin.Context) {
  var req respondRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
    return
  }
  if req.Persona == "" || req.UserMessage == "" {
    RespondError(c, http.StatusBadRequest, fmt.Errorf("persona and userMessage are required"))
    return
  }

  result, err := h.voiceService.Respond(c.Request.Context(), req.Persona, req.UserMessage, req.ConversationHistory)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, err)
    return
  }

  RespondOK(c, gin.H{"text": result.Text, "audio": result.Audio})
}
