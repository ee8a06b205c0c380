package services

import (
  "bytes"
  "context"
  "encoding/json"
  "fmt"
  "strings"
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"

  "github.com/wishcord/wishcord-backend/internal/logger"
  "github.com/wishcord/wishcord-backend/internal/personas"
  "github.com/wishcord/wishcord-backend/internal/repos"
  "github.com/wishcord/wishcord-backend/internal/sse"
  "github.com/wishcord/wishcord-backend/internal/types"
)

// EnrichmentService owns the pending -> completed/failed state machine for
// AI replies. Work is durable: every requested enrichment is a job row, and
// the worker claims jobs off the table, so an enrichment survives the
// request handler that created it.
type EnrichmentService interface {
  EnqueueWish(ctx context.Context, tx *gorm.DB, wish *types.Wish) (*types.EnrichmentJob, error)
  EnqueueReply(ctx context.Context, tx *gorm.DB, reply *types.Reply, personaID string) (*types.EnrichmentJob, error)
  RunNow(ctx context.Context, wishID uuid.UUID) (*EnrichmentResult, error)
  StartWorker(ctx context.Context)
}

type EnrichmentResult struct {
  AIReply    string
  AIAudioURL string
  Elapsed    time.Duration
}

// wishEnrichment is what one successful wish pipeline run produced; the
// non-reply fields end up in the job row's metadata.
type wishEnrichment struct {
  aiReply          string
  aiAudioURL       string
  aiAudioPath      string
  imageDescription string
}

type enrichmentService struct {
  db  *gorm.DB
  log *logger.Logger

  wishRepo  repos.WishRepo
  replyRepo repos.ReplyRepo
  jobRepo   repos.EnrichmentJobRepo

  ai       AIClient
  voice    VoiceClient
  bucket   BucketService
  notifier Notifier
}

func NewEnrichmentService(
  db *gorm.DB,
  baseLog *logger.Logger,
  wishRepo repos.WishRepo,
  replyRepo repos.ReplyRepo,
  jobRepo repos.EnrichmentJobRepo,
  ai AIClient,
  voice VoiceClient,
  bucket BucketService,
  notifier Notifier,
) EnrichmentService {
  return &enrichmentService{
    db:        db,
    log:       baseLog.With("service", "EnrichmentService"),
    wishRepo:  wishRepo,
    replyRepo: replyRepo,
    jobRepo:   jobRepo,
    ai:        ai,
    voice:     voice,
    bucket:    bucket,
    notifier:  notifier,
  }
}

func (es *enrichmentService) EnqueueWish(ctx context.Context, tx *gorm.DB, wish *types.Wish) (*types.EnrichmentJob, error) {
  if wish == nil || wish.ID == uuid.Nil {
    return nil, fmt.Errorf("wish required")
  }
  if !personas.IsValid(wish.Persona) {
    return nil, fmt.Errorf("unknown persona %q", wish.Persona)
  }
  job := &types.EnrichmentJob{
    ID:      uuid.New(),
    Kind:    types.EnrichmentJobKindWish,
    WishID:  wish.ID,
    Persona: wish.Persona,
    Status:  types.EnrichmentJobStatusQueued,
  }
  if _, err := es.jobRepo.Create(ctx, tx, []*types.EnrichmentJob{job}); err != nil {
    return nil, fmt.Errorf("create wish enrichment job: %w", err)
  }
  return job, nil
}

func (es *enrichmentService) EnqueueReply(ctx context.Context, tx *gorm.DB, reply *types.Reply, personaID string) (*types.EnrichmentJob, error) {
  if reply == nil || reply.ID == uuid.Nil {
    return nil, fmt.Errorf("reply required")
  }
  if !personas.IsValid(personaID) {
    return nil, fmt.Errorf("unknown persona %q", personaID)
  }
  replyID := reply.ID
  job := &types.EnrichmentJob{
    ID:      uuid.New(),
    Kind:    types.EnrichmentJobKindReply,
    WishID:  reply.WishID,
    ReplyID: &replyID,
    Persona: personaID,
    Status:  types.EnrichmentJobStatusQueued,
  }
  if _, err := es.jobRepo.Create(ctx, tx, []*types.EnrichmentJob{job}); err != nil {
    return nil, fmt.Errorf("create reply enrichment job: %w", err)
  }
  return job, nil
}

// RunNow drives a wish's enrichment synchronously. It is the re-drive path
// behind POST /wish/generate; the queued path and this one share processJob
// semantics by construction (same context assembly and write rules).
func (es *enrichmentService) RunNow(ctx context.Context, wishID uuid.UUID) (*EnrichmentResult, error) {
  start := time.Now()

  wish, err := es.wishRepo.GetByID(ctx, nil, wishID)
  if err != nil {
    return nil, fmt.Errorf("load wish: %w", err)
  }

  persona, ok := personas.Get(wish.Persona)
  if !ok {
    return nil, fmt.Errorf("unknown persona %q", wish.Persona)
  }

  // A re-driven wish re-enters the state machine at pending, whatever
  // state it was left in; the only writes out of pending are completed
  // and failed.
  if wish.AIStatus != types.AIStatusPending {
    if err := es.wishRepo.UpdateFields(ctx, nil, wish.ID, map[string]interface{}{
      "ai_status": types.AIStatusPending,
    }); err != nil {
      return nil, fmt.Errorf("mark wish pending: %w", err)
    }
    wish.AIStatus = types.AIStatusPending
  }

  result, err := es.enrichWish(ctx, wish, persona, nil)
  if err != nil {
    es.markWishFailed(ctx, wish.ID)
    return nil, err
  }

  return &EnrichmentResult{
    AIReply:    result.aiReply,
    AIAudioURL: result.aiAudioURL,
    Elapsed:    time.Since(start),
  }, nil
}

// Worker policy. The stale-running window must outlast the longest single
// pipeline stage: one AI call can spend its full timeout on each transport
// retry before the next heartbeat lands.
const (
  workerTickInterval = 1 * time.Second
  workerMaxAttempts  = 3
  workerRetryDelay   = 30 * time.Second
  workerStaleRunning = 10 * time.Minute
)

func (es *enrichmentService) StartWorker(ctx context.Context) {
  go func() {
    ticker := time.NewTicker(workerTickInterval)
    defer ticker.Stop()

    for {
      select {
      case <-ctx.Done():
        return
      case <-ticker.C:
        job, err := es.jobRepo.ClaimNextRunnable(ctx, nil, workerMaxAttempts, workerRetryDelay, workerStaleRunning)
        if err != nil {
          es.log.Warn("ClaimNextRunnable failed", "error", err)
          continue
        }
        if job == nil {
          continue
        }
        es.processJob(ctx, job)
      }
    }
  }()
}

func (es *enrichmentService) processJob(ctx context.Context, job *types.EnrichmentJob) {
  jobID := job.ID

  // Refreshed between pipeline stages; an upstream call can outlast the
  // stale-running window on its own, and a reclaimed live job would run
  // the enrichment twice.
  heartbeat := func() {
    if err := es.jobRepo.Heartbeat(ctx, nil, jobID); err != nil {
      es.log.Warn("Job heartbeat failed", "jobID", jobID, "error", err)
    }
  }

  fail := func(err error) {
    now := time.Now()
    _ = es.jobRepo.UpdateFields(ctx, nil, jobID, map[string]interface{}{
      "status":        types.EnrichmentJobStatusFailed,
      "error":         err.Error(),
      "last_error_at": now,
      "locked_at":     nil,
      "updated_at":    now,
    })
    es.log.Warn("Enrichment job failed", "jobID", jobID, "kind", job.Kind, "wishID", job.WishID, "error", err)
  }

  complete := func(meta map[string]any) {
    now := time.Now()
    updates := map[string]interface{}{
      "status":     types.EnrichmentJobStatusCompleted,
      "error":      "",
      "locked_at":  nil,
      "updated_at": now,
    }
    if len(meta) > 0 {
      if raw, mErr := json.Marshal(meta); mErr == nil {
        updates["metadata"] = datatypes.JSON(raw)
      }
    }
    _ = es.jobRepo.UpdateFields(ctx, nil, jobID, updates)
  }

  persona, ok := personas.Get(job.Persona)
  if !ok {
    fail(fmt.Errorf("unknown persona %q", job.Persona))
    return
  }

  wish, err := es.wishRepo.GetByID(ctx, nil, job.WishID)
  if err != nil {
    fail(fmt.Errorf("load wish: %w", err))
    if job.Kind == types.EnrichmentJobKindWish {
      es.markWishFailed(ctx, job.WishID)
    }
    return
  }

  switch job.Kind {
  case types.EnrichmentJobKindWish:
    if wish.AIStatus == types.AIStatusCompleted {
      // Stale reclaim of a job whose result write already landed.
      complete(nil)
      return
    }
    result, err := es.enrichWish(ctx, wish, persona, heartbeat)
    if err != nil {
      fail(err)
      // Attempts was incremented by the claim; job carries the pre-claim
      // value. Flip the wish to failed only once no retry remains.
      if job.Attempts+1 >= workerMaxAttempts {
        es.markWishFailed(ctx, wish.ID)
      }
      return
    }
    meta := map[string]any{}
    if result.imageDescription != "" {
      meta["image_description"] = result.imageDescription
    }
    if result.aiAudioPath != "" {
      meta["ai_audio_path"] = result.aiAudioPath
    }
    complete(meta)

  case types.EnrichmentJobKindReply:
    modReply, err := es.enrichReply(ctx, wish, persona, heartbeat)
    if err != nil {
      fail(err)
      return
    }
    complete(map[string]any{"reply_id": modReply.ID})

  default:
    fail(fmt.Errorf("unknown job kind %q", job.Kind))
  }
}

// enrichWish runs the full wish pipeline: optional image description,
// context assembly, generation, optional voice synthesis, result write.
// On success the wish row is updated in place to completed. heartbeat
// fires between stages; nil means the caller is synchronous and holds no
// job row.
func (es *enrichmentService) enrichWish(ctx context.Context, wish *types.Wish, persona personas.Persona, heartbeat func()) (*wishEnrichment, error) {
  if heartbeat == nil {
    heartbeat = func() {}
  }

  imageDescription := es.describeImageIfPresent(ctx, wish)
  heartbeat()

  contextText := AssembleWishContext(wish, imageDescription)

  aiReply, err := es.ai.Generate(ctx, persona.SystemPrompt, contextText)
  if err != nil {
    return nil, fmt.Errorf("generate reply: %w", err)
  }
  heartbeat()

  // Audio in begets audio out. Synthesis failure degrades to text-only.
  var aiAudioURL, aiAudioPath string
  if wish.AudioURL != nil && *wish.AudioURL != "" {
    aiAudioURL, aiAudioPath = es.synthesizeReplyAudio(ctx, wish.ID, aiReply, persona)
    heartbeat()
  }

  updates := map[string]interface{}{
    "ai_reply":  aiReply,
    "ai_status": types.AIStatusCompleted,
  }
  if aiAudioURL != "" {
    updates["ai_audio_url"] = aiAudioURL
    updates["ai_audio_path"] = aiAudioPath
  }
  if err := es.wishRepo.UpdateFields(ctx, nil, wish.ID, updates); err != nil {
    return nil, fmt.Errorf("write enrichment result: %w", err)
  }

  es.notifier.Broadcast(ctx, sse.SSEMessage{
    Channel: sse.FeedChannel,
    Event:   sse.SSEEventWishEnriched,
    Data: map[string]any{
      "wish_id":      wish.ID,
      "ai_reply":     aiReply,
      "ai_status":    types.AIStatusCompleted,
      "ai_audio_url": aiAudioURL,
    },
  })

  return &wishEnrichment{
    aiReply:          aiReply,
    aiAudioURL:       aiAudioURL,
    aiAudioPath:      aiAudioPath,
    imageDescription: imageDescription,
  }, nil
}

// enrichReply produces a brand-new persona-authored reply row under the
// wish; the triggering reply row is never mutated.
func (es *enrichmentService) enrichReply(ctx context.Context, wish *types.Wish, persona personas.Persona, heartbeat func()) (*types.Reply, error) {
  if heartbeat == nil {
    heartbeat = func() {}
  }

  prior, err := es.replyRepo.GetByWishID(ctx, nil, wish.ID)
  if err != nil {
    return nil, fmt.Errorf("load reply thread: %w", err)
  }

  contextText := AssembleThreadContext(wish, prior)

  aiReply, err := es.ai.Generate(ctx, persona.SystemPrompt, contextText)
  if err != nil {
    return nil, fmt.Errorf("generate reply: %w", err)
  }
  heartbeat()

  modReply := &types.Reply{
    ID:            uuid.New(),
    WishID:        wish.ID,
    WalletAddress: persona.WalletHandle(),
    Username:      persona.DisplayName,
    Avatar:        persona.Emoji,
    ReplyText:     aiReply,
    IsMod:         true,
  }
  if _, err := es.replyRepo.Create(ctx, nil, []*types.Reply{modReply}); err != nil {
    return nil, fmt.Errorf("insert persona reply: %w", err)
  }

  es.notifier.Broadcast(ctx, sse.SSEMessage{
    Channel: sse.WishChannel(wish.ID),
    Event:   sse.SSEEventReplyCreated,
    Data:    map[string]any{"reply": modReply},
  })

  return modReply, nil
}

func (es *enrichmentService) describeImageIfPresent(ctx context.Context, wish *types.Wish) string {
  if wish.ImageURL == nil || *wish.ImageURL == "" {
    return ""
  }
  description, err := es.ai.DescribeImage(ctx, *wish.ImageURL)
  if err != nil {
    // Vision is an input enhancer, not a dependency; generate without it.
    es.log.Warn("Image description failed, continuing without it", "wishID", wish.ID, "error", err)
    return ""
  }
  return description
}

func (es *enrichmentService) synthesizeReplyAudio(ctx context.Context, wishID uuid.UUID, text string, persona personas.Persona) (string, string) {
  audio, err := es.voice.Synthesize(ctx, text, persona.VoiceID)
  if err != nil {
    es.log.Warn("Voice synthesis failed, completing text-only", "wishID", wishID, "persona", persona.ID, "error", err)
    return "", ""
  }
  key := fmt.Sprintf("%s/%s.mp3", BucketPrefixAIAudio, wishID)
  if err := es.bucket.UploadFile(ctx, key, "audio/mpeg", bytes.NewReader(audio)); err != nil {
    es.log.Warn("Failed to store synthesized audio, completing text-only", "wishID", wishID, "error", err)
    return "", ""
  }
  return es.bucket.GetPublicURL(key), key
}

// markWishFailed is the compensating write that stops the client from
// waiting forever. Errors here are logged and swallowed; it must never
// throw past the orchestrator boundary.
func (es *enrichmentService) markWishFailed(ctx context.Context, wishID uuid.UUID) {
  if err := es.wishRepo.UpdateFields(ctx, nil, wishID, map[string]interface{}{
    "ai_status": types.AIStatusFailed,
  }); err != nil {
    es.log.Error("Failed to mark wish enrichment failed", "wishID", wishID, "error", err)
    return
  }
  es.notifier.Broadcast(ctx, sse.SSEMessage{
    Channel: sse.FeedChannel,
    Event:   sse.SSEEventWishEnrichmentFailed,
    Data:    map[string]any{"wish_id": wishID, "ai_status": types.AIStatusFailed},
  })
}

// AssembleWishContext builds the generation context for a top-level wish:
// the wish text plus labelled notices for attached media.
func AssembleWishContext(wish *types.Wish, imageDescription string) string {
  var sb strings.Builder
  sb.WriteString(wish.Username)
  sb.WriteString(" wishes: ")
  sb.WriteString(strings.TrimSpace(wish.WishText))
  if imageDescription != "" {
    sb.WriteString("\n\n[Attached image] ")
    sb.WriteString(imageDescription)
  }
  if wish.AudioURL != nil && *wish.AudioURL != "" {
    sb.WriteString("\n\n[The wish above was spoken aloud; the text is its transcription.]")
  }
  return sb.String()
}

// AssembleThreadContext builds the generation context for a reply-triggered
// enrichment: the original wish plus every prior reply in chronological
// order, each prefixed by its author name.
func AssembleThreadContext(wish *types.Wish, replies []*types.Reply) string {
  var sb strings.Builder
  sb.WriteString("Original wish from ")
  sb.WriteString(wish.Username)
  sb.WriteString(": ")
  sb.WriteString(strings.TrimSpace(wish.WishText))
  for _, r := range replies {
    if r == nil {
      continue
    }
    sb.WriteString("\n")
    sb.WriteString(r.Username)
    sb.WriteString(": ")
    sb.WriteString(strings.TrimSpace(r.ReplyText))
  }
  return sb.String()
}
