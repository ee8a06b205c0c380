package services

import (
  "context"
  "encoding/json"
  "errors"
  "io"
  "testing"
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"

  "github.com/wishcord/wishcord-backend/internal/logger"
  "github.com/wishcord/wishcord-backend/internal/sse"
  "github.com/wishcord/wishcord-backend/internal/types"
)

type fakeWishRepo struct {
  wishes      map[uuid.UUID]*types.Wish
  updates     []map[string]interface{}
  statusTrace []string
}

func newFakeWishRepo() *fakeWishRepo {
  return &fakeWishRepo{wishes: map[uuid.UUID]*types.Wish{}}
}

func (f *fakeWishRepo) Create(ctx context.Context, tx *gorm.DB, wishes []*types.Wish) ([]*types.Wish, error) {
  for _, w := range wishes {
    f.wishes[w.ID] = w
  }
  return wishes, nil
}

func (f *fakeWishRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Wish, error) {
  w, ok := f.wishes[id]
  if !ok {
    return nil, gorm.ErrRecordNotFound
  }
  return w, nil
}

func (f *fakeWishRepo) List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.Wish, error) {
  return nil, nil
}

func (f *fakeWishRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
  f.updates = append(f.updates, updates)
  w, ok := f.wishes[id]
  if !ok {
    return gorm.ErrRecordNotFound
  }
  if v, ok := updates["ai_status"].(string); ok {
    f.statusTrace = append(f.statusTrace, v)
    w.AIStatus = v
  }
  if v, ok := updates["ai_reply"].(string); ok {
    w.AIReply = &v
  }
  if v, ok := updates["ai_audio_url"].(string); ok {
    w.AIAudioURL = &v
  }
  return nil
}

type fakeReplyRepo struct {
  replies map[uuid.UUID][]*types.Reply
}

func newFakeReplyRepo() *fakeReplyRepo {
  return &fakeReplyRepo{replies: map[uuid.UUID][]*types.Reply{}}
}

func (f *fakeReplyRepo) Create(ctx context.Context, tx *gorm.DB, replies []*types.Reply) ([]*types.Reply, error) {
  for _, r := range replies {
    f.replies[r.WishID] = append(f.replies[r.WishID], r)
  }
  return replies, nil
}

func (f *fakeReplyRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Reply, error) {
  for _, rs := range f.replies {
    for _, r := range rs {
      if r.ID == id {
        return r, nil
      }
    }
  }
  return nil, gorm.ErrRecordNotFound
}

func (f *fakeReplyRepo) GetByWishID(ctx context.Context, tx *gorm.DB, wishID uuid.UUID) ([]*types.Reply, error) {
  return f.replies[wishID], nil
}

type fakeJobRepo struct {
  jobs       map[uuid.UUID]*types.EnrichmentJob
  updates    []map[string]interface{}
  heartbeats int
}

func newFakeJobRepo() *fakeJobRepo {
  return &fakeJobRepo{jobs: map[uuid.UUID]*types.EnrichmentJob{}}
}

func (f *fakeJobRepo) Create(ctx context.Context, tx *gorm.DB, jobs []*types.EnrichmentJob) ([]*types.EnrichmentJob, error) {
  for _, j := range jobs {
    f.jobs[j.ID] = j
  }
  return jobs, nil
}

func (f *fakeJobRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.EnrichmentJob, error) {
  j, ok := f.jobs[id]
  if !ok {
    return nil, gorm.ErrRecordNotFound
  }
  return j, nil
}

func (f *fakeJobRepo) GetLatestByWishID(ctx context.Context, tx *gorm.DB, wishID uuid.UUID) (*types.EnrichmentJob, error) {
  var latest *types.EnrichmentJob
  for _, j := range f.jobs {
    if j.WishID != wishID {
      continue
    }
    if latest == nil || j.CreatedAt.After(latest.CreatedAt) {
      latest = j
    }
  }
  return latest, nil
}

func (f *fakeJobRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*types.EnrichmentJob, error) {
  return nil, nil
}

func (f *fakeJobRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
  f.updates = append(f.updates, updates)
  if j, ok := f.jobs[id]; ok {
    if v, ok := updates["status"].(string); ok {
      j.Status = v
    }
    if v, ok := updates["error"].(string); ok {
      j.Error = v
    }
  }
  return nil
}

func (f *fakeJobRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
  f.heartbeats++
  return nil
}

func (f *fakeJobRepo) lastUpdate() map[string]interface{} {
  if len(f.updates) == 0 {
    return nil
  }
  return f.updates[len(f.updates)-1]
}

type fakeAIClient struct {
  reply       string
  replyErr    error
  description string
  describeErr error
}

func (f *fakeAIClient) Generate(ctx context.Context, system string, user string) (string, error) {
  if f.replyErr != nil {
    return "", f.replyErr
  }
  return f.reply, nil
}

func (f *fakeAIClient) DescribeImage(ctx context.Context, imageURL string) (string, error) {
  if f.describeErr != nil {
    return "", f.describeErr
  }
  return f.description, nil
}

type fakeVoiceClient struct {
  audio    []byte
  synthErr error
}

func (f *fakeVoiceClient) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
  return "", nil
}

func (f *fakeVoiceClient) Synthesize(ctx context.Context, text string, voiceID string) ([]byte, error) {
  if f.synthErr != nil {
    return nil, f.synthErr
  }
  return f.audio, nil
}

type fakeBucketService struct {
  keys []string
}

func (f *fakeBucketService) UploadFile(ctx context.Context, key string, contentType string, file io.Reader) error {
  f.keys = append(f.keys, key)
  return nil
}

func (f *fakeBucketService) DownloadFile(ctx context.Context, key string) (io.ReadCloser, error) {
  return nil, errors.New("not stored")
}

func (f *fakeBucketService) DeleteFile(ctx context.Context, key string) error { return nil }

func (f *fakeBucketService) GetPublicURL(key string) string { return "https://cdn.test/" + key }

type fakeNotifier struct {
  messages []sse.SSEMessage
}

func (f *fakeNotifier) Broadcast(ctx context.Context, msg sse.SSEMessage) {
  f.messages = append(f.messages, msg)
}

func (f *fakeNotifier) sawEvent(event sse.SSEEvent) bool {
  for _, m := range f.messages {
    if m.Event == event {
      return true
    }
  }
  return false
}

type pipelineFixture struct {
  service  *enrichmentService
  wishRepo *fakeWishRepo
  replies  *fakeReplyRepo
  jobs     *fakeJobRepo
  ai       *fakeAIClient
  voice    *fakeVoiceClient
  bucket   *fakeBucketService
  notifier *fakeNotifier
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
  t.Helper()
  log, err := logger.New("development")
  if err != nil {
    t.Fatalf("logger init: %v", err)
  }
  fx := &pipelineFixture{
    wishRepo: newFakeWishRepo(),
    replies:  newFakeReplyRepo(),
    jobs:     newFakeJobRepo(),
    ai:       &fakeAIClient{reply: "GRANTED. Enjoy the bike."},
    voice:    &fakeVoiceClient{audio: []byte("mp3-bytes")},
    bucket:   &fakeBucketService{},
    notifier: &fakeNotifier{},
  }
  svc := NewEnrichmentService(nil, log, fx.wishRepo, fx.replies, fx.jobs, fx.ai, fx.voice, fx.bucket, fx.notifier)
  fx.service = svc.(*enrichmentService)
  return fx
}

func (fx *pipelineFixture) addWish(w *types.Wish) *types.Wish {
  if w.ID == uuid.Nil {
    w.ID = uuid.New()
  }
  if w.Username == "" {
    w.Username = "rudolfan"
  }
  if w.WishText == "" {
    w.WishText = "I want a bike"
  }
  if w.Persona == "" {
    w.Persona = "santa"
  }
  fx.wishRepo.wishes[w.ID] = w
  return w
}

func (fx *pipelineFixture) addJob(j *types.EnrichmentJob) *types.EnrichmentJob {
  if j.ID == uuid.Nil {
    j.ID = uuid.New()
  }
  if j.Persona == "" {
    j.Persona = "santa"
  }
  j.Status = types.EnrichmentJobStatusRunning
  fx.jobs.jobs[j.ID] = j
  return j
}

func jobMetadata(t *testing.T, upd map[string]interface{}) map[string]any {
  t.Helper()
  raw, ok := upd["metadata"].(datatypes.JSON)
  if !ok {
    t.Fatalf("job update carries no metadata: %v", upd)
  }
  var meta map[string]any
  if err := json.Unmarshal(raw, &meta); err != nil {
    t.Fatalf("unmarshal job metadata: %v", err)
  }
  return meta
}

func TestProcessJobWishCompletes(t *testing.T) {
  fx := newPipelineFixture(t)
  wish := fx.addWish(&types.Wish{AIStatus: types.AIStatusPending})
  job := fx.addJob(&types.EnrichmentJob{Kind: types.EnrichmentJobKindWish, WishID: wish.ID})

  fx.service.processJob(context.Background(), job)

  if wish.AIStatus != types.AIStatusCompleted {
    t.Fatalf("wish ai_status = %q, want completed", wish.AIStatus)
  }
  if wish.AIReply == nil || *wish.AIReply == "" {
    t.Fatalf("completed wish must carry a non-empty ai_reply")
  }
  if fx.jobs.jobs[job.ID].Status != types.EnrichmentJobStatusCompleted {
    t.Fatalf("job status = %q, want completed", fx.jobs.jobs[job.ID].Status)
  }
  // No audio in, so never any audio out.
  for _, upd := range fx.wishRepo.updates {
    if _, ok := upd["ai_audio_url"]; ok {
      t.Fatalf("ai_audio_url written for a text-only wish: %v", upd)
    }
  }
  if !fx.notifier.sawEvent(sse.SSEEventWishEnriched) {
    t.Fatalf("WishEnriched was not broadcast")
  }
}

func TestProcessJobWishAudioInAudioOut(t *testing.T) {
  fx := newPipelineFixture(t)
  audioURL := "https://cdn.test/audio/in.webm"
  wish := fx.addWish(&types.Wish{AIStatus: types.AIStatusPending, AudioURL: &audioURL})
  job := fx.addJob(&types.EnrichmentJob{Kind: types.EnrichmentJobKindWish, WishID: wish.ID})

  fx.service.processJob(context.Background(), job)

  if wish.AIAudioURL == nil || *wish.AIAudioURL == "" {
    t.Fatalf("spoken wish completed without ai_audio_url")
  }
  if len(fx.bucket.keys) != 1 {
    t.Fatalf("synthesized audio uploads = %d, want 1", len(fx.bucket.keys))
  }
  meta := jobMetadata(t, fx.jobs.lastUpdate())
  if meta["ai_audio_path"] != fx.bucket.keys[0] {
    t.Fatalf("job metadata ai_audio_path = %v, want %q", meta["ai_audio_path"], fx.bucket.keys[0])
  }
}

func TestProcessJobSynthesisFailureCompletesTextOnly(t *testing.T) {
  fx := newPipelineFixture(t)
  fx.voice.synthErr = errors.New("tts down")
  audioURL := "https://cdn.test/audio/in.webm"
  wish := fx.addWish(&types.Wish{AIStatus: types.AIStatusPending, AudioURL: &audioURL})
  job := fx.addJob(&types.EnrichmentJob{Kind: types.EnrichmentJobKindWish, WishID: wish.ID})

  fx.service.processJob(context.Background(), job)

  if wish.AIStatus != types.AIStatusCompleted {
    t.Fatalf("wish ai_status = %q, want completed despite synthesis failure", wish.AIStatus)
  }
  if wish.AIAudioURL != nil {
    t.Fatalf("ai_audio_url set although synthesis failed")
  }
}

func TestProcessJobHeartbeatsBetweenStages(t *testing.T) {
  fx := newPipelineFixture(t)
  wish := fx.addWish(&types.Wish{AIStatus: types.AIStatusPending})
  job := fx.addJob(&types.EnrichmentJob{Kind: types.EnrichmentJobKindWish, WishID: wish.ID})

  fx.service.processJob(context.Background(), job)

  if fx.jobs.heartbeats < 2 {
    t.Fatalf("heartbeats during processing = %d, want at least 2", fx.jobs.heartbeats)
  }
}

func TestProcessJobFinalAttemptMarksWishFailed(t *testing.T) {
  fx := newPipelineFixture(t)
  fx.ai.replyErr = errors.New("model unavailable")

  t.Run("retries_remaining", func(t *testing.T) {
    wish := fx.addWish(&types.Wish{AIStatus: types.AIStatusPending})
    job := fx.addJob(&types.EnrichmentJob{Kind: types.EnrichmentJobKindWish, WishID: wish.ID, Attempts: 0})
    fx.service.processJob(context.Background(), job)
    if wish.AIStatus != types.AIStatusPending {
      t.Fatalf("wish flipped to %q with retries remaining", wish.AIStatus)
    }
  })

  t.Run("final_attempt", func(t *testing.T) {
    wish := fx.addWish(&types.Wish{AIStatus: types.AIStatusPending})
    job := fx.addJob(&types.EnrichmentJob{Kind: types.EnrichmentJobKindWish, WishID: wish.ID, Attempts: workerMaxAttempts - 1})
    fx.service.processJob(context.Background(), job)
    if wish.AIStatus != types.AIStatusFailed {
      t.Fatalf("wish ai_status = %q, want failed after final attempt", wish.AIStatus)
    }
    if !fx.notifier.sawEvent(sse.SSEEventWishEnrichmentFailed) {
      t.Fatalf("WishEnrichmentFailed was not broadcast")
    }
  })
}

func TestProcessJobReplyInsertsPersonaRow(t *testing.T) {
  fx := newPipelineFixture(t)
  wish := fx.addWish(&types.Wish{})
  trigger := &types.Reply{ID: uuid.New(), WishID: wish.ID, Username: "frostfan", ReplyText: "@SantaMod69 what about me"}
  fx.replies.replies[wish.ID] = []*types.Reply{trigger}
  triggerID := trigger.ID
  job := fx.addJob(&types.EnrichmentJob{Kind: types.EnrichmentJobKindReply, WishID: wish.ID, ReplyID: &triggerID})

  fx.service.processJob(context.Background(), job)

  thread := fx.replies.replies[wish.ID]
  if len(thread) != 2 {
    t.Fatalf("thread length = %d, want 2 (trigger + persona row)", len(thread))
  }
  modReply := thread[1]
  if !modReply.IsMod {
    t.Fatalf("persona reply not flagged is_mod")
  }
  if modReply.WalletAddress != "santamod69" {
    t.Fatalf("persona reply wallet = %q, want santamod69", modReply.WalletAddress)
  }
  if trigger.ReplyText != "@SantaMod69 what about me" {
    t.Fatalf("triggering reply was mutated")
  }
  meta := jobMetadata(t, fx.jobs.lastUpdate())
  if meta["reply_id"] != modReply.ID.String() {
    t.Fatalf("job metadata reply_id = %v, want %s", meta["reply_id"], modReply.ID)
  }
}

func TestRunNowUnaddressedWishPassesThroughPending(t *testing.T) {
  fx := newPipelineFixture(t)
  wish := fx.addWish(&types.Wish{}) // ai_status empty: never addressed

  result, err := fx.service.RunNow(context.Background(), wish.ID)
  if err != nil {
    t.Fatalf("RunNow: %v", err)
  }
  if result.AIReply == "" {
    t.Fatalf("RunNow returned empty reply")
  }

  want := []string{types.AIStatusPending, types.AIStatusCompleted}
  if len(fx.wishRepo.statusTrace) != len(want) {
    t.Fatalf("status trace = %v, want %v", fx.wishRepo.statusTrace, want)
  }
  for i := range want {
    if fx.wishRepo.statusTrace[i] != want[i] {
      t.Fatalf("status trace = %v, want %v", fx.wishRepo.statusTrace, want)
    }
  }
}

func TestRunNowFailureEndsFailed(t *testing.T) {
  fx := newPipelineFixture(t)
  fx.ai.replyErr = errors.New("model unavailable")
  wish := fx.addWish(&types.Wish{})

  if _, err := fx.service.RunNow(context.Background(), wish.ID); err == nil {
    t.Fatalf("RunNow succeeded with a failing generator")
  }
  if wish.AIStatus != types.AIStatusFailed {
    t.Fatalf("wish ai_status = %q, want failed", wish.AIStatus)
  }
  want := []string{types.AIStatusPending, types.AIStatusFailed}
  for i := range want {
    if i >= len(fx.wishRepo.statusTrace) || fx.wishRepo.statusTrace[i] != want[i] {
      t.Fatalf("status trace = %v, want %v", fx.wishRepo.statusTrace, want)
    }
  }
}

func TestGetStatusSurfacesLatestJobError(t *testing.T) {
  fx := newPipelineFixture(t)
  wish := fx.addWish(&types.Wish{AIStatus: types.AIStatusFailed})
  jobID := uuid.New()
  fx.jobs.jobs[jobID] = &types.EnrichmentJob{
    ID:     jobID,
    Kind:   types.EnrichmentJobKindWish,
    WishID: wish.ID,
    Status: types.EnrichmentJobStatusFailed,
    Error:  "generate reply: model unavailable",
  }

  log, err := logger.New("development")
  if err != nil {
    t.Fatalf("logger init: %v", err)
  }
  ws := NewWishService(nil, log, fx.wishRepo, fx.jobs, fx.service, fx.notifier)

  status, err := ws.GetStatus(context.Background(), wish.ID)
  if err != nil {
    t.Fatalf("GetStatus: %v", err)
  }
  if status.AIStatus != types.AIStatusFailed {
    t.Fatalf("ai_status = %q, want failed", status.AIStatus)
  }
  if status.AIError != "generate reply: model unavailable" {
    t.Fatalf("ai_error = %q, want the job's error", status.AIError)
  }
}
