package handlers

import (
  "bytes"
  "context"
  "encoding/json"
  "net/http"
  "net/http/httptest"
  "testing"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/wishcord/wishcord-backend/internal/logger"
  "github.com/wishcord/wishcord-backend/internal/services"
  "github.com/wishcord/wishcord-backend/internal/types"
)

type stubWishService struct {
  created *services.CreateWishInput
}

func (s *stubWishService) Create(ctx context.Context, input services.CreateWishInput) (*types.Wish, error) {
  s.created = &input
  return &types.Wish{ID: uuid.New(), WishText: input.WishText}, nil
}

func (s *stubWishService) GetByID(ctx context.Context, id uuid.UUID) (*types.Wish, error) {
  return nil, gorm.ErrRecordNotFound
}

func (s *stubWishService) GetStatus(ctx context.Context, id uuid.UUID) (*services.WishStatus, error) {
  return nil, gorm.ErrRecordNotFound
}

func (s *stubWishService) List(ctx context.Context, limit, offset int) ([]*types.Wish, error) {
  return nil, nil
}

type stubEnrichmentService struct{}

func (s *stubEnrichmentService) EnqueueWish(ctx context.Context, tx *gorm.DB, wish *types.Wish) (*types.EnrichmentJob, error) {
  return &types.EnrichmentJob{}, nil
}

func (s *stubEnrichmentService) EnqueueReply(ctx context.Context, tx *gorm.DB, reply *types.Reply, personaID string) (*types.EnrichmentJob, error) {
  return &types.EnrichmentJob{}, nil
}

func (s *stubEnrichmentService) RunNow(ctx context.Context, wishID uuid.UUID) (*services.EnrichmentResult, error) {
  return nil, gorm.ErrRecordNotFound
}

func (s *stubEnrichmentService) StartWorker(ctx context.Context) {}

func newWishTestRouter(t *testing.T, ws services.WishService) *gin.Engine {
  t.Helper()
  gin.SetMode(gin.TestMode)
  log, err := logger.New("development")
  if err != nil {
    t.Fatalf("logger init: %v", err)
  }
  h := NewWishHandler(log, ws, &stubEnrichmentService{})
  r := gin.New()
  r.POST("/api/wish", h.CreateWish)
  r.POST("/api/wish/generate", h.GenerateWish)
  r.GET("/wishes/:id", h.GetWish)
  return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
  t.Helper()
  raw, err := json.Marshal(body)
  if err != nil {
    t.Fatalf("marshal body: %v", err)
  }
  req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
  req.Header.Set("Content-Type", "application/json")
  w := httptest.NewRecorder()
  r.ServeHTTP(w, req)
  return w
}

func TestCreateWishValidation(t *testing.T) {
  cases := []struct {
    name string
    body map[string]string
  }{
    {"missing wishText", map[string]string{"persona": "santa"}},
    {"missing persona", map[string]string{"wishText": "i want a pony"}},
    {"unknown persona", map[string]string{"wishText": "i want a pony", "persona": "easterbunny"}},
  }
  for _, tc := range cases {
    t.Run(tc.name, func(t *testing.T) {
      ws := &stubWishService{}
      r := newWishTestRouter(t, ws)
      w := postJSON(t, r, "/api/wish", tc.body)
      if w.Code != http.StatusBadRequest {
        t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
      }
      if ws.created != nil {
        t.Fatalf("service called on invalid request")
      }
      var resp map[string]any
      if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
        t.Fatalf("unmarshal response: %v", err)
      }
      if resp["success"] != false {
        t.Fatalf("success = %v, want false", resp["success"])
      }
    })
  }
}

func TestCreateWishReturns201(t *testing.T) {
  ws := &stubWishService{}
  r := newWishTestRouter(t, ws)
  w := postJSON(t, r, "/api/wish", map[string]string{
    "wishText":      "dear santa i want a bike",
    "persona":       "santa",
    "walletAddress": "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgHkq",
  })
  if w.Code != http.StatusCreated {
    t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
  }
  if ws.created == nil {
    t.Fatalf("service not called")
  }
  if ws.created.Persona != "santa" {
    t.Fatalf("persona = %q, want santa", ws.created.Persona)
  }
}

func TestGenerateWishUnknownWishReturns404(t *testing.T) {
  r := newWishTestRouter(t, &stubWishService{})
  w := postJSON(t, r, "/api/wish/generate", map[string]string{"wishId": uuid.New().String()})
  if w.Code != http.StatusNotFound {
    t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
  }
}

func TestGetWishBadIDReturns400(t *testing.T) {
  r := newWishTestRouter(t, &stubWishService{})
  req := httptest.NewRequest(http.MethodGet, "/wishes/not-a-uuid", nil)
  w := httptest.NewRecorder()
  r.ServeHTTP(w, req)
  if w.Code != http.StatusBadRequest {
    t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
  }
}
