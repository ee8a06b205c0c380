package services

import (
  "bytes"
  "context"
  "encoding/json"
  "errors"
  "fmt"
  "io"
  "math/rand"
  "net"
  "net/http"
  "os"
  "strconv"
  "strings"
  "time"

  "github.com/wishcord/wishcord-backend/internal/logger"
  "github.com/wishcord/wishcord-backend/internal/utils"
)

// AIClient is the text/vision generation boundary. Generate produces a
// persona reply from a system prompt and assembled context; DescribeImage is
// the persona-agnostic vision pass over an attached image.
type AIClient interface {
  Generate(ctx context.Context, system string, user string) (string, error)
  DescribeImage(ctx context.Context, imageURL string) (string, error)
}

type aiClient struct {
  log        *logger.Logger
  baseURL    string
  apiKey     string
  model      string
  maxTokens  int
  httpClient *http.Client

  maxRetries int
}

func NewAIClient(log *logger.Logger) (AIClient, error) {
  apiKey := os.Getenv("ANTHROPIC_API_KEY")
  if apiKey == "" {
    return nil, fmt.Errorf("missing ANTHROPIC_API_KEY")
  }

  baseURL := utils.GetEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com", log)
  model := utils.GetEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514", log)

  maxTokens := utils.GetEnvAsInt("ANTHROPIC_MAX_TOKENS", 512, log)
  if maxTokens <= 0 {
    maxTokens = 512
  }
  timeoutSec := utils.GetEnvAsInt("ANTHROPIC_TIMEOUT_SECONDS", 60, log)
  if timeoutSec <= 0 {
    timeoutSec = 60
  }
  maxRetries := utils.GetEnvAsInt("ANTHROPIC_MAX_RETRIES", 3, log)
  if maxRetries < 0 {
    maxRetries = 3
  }

  return &aiClient{
    log:        log.With("service", "AIClient"),
    baseURL:    baseURL,
    apiKey:     apiKey,
    model:      model,
    maxTokens:  maxTokens,
    httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
    maxRetries: maxRetries,
  }, nil
}

type aiHTTPError struct {
  StatusCode int
  Body       string
}

func (e *aiHTTPError) Error() string {
  return fmt.Sprintf("anthropic http %d: %s", e.StatusCode, e.Body)
}

func isRetryableHTTP(code int) bool {
  if code == 408 || code == 429 {
    return true
  }
  if code >= 500 && code <= 599 {
    return true
  }
  return false
}

func isRetryableErr(err error) bool {
  if err == nil {
    return false
  }
  if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
    return true
  }
  var netErr net.Error
  if errors.As(err, &netErr) {
    if netErr.Timeout() {
      return true
    }
  }
  var httpErr *aiHTTPError
  if errors.As(err, &httpErr) {
    return isRetryableHTTP(httpErr.StatusCode)
  }
  return false
}

func jitterSleep(base time.Duration) time.Duration {
  // +/- 20%
  if base <= 0 {
    return 0
  }
  j := 0.2
  delta := base.Seconds() * j
  low := base.Seconds() - delta
  high := base.Seconds() + delta
  if low < 0 {
    low = 0
  }
  v := low + rand.Float64()*(high-low)
  return time.Duration(v * float64(time.Second))
}

func (c *aiClient) doOnce(ctx context.Context, path string, body any) (*http.Response, []byte, error) {
  var buf bytes.Buffer
  if body != nil {
    if err := json.NewEncoder(&buf).Encode(body); err != nil {
      return nil, nil, err
    }
  }

  req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
  if err != nil {
    return nil, nil, err
  }
  req.Header.Set("x-api-key", c.apiKey)
  req.Header.Set("anthropic-version", "2023-06-01")
  req.Header.Set("Content-Type", "application/json")

  resp, err := c.httpClient.Do(req)
  if err != nil {
    return nil, nil, err
  }
  raw, readErr := io.ReadAll(resp.Body)
  _ = resp.Body.Close()
  if readErr != nil {
    return resp, nil, readErr
  }

  if resp.StatusCode < 200 || resp.StatusCode >= 300 {
    return resp, raw, &aiHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
  }
  return resp, raw, nil
}

func (c *aiClient) do(ctx context.Context, path string, body any, out any) error {
  backoff := 1 * time.Second

  for attempt := 0; attempt <= c.maxRetries; attempt++ {
    if ctx.Err() != nil {
      return ctx.Err()
    }

    resp, raw, err := c.doOnce(ctx, path, body)
    if err == nil {
      if out == nil {
        return nil
      }
      if uErr := json.Unmarshal(raw, out); uErr != nil {
        return fmt.Errorf("anthropic decode error: %w; raw=%s", uErr, string(raw))
      }
      return nil
    }

    if !isRetryableErr(err) {
      return err
    }
    if attempt == c.maxRetries {
      return err
    }

    sleepFor := backoff
    if resp != nil {
      ra := strings.TrimSpace(resp.Header.Get("Retry-After"))
      if ra != "" {
        if secs, parseErr := strconv.Atoi(ra); parseErr == nil && secs > 0 {
          sleepFor = time.Duration(secs) * time.Second
        }
      }
    }
    if sleepFor > 10*time.Second {
      sleepFor = 10 * time.Second
    }
    sleepFor = jitterSleep(sleepFor)

    c.log.Warn("Anthropic request retrying",
      "path", path,
      "attempt", attempt+1,
      "max_retries", c.maxRetries,
      "sleep", sleepFor.String(),
      "error", err.Error(),
    )

    time.Sleep(sleepFor)
    backoff *= 2
  }

  return fmt.Errorf("unreachable retry loop")
}

// ---- Messages ----

type messageContent struct {
  Type   string          `json:"type"`
  Text   string          `json:"text,omitempty"`
  Source *messageContentSource `json:"source,omitempty"`
}

type messageContentSource struct {
  Type string `json:"type"`
  URL  string `json:"url,omitempty"`
}

type messageParam struct {
  Role    string           `json:"role"`
  Content []messageContent `json:"content"`
}

type messagesRequest struct {
  Model     string         `json:"model"`
  MaxTokens int            `json:"max_tokens"`
  System    string         `json:"system,omitempty"`
  Messages  []messageParam `json:"messages"`
}

type messagesResponse struct {
  Content []struct {
    Type string `json:"type"`
    Text string `json:"text,omitempty"`
  } `json:"content"`
  StopReason string `json:"stop_reason,omitempty"`
}

func (r *messagesResponse) text() string {
  var sb strings.Builder
  for _, c := range r.Content {
    if c.Type == "text" {
      sb.WriteString(c.Text)
    }
  }
  return strings.TrimSpace(sb.String())
}

func (c *aiClient) Generate(ctx context.Context, system string, user string) (string, error) {
  if strings.TrimSpace(user) == "" {
    return "", fmt.Errorf("empty user content")
  }
  req := messagesRequest{
    Model:     c.model,
    MaxTokens: c.maxTokens,
    System:    system,
    Messages: []messageParam{
      {
        Role:    "user",
        Content: []messageContent{{Type: "text", Text: user}},
      },
    },
  }
  var resp messagesResponse
  if err := c.do(ctx, "/v1/messages", req, &resp); err != nil {
    return "", err
  }
  text := resp.text()
  if text == "" {
    return "", fmt.Errorf("anthropic returned no text content")
  }
  return text, nil
}

func (c *aiClient) DescribeImage(ctx context.Context, imageURL string) (string, error) {
  imageURL = strings.TrimSpace(imageURL)
  if imageURL == "" {
    return "", fmt.Errorf("empty image url")
  }
  req := messagesRequest{
    Model:     c.model,
    MaxTokens: c.maxTokens,
    System:    "Describe the attached image in two or three sentences for someone who cannot see it. Mention any text in the image.",
    Messages: []messageParam{
      {
        Role: "user",
        Content: []messageContent{
          {Type: "image", Source: &messageContentSource{Type: "url", URL: imageURL}},
          {Type: "text", Text: "Describe this image."},
        },
      },
    },
  }
  var resp messagesResponse
  if err := c.do(ctx, "/v1/messages", req, &resp); err != nil {
    return "", err
  }
  text := resp.text()
  if text == "" {
    return "", fmt.Errorf("anthropic returned no text content")
  }
  return text, nil
}
