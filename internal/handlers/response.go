package handlers

import (
  "net/http"
  "strconv"
  "github.com/gin-gonic/gin"
)

// API envelope: {success: true, ...} on the happy path,
// {success: false, error} otherwise.

func RespondError(c *gin.Context, status int, err error) {
  msg := "unknown error"
  if err != nil {
    msg = err.Error()
  }
  c.JSON(status, gin.H{"success": false, "error": msg})
}

func RespondOK(c *gin.Context, payload gin.H) {
  body := gin.H{"success": true}
  for k, v := range payload {
    body[k] = v
  }
  c.JSON(http.StatusOK, body)
}

func RespondCreated(c *gin.Context, payload gin.H) {
  body := gin.H{"success": true}
  for k, v := range payload {
    body[k] = v
  }
  c.JSON(http.StatusCreated, body)
}

func intQuery(c *gin.Context, key string, defaultVal int) int {
  raw := c.Query(key)
  if raw == "" {
    return defaultVal
  }
  v, err := strconv.Atoi(raw)
  if err != nil {
    return defaultVal
  }
  return v
}
