package handlers

import (
  "github.com/gin-gonic/gin"

  "github.com/wishcord/wishcord-backend/internal/personas"
)

// GET /api/personas
// Public registry listing; prompts and voice ids stay server-side.
func ListPersonas(c *gin.Context) {
  RespondOK(c, gin.H{"personas": personas.All()})
}
