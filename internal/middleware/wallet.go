package middleware

import (
  "strings"

  "github.com/gin-gonic/gin"

  "github.com/wishcord/wishcord-backend/internal/logger"
)

const walletContextKey = "wallet_address"

// Solana addresses are base58, 32-44 characters. Identity here is
// self-asserted (the wallet extension signs client-side); the header is a
// hint, not an authentication.
const (
  walletMinLen = 32
  walletMaxLen = 44
)

type WalletMiddleware struct {
  log *logger.Logger
}

func NewWalletMiddleware(log *logger.Logger) *WalletMiddleware {
  return &WalletMiddleware{log: log.With("middleware", "WalletMiddleware")}
}

// Identify extracts X-Wallet-Address into the request context when it looks
// like a plausible address. Synthetic anon_ placeholders pass through too.
func (m *WalletMiddleware) Identify() gin.HandlerFunc {
  return func(c *gin.Context) {
    addr := strings.TrimSpace(c.GetHeader("X-Wallet-Address"))
    if addr != "" && plausibleWallet(addr) {
      c.Set(walletContextKey, addr)
    }
    c.Next()
  }
}

func plausibleWallet(addr string) bool {
  if strings.HasPrefix(addr, "anon_") {
    return true
  }
  if len(addr) < walletMinLen || len(addr) > walletMaxLen {
    return false
  }
  for _, r := range addr {
    switch {
    case r >= '1' && r <= '9':
    case r >= 'A' && r <= 'H':
    case r >= 'J' && r <= 'N':
    case r >= 'P' && r <= 'Z':
    case r >= 'a' && r <= 'k':
    case r >= 'm' && r <= 'z':
    default:
      return false
    }
  }
  return true
}

// WalletFromContext returns the identified wallet address, or "".
func WalletFromContext(c *gin.Context) string {
  if v, ok := c.Get(walletContextKey); ok {
    if s, ok := v.(string); ok {
      return s
    }
  }
  return ""
}
