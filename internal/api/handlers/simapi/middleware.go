package simapi

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/llmsimlab/simcore/internal/config"
	"github.com/llmsimlab/simcore/internal/simerrors"
)

// AuthMiddleware enforces bearer-key presence when RequireAPIKey is set,
// checking the key against the configured allow-list. When disabled it
// is a no-op, letting every request through under the "anonymous:<ip>"
// rate-limit identity.
func AuthMiddleware(cfg *config.AuthConfig) gin.HandlerFunc {
	allowed := make(map[string]bool, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		allowed[k] = true
	}

	return func(c *gin.Context) {
		if !cfg.RequireAPIKey {
			c.Next()
			return
		}

		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			writeSimError(c, simerrors.New(simerrors.KindAuthentication, "missing API key"))
			c.Abort()
			return
		}
		key := strings.TrimPrefix(auth, "Bearer ")
		if len(allowed) > 0 && !allowed[key] {
			writeSimError(c, simerrors.New(simerrors.KindAuthentication, "invalid API key"))
			c.Abort()
			return
		}
		c.Next()
	}
}
