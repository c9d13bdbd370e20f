package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/edunexus/edunexus-api/internal/shard"
	"github.com/edunexus/edunexus-api/pkg/response"
)

// ContextShardKey is the gin context key storing the resolved shard.
const ContextShardKey = "requestShard"

// Location resolves the region a request targets. It prefers the
// X-Location header, then a location query parameter, then the caller's
// token; requests with none of the three are rejected.
func Location() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-Location")
		if raw == "" {
			raw = c.Query("location")
		}
		if raw == "" {
			if claims, ok := CurrentUser(c); ok {
				raw = claims.Location
			}
		}
		key, err := shard.Resolve(raw)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Set(ContextShardKey, key)
		c.Next()
	}
}

// RequestShard returns the shard resolved for the current request.
func RequestShard(c *gin.Context) (shard.Key, bool) {
	value, exists := c.Get(ContextShardKey)
	if !exists {
		return "", false
	}
	key, ok := value.(shard.Key)
	return key, ok
}
