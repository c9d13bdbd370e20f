package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/edunexus/edunexus-api/internal/middleware"
	"github.com/edunexus/edunexus-api/internal/models"
	"github.com/edunexus/edunexus-api/internal/shard"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// shardFromContext returns the shard the Location middleware resolved,
// falling back to the caller's home shard from the token.
func shardFromContext(c *gin.Context) (shard.Key, error) {
	if key, ok := middleware.RequestShard(c); ok {
		return key, nil
	}
	if claims := claimsFromContext(c); claims != nil {
		return shard.Resolve(claims.Location)
	}
	return shard.Resolve("")
}

func paramInt64(c *gin.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}
