package middleware

import (
	"net/http"
	"strings"

	userRepo "mentra/database/repository/user"
	"mentra/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// AuthMiddleware authenticates requests with a Bearer token carrying sub and
// role claims. Verified token hashes are cached in redis so repeat requests
// skip the user lookup; a cache outage degrades to the database, never to a
// rejection.
func AuthMiddleware(users userRepo.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		userID, role, err := utils.ExtractIdentityFromToken(tokenString)
		if err != nil || userID == "" || role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		computedHash := utils.HashToken(tokenString)
		cacheKey := utils.AuthCachePrefix + userID
		ctx := c.Request.Context()

		authCache := utils.GetAuthCacheClient()
		if authCache != nil {
			cachedHash, err := authCache.Get(ctx, cacheKey).Result()
			switch {
			case err == nil && cachedHash == computedHash:
				_ = authCache.Expire(ctx, cacheKey, utils.AuthCacheTTL).Err()
				c.Set("userID", userID)
				c.Set("role", role)
				c.Next()
				return
			case err != nil && err != redis.Nil:
				utils.GetLogger().Warn("auth cache unavailable, falling back to database",
					zap.Error(err))
			}
		}

		// Cache miss or a different token for the same subject: the subject
		// must still exist and hold the claimed role.
		usr, err := users.GetByIDWithProjection(userID, bson.M{"id": 1, "role": 1})
		if err != nil || usr == nil || usr.Role != role {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
			return
		}

		if authCache != nil {
			_ = authCache.Set(ctx, cacheKey, computedHash, utils.AuthCacheTTL).Err()
		}

		c.Set("userID", userID)
		c.Set("role", role)
		c.Next()
	}
}
