package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"Synapse/backend/go/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

// AuthMiddleware 验证 JWT，并把 sub claim 作为 userID 写入上下文。
// sub 既可以是字符串也可以是数字。
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing authorization header"})
			return
		}

		// 期望的格式是 "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Malformed authorization header"})
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		userID := subject(claims["sub"])
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}

func subject(v interface{}) string {
	switch sub := v.(type) {
	case string:
		return strings.TrimSpace(sub)
	case float64: // JWT 解析数字时默认为 float64
		return strconv.FormatInt(int64(sub), 10)
	default:
		return ""
	}
}

// UserRateLimit 按用户限流。必须放在 AuthMiddleware 之后。
func UserRateLimit(limiter *ratelimiter.KeyedLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.AllowKey(c.GetString("userID")) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
