package server

import (
	"bytes"
	"carbid/utils"
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

// RequestLoggerMiddleware logs incoming requests with timing
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next() // process request

	utils.Info("HTTP Request", map[string]any{
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
		"status":  c.Writer.Status(),
		"latency": time.Since(start).String(),
	})
}

// IdentityMiddleware resolves the caller's user id and stores it in the
// context under "user_id". With a JWT secret configured it validates a
// Bearer token (HS256) and reads the sub/user_id claim; without one it
// trusts the X-User-ID header, which is how an upstream auth proxy hands
// the identity over in dev setups. Requests with no resolvable identity
// are rejected, so this belongs on mutating routes only.
func IdentityMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtSecret == "" {
			userID := c.GetHeader("X-User-ID")
			if userID == "" {
				abortUnauthorized(c, "missing user identity")
				return
			}
			c.Set("user_id", userID)
			c.Next()
			return
		}

		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		raw := strings.TrimPrefix(auth, "Bearer ")

		tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(jwtSecret), nil
		})
		if err != nil || !tok.Valid {
			abortUnauthorized(c, "invalid token")
			return
		}

		userID := ""
		if claims, ok := tok.Claims.(jwt.MapClaims); ok {
			if v, ok := claims["sub"].(string); ok && v != "" {
				userID = v
			} else if v, ok := claims["user_id"].(string); ok && v != "" {
				userID = v
			}
		}
		if userID == "" {
			abortUnauthorized(c, "token carries no user identity")
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	utils.JSONError(c, http.StatusUnauthorized, fmt.Errorf("unauthorized: %s", message), message)
	c.Abort()
}

// cacheWriter duplicates the response body while forwarding it to the
// client so a successful response can be stored afterwards.
type cacheWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *cacheWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// CacheMiddleware serves GET responses from redis for the given TTL. With
// no redis client it is a pass-through, so the list endpoints work the
// same with or without a cache in front of them.
func CacheMiddleware(client *redis.Client, ttl time.Duration) gin.HandlerFunc {
	if client == nil || ttl <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := cacheKey(c)
		ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
		body, err := client.Get(ctx, key).Bytes()
		cancel()
		if err == nil {
			c.Data(http.StatusOK, "application/json; charset=utf-8", body)
			c.Abort()
			return
		}

		w := &cacheWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		if w.Status() == http.StatusOK && w.buf.Len() > 0 {
			ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer cancel()
			if err := client.Set(ctx, key, w.buf.Bytes(), ttl).Err(); err != nil {
				utils.Warn("cache: failed to store response", map[string]any{"key": key, "error": err.Error()})
			}
		}
	}
}

func cacheKey(c *gin.Context) string {
	sum := sha1.Sum([]byte(c.FullPath() + "?" + c.Request.URL.RawQuery))
	return fmt.Sprintf("carbid:cache:%x", sum)
}
