package api

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/safar/shop-api/internal/apperr"
	"github.com/safar/shop-api/internal/auth"
	"github.com/safar/shop-api/internal/models"
)

const (
	ctxLogger       = "logger"
	ctxClaims       = "claims"
	headerRequestID = "X-Request-ID"
)

// RequestLogger tags every request with a request id and logs it once the
// handler chain returns.
func RequestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(headerRequestID, requestID)

		entry := log.WithField("request_id", requestID)
		c.Set(ctxLogger, entry)

		c.Next()

		fields := logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}
		if claims, ok := claimsFrom(c); ok {
			fields["user_id"] = claims.UserID
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.WithFields(fields).Error("request")
		case status >= 400:
			entry.WithFields(fields).Warn("request")
		default:
			entry.WithFields(fields).Info("request")
		}
	}
}

// Authenticate requires a valid bearer token. Websocket clients that cannot
// set headers may pass it as the token query parameter.
func Authenticate(tokens *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		const op = "api.Authenticate"

		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			raw = c.Query("token")
		}
		if raw == "" {
			respondError(c, apperr.Unauthorized(op, "Authorization header is missing"))
			return
		}

		claims, err := tokens.Verify(raw)
		if err != nil {
			respondError(c, apperr.Unauthorized(op, "Invalid or expired token"))
			return
		}

		c.Set(ctxClaims, claims)
		c.Request = c.Request.WithContext(auth.NewContext(c.Request.Context(), claims))
		c.Next()
	}
}

// RequireRole admits callers whose role is required or admin.
func RequireRole(required models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := claimsFrom(c)
		if !ok {
			respondError(c, apperr.Unauthorized("api.RequireRole", "Authorization header is missing"))
			return
		}
		if !auth.Allows(claims.Role, required) {
			respondError(c, apperr.Forbidden("api.RequireRole", "You do not have permission to access this resource"))
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func claimsFrom(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(ctxClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}
