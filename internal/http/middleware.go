package http

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tazhibayda/edu-auth/internal/apperr"
	"github.com/tazhibayda/edu-auth/internal/domain"
	"github.com/tazhibayda/edu-auth/internal/metrics"
	"github.com/tazhibayda/edu-auth/internal/security"
)

const (
	authUserKey  = "auth_user"
	requestIDKey = "X-Request-ID"

	// cookie fallback for clients that cannot set the Authorization header
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
	SessionCookie = "session_id"
)

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDKey)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDKey, id)
		c.Next()
	}
}

func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.InFlight.Inc()
		start := time.Now()

		c.Next()

		metrics.InFlight.Dec()
		metrics.ReqDuration.WithLabelValues(route, c.Request.Method).
			Observe(time.Since(start).Seconds())
		metrics.RequestsTotal.WithLabelValues(route, c.Request.Method,
			strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// extractToken checks the Authorization header first, then the access cookie.
func extractToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if tok, err := c.Cookie(AccessCookie); err == nil {
		return tok
	}
	return ""
}

// Authenticate verifies the token, loads the account and attaches it to the
// request. Unknown users answer 401, not 404: account lifecycle must not leak
// through the guard.
func (h *Handler) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := extractToken(c)
		if raw == "" {
			h.fail(c, apperr.New(apperr.KindMissingToken, "Authentication token missing"))
			return
		}

		claims, err := security.ParseToken(h.JWTSecret, raw)
		if err != nil {
			h.fail(c, err)
			return
		}

		uid, err := primitive.ObjectIDFromHex(claims.UID)
		if err != nil {
			h.fail(c, apperr.Wrap(apperr.KindTokenInvalid, "Invalid token", err))
			return
		}

		u, err := h.loadUser(c.Request.Context(), uid)
		if err != nil {
			h.fail(c, apperr.Internal(err))
			return
		}
		if u == nil {
			h.fail(c, apperr.New(apperr.KindUserNotFound, "User not found"))
			return
		}
		if !u.IsActive {
			h.fail(c, apperr.New(apperr.KindAccountInactive, "User account is inactive"))
			return
		}

		c.Set(authUserKey, u)
		c.Next()
	}
}

// RequireRoles rejects authenticated users whose role is outside the allowed
// set. An empty set means no restriction.
func (h *Handler) RequireRoles(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(roles) == 0 {
			c.Next()
			return
		}
		u := CurrentUser(c)
		if u == nil {
			h.fail(c, apperr.New(apperr.KindMissingToken, "Authentication token missing"))
			return
		}
		for _, r := range roles {
			if u.Role == r {
				c.Next()
				return
			}
		}
		h.fail(c, apperr.New(apperr.KindForbidden, "Unauthorized access"))
	}
}

// CurrentUser returns the account attached by Authenticate, or nil.
func CurrentUser(c *gin.Context) *domain.User {
	if v, ok := c.Get(authUserKey); ok {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}

func reqID(c *gin.Context) string {
	if v, ok := c.Get(requestIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
