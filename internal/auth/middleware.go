package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"portal/internal/model"
)

// CookieName carries the session token for browser clients.
const CookieName = "portal_session"

const (
	identityKey = "identity"
	sessionKey  = "session_id"
)

// Resolver turns a session token into the identity it belongs to.
type Resolver interface {
	Resolve(ctx context.Context, token string) (model.Identity, string, error)
}

// TokenFromRequest reads a bearer token, falling back to the session cookie.
func TokenFromRequest(c *gin.Context) string {
	authz := c.GetHeader("Authorization")
	if len(authz) > len("bearer ") && strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	if cookie, err := c.Cookie(CookieName); err == nil {
		return cookie
	}
	return ""
}

// Guard admits requests whose session role is in roles. Page loads are
// redirected; API calls get 401/403 JSON naming the redirect target.
func Guard(resolver Resolver, roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var identity *model.Identity
		if token := TokenFromRequest(c); token != "" {
			id, sid, err := resolver.Resolve(c.Request.Context(), token)
			if err == nil {
				identity = &id
				c.Set(sessionKey, sid)
			}
		}

		ok, redirect := Decide(identity, roles)
		if !ok {
			deny(c, redirect)
			return
		}
		c.Set(identityKey, *identity)
		c.Next()
	}
}

func deny(c *gin.Context, redirect string) {
	if c.Request.Method == http.MethodGet && !wantsJSON(c) {
		c.Redirect(http.StatusFound, redirect)
		c.Abort()
		return
	}
	status := http.StatusForbidden
	msg := "role not allowed"
	if redirect == LoginPath {
		status = http.StatusUnauthorized
		msg = "login required"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "redirect": redirect})
}

func wantsJSON(c *gin.Context) bool {
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "application/json") || c.GetHeader("X-Requested-With") != ""
}

// CurrentIdentity returns the identity set by Guard.
func CurrentIdentity(c *gin.Context) (model.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return model.Identity{}, false
	}
	id, ok := v.(model.Identity)
	return id, ok
}

// SessionID returns the session id set by Guard.
func SessionID(c *gin.Context) string {
	return c.GetString(sessionKey)
}
