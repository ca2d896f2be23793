package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/menu-accounts/internal/core/domain"
)

const sessionContextKey = "session"

// SessionParser turns a cookie value into a descriptor, or nil when it cannot be trusted.
type SessionParser interface {
	Parse(value string) *domain.SessionDescriptor
}

// RequireSession rejects requests without a valid session cookie with 401 UNAUTHORIZED.
func RequireSession(parser SessionParser, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, err := c.Cookie(cookieName)
		if err != nil || value == "" {
			abortWith(c, http.StatusUnauthorized, domain.CodeUnauthorized)
			return
		}
		descriptor := parser.Parse(value)
		if descriptor == nil {
			abortWith(c, http.StatusUnauthorized, domain.CodeUnauthorized)
			return
		}
		c.Set(sessionContextKey, descriptor)
		c.Next()
	}
}

// RequireActive rejects sessions whose account has not completed activation.
func RequireActive() gin.HandlerFunc {
	return func(c *gin.Context) {
		descriptor, ok := SessionFromContext(c)
		if !ok {
			abortWith(c, http.StatusUnauthorized, domain.CodeUnauthorized)
			return
		}
		if !descriptor.IsActive() {
			abortWith(c, http.StatusForbidden, domain.CodeAccountNotActive)
			return
		}
		c.Next()
	}
}

// RequireTenant allows admins and the owner of the tenant named by the route parameter.
func RequireTenant(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		descriptor, ok := SessionFromContext(c)
		if !ok {
			abortWith(c, http.StatusUnauthorized, domain.CodeUnauthorized)
			return
		}
		if !descriptor.CanAccessTenant(c.Param(param)) {
			abortWith(c, http.StatusForbidden, domain.CodeForbidden)
			return
		}
		c.Next()
	}
}

// RequireRole rejects sessions whose role differs from role with 403 FORBIDDEN.
func RequireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		descriptor, ok := SessionFromContext(c)
		if !ok {
			abortWith(c, http.StatusUnauthorized, domain.CodeUnauthorized)
			return
		}
		if descriptor.Role != role {
			abortWith(c, http.StatusForbidden, domain.CodeForbidden)
			return
		}
		c.Next()
	}
}

// SessionFromContext returns the descriptor stored by RequireSession.
func SessionFromContext(c *gin.Context) (*domain.SessionDescriptor, bool) {
	value, exists := c.Get(sessionContextKey)
	if !exists {
		return nil, false
	}
	descriptor, ok := value.(*domain.SessionDescriptor)
	return descriptor, ok && descriptor != nil
}

func abortWith(c *gin.Context, status int, code domain.Code) {
	c.AbortWithStatusJSON(status, newErrorResponse(c, string(code)))
}
