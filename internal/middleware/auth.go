package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"clipcast/api/internal/gate"
)

const principalKey = "principal"

// Gate runs the full access pipeline for a route group: bearer token
// → principal lookup → status → the given checks, in order. Keeping
// the whole pipeline in one middleware makes the ordering explicit
// instead of an artifact of registration order.
func Gate(g *gate.Gate, checks ...gate.Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, gerr := g.Admit(c.Request.Context(), bearerToken(c), checks...)
		if gerr != nil {
			abortWithGateError(c, gerr)
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// CurrentPrincipal returns the admitted principal set by Gate.
func CurrentPrincipal(c *gin.Context) (gate.Principal, bool) {
	val, exists := c.Get(principalKey)
	if !exists {
		return gate.Principal{}, false
	}
	principal, ok := val.(gate.Principal)
	return principal, ok
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

func abortWithGateError(c *gin.Context, gerr *gate.Error) {
	body := gin.H{
		"error":   string(gerr.Kind),
		"message": gerr.Message,
	}
	if gerr.Kind == gate.KindAccountRestricted {
		body["status"] = string(gerr.Status)
		body["reason"] = gerr.Reason
		if gerr.Expiry != nil {
			body["expiry"] = gerr.Expiry.UTC().Format(time.RFC3339)
		}
	}
	if gerr.Until != nil {
		body["until"] = gerr.Until.UTC().Format(time.RFC3339)
	}
	c.AbortWithStatusJSON(gerr.HTTPStatus(), body)
}
