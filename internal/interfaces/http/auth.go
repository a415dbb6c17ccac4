package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/invoice-desk/internal/application/service"
	"github.com/garyjia/invoice-desk/internal/domain/entity"
)

const callerKey = "caller"

// TokenGrant binds a bearer token to a user and role
type TokenGrant struct {
	Token    string
	UserName string
	Role     entity.Role
}

// Authenticator resolves bearer tokens to callers
type Authenticator struct {
	grants []TokenGrant
}

// NewAuthenticator creates an Authenticator. Empty tokens are ignored.
func NewAuthenticator(grants []TokenGrant) *Authenticator {
	kept := make([]TokenGrant, 0, len(grants))
	for _, g := range grants {
		if g.Token != "" {
			kept = append(kept, g)
		}
	}
	return &Authenticator{grants: kept}
}

// Lookup returns the caller for token
func (a *Authenticator) Lookup(token string) (service.Caller, bool) {
	for _, g := range a.grants {
		if subtle.ConstantTimeCompare([]byte(g.Token), []byte(token)) == 1 {
			return service.Caller{UserName: g.UserName, Role: g.Role}, true
		}
	}
	return service.Caller{}, false
}

// Middleware rejects requests without a known bearer token
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abort(c, http.StatusUnauthorized, "missing bearer token")
			return
		}
		caller, ok := a.Lookup(token)
		if !ok {
			abort(c, http.StatusUnauthorized, "invalid token")
			return
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func callerFrom(c *gin.Context) service.Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(service.Caller); ok {
			return caller
		}
	}
	return service.Caller{}
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, Response{Success: false, Error: msg})
}
