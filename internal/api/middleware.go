package api

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/inkwell/blogmind/internal/auth"
	"github.com/inkwell/blogmind/internal/errs"
)

// Headers set by the upstream gateway and the generation worker
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserName = "X-User-Name"
	HeaderUserRole = "X-User-Role"
	HeaderAgentKey = "X-Agent-Key"
)

// PrincipalMiddleware attaches the caller identity asserted by the gateway
// to the request context. Requests without a user id stay anonymous.
func PrincipalMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if id != "" {
			p := &auth.Principal{
				ID:       id,
				Username: strings.TrimSpace(c.GetHeader(HeaderUserName)),
				Role:     strings.TrimSpace(c.GetHeader(HeaderUserRole)),
			}
			c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), p))
		}
		c.Next()
	}
}

func requireUser(c *gin.Context) (*auth.Principal, error) {
	p := auth.FromContext(c.Request.Context())
	if p == nil {
		return nil, errs.New(errs.KindUnauthorized, "Not authorized, no token")
	}
	return p, nil
}

func requireAdmin(c *gin.Context) (*auth.Principal, error) {
	p, err := requireUser(c)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() {
		return nil, errs.New(errs.KindForbidden, "Not authorized as an admin")
	}
	return p, nil
}

func requireAgent(c *gin.Context, secret string) error {
	if !auth.SecretMatches(secret, c.GetHeader(HeaderAgentKey)) {
		return errs.New(errs.KindUnauthorized, "Unauthorized Agent Access")
	}
	return nil
}
