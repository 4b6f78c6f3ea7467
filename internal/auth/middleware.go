package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// Identify attaches the claims of a valid bearer token to the request.
// Requests without a token, or with an invalid one, continue anonymously.
func Identify(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) > len("bearer ") && strings.EqualFold(authz[:len("bearer ")], "bearer ") {
			tokenStr := strings.TrimSpace(authz[len("bearer "):])
			if claims, err := Parse(tokenStr, signingKey, issuer); err == nil {
				c.Set(claimsKey, claims)
			}
		}
		c.Next()
	}
}

// Actor returns the claims Identify attached, if any.
func Actor(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}
