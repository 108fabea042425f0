package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/faultkit/convert"
	apperrors "github.com/kbukum/faultkit/errors"
)

// ClaimsKey is the gin context key validated claims are stored under.
const ClaimsKey = "claims"

// AuthConfig configures the JWT authentication middleware.
type AuthConfig struct {
	// KeyFunc supplies the verification key for a parsed token.
	KeyFunc jwt.Keyfunc
	// ParserOptions are passed to the parser, e.g. jwt.WithValidMethods.
	ParserOptions []jwt.ParserOption
	// SkipPaths are URL path prefixes that bypass authentication.
	SkipPaths []string
}

// Auth validates Bearer tokens. Missing, expired and invalid tokens are
// rendered through the chain as the matching TOKEN_* fault.
func Auth(cfg AuthConfig, chain *HTTPChain) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if strings.HasPrefix(path, skip) {
				c.Next()
				return
			}
		}

		claims, err := authenticate(c.GetHeader("Authorization"), cfg)
		if err != nil {
			abortWith(c, chain, err)
			return
		}
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

func authenticate(header string, cfg AuthConfig) (jwt.MapClaims, error) {
	raw, err := convert.BearerToken(header)
	if err != nil {
		return nil, tokenFault(err)
	}

	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(raw, claims, cfg.KeyFunc, cfg.ParserOptions...); err != nil {
		return nil, tokenFault(err)
	}
	return claims, nil
}

func tokenFault(err error) error {
	if fault, ok := convert.TokenRule(err); ok {
		return fault
	}
	return apperrors.Wrap(apperrors.KindAuthenticationFailed, "", fmt.Errorf("%w: %w", convert.ErrAuthenticationFailed, err))
}
