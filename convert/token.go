package convert

import (
	stderrors "errors"
	"strings"

	gojwt "github.com/golang-jwt/jwt/v5"

	apperrors "github.com/kbukum/faultkit/errors"
)

// Token failures raised before a token reaches the parser.
var (
	ErrTokenMissing         = stderrors.New("token missing")
	ErrAuthenticationFailed = stderrors.New("authentication failed")
)

// TokenRule claims authentication failures: the golang-jwt validation
// sentinels plus ErrTokenMissing and ErrAuthenticationFailed.
// An expired token is TOKEN_EXPIRED even though the parser also reports it
// as invalid claims.
func TokenRule(err error) (*apperrors.BusinessError, bool) {
	var kind apperrors.Kind
	switch {
	case stderrors.Is(err, gojwt.ErrTokenExpired):
		kind = apperrors.KindTokenExpired
	case stderrors.Is(err, gojwt.ErrTokenMalformed),
		stderrors.Is(err, gojwt.ErrTokenSignatureInvalid),
		stderrors.Is(err, gojwt.ErrTokenUnverifiable),
		stderrors.Is(err, gojwt.ErrTokenNotValidYet),
		stderrors.Is(err, gojwt.ErrTokenInvalidClaims):
		kind = apperrors.KindTokenInvalid
	case stderrors.Is(err, ErrTokenMissing):
		kind = apperrors.KindTokenMissing
	case stderrors.Is(err, ErrAuthenticationFailed):
		kind = apperrors.KindAuthenticationFailed
	default:
		return nil, false
	}
	return apperrors.Wrap(kind, "", err), true
}

// BearerToken extracts the token from an Authorization header value.
// It returns ErrTokenMissing when the header is empty, uses another scheme
// or carries an empty token.
func BearerToken(header string) (string, error) {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", ErrTokenMissing
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", ErrTokenMissing
	}
	return token, nil
}
