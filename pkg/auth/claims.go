package auth

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data needed when minting a marketplace token.
type AccessTokenPayload struct {
	UserID string
	TTL    time.Duration
	JTI    string
}

// AccessTokenClaims is the narrowed view of a marketplace access token.
// The marketplace puts the user identity in sub and carries no role claim.
type AccessTokenClaims struct {
	UserID    string
	TokenType string
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func claimsFromMap(raw jwt.MapClaims) (*AccessTokenClaims, error) {
	userID, err := subjectString(raw["sub"])
	if err != nil {
		return nil, err
	}
	claims := &AccessTokenClaims{UserID: userID}
	if v, ok := raw["type"].(string); ok {
		claims.TokenType = v
	}
	if v, ok := raw["jti"].(string); ok {
		claims.JTI = v
	}
	if iat, err := raw.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if exp, err := raw.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if claims.TokenType != "" && claims.TokenType != "access" {
		return nil, fmt.Errorf("unexpected token type %q", claims.TokenType)
	}
	return claims, nil
}

// subjectString accepts both string and numeric identities.
func subjectString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return "", fmt.Errorf("token subject is empty")
		}
		return v, nil
	case float64:
		return strconv.FormatInt(int64(v), 10), nil
	case nil:
		return "", fmt.Errorf("token subject is missing")
	default:
		return "", fmt.Errorf("unsupported token subject type %T", value)
	}
}
