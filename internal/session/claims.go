package session

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt"

	"homecare-portal/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims are the identity fields the portal reads from a backend token.
type Claims struct {
	UserID    models.ID
	Email     string
	Name      string
	Role      string
	ExpiresAt time.Time
}

// ParseClaims decodes token claims without verifying the signature. The backend validates
// tokens on every call; the portal only needs the identity for display and routing.
func ParseClaims(token string) (Claims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var c Claims
	for _, key := range []string{"id", "userId", "user_id", "sub"} {
		if id := stringClaim(claims[key]); id != "" {
			c.UserID = models.ID(id)
			break
		}
	}
	if c.UserID == "" {
		return Claims{}, fmt.Errorf("%w: no user id claim", ErrInvalidToken)
	}
	c.Email = stringClaim(claims["email"])
	c.Name = stringClaim(claims["name"])
	c.Role = stringClaim(claims["role"])
	if exp, ok := claims["exp"].(float64); ok && exp > 0 {
		c.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return c, nil
}

func stringClaim(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}
