package wschannel

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the short-lived bearer token carried by the auth frame (§4.10):
// user_id, website_id (channel_config_id), and an optional flow_id.
type Claims struct {
	UserID    string `json:"userId"`
	WebsiteID string `json:"websiteId"`
	FlowID    string `json:"flowId,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier validates the auth frame's bearer token.
type TokenVerifier interface {
	Verify(token string) (Claims, error)
}

// hmacVerifier is a TokenVerifier backed by a shared HMAC secret, matching
// the §6 contract for `POST /api/v1/webchat/auth` (issues a 24h token with
// the same claim shape this verifies).
type hmacVerifier struct {
	secret []byte
}

// NewHMACVerifier builds a TokenVerifier over an HS256-signed JWT.
func NewHMACVerifier(secret string) TokenVerifier {
	return &hmacVerifier{secret: []byte(secret)}
}

func (v *hmacVerifier) Verify(token string) (Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return Claims{}, err
	}
	if !parsed.Valid {
		return Claims{}, fmt.Errorf("token not valid")
	}
	if claims.UserID == "" || claims.WebsiteID == "" {
		return Claims{}, fmt.Errorf("token missing required claims")
	}
	return claims, nil
}

// IssueToken mints a 24h webchat bearer token (§6 `/api/v1/webchat/auth`).
func IssueToken(secret, userID, websiteID, flowID string) (string, error) {
	claims := Claims{
		UserID:    userID,
		WebsiteID: websiteID,
		FlowID:    flowID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
