package jwt

import (
	"errors"
	"fmt"
	"time"

	"eduauth/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired  = errors.New("token has expired")
	ErrTokenInvalid  = errors.New("token is invalid")
	ErrMissingClaims = errors.New("token is missing required claims")
)

// Claims is the signed payload of an access token. The wire format keeps the
// id/email/role claim names the rest of the platform expects.
type Claims struct {
	UserID string      `json:"id"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Codec signs and verifies bearer tokens with a single server-held secret and
// a pinned HMAC algorithm.
type Codec struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewCodec(secret, algorithm string, accessTTL, refreshTTL time.Duration) (*Codec, error) {
	const op = "jwt.NewCodec"

	method := jwt.GetSigningMethod(algorithm)
	if method == nil {
		return nil, fmt.Errorf("%s: unknown signing algorithm %q", op, algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("%s: algorithm %q is not an HMAC method", op, algorithm)
	}

	return &Codec{
		secret:     []byte(secret),
		method:     method,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// NewAccessToken issues a short-lived token carrying the user's identity and role.
func (c *Codec) NewAccessToken(user models.User) (string, error) {
	return c.issue(user, c.accessTTL)
}

// NewRefreshToken issues a long-lived token with the same claims. No endpoint
// consumes refresh tokens yet; the primitive exists for a future refresh flow.
func (c *Codec) NewRefreshToken(user models.User) (string, error) {
	return c.issue(user, c.refreshTTL)
}

func (c *Codec) issue(user models.User, ttl time.Duration) (string, error) {
	const op = "jwt.issue"

	now := time.Now()
	claims := Claims{
		UserID: user.ID.Hex(),
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	tokenStr, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return tokenStr, nil
}

// Parse verifies the signature and expiry and returns the claims. Errors are
// classified as ErrTokenExpired, ErrMissingClaims or ErrTokenInvalid; a token
// signed with another secret or algorithm never yields claims.
func (c *Codec) Parse(tokenStr string) (Claims, error) {
	var claims Claims

	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}

		return c.secret, nil
	},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}

		return Claims{}, ErrTokenInvalid
	}

	if !token.Valid {
		return Claims{}, ErrTokenInvalid
	}

	if claims.UserID == "" || claims.Email == "" || !claims.Role.Valid() {
		return Claims{}, ErrMissingClaims
	}

	return claims, nil
}
