package jwt_test

import (
	"testing"
	"time"

	jwtlib "eduauth/internal/lib/jwt"
	"eduauth/internal/models"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const testSecret = "test-secret"

func testUser() models.User {
	return models.User{
		ID:    bson.NewObjectID(),
		Email: "user@example.com",
		Role:  models.RoleStudent,
	}
}

func newCodec(t *testing.T, accessTTL time.Duration) *jwtlib.Codec {
	t.Helper()

	codec, err := jwtlib.NewCodec(testSecret, "HS256", accessTTL, 7*24*time.Hour)
	require.NoError(t, err)

	return codec
}

func TestNewCodecRejectsNonHMAC(t *testing.T) {
	_, err := jwtlib.NewCodec(testSecret, "RS256", time.Minute, time.Hour)
	require.Error(t, err)

	_, err = jwtlib.NewCodec(testSecret, "bogus", time.Minute, time.Hour)
	require.Error(t, err)
}

func TestIssueAndParseRoundTrip(t *testing.T) {
	codec := newCodec(t, 30*time.Minute)
	user := testUser()

	tokenStr, err := codec.NewAccessToken(user)
	require.NoError(t, err)

	claims, err := codec.Parse(tokenStr)
	require.NoError(t, err)

	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, user.Role, claims.Role)
}

func TestParseExpiredToken(t *testing.T) {
	codec := newCodec(t, -time.Minute)

	tokenStr, err := codec.NewAccessToken(testUser())
	require.NoError(t, err)

	_, err = codec.Parse(tokenStr)
	assert.ErrorIs(t, err, jwtlib.ErrTokenExpired)
}

func TestParseWrongSecret(t *testing.T) {
	codec := newCodec(t, 30*time.Minute)

	other, err := jwtlib.NewCodec("another-secret", "HS256", 30*time.Minute, time.Hour)
	require.NoError(t, err)

	tokenStr, err := other.NewAccessToken(testUser())
	require.NoError(t, err)

	_, err = codec.Parse(tokenStr)
	assert.ErrorIs(t, err, jwtlib.ErrTokenInvalid)
}

func TestParseMalformedToken(t *testing.T) {
	codec := newCodec(t, 30*time.Minute)

	_, err := codec.Parse("not.a.token")
	assert.ErrorIs(t, err, jwtlib.ErrTokenInvalid)
}

func TestParseMissingClaims(t *testing.T) {
	codec := newCodec(t, 30*time.Minute)

	// Well-signed token lacking the email and role claims.
	raw := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.MapClaims{
		"id":  bson.NewObjectID().Hex(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	tokenStr, err := raw.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = codec.Parse(tokenStr)
	assert.ErrorIs(t, err, jwtlib.ErrMissingClaims)
}

func TestParseUnknownRoleClaim(t *testing.T) {
	codec := newCodec(t, 30*time.Minute)

	raw := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.MapClaims{
		"id":    bson.NewObjectID().Hex(),
		"email": "user@example.com",
		"role":  "superuser",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	tokenStr, err := raw.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = codec.Parse(tokenStr)
	assert.ErrorIs(t, err, jwtlib.ErrMissingClaims)
}

func TestParseTokenWithoutExpiry(t *testing.T) {
	codec := newCodec(t, 30*time.Minute)

	raw := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.MapClaims{
		"id":    bson.NewObjectID().Hex(),
		"email": "user@example.com",
		"role":  "student",
	})
	tokenStr, err := raw.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = codec.Parse(tokenStr)
	assert.ErrorIs(t, err, jwtlib.ErrTokenInvalid)
}

func TestRefreshTokenHasLongerLife(t *testing.T) {
	codec := newCodec(t, 30*time.Minute)
	user := testUser()

	refreshStr, err := codec.NewRefreshToken(user)
	require.NoError(t, err)

	claims, err := codec.Parse(refreshStr)
	require.NoError(t, err)

	assert.True(t, claims.ExpiresAt.After(time.Now().Add(6*24*time.Hour)))
}
