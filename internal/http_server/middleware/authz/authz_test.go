package authz_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eduauth/internal/http_server/middleware/authz"
	jwtlib "eduauth/internal/lib/jwt"
	"eduauth/internal/models"
	"eduauth/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type userProviderStub struct {
	users map[string]models.User
}

func (s *userProviderStub) UserByID(_ context.Context, id string) (models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}

	return u, nil
}

type guardFixture struct {
	guard    *authz.Guard
	codec    *jwtlib.Codec
	provider *userProviderStub
}

func newGuardFixture(t *testing.T) *guardFixture {
	t.Helper()

	codec, err := jwtlib.NewCodec("test-secret", "HS256", 30*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)

	provider := &userProviderStub{users: make(map[string]models.User)}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &guardFixture{
		guard:    authz.New(log, provider, codec),
		codec:    codec,
		provider: provider,
	}
}

// addUser registers a user with the stub provider and returns a valid bearer
// token for it.
func (f *guardFixture) addUser(t *testing.T, role models.Role, verified bool, status models.Status) (models.User, string) {
	t.Helper()

	user := models.User{
		ID:         bson.NewObjectID(),
		Email:      string(role) + "@example.com",
		FullName:   "Test " + string(role),
		Role:       role,
		Status:     status,
		IsVerified: verified,
	}
	f.provider.users[user.ID.Hex()] = user

	token, err := f.codec.NewAccessToken(user)
	require.NoError(t, err)

	return user, token
}

// okHandler echoes the principal's email so tests can check it was stored.
func okHandler(t *testing.T) http.Handler {
	t.Helper()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := authz.Principal(r.Context())
		require.True(t, ok, "principal must be set for authorized requests")

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(user.Email))
	})
}

func doRequest(mw func(http.Handler) http.Handler, next http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	return body.Error
}

func TestGuardMissingToken(t *testing.T) {
	f := newGuardFixture(t)

	rec := doRequest(f.guard.RequireActive(), okHandler(t), "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	assert.Equal(t, "Could not validate credentials", errorMessage(t, rec))
}

func TestGuardMalformedHeader(t *testing.T) {
	f := newGuardFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

	rec := httptest.NewRecorder()
	f.guard.RequireActive()(okHandler(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGuardBadToken(t *testing.T) {
	f := newGuardFixture(t)

	rec := doRequest(f.guard.RequireActive(), okHandler(t), "not.a.token")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGuardExpiredToken(t *testing.T) {
	f := newGuardFixture(t)

	expired, err := jwtlib.NewCodec("test-secret", "HS256", -time.Minute, time.Hour)
	require.NoError(t, err)

	user, _ := f.addUser(t, models.RoleStudent, true, models.StatusActive)
	token, err := expired.NewAccessToken(user)
	require.NoError(t, err)

	rec := doRequest(f.guard.RequireActive(), okHandler(t), token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGuardUnknownUser(t *testing.T) {
	f := newGuardFixture(t)

	// Valid token for an account that no longer exists.
	ghost := models.User{
		ID:    bson.NewObjectID(),
		Email: "ghost@example.com",
		Role:  models.RoleStudent,
	}
	token, err := f.codec.NewAccessToken(ghost)
	require.NoError(t, err)

	rec := doRequest(f.guard.RequireActive(), okHandler(t), token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGuardUnverifiedUser(t *testing.T) {
	f := newGuardFixture(t)

	_, token := f.addUser(t, models.RoleStudent, false, models.StatusPendingVerification)

	rec := doRequest(f.guard.RequireActive(), okHandler(t), token)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Account not verified. Please verify your email.", errorMessage(t, rec))
}

func TestGuardUnverifiedAdminPassesVerifiedGate(t *testing.T) {
	f := newGuardFixture(t)

	// An unverified admin clears the verified gate but still has to be
	// active.
	_, token := f.addUser(t, models.RoleAdmin, false, models.StatusPendingVerification)

	rec := doRequest(f.guard.RequireAdmin(), okHandler(t), token)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Inactive user", errorMessage(t, rec))
}

func TestGuardActiveUnverifiedAdmin(t *testing.T) {
	f := newGuardFixture(t)

	user, token := f.addUser(t, models.RoleAdmin, false, models.StatusActive)

	rec := doRequest(f.guard.RequireAdmin(), okHandler(t), token)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user.Email, rec.Body.String())
}

func TestGuardInactiveUser(t *testing.T) {
	f := newGuardFixture(t)

	_, token := f.addUser(t, models.RoleStudent, true, models.StatusInactive)

	rec := doRequest(f.guard.RequireActive(), okHandler(t), token)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Inactive user", errorMessage(t, rec))
}

func TestGuardRoleGate(t *testing.T) {
	f := newGuardFixture(t)

	_, studentToken := f.addUser(t, models.RoleStudent, true, models.StatusActive)
	_, teacherToken := f.addUser(t, models.RoleTeacher, true, models.StatusActive)
	_, adminToken := f.addUser(t, models.RoleAdmin, true, models.StatusActive)

	cases := []struct {
		name  string
		mw    func(http.Handler) http.Handler
		token string
		want  int
	}{
		{"student on student route", f.guard.RequireStudent(), studentToken, http.StatusOK},
		{"teacher on student route", f.guard.RequireStudent(), teacherToken, http.StatusForbidden},
		{"admin on student route", f.guard.RequireStudent(), adminToken, http.StatusForbidden},
		{"student on staff route", f.guard.RequireTeacherOrAdmin(), studentToken, http.StatusForbidden},
		{"teacher on staff route", f.guard.RequireTeacherOrAdmin(), teacherToken, http.StatusOK},
		{"admin on staff route", f.guard.RequireTeacherOrAdmin(), adminToken, http.StatusOK},
		{"student on admin route", f.guard.RequireAdmin(), studentToken, http.StatusForbidden},
		{"teacher on admin route", f.guard.RequireAdmin(), teacherToken, http.StatusForbidden},
		{"admin on admin route", f.guard.RequireAdmin(), adminToken, http.StatusOK},
		{"student on open route", f.guard.RequireActive(), studentToken, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(tc.mw, okHandler(t), tc.token)

			assert.Equal(t, tc.want, rec.Code)
			if tc.want == http.StatusForbidden {
				assert.Equal(t, "Not enough permissions", errorMessage(t, rec))
			}
		})
	}
}
