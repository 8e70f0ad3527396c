package register_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"eduauth/internal/auth"
	"eduauth/internal/http_server/handlers/register"
	"eduauth/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type registererStub struct {
	err  error
	got  *register.Request
	user models.User
}

func (s *registererStub) Register(_ context.Context, email, pass, fullName string, role models.Role) (models.User, error) {
	s.got = &register.Request{Email: email, Password: pass, FullName: fullName, Role: string(role)}

	if s.err != nil {
		return models.User{}, s.err
	}

	return s.user, nil
}

func newHandler(stub *registererStub) http.HandlerFunc {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return register.New(log, validator.New(), stub)
}

func doRequest(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return rec
}

func TestRegisterSuccess(t *testing.T) {
	stub := &registererStub{
		user: models.User{
			ID:       bson.NewObjectID(),
			Email:    "a@x.com",
			FullName: "A",
			Role:     models.RoleStudent,
			Status:   models.StatusPendingVerification,
		},
	}

	rec := doRequest(t, newHandler(stub), register.Request{
		Email:    "a@x.com",
		Password: "password123",
		FullName: "A",
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var body register.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "OK", body.Status)
	assert.Equal(t, "a@x.com", body.User.Email)
	assert.Equal(t, models.RoleStudent, body.User.Role)
	assert.False(t, body.User.IsVerified)

	require.NotNil(t, stub.got)
	assert.Equal(t, "password123", stub.got.Password)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	stub := &registererStub{err: auth.ErrUserExists}

	rec := doRequest(t, newHandler(stub), register.Request{
		Email:    "a@x.com",
		Password: "password123",
		FullName: "A",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email already registered.")
}

func TestRegisterValidation(t *testing.T) {
	cases := []struct {
		name string
		req  register.Request
	}{
		{"missing email", register.Request{Password: "password123", FullName: "A"}},
		{"bad email", register.Request{Email: "not-an-email", Password: "password123", FullName: "A"}},
		{"short password", register.Request{Email: "a@x.com", Password: "short", FullName: "A"}},
		{"missing full name", register.Request{Email: "a@x.com", Password: "password123"}},
		{"bad role", register.Request{Email: "a@x.com", Password: "password123", FullName: "A", Role: "superuser"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &registererStub{}

			rec := doRequest(t, newHandler(stub), tc.req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Nil(t, stub.got, "service must not be called on invalid input")
		})
	}
}

func TestRegisterBadBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	newHandler(&registererStub{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
