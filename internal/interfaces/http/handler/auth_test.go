package handler

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/salesinsight/backend/internal/interfaces/http/dto"
	"github.com/salesinsight/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func register(t *testing.T, f *apiFixture, name, password string) UserResponse {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/auth/register", RegisterRequest{
		Name: name, Age: 30, Password: password,
	})
	code, body := f.do(req, uuid.Nil)
	require.Equal(t, http.StatusCreated, code, string(body))
	return testutil.DecodeData[UserResponse](t, body)
}

func login(t *testing.T, f *apiFixture, name, password string) LoginResponse {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{
		Name: name, Password: password,
	})
	code, body := f.do(req, uuid.Nil)
	require.Equal(t, http.StatusOK, code, string(body))
	return testutil.DecodeData[LoginResponse](t, body)
}

func TestAuthHandler_RegisterAndLogin(t *testing.T) {
	f := newAPIFixture(t)

	user := register(t, f, "alice", "secret1")
	assert.Equal(t, "alice", user.Name)
	assert.Equal(t, 30, user.Age)

	result := login(t, f, "alice", "secret1")
	assert.NotEmpty(t, result.Token.AccessToken)
	assert.NotEmpty(t, result.Token.RefreshToken)
	assert.Equal(t, "Bearer", result.Token.TokenType)
	assert.Equal(t, user.ID, result.User.ID)
}

func TestAuthHandler_Register_Errors(t *testing.T) {
	f := newAPIFixture(t)
	register(t, f, "alice", "secret1")

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"duplicate name", RegisterRequest{Name: "alice", Age: 20, Password: "secret1"}, http.StatusConflict, dto.ErrCodeAlreadyExists},
		{"short password", RegisterRequest{Name: "bob", Age: 20, Password: "123"}, http.StatusBadRequest, dto.ErrCodeValidation},
		{"age out of range", RegisterRequest{Name: "bob", Age: 200, Password: "secret1"}, http.StatusBadRequest, dto.ErrCodeValidation},
		{"illegal characters", RegisterRequest{Name: "bob smith", Age: 20, Password: "secret1"}, http.StatusBadRequest, dto.ErrCodeValidation},
		{"missing fields", map[string]any{}, http.StatusBadRequest, dto.ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/auth/register", tt.body)
			code, body := f.do(req, uuid.Nil)

			assert.Equal(t, tt.status, code, string(body))
			testutil.AssertErrorCode(t, body, tt.code)
		})
	}
}

func TestAuthHandler_Login_WrongPassword(t *testing.T) {
	f := newAPIFixture(t)
	register(t, f, "alice", "secret1")

	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{
		Name: "alice", Password: "wrong-password",
	})
	code, body := f.do(req, uuid.Nil)

	assert.Equal(t, http.StatusUnauthorized, code)
	testutil.AssertErrorCode(t, body, dto.ErrCodeUnauthorized)
}

func TestAuthHandler_Refresh(t *testing.T) {
	f := newAPIFixture(t)
	register(t, f, "alice", "secret1")
	first := login(t, f, "alice", "secret1")

	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/auth/refresh", RefreshTokenRequest{
		RefreshToken: first.Token.RefreshToken,
	})
	code, body := f.do(req, uuid.Nil)
	require.Equal(t, http.StatusOK, code, string(body))

	rotated := testutil.DecodeData[TokenResponse](t, body)
	assert.NotEmpty(t, rotated.AccessToken)
	assert.NotEqual(t, first.Token.RefreshToken, rotated.RefreshToken)

	t.Run("old token cannot be reused", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/auth/refresh", RefreshTokenRequest{
			RefreshToken: first.Token.RefreshToken,
		})
		code, body := f.do(req, uuid.Nil)

		assert.Equal(t, http.StatusUnauthorized, code)
		testutil.AssertErrorCode(t, body, dto.ErrCodeTokenInvalid)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/auth/refresh", RefreshTokenRequest{
			RefreshToken: "not-a-token",
		})
		code, body := f.do(req, uuid.Nil)

		assert.Equal(t, http.StatusUnauthorized, code)
		testutil.AssertErrorCode(t, body, dto.ErrCodeTokenInvalid)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	f := newAPIFixture(t)
	user := register(t, f, "alice", "secret1")
	session := login(t, f, "alice", "secret1")

	t.Run("requires authentication", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/auth/logout", nil)
		code, body := f.do(req, uuid.Nil)

		assert.Equal(t, http.StatusUnauthorized, code)
		testutil.AssertErrorCode(t, body, dto.ErrCodeUnauthorized)
	})

	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/auth/logout", LogoutRequest{
		RefreshToken: session.Token.RefreshToken,
	})
	code, body := f.do(req, user.ID)
	require.Equal(t, http.StatusOK, code, string(body))
	assert.Equal(t, "Logged out successfully", testutil.DecodeData[MessageResponse](t, body).Message)

	refresh := testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/auth/refresh", RefreshTokenRequest{
		RefreshToken: session.Token.RefreshToken,
	})
	code, _ = f.do(refresh, uuid.Nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestUserHandler_GetCurrentUser(t *testing.T) {
	f := newAPIFixture(t)
	user := register(t, f, "alice", "secret1")

	req := testutil.NewJSONRequest(t, http.MethodGet, "/api/v1/users/me", nil)
	code, body := f.do(req, user.ID)
	require.Equal(t, http.StatusOK, code, string(body))
	assert.Equal(t, "alice", testutil.DecodeData[UserResponse](t, body).Name)

	t.Run("unknown user", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodGet, "/api/v1/users/me", nil)
		code, body := f.do(req, uuid.New())

		assert.Equal(t, http.StatusNotFound, code)
		testutil.AssertErrorCode(t, body, dto.ErrCodeNotFound)
	})

	t.Run("anonymous", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodGet, "/api/v1/users/me", nil)
		code, _ := f.do(req, uuid.Nil)
		assert.Equal(t, http.StatusUnauthorized, code)
	})
}
