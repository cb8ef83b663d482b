package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/salesinsight/backend/internal/domain/identity"
	"github.com/salesinsight/backend/internal/domain/shared"
	"github.com/salesinsight/backend/internal/infrastructure/auth"
	"github.com/salesinsight/backend/internal/infrastructure/config"
	"github.com/salesinsight/backend/internal/infrastructure/persistence"
	"github.com/salesinsight/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockUserRepository is a mock implementation of identity.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByName(ctx context.Context, name string) (*identity.User, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func newJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-that-is-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-at-least-32-characters",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "salesinsight-test",
	})
}

type authFixture struct {
	users   *persistence.GormUserRepository
	tokens  *persistence.GormRefreshTokenRepository
	service *AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	f := &authFixture{
		users:  persistence.NewGormUserRepository(db),
		tokens: persistence.NewGormRefreshTokenRepository(db),
	}
	f.service = NewAuthService(f.users, f.tokens, newJWTService(), zap.NewNop())
	return f
}

func (f *authFixture) registerAndLogin(t *testing.T, name string) *LoginResult {
	t.Helper()
	ctx := context.Background()
	_, err := f.service.Register(ctx, RegisterInput{Name: name, Age: 30, Password: "secret123"})
	require.NoError(t, err)
	result, err := f.service.Login(ctx, LoginInput{Name: name, Password: "secret123"})
	require.NoError(t, err)
	return result
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	info, err := f.service.Register(ctx, RegisterInput{Name: "alice", Age: 30, Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "alice", info.Name)
	assert.Equal(t, 30, info.Age)
	assert.Nil(t, info.LastLoginAt)

	result, err := f.service.Login(ctx, LoginInput{Name: "alice", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, "Bearer", result.TokenType)
	assert.Equal(t, info.ID, result.User.ID)
	assert.NotNil(t, result.User.LastLoginAt)

	claims, err := newJWTService().ValidateRefreshToken(result.RefreshToken)
	require.NoError(t, err)
	tokenID, err := claims.GetTokenUUID()
	require.NoError(t, err)
	grant, err := f.tokens.FindByID(ctx, tokenID)
	require.NoError(t, err)
	assert.Equal(t, info.ID, grant.UserID)
	assert.Nil(t, grant.RevokedAt)

	stored, err := f.users.FindByID(ctx, info.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)
}

func TestAuthService_Register_Validation(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.service.Register(ctx, RegisterInput{Name: "bob", Age: 20, Password: "short"})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_PASSWORD", domainErr.Code)

	_, err = f.service.Register(ctx, RegisterInput{Name: "bob", Age: 20, Password: "secret123"})
	require.NoError(t, err)
	_, err = f.service.Register(ctx, RegisterInput{Name: "bob", Age: 21, Password: "another123"})
	assert.ErrorIs(t, err, ErrNameTaken)
}

func TestAuthService_Register_RepositoryError(t *testing.T) {
	users := new(MockUserRepository)
	users.On("ExistsByName", mock.Anything, "carol").Return(false, errors.New("db down"))
	service := NewAuthService(users, nil, newJWTService(), zap.NewNop())

	_, err := service.Register(context.Background(), RegisterInput{Name: "carol", Age: 40, Password: "secret123"})
	assert.EqualError(t, err, "db down")
	users.AssertExpectations(t)
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_Login_InvalidCredentials(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.service.Register(ctx, RegisterInput{Name: "dave", Age: 30, Password: "secret123"})
	require.NoError(t, err)

	_, err = f.service.Login(ctx, LoginInput{Name: "dave", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.service.Login(ctx, LoginInput{Name: "nobody", Password: "secret123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Login_RepositoryError(t *testing.T) {
	users := new(MockUserRepository)
	users.On("FindByName", mock.Anything, "erin").Return(nil, errors.New("db down"))
	service := NewAuthService(users, nil, newJWTService(), zap.NewNop())

	_, err := service.Login(context.Background(), LoginInput{Name: "erin", Password: "secret123"})
	assert.EqualError(t, err, "db down")
}

func TestAuthService_Refresh_Rotates(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	login := f.registerAndLogin(t, "frank")

	rotated, err := f.service.Refresh(ctx, RefreshInput{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, rotated.RefreshToken)

	// the old token is spent
	_, err = f.service.Refresh(ctx, RefreshInput{RefreshToken: login.RefreshToken})
	assert.ErrorIs(t, err, ErrTokenInvalid)

	// reuse of a spent token revoked the whole family
	_, err = f.service.Refresh(ctx, RefreshInput{RefreshToken: rotated.RefreshToken})
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestAuthService_Refresh_RejectsAccessToken(t *testing.T) {
	f := newAuthFixture(t)
	login := f.registerAndLogin(t, "grace")

	_, err := f.service.Refresh(context.Background(), RefreshInput{RefreshToken: login.AccessToken})
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = f.service.Refresh(context.Background(), RefreshInput{RefreshToken: "garbage"})
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestAuthService_Refresh_ExpiredGrant(t *testing.T) {
	f := newAuthFixture(t)
	login := f.registerAndLogin(t, "heidi")

	f.service.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
	_, err := f.service.Refresh(context.Background(), RefreshInput{RefreshToken: login.RefreshToken})
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestAuthService_Logout(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	login := f.registerAndLogin(t, "ivan")

	require.NoError(t, f.service.Logout(ctx, LogoutInput{UserID: login.User.ID, RefreshToken: login.RefreshToken}))
	_, err := f.service.Refresh(ctx, RefreshInput{RefreshToken: login.RefreshToken})
	assert.ErrorIs(t, err, ErrTokenInvalid)

	second, err := f.service.Login(ctx, LoginInput{Name: "ivan", Password: "secret123"})
	require.NoError(t, err)
	require.NoError(t, f.service.Logout(ctx, LogoutInput{UserID: login.User.ID}))
	_, err = f.service.Refresh(ctx, RefreshInput{RefreshToken: second.RefreshToken})
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestAuthService_Logout_IgnoresOtherUsersToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	victim := f.registerAndLogin(t, "judy")

	require.NoError(t, f.service.Logout(ctx, LogoutInput{UserID: uuid.New(), RefreshToken: victim.RefreshToken}))
	_, err := f.service.Refresh(ctx, RefreshInput{RefreshToken: victim.RefreshToken})
	assert.NoError(t, err)
}

func TestAuthService_Me(t *testing.T) {
	f := newAuthFixture(t)
	login := f.registerAndLogin(t, "mallory")

	info, err := f.service.Me(context.Background(), login.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "mallory", info.Name)

	_, err = f.service.Me(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
