package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-conduit-auth"
)

func newTestAuther(t *testing.T, repo auth.RepositoryManager, sink auth.ActivitySink) *auth.Auther {
	t.Helper()
	provider := auth.NewUserProvider(repo.Users(), auth.NewPasswordHasher(2))
	return auth.NewAuthenticator(provider, auth.NewStaticConfig(auth.EnvironmentDevelopment, testSigningKey)).
		WithLogger(newQuietLogger()).
		WithActivitySink(sink)
}

func TestAuther_Login(t *testing.T) {
	repo := newTestRepo(t)
	sink := &capturingSink{}
	auther := newTestAuther(t, repo, sink)
	ctx := context.Background()

	user := mustRegister(t, repo, "ana", "ana@example.com", "p@ss1234")

	token, identity, err := auther.Login(ctx, "ana@example.com", "p@ss1234")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, user.ID.String(), identity.ID())

	claims, err := auther.TokenService().Validate(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID())
	assert.Equal(t, "ana", claims.Username())

	resolved, err := auther.IdentityFromToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), resolved.ID())

	assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventLoginSuccess}, sink.types())
}

func TestAuther_LoginDoesNotRevealAccounts(t *testing.T) {
	repo := newTestRepo(t)
	sink := &capturingSink{}
	auther := newTestAuther(t, repo, sink)
	ctx := context.Background()

	mustRegister(t, repo, "ana", "ana@example.com", "p@ss1234")

	_, _, wrongPassword := auther.Login(ctx, "ana@example.com", "wrong")
	_, _, unknownUser := auther.Login(ctx, "nobody@example.com", "p@ss1234")

	require.Error(t, wrongPassword)
	require.Error(t, unknownUser)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
	assert.Equal(t, auth.ErrorResponse(wrongPassword), auth.ErrorResponse(unknownUser))
	assert.Equal(t, 422, auth.StatusFromError(unknownUser))

	assert.Equal(t, []auth.ActivityEventType{
		auth.ActivityEventLoginFailure,
		auth.ActivityEventLoginFailure,
	}, sink.types())
}

func TestAuther_LoginWithMockProvider(t *testing.T) {
	identity := newMockIdentity("user-123", "ana")

	provider := &MockIdentityProvider{}
	provider.On("VerifyIdentity", mock.Anything, "ana@example.com", "p@ss1234").Return(identity, nil)

	auther := auth.NewAuthenticator(provider, auth.NewStaticConfig("", testSigningKey)).WithLogger(newQuietLogger())

	token, got, err := auther.Login(context.Background(), "ana@example.com", "p@ss1234")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "user-123", got.ID())

	provider.AssertExpectations(t)
}

func TestAuther_WithTokenService(t *testing.T) {
	ts := auth.NewTokenService([]byte("custom"), 1, nil)
	auther := auth.NewAuthenticator(&MockIdentityProvider{}, auth.NewStaticConfig("", "")).WithTokenService(ts)
	assert.Same(t, ts, auther.TokenService())

	auther.WithTokenService(nil)
	assert.Same(t, ts, auther.TokenService())
}
