package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-conduit-auth"
)

func TestUserProvider_VerifyIdentity(t *testing.T) {
	creds, err := auth.SetPassword("p@ss1234")
	require.NoError(t, err)

	user := &auth.User{ID: uuid.New(), Username: "ana", Email: "ana@example.com"}
	user.SetCredentials(creds)

	store := &MockUserFinder{}
	store.On("GetByEmail", mock.Anything, "ana@example.com").Return(user, nil)
	store.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, auth.ErrIdentityNotFound)
	store.On("GetByEmail", mock.Anything, "broken@example.com").Return(nil, errors.New("database is locked"))

	provider := auth.NewUserProvider(store, auth.NewPasswordHasher(1)).WithLogger(newQuietLogger())
	ctx := context.Background()

	identity, err := provider.VerifyIdentity(ctx, "  ANA@example.com ", "p@ss1234")
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), identity.ID())
	assert.Equal(t, "ana", identity.Username())
	assert.Equal(t, "ana@example.com", identity.Email())

	_, wrongPassword := provider.VerifyIdentity(ctx, "ana@example.com", "nope")
	_, unknownUser := provider.VerifyIdentity(ctx, "ghost@example.com", "p@ss1234")

	require.Error(t, wrongPassword)
	require.Error(t, unknownUser)
	assert.True(t, auth.IsInvalidCredentials(wrongPassword))
	assert.True(t, auth.IsInvalidCredentials(unknownUser))
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())

	_, err = provider.VerifyIdentity(ctx, "broken@example.com", "p@ss1234")
	require.Error(t, err)
	assert.False(t, auth.IsInvalidCredentials(err))

	store.AssertExpectations(t)
}

func TestUserProvider_FindIdentityByIdentifier(t *testing.T) {
	user := &auth.User{ID: uuid.New(), Username: "ana", Email: "ana@example.com"}

	store := &MockUserFinder{}
	store.On("GetByIdentifier", mock.Anything, "ana").Return(user, nil)
	store.On("GetByIdentifier", mock.Anything, "ghost").Return(nil, auth.ErrIdentityNotFound)

	provider := auth.NewUserProvider(store, nil)

	identity, err := provider.FindIdentityByIdentifier(context.Background(), "ana")
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), identity.ID())

	_, err = provider.FindIdentityByIdentifier(context.Background(), "ghost")
	assert.True(t, auth.IsNotFound(err))
}
