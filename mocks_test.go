package auth_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/goliatone/go-conduit-auth"
)

// MockIdentity implements auth.Identity for testing
type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Username() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Email() string {
	args := m.Called()
	return args.String(0)
}

// MockLogger implements auth.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Called(format, args)
}

func newQuietLogger() *MockLogger {
	l := &MockLogger{}
	l.On("Debug", mock.Anything, mock.Anything).Maybe()
	l.On("Info", mock.Anything, mock.Anything).Maybe()
	l.On("Warn", mock.Anything, mock.Anything).Maybe()
	l.On("Error", mock.Anything, mock.Anything).Maybe()
	return l
}

// MockUserFinder implements auth.UserFinder for testing
type MockUserFinder struct {
	mock.Mock
}

func (m *MockUserFinder) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUserFinder) GetByIdentifier(ctx context.Context, identifier string) (*auth.User, error) {
	args := m.Called(ctx, identifier)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

// MockIdentityProvider implements auth.IdentityProvider for testing
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, email, password string) (auth.Identity, error) {
	args := m.Called(ctx, email, password)
	identity, _ := args.Get(0).(auth.Identity)
	return identity, args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (auth.Identity, error) {
	args := m.Called(ctx, identifier)
	identity, _ := args.Get(0).(auth.Identity)
	return identity, args.Error(1)
}
