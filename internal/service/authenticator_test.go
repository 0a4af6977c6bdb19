package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"climatrack/internal/auth"
	"climatrack/internal/errors"
	"climatrack/internal/model"
	"climatrack/internal/repository"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

var _ repository.UserRepository = (*MockUserRepository)(nil)

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateColumns(ctx context.Context, id uuid.UUID, cols map[string]interface{}) error {
	args := m.Called(ctx, id, cols)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, filter repository.UserFilter) ([]model.User, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]model.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateRole(ctx context.Context, id uuid.UUID, role model.Role) error {
	args := m.Called(ctx, id, role)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) LockByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

// MockLoginThrottle is a mock implementation of LoginThrottle.
type MockLoginThrottle struct {
	mock.Mock
}

func (m *MockLoginThrottle) Check(ctx context.Context, email, ip string) (*ThrottleStatus, error) {
	args := m.Called(ctx, email, ip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ThrottleStatus), args.Error(1)
}

func (m *MockLoginThrottle) Record(ctx context.Context, email string, success bool, ip string) {
	m.Called(ctx, email, success, ip)
}

func (m *MockLoginThrottle) Recent(ctx context.Context) ([]model.LoginAttempt, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.LoginAttempt), args.Error(1)
}

// MockActivityService is a mock implementation of ActivityService.
type MockActivityService struct {
	mock.Mock
}

func (m *MockActivityService) Record(ctx context.Context, entry ActivityEntry) {
	m.Called(ctx, entry)
}

func (m *MockActivityService) Recent(ctx context.Context) ([]model.ActivityLog, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.ActivityLog), args.Error(1)
}

func TestAuthenticator_Authenticate(t *testing.T) {
	hasher := auth.NewBcryptHasher(4)
	hash, err := hasher.Hash("secret123")
	require.NoError(t, err)
	stored := &model.User{ID: uuid.New(), Name: "Ana", Email: "a@x.com", PasswordHash: hash, Role: model.RoleTechnician}

	tests := []struct {
		name      string
		email     string
		password  string
		setupMock func(*MockUserRepository)
		wantErr   error
	}{
		{
			name:     "valid credentials",
			email:    "a@x.com",
			password: "secret123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "a@x.com").Return(stored, nil)
			},
		},
		{
			name:     "wrong password",
			email:    "a@x.com",
			password: "nope",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "a@x.com").Return(stored, nil)
			},
			wantErr: errors.ErrInvalidCredentials,
		},
		{
			name:     "unknown email",
			email:    "b@x.com",
			password: "secret123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "b@x.com").Return(nil, gorm.ErrRecordNotFound)
			},
			wantErr: errors.ErrInvalidCredentials,
		},
		{
			name:     "store down",
			email:    "a@x.com",
			password: "secret123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "a@x.com").Return(nil, assert.AnError)
			},
			wantErr: errors.ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockUserRepository)
			tt.setupMock(repo)
			a := NewAuthenticator(repo, hasher, zerolog.Nop())

			principal, err := a.Authenticate(context.Background(), tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, principal)
			} else {
				require.NoError(t, err)
				assert.Equal(t, stored.ID, principal.ID)
				assert.Equal(t, model.RoleTechnician, principal.Role)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestLoginService_Login(t *testing.T) {
	hasher := auth.NewBcryptHasher(4)
	hash, err := hasher.Hash("secret123")
	require.NoError(t, err)
	stored := &model.User{ID: uuid.New(), Name: "Ana", Email: "a@x.com", PasswordHash: hash, Role: model.RoleViewer}
	sessions := auth.NewSessionManager("test-secret", time.Hour)

	t.Run("blocked pair is not authenticated nor recorded", func(t *testing.T) {
		repo := new(MockUserRepository)
		throttle := new(MockLoginThrottle)
		activity := new(MockActivityService)
		throttle.On("Check", mock.Anything, "a@x.com", clientIP).
			Return(&ThrottleStatus{IsBlocked: true, Attempts: 5, MaxAttempts: 5}, nil)

		svc := NewLoginService(NewAuthenticator(repo, hasher, zerolog.Nop()), throttle, sessions, activity, zerolog.Nop())
		_, err := svc.Login(context.Background(), "a@x.com", "secret123", clientIP)

		assert.ErrorIs(t, err, errors.ErrThrottled)
		repo.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
		throttle.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("failure is recorded", func(t *testing.T) {
		repo := new(MockUserRepository)
		throttle := new(MockLoginThrottle)
		activity := new(MockActivityService)
		throttle.On("Check", mock.Anything, "a@x.com", clientIP).Return(&ThrottleStatus{MaxAttempts: 5}, nil)
		repo.On("FindByEmail", mock.Anything, "a@x.com").Return(stored, nil)
		throttle.On("Record", mock.Anything, "a@x.com", false, clientIP).Return()

		svc := NewLoginService(NewAuthenticator(repo, hasher, zerolog.Nop()), throttle, sessions, activity, zerolog.Nop())
		_, err := svc.Login(context.Background(), "a@x.com", "wrong", clientIP)

		assert.ErrorIs(t, err, errors.ErrInvalidCredentials)
		throttle.AssertExpectations(t)
		activity.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})

	t.Run("success issues a session", func(t *testing.T) {
		repo := new(MockUserRepository)
		throttle := new(MockLoginThrottle)
		activity := new(MockActivityService)
		throttle.On("Check", mock.Anything, "a@x.com", clientIP).Return(&ThrottleStatus{MaxAttempts: 5}, nil)
		repo.On("FindByEmail", mock.Anything, "a@x.com").Return(stored, nil)
		throttle.On("Record", mock.Anything, "a@x.com", true, clientIP).Return()
		activity.On("Record", mock.Anything, mock.MatchedBy(func(e ActivityEntry) bool {
			return e.Action == model.ActionLogin && e.UserID == stored.ID
		})).Return()

		svc := NewLoginService(NewAuthenticator(repo, hasher, zerolog.Nop()), throttle, sessions, activity, zerolog.Nop())
		result, err := svc.Login(context.Background(), "a@x.com", "secret123", clientIP)
		require.NoError(t, err)

		session, err := sessions.Decode(result.Token)
		require.NoError(t, err)
		assert.Equal(t, stored.ID, session.UserID)
		assert.Equal(t, model.RoleViewer, session.Role)
		assert.Equal(t, "a@x.com", result.User.Email)
		throttle.AssertExpectations(t)
		activity.AssertExpectations(t)
	})

	t.Run("throttle failure is surfaced", func(t *testing.T) {
		throttle := new(MockLoginThrottle)
		throttle.On("Check", mock.Anything, "a@x.com", clientIP).Return(nil, errors.Unavailable(assert.AnError))

		svc := NewLoginService(NewAuthenticator(new(MockUserRepository), hasher, zerolog.Nop()), throttle, sessions, new(MockActivityService), zerolog.Nop())
		_, err := svc.Login(context.Background(), "a@x.com", "secret123", clientIP)
		assert.ErrorIs(t, err, errors.ErrUnavailable)
	})
}
