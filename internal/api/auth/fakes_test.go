package auth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/FACorreiaa/go-blog-api/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memUserRepo enforces the same unique keys as the users table.
type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*types.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[uuid.UUID]*types.User{}}
}

func (m *memUserRepo) CreateUser(_ context.Context, u *types.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
		if existing.Username == u.Username {
			return ErrUsernameTaken
		}
	}
	if u.ProfilePicture == "" {
		u.ProfilePicture = types.DefaultProfilePicture
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	stored := *u
	m.users[u.ID] = &stored
	return nil
}

func (m *memUserRepo) GetUserByEmail(_ context.Context, email string) (*types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user with email %s: %w", email, types.ErrNotFound)
}

func (m *memUserRepo) GetUserByID(_ context.Context, id uuid.UUID) (*types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, types.NewError(types.ErrNotFound, "User not found")
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) CreateUser(ctx context.Context, u *types.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepo) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}
