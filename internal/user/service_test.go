package user

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curbshare/parking-backend/internal/auth"
)

type memRepo struct {
	mu    sync.Mutex
	users map[string]*User
}

func newMemRepo() *memRepo {
	return &memRepo{users: map[string]*User{}}
}

func (r *memRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memRepo) GetByID(_ context.Context, id string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memRepo) Create(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memRepo) UpdateLastLogin(_ context.Context, id string, t time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.LastLoginAt = &t
	return nil
}

func newTestService() Service {
	return NewService(newMemRepo(), auth.NewBcryptPasswordHasher(4))
}

func TestRegister(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterRequest{Email: "  Host@Example.com ", Password: "password1", Role: RoleHost})
	require.NoError(t, err)
	assert.Equal(t, "host@example.com", u.Email)
	assert.Equal(t, RoleHost, u.Role)
	assert.NotEqual(t, "password1", u.PasswordHash)

	d, err := svc.Register(ctx, RegisterRequest{Email: "driver@example.com", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, RoleDriver, d.Role)

	_, err = svc.Register(ctx, RegisterRequest{Email: "host@example.com", Password: "password1"})
	assert.ErrorIs(t, err, ErrEmailAlreadyUsed)

	_, err = svc.Register(ctx, RegisterRequest{Email: "short@example.com", Password: "pw"})
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	_, err = svc.Register(ctx, RegisterRequest{Email: "boss@example.com", Password: "password1", Role: RoleAdmin})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestLogin(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Email: "driver@example.com", Password: "password1"})
	require.NoError(t, err)

	u, err := svc.Login(ctx, "DRIVER@example.com", "password1")
	require.NoError(t, err)
	require.NotNil(t, u.LastLoginAt)

	_, err = svc.Login(ctx, "driver@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
