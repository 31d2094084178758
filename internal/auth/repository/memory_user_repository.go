package repository

import (
	"sync"
	"time"

	authdomain "mailmirror-backend/internal/auth/domain"

	"github.com/google/uuid"
)

type memoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]authdomain.User
}

// NewMemoryUserRepository creates an in-process user repository
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{users: make(map[string]authdomain.User)}
}

func (r *memoryUserRepository) Create(user *authdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = *user
	return nil
}

func (r *memoryUserRepository) FindByID(id string) (*authdomain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (r *memoryUserRepository) UpdateOAuthTokens(userID, accessToken, refreshToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return nil
	}
	user.AccessToken = accessToken
	if refreshToken != "" {
		user.RefreshToken = refreshToken
	}
	user.UpdatedAt = time.Now()
	r.users[userID] = user
	return nil
}
