package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/xaenox/assistant-backend/internal/models"
)

type MemoryStorage struct {
	mu    sync.RWMutex
	users map[string]*models.UserData
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users: make(map[string]*models.UserData),
	}
}

// PutUserData creates or replaces the data payload of a user, keeping the current thread
func (s *MemoryStorage) PutUserData(ctx context.Context, userID string, data json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[userID]
	if !exists {
		user = &models.UserData{UserID: userID}
		s.users[userID] = user
	}
	user.Data = append(json.RawMessage(nil), data...)
	return nil
}

// LoadSeedFile reads a JSON object of user ID to data payload and stores every entry
func (s *MemoryStorage) LoadSeedFile(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("error reading seed file: %w", err)
	}

	var seed map[string]json.RawMessage
	if err := json.Unmarshal(raw, &seed); err != nil {
		return 0, fmt.Errorf("error parsing seed file: %w", err)
	}

	for userID, data := range seed {
		if err := s.PutUserData(ctx, userID, data); err != nil {
			return 0, err
		}
	}
	return len(seed), nil
}

func (s *MemoryStorage) GetUserData(ctx context.Context, userID string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[userID]
	if !exists {
		return nil, ErrUserNotFound
	}
	if len(user.Data) == 0 {
		return json.RawMessage("null"), nil
	}
	return append(json.RawMessage(nil), user.Data...), nil
}

func (s *MemoryStorage) GetThread(ctx context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[userID]
	if !exists {
		return "", ErrUserNotFound
	}
	if user.CurrentThread == "" {
		return "", ErrNoThread
	}
	return user.CurrentThread, nil
}

func (s *MemoryStorage) SaveThread(ctx context.Context, userID string, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[userID]
	if !exists {
		return ErrUserNotFound
	}
	user.CurrentThread = threadID
	return nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
