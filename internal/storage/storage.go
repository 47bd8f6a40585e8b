package storage

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrUserNotFound = errors.New("user data not found")
	ErrNoThread     = errors.New("no current thread")
)

// Storage is the user_data table as seen by the dispatcher
type Storage interface {
	GetUserData(ctx context.Context, userID string) (json.RawMessage, error)
	Close() error

	// Embed ThreadStorage interface
	ThreadStorage
}

// ThreadStorage tracks the single current thread of each user
type ThreadStorage interface {
	GetThread(ctx context.Context, userID string) (string, error)
	SaveThread(ctx context.Context, userID string, threadID string) error
}
