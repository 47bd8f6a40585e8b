package assistant

import (
	"context"
	"errors"

	"github.com/xaenox/assistant-backend/internal/models"
)

var (
	ErrRunFailed  = errors.New("assistant run did not complete")
	ErrNoMessages = errors.New("thread has no messages")
)

// Service is the subset of the assistant API the dispatcher needs
type Service interface {
	// CreateThread starts a thread seeded with one user message
	CreateThread(ctx context.Context, content string) (models.Thread, error)
	AddMessage(ctx context.Context, threadID string, content string) error
	// RunAndWait runs assistantID against the thread and blocks until the run is terminal
	RunAndWait(ctx context.Context, threadID string, assistantID string) error
	// LatestMessage returns the newest message of the thread
	LatestMessage(ctx context.Context, threadID string) (models.Message, error)
	// History returns every message of the thread, oldest first
	History(ctx context.Context, threadID string) ([]models.Message, error)
}

type runState int

const (
	runPending runState = iota
	runCompleted
	runStopped
)

// Run statuses as reported by the API
const (
	statusQueued         = "queued"
	statusInProgress     = "in_progress"
	statusCancelling     = "cancelling"
	statusCompleted      = "completed"
	statusRequiresAction = "requires_action"
	statusFailed         = "failed"
	statusCancelled      = "cancelled"
	statusExpired        = "expired"
	statusIncomplete     = "incomplete"
)

func classifyRun(status string) runState {
	switch status {
	case statusQueued, statusInProgress, statusCancelling:
		return runPending
	case statusCompleted:
		return runCompleted
	default:
		// requires_action is terminal too: no tool outputs are ever submitted
		return runStopped
	}
}
