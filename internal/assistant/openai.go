package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/xaenox/assistant-backend/internal/models"
	"go.uber.org/zap"
)

const historyPageSize = 100

type Config struct {
	APIKey string
	// BaseURL overrides the API endpoint, e.g. for a proxy
	BaseURL      string
	PollInterval time.Duration
	// RunTimeout bounds RunAndWait; zero waits as long as the caller's context allows
	RunTimeout time.Duration
}

type OpenAIService struct {
	client       *openai.Client
	pollInterval time.Duration
	runTimeout   time.Duration
	logger       *zap.Logger
}

func NewOpenAIService(cfg Config, logger *zap.Logger) *OpenAIService {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	return &OpenAIService{
		client:       openai.NewClientWithConfig(clientConfig),
		pollInterval: pollInterval,
		runTimeout:   cfg.RunTimeout,
		logger:       logger,
	}
}

func (s *OpenAIService) CreateThread(ctx context.Context, content string) (models.Thread, error) {
	thread, err := s.client.CreateThread(ctx, openai.ThreadRequest{
		Messages: []openai.ThreadMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: content,
			},
		},
	})
	if err != nil {
		s.logger.Error("Failed to create thread", zap.Error(err))
		return models.Thread{}, err
	}

	return models.Thread{ID: thread.ID}, nil
}

func (s *OpenAIService) AddMessage(ctx context.Context, threadID string, content string) error {
	_, err := s.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: content,
	})
	if err != nil {
		s.logger.Error("Failed to add message",
			zap.Error(err),
			zap.String("thread_id", threadID))
		return err
	}
	return nil
}

func (s *OpenAIService) RunAndWait(ctx context.Context, threadID string, assistantID string) error {
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	run, err := s.client.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID: assistantID,
	})
	if err != nil {
		s.logger.Error("Failed to create run",
			zap.Error(err),
			zap.String("thread_id", threadID),
			zap.String("assistant_id", assistantID))
		return err
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		switch classifyRun(string(run.Status)) {
		case runCompleted:
			s.logger.Debug("Run completed",
				zap.String("thread_id", threadID),
				zap.String("run_id", run.ID))
			return nil
		case runStopped:
			err := runError(run)
			s.logger.Warn("Run stopped",
				zap.Error(err),
				zap.String("thread_id", threadID),
				zap.String("run_id", run.ID))
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		run, err = s.client.RetrieveRun(ctx, threadID, run.ID)
		if err != nil {
			s.logger.Error("Failed to retrieve run",
				zap.Error(err),
				zap.String("thread_id", threadID))
			return err
		}
	}
}

func runError(run openai.Run) error {
	if run.LastError != nil && run.LastError.Message != "" {
		return fmt.Errorf("%w: run %s %s: %s", ErrRunFailed, run.ID, run.Status, run.LastError.Message)
	}
	return fmt.Errorf("%w: run %s ended with status %s", ErrRunFailed, run.ID, run.Status)
}

func (s *OpenAIService) LatestMessage(ctx context.Context, threadID string) (models.Message, error) {
	// Ask for newest-first explicitly instead of trusting the default order
	limit := 1
	order := "desc"
	list, err := s.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return models.Message{}, err
	}
	if len(list.Messages) == 0 {
		return models.Message{}, ErrNoMessages
	}
	return toModel(list.Messages[0])
}

func (s *OpenAIService) History(ctx context.Context, threadID string) ([]models.Message, error) {
	limit := historyPageSize
	order := "asc"
	var after *string

	var history []models.Message
	for {
		list, err := s.client.ListMessage(ctx, threadID, &limit, &order, after, nil, nil)
		if err != nil {
			return nil, err
		}

		for _, m := range list.Messages {
			msg, err := toModel(m)
			if err != nil {
				return nil, err
			}
			history = append(history, msg)
		}

		if !list.HasMore || list.LastID == nil || len(list.Messages) == 0 {
			return history, nil
		}
		after = list.LastID
	}
}

func toModel(m openai.Message) (models.Message, error) {
	content, err := json.Marshal(m.Content)
	if err != nil {
		return models.Message{}, fmt.Errorf("failed to encode message content: %w", err)
	}
	return models.Message{
		ID:      m.ID,
		Role:    m.Role,
		Content: content,
	}, nil
}
