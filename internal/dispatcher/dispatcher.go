package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xaenox/assistant-backend/internal/assistant"
	"github.com/xaenox/assistant-backend/internal/auth"
	"github.com/xaenox/assistant-backend/internal/storage"
	"github.com/xaenox/assistant-backend/pkg/logger"
	"go.uber.org/zap"
)

const (
	FuncCreateThread        = "create-thread"
	FuncSendMessage         = "send-message"
	FuncGenerateDescription = "generate-description"

	// legacyModeThread is what older clients send as mode to create a thread
	legacyModeThread = "thread"
)

var (
	ErrInvalidMode  = errors.New("invalid mode")
	ErrEmptyMessage = errors.New("message is required")
)

type Config struct {
	ChatAssistantID        string
	DescriptionAssistantID string
}

// Request is the JSON body accepted by the endpoint
type Request struct {
	Func        string `json:"func"`
	Mode        string `json:"mode"`
	Message     string `json:"message"`
	ProductPage string `json:"productPage"`
}

type CreateThreadResponse struct {
	ThreadID string `json:"thread_id"`
}

type MessageResponse struct {
	Message json.RawMessage `json:"message"`
}

type Dispatcher struct {
	storage   storage.Storage
	assistant assistant.Service
	resolver  auth.Resolver
	config    Config
	logger    *zap.Logger
}

func New(store storage.Storage, svc assistant.Service, resolver auth.Resolver, config Config, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		storage:   store,
		assistant: svc,
		resolver:  resolver,
		config:    config,
		logger:    logger,
	}
}

// Dispatch runs the action named by the body's func (or legacy mode) field.
// Only the action name is decoded before routing, so an unknown action is
// reported as ErrInvalidMode whatever the other fields contain.
func (d *Dispatcher) Dispatch(ctx context.Context, authorization string, body []byte) (any, error) {
	var route struct {
		Func any `json:"func"`
		Mode any `json:"mode"`
	}
	if err := json.Unmarshal(body, &route); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}

	action, _ := route.Func.(string)
	if action == "" {
		action, _ = route.Mode.(string)
		if action == legacyModeThread {
			action = FuncCreateThread
		}
	}

	switch action {
	case FuncCreateThread:
		return d.createThread(ctx, authorization)
	case FuncSendMessage, FuncGenerateDescription:
		var req Request
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("invalid request body: %w", err)
		}
		if action == FuncSendMessage {
			return d.sendMessage(ctx, authorization, req.Message)
		}
		return d.generateDescription(ctx, authorization, req.ProductPage)
	default:
		return nil, ErrInvalidMode
	}
}

func (d *Dispatcher) caller(ctx context.Context, authorization string) (string, error) {
	token, err := auth.BearerToken(authorization)
	if err != nil {
		return "", err
	}
	return d.resolver.Resolve(ctx, token)
}

func (d *Dispatcher) createThread(ctx context.Context, authorization string) (*CreateThreadResponse, error) {
	log := logger.WithContext(ctx, d.logger)

	userID, err := d.caller(ctx, authorization)
	if err != nil {
		return nil, err
	}

	data, err := d.storage.GetUserData(ctx, userID)
	if err != nil {
		log.Error("Failed to get user data", zap.Error(err), zap.String("user_id", userID))
		return nil, err
	}

	var content bytes.Buffer
	if err := json.Compact(&content, data); err != nil {
		return nil, fmt.Errorf("invalid user data: %w", err)
	}

	thread, err := d.assistant.CreateThread(ctx, content.String())
	if err != nil {
		return nil, err
	}

	// A failure here leaves the new thread orphaned on the assistant side
	if err := d.storage.SaveThread(ctx, userID, thread.ID); err != nil {
		log.Error("Failed to save thread",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("thread_id", thread.ID))
		return nil, err
	}

	log.Info("Thread created", zap.String("user_id", userID), zap.String("thread_id", thread.ID))
	return &CreateThreadResponse{ThreadID: thread.ID}, nil
}

func (d *Dispatcher) sendMessage(ctx context.Context, authorization string, message string) (*MessageResponse, error) {
	log := logger.WithContext(ctx, d.logger)

	if message == "" {
		return nil, ErrEmptyMessage
	}

	userID, err := d.caller(ctx, authorization)
	if err != nil {
		return nil, err
	}

	threadID, err := d.storage.GetThread(ctx, userID)
	if err != nil {
		log.Error("Failed to get current thread", zap.Error(err), zap.String("user_id", userID))
		return nil, err
	}

	if err := d.assistant.AddMessage(ctx, threadID, message); err != nil {
		return nil, err
	}

	if err := d.assistant.RunAndWait(ctx, threadID, d.config.ChatAssistantID); err != nil {
		return nil, err
	}

	reply, err := d.assistant.LatestMessage(ctx, threadID)
	if err != nil {
		return nil, err
	}

	log.Info("Message answered",
		zap.String("user_id", userID),
		zap.String("thread_id", threadID),
		zap.String("message_id", reply.ID))
	return &MessageResponse{Message: reply.Content}, nil
}

type historyEntry struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

func (d *Dispatcher) generateDescription(ctx context.Context, authorization string, productPage string) (*MessageResponse, error) {
	log := logger.WithContext(ctx, d.logger)

	userID, err := d.caller(ctx, authorization)
	if err != nil {
		return nil, err
	}

	chatThreadID, err := d.storage.GetThread(ctx, userID)
	if err != nil {
		log.Error("Failed to get current thread", zap.Error(err), zap.String("user_id", userID))
		return nil, err
	}

	history, err := d.assistant.History(ctx, chatThreadID)
	if err != nil {
		return nil, err
	}

	entries := make([]historyEntry, 0, len(history))
	for _, m := range history {
		entries = append(entries, historyEntry{Role: m.Role, Content: m.Content})
	}
	chatHistory, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat history: %w", err)
	}

	thread, err := d.assistant.CreateThread(ctx, descriptionPrompt(string(chatHistory), productPage))
	if err != nil {
		return nil, err
	}

	if err := d.assistant.RunAndWait(ctx, thread.ID, d.config.DescriptionAssistantID); err != nil {
		return nil, err
	}

	description, err := d.assistant.LatestMessage(ctx, thread.ID)
	if err != nil {
		return nil, err
	}

	log.Info("Description generated",
		zap.String("user_id", userID),
		zap.String("chat_thread_id", chatThreadID),
		zap.String("thread_id", thread.ID),
		zap.Int("history_length", len(history)))
	return &MessageResponse{Message: description.Content}, nil
}

func descriptionPrompt(chatHistory string, productPage string) string {
	return fmt.Sprintf(`Chat history with the user:
%s

Product page:
%s

Using what the chat history tells you about this user, write a description of the product on the product page that is tailored to them.`, chatHistory, productPage)
}
