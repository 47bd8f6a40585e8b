package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	ProductionMode  = "production"
	DevelopmentMode = "development"
)

type ctxKey string

const RequestIDKey ctxKey = "request_id"

// New builds a JSON logger for production and a colored console logger otherwise
func New(mode string) (*zap.Logger, error) {
	var config zap.Config
	if mode == DevelopmentMode {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	return config.Build()
}

func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func RequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(RequestIDKey).(string)
	return requestID
}

// WithContext adds the request-scoped fields found in ctx
func WithContext(ctx context.Context, l *zap.Logger) *zap.Logger {
	if requestID := RequestID(ctx); requestID != "" {
		return l.With(zap.String(string(RequestIDKey), requestID))
	}
	return l
}
