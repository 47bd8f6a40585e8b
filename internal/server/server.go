package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xaenox/assistant-backend/internal/dispatcher"
	"go.uber.org/zap"
)

// Dispatcher runs one action for an authenticated request body
type Dispatcher interface {
	Dispatch(ctx context.Context, authorization string, body []byte) (any, error)
}

// invalidModeMessage is the fixed body text clients expect for an unknown action
const invalidModeMessage = "Invalid mode"

type errorResponse struct {
	Error string `json:"error"`
}

type Server struct {
	dispatcher Dispatcher
	logger     *zap.Logger
}

func New(d Dispatcher, logger *zap.Logger) *Server {
	return &Server{dispatcher: d, logger: logger}
}

// Router serves the endpoint on path for every method
func (s *Server) Router(path string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog(s.logger), CORS())
	r.Any(path, s.handle)
	return r
}

func (s *Server) handle(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	resp, err := s.dispatcher.Dispatch(c.Request.Context(), c.GetHeader("Authorization"), body)
	if errors.Is(err, dispatcher.ErrInvalidMode) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: invalidModeMessage})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}
