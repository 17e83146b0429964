// Package notify surfaces the outcome of user-triggered mutations, the way
// the web storefront shows toasts.
package notify

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/example/coffee-storefront/internal/api"
)

// Level distinguishes success from failure toasts.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notifier receives user-facing feedback.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Toast is one delivered notification.
type Toast struct {
	Level   Level
	Message string
}

// Service prints toasts to a writer and mirrors them to the log.
type Service struct {
	mu     sync.Mutex
	out    io.Writer
	logger *zap.Logger
}

// NewService creates a notifier writing to out. A nil out only logs.
func NewService(out io.Writer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{out: out, logger: logger}
}

func (s *Service) Success(msg string) {
	s.logger.Info("toast", zap.String("level", string(LevelSuccess)), zap.String("message", msg))
	s.write("✓", msg)
}

func (s *Service) Error(msg string) {
	s.logger.Warn("toast", zap.String("level", string(LevelError)), zap.String("message", msg))
	s.write("✗", msg)
}

func (s *Service) write(mark, msg string) {
	if s.out == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "%s %s\n", mark, msg)
}

// Failure reports err through n using the API's message when there is one.
// An API error without a message yields an empty toast.
func Failure(n Notifier, err error) {
	if n == nil || err == nil {
		return
	}
	n.Error(api.Message(err))
}

// Discard drops every notification.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Success(string) {}
func (discard) Error(string)   {}
