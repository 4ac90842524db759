package messaging

import (
	"context"
	"fmt"
	"sync"

	"team-notifier/internal/common/logger"
)

const LogChannel = "log"

// LogSender writes messages to the log instead of delivering them. It backs
// dry runs and the "log" channel.
type LogSender struct {
	logger logger.Logger

	mu   sync.Mutex
	seq  int
	sent []SentMessage
}

// SentMessage is a message captured by LogSender.
type SentMessage struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

func NewLogSender(log logger.Logger) *LogSender {
	return &LogSender{logger: log}
}

func (s *LogSender) Channel() string { return LogChannel }

func (s *LogSender) Send(_ context.Context, to, body string) (Receipt, error) {
	s.mu.Lock()
	s.seq++
	id := fmt.Sprintf("log-%d", s.seq)
	s.sent = append(s.sent, SentMessage{To: to, Body: body})
	s.mu.Unlock()

	s.logger.Info("Message not sent (log channel)", map[string]interface{}{
		"to":   to,
		"body": body,
		"id":   id,
	})
	return Receipt{ProviderID: id}, nil
}

// Messages returns a copy of everything sent so far.
func (s *LogSender) Messages() []SentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SentMessage(nil), s.sent...)
}
