package logger

import (
	"context"
	"sync"
	"time"

	logModel "github.com/VersatileFusion/sangshekkan/models/log"
	"github.com/VersatileFusion/sangshekkan/repository"
	"github.com/VersatileFusion/sangshekkan/types"
)

const auditBufferSize = 100

// AsyncLogger persists request audit entries off the request path.
type AsyncLogger struct {
	repo    repository.LogRepository
	channel chan types.LogEntry
	done    chan struct{}
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
}

func NewAsyncLogger(repo repository.LogRepository) *AsyncLogger {
	return &AsyncLogger{
		repo:    repo,
		channel: make(chan types.LogEntry, auditBufferSize),
		done:    make(chan struct{}),
	}
}

// ProcessLog drains the channel until Close is called.
func (l *AsyncLogger) ProcessLog() {
	defer close(l.done)
	Debug("Starting asynchronous audit logger")

	for entry := range l.channel {
		record := logModel.Log{
			Method:          entry.Method,
			URL:             entry.URL,
			RequestBody:     entry.RequestBody,
			ResponseBody:    entry.ResponseBody,
			RequestHeaders:  entry.RequestHeaders,
			ResponseHeaders: entry.ResponseHeaders,
			StatusCode:      entry.StatusCode,
			CreatedAt:       entry.CreatedAt,
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := l.repo.SaveLog(ctx, &record); err != nil {
			Error("Failed to insert audit log entry", err)
		}
		cancel()
	}
}

// Log queues an entry. A full buffer drops the entry instead of blocking the request.
func (l *AsyncLogger) Log(entry types.LogEntry) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return false
	}

	select {
	case l.channel <- entry:
		return true
	default:
		Warning("Audit log buffer full, dropping entry for " + entry.Method + " " + entry.URL)
		return false
	}
}

// Close stops accepting entries and waits for queued ones to be written.
func (l *AsyncLogger) Close(ctx context.Context) error {
	l.once.Do(func() {
		l.mu.Lock()
		l.closed = true
		close(l.channel)
		l.mu.Unlock()
	})

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
