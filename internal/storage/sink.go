package storage

import (
	"go.uber.org/zap"

	"github.com/cryptobluejava/phbt/internal/model"
)

// Sink buffers published events and flushes them to Storage in one batch.
// Publication is fire-and-forget for the engines; write failures surface only
// at flush time.
type Sink struct {
	storage Storage
	logger  *zap.Logger
	pending []model.Event
}

func NewSink(storage Storage, logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{storage: storage, logger: logger}
}

// Publish queues an event for the next flush.
func (s *Sink) Publish(event model.Event) {
	s.pending = append(s.pending, event)
	s.logger.Debug("event published", zap.String("type", string(event.Type)))
}

// Flush writes all queued events and clears the buffer.
func (s *Sink) Flush() error {
	if len(s.pending) == 0 {
		return nil
	}
	if err := s.storage.PutEventBatch(s.pending); err != nil {
		return err
	}
	s.pending = s.pending[:0]
	return nil
}

// Pending returns the queued, unflushed events.
func (s *Sink) Pending() []model.Event {
	return s.pending
}
