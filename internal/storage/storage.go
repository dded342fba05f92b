package storage

import "github.com/cryptobluejava/phbt/internal/model"

// Storage defines a sink for event records.
type Storage interface {
	PutEventBatch(events []model.Event) error
}
