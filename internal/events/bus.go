// Package events re-exports the platform event bus so modules can depend on
// internal/events only.
package events

import (
	platformevents "ipkwealth_backend/platform/events"
	"ipkwealth_backend/platform/logger"
)

type InMemoryBus = platformevents.InMemoryBus

func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
