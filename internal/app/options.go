package service

import (
	"github.com/okian/tatami/internal/adapters/persistence"
	"github.com/okian/tatami/internal/domain/types"
	"github.com/okian/tatami/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of persistence workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the write-behind queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the number of remembered command ids.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPersister sets the backend schedule records are loaded from and saved to.
func WithPersister(p persistence.Persister) Option {
	return func(s *Service) {
		if p != nil {
			s.persister = p
		}
	}
}

// WithDefaultSchedule sets the configuration new tournaments start with.
func WithDefaultSchedule(cfg types.ScheduleConfig) Option {
	return func(s *Service) {
		s.defaults = cfg
	}
}
