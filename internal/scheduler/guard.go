package scheduler

import (
	"replayscraper/pkg/logger"
	"replayscraper/pkg/metrics"
	"replayscraper/pkg/store"
)

// SizeReader reports the current size of the store in bytes
type SizeReader interface {
	Size() (int64, error)
}

// SizeGuard compares the store size with a fixed ceiling. The size is read
// fresh on every check.
type SizeGuard struct {
	reader  SizeReader
	max     int64
	metrics *metrics.Metrics
	logger  logger.Logger
}

// NewSizeGuard creates a guard tripping once the store reaches max bytes
func NewSizeGuard(reader SizeReader, max int64, m *metrics.Metrics, log logger.Logger) *SizeGuard {
	if log == nil {
		log = logger.GetLogger()
	}
	return &SizeGuard{
		reader:  reader,
		max:     max,
		metrics: m,
		logger:  log.WithField("component", "size_guard"),
	}
}

// Max returns the ceiling in bytes
func (g *SizeGuard) Max() int64 {
	return g.max
}

// Exceeded reports whether the store is at or above the ceiling, together
// with the size read. A failed read counts as not exceeded.
func (g *SizeGuard) Exceeded() (bool, int64) {
	size, err := g.reader.Size()
	if err != nil {
		g.logger.WithError(err).Warn("Could not read store size")
		return false, 0
	}
	if g.metrics != nil {
		g.metrics.StoreSize.Set(float64(size))
	}

	if size >= g.max {
		g.logger.WarnWithFields("Store has reached its maximum size", map[string]interface{}{
			"size": store.HumanSize(size),
			"max":  store.HumanSize(g.max),
		})
		return true, size
	}
	return false, size
}
