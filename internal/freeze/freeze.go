// Package freeze provides the ingestion freeze switch: an operator
// circuit breaker that stops the publisher accepting uploads without
// taking the read surface down.
package freeze

import (
	"log/slog"
	"sync"
	"time"
)

// Config holds the freeze switch configuration.
type Config struct {
	Threshold int           // Number of authorized requests within Window to flip the switch
	Window    time.Duration // Sliding window the requests must fall inside
}

type Switch struct {
	cfg      Config
	mu       sync.Mutex
	requests []time.Time
	frozen   bool
}

// New creates a freeze switch with the given config.
func New(cfg Config) *Switch {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 3
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &Switch{cfg: cfg}
}

// RegisterFreezeRequest records one authorized freeze request and
// returns the number still needed. Reaching the threshold within the
// window engages the freeze. Repeated confirmation guards against a
// single leaked request freezing ingestion.
func (s *Switch) RegisterFreezeRequest() (remaining int, frozen bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-s.cfg.Window)
	filtered := s.requests[:0]
	for _, t := range s.requests {
		if t.After(cutoff) {
			filtered = append(filtered, t)
		}
	}
	s.requests = append(filtered, now)

	if len(s.requests) >= s.cfg.Threshold {
		if !s.frozen {
			slog.Warn("ingestion freeze engaged")
		}
		s.frozen = true
		s.requests = s.requests[:0]
		return 0, true
	}
	return s.cfg.Threshold - len(s.requests), s.frozen
}

// Unfreeze re-enables ingestion.
func (s *Switch) Unfreeze() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		slog.Info("ingestion freeze released")
	}
	s.frozen = false
	s.requests = s.requests[:0]
}

// Frozen reports whether uploads are currently refused.
func (s *Switch) Frozen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frozen
}
