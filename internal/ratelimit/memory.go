package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// Limiter decides whether a user may run another search.
type Limiter interface {
	Allow(ctx context.Context, userID int64) (bool, error)
}

type Config struct {
	Burst        int
	RefillPerMin int
	// IdleTTL drops buckets of users not seen for this long.
	IdleTTL       time.Duration
	SweepInterval time.Duration
}

type bucket struct {
	tokens   float64
	lastRef  time.Time
	lastSeen time.Time
}

// Memory is a per-user token bucket kept in process memory.
type Memory struct {
	cfg       Config
	rate      float64
	capacity  float64
	now       func() time.Time
	mu        sync.Mutex
	buckets   map[int64]*bucket
	lastSweep time.Time
}

func NewMemory(cfg Config) *Memory {
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.RefillPerMin < 1 {
		cfg.RefillPerMin = 1
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	return &Memory{
		cfg:       cfg,
		rate:      float64(cfg.RefillPerMin) / 60.0,
		capacity:  float64(cfg.Burst),
		now:       time.Now,
		buckets:   make(map[int64]*bucket, 256),
		lastSweep: time.Now(),
	}
}

func (m *Memory) Allow(_ context.Context, userID int64) (bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.lastSweep) >= m.cfg.SweepInterval {
		m.sweepLocked(now)
	}

	b := m.buckets[userID]
	if b == nil {
		b = &bucket{tokens: m.capacity, lastRef: now}
		m.buckets[userID] = b
	}
	b.lastSeen = now

	if elapsed := now.Sub(b.lastRef).Seconds(); elapsed > 0 {
		b.tokens = math.Min(m.capacity, b.tokens+elapsed*m.rate)
		b.lastRef = now
	}
	if b.tokens < 1.0 {
		return false, nil
	}
	b.tokens--
	return true, nil
}

func (m *Memory) sweepLocked(now time.Time) {
	for id, b := range m.buckets {
		if now.Sub(b.lastSeen) > m.cfg.IdleTTL {
			delete(m.buckets, id)
		}
	}
	m.lastSweep = now
}

// Unlimited allows everything.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, int64) (bool, error) { return true, nil }
