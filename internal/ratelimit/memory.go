package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sliding-window hit logs in process memory. Limits are per
// process, so it is the fallback when Redis is not configured or not reachable.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*hitLog
	stop    chan struct{}
	once    sync.Once
}

type hitLog struct {
	hits   []time.Time
	window time.Duration
}

// NewMemoryStore starts a janitor that drops idle keys every cleanupInterval.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		windows: make(map[string]*hitLog),
		stop:    make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go s.janitor(cleanupInterval)
	}
	return s
}

func (s *MemoryStore) Hit(_ context.Context, key string, rule Rule, now time.Time) (Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, ok := s.windows[key]
	if !ok {
		log = &hitLog{window: rule.Window}
		s.windows[key] = log
	}
	log.trim(now.Add(-rule.Window))

	if len(log.hits) >= rule.Limit {
		return Usage{Allowed: false, Count: len(log.hits), Oldest: log.oldest()}, nil
	}
	log.hits = append(log.hits, now)
	return Usage{Allowed: true, Count: len(log.hits), Oldest: log.oldest()}, nil
}

// Close stops the janitor.
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup(time.Now())
		case <-s.stop:
			return
		}
	}
}

// cleanup drops keys whose hits have all left their window.
func (s *MemoryStore) cleanup(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, log := range s.windows {
		log.trim(now.Add(-log.window))
		if len(log.hits) == 0 {
			delete(s.windows, key)
		}
	}
}

// trim drops hits at or before cutoff. Hits are appended in time order.
func (l *hitLog) trim(cutoff time.Time) {
	i := 0
	for i < len(l.hits) && !l.hits[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.hits = append(l.hits[:0], l.hits[i:]...)
	}
}

func (l *hitLog) oldest() time.Time {
	if len(l.hits) == 0 {
		return time.Time{}
	}
	return l.hits[0]
}
