package limiter

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

type counter struct {
	fails        int
	first        time.Time
	blockedUntil time.Time
}

// Memory is an in-process limiter. It tracks at most size (email, ip) pairs;
// the least recently used pair is forgotten first.
type Memory struct {
	mu     sync.Mutex
	cache  *lru.Cache
	policy Policy
	now    func() time.Time
}

// NewMemory constructs an in-process limiter.
func NewMemory(size int, p Policy) (*Memory, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Memory{cache: c, policy: p, now: time.Now}, nil
}

func key(email string, ipHash []byte) string { return email + "\x00" + string(ipHash) }

func (m *Memory) get(k string) *counter {
	if v, ok := m.cache.Get(k); ok {
		return v.(*counter)
	}
	return nil
}

// Allow reports whether sign-in is allowed for (email, ip).
func (m *Memory) Allow(_ context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.get(key(email, ipHash))
	if c == nil {
		return true, 0, nil
	}
	if now := m.now(); c.blockedUntil.After(now) {
		return false, c.blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

// Success forgets (email, ip).
func (m *Memory) Success(_ context.Context, email string, ipHash []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Remove(key(email, ipHash))
	return nil
}

// Failure counts a failed attempt within the policy window.
func (m *Memory) Failure(_ context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, now := key(email, ipHash), m.now()
	c := m.get(k)
	if c == nil || now.Sub(c.first) > m.policy.Window {
		c = &counter{first: now}
	}
	c.fails++
	m.cache.Add(k, c)
	if c.fails >= m.policy.MaxFails {
		c.blockedUntil = now.Add(m.policy.BlockFor)
		return true, m.policy.BlockFor, nil
	}
	return false, 0, nil
}
