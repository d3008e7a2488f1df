package sessioncache

import (
	"log/slog"
	"psk-resumption/session/tls/common/session"
	"sync"

	"github.com/pkg/errors"
)

type Memory struct {
	opts Options

	mu       sync.Mutex
	sessions map[string]*session.Session
}

var _ Store = (*Memory)(nil)

func NewMemory(opts Options) *Memory {
	return &Memory{
		opts:     opts.withDefaults(),
		sessions: make(map[string]*session.Session),
	}
}

func (m *Memory) Put(sess *session.Session) error {
	if err := validate(sess); err != nil {
		return errors.Wrap(err, "putting session")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := string(sess.ID)
	if _, ok := m.sessions[key]; !ok && m.opts.Capacity > 0 && len(m.sessions) >= m.opts.Capacity {
		m.evictLocked()
	}
	m.sessions[key] = sess

	return nil
}

// evictLocked drops expired sessions, or the oldest one if none expired.
func (m *Memory) evictLocked() {
	now := m.opts.Clock.Now()

	var oldest string
	for key, sess := range m.sessions {
		if !sess.Rejoinable(now, m.opts.Lifetime) {
			delete(m.sessions, key)
			continue
		}
		if oldest == "" || sess.CreatedAt.Before(m.sessions[oldest].CreatedAt) {
			oldest = key
		}
	}

	if len(m.sessions) >= m.opts.Capacity && oldest != "" {
		delete(m.sessions, oldest)
		m.opts.Logger.Debug("evicted session", slog.Int("capacity", m.opts.Capacity))
	}
}

func (m *Memory) Pull(id []byte) (*session.Session, error) {
	m.mu.Lock()
	sess, ok := m.sessions[string(id)]
	delete(m.sessions, string(id))
	m.mu.Unlock()

	if !ok {
		return nil, ErrNotFound
	}

	if !sess.Rejoinable(m.opts.Clock.Now(), m.opts.Lifetime) {
		m.opts.Logger.Debug("dropped expired session", slog.Time("created_at", sess.CreatedAt))
		return nil, ErrNotFound
	}

	return sess, nil
}

func (m *Memory) Remove(id []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, string(id))
	return nil
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.sessions)
}
