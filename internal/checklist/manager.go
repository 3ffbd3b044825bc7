package checklist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Manager keeps one Session per open checklist page. Sessions expire after
// Options.TTL without activity.
type Manager struct {
	source   Source
	recorder Recorder
	opts     Options
	sessions *cache.Cache
	logger   *zap.SugaredLogger
	newID    func() string
}

// NewManager creates a session manager.
func NewManager(source Source, recorder Recorder, opts Options, logger *zap.SugaredLogger) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Manager{
		source:   source,
		recorder: recorder,
		opts:     opts,
		sessions: cache.New(opts.TTL, 10*time.Minute),
		logger:   logger,
		newID:    uuid.NewString,
	}
}

// Create opens a new session: loads the truck tabs and, when present,
// selects the default truck. A registry failure leaves the session without
// tabs and with LoadError set.
func (m *Manager) Create(ctx context.Context) *Session {
	id := m.newID()

	trucks, err := m.source.Trucks(ctx)
	sess := NewSession(id, trucks, m.source, m.recorder, m.opts, m.logger)
	if err != nil {
		m.logger.Errorw("truck tabs load error", "session", id, "err", err)
		sess.loadErr = fmt.Sprintf("Error loading trucks: %v", err)
	}
	m.sessions.SetDefault(id, sess)

	if err == nil {
		if _, ok := sess.lookup(m.opts.DefaultTruck); ok {
			_ = sess.SelectTruck(ctx, m.opts.DefaultTruck)
		}
	}
	return sess
}

// Get returns a live session and extends its lifetime.
func (m *Manager) Get(id string) (*Session, error) {
	v, found := m.sessions.Get(id)
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess := v.(*Session)
	m.sessions.SetDefault(id, sess)
	return sess, nil
}

// Delete ends a session.
func (m *Manager) Delete(id string) {
	m.sessions.Delete(id)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	return m.sessions.ItemCount()
}
