package chat

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"homecare-portal/internal/models"
	"homecare-portal/internal/observability"
)

// Key identifies one viewer's chat on one appointment.
type Key struct {
	SessionID     string
	AppointmentID models.ID
}

type entry struct {
	reconciler *Reconciler
	viewers    int
	cancel     context.CancelFunc
}

// Registry keeps the open chats of every session. A chat polls while at least one viewer holds
// it and is torn down when the last one releases it.
type Registry struct {
	backend  Backend
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	entries map[Key]*entry
}

// NewRegistry creates an empty registry.
func NewRegistry(backend Backend, interval time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Registry{
		backend:  backend,
		interval: interval,
		logger:   logger,
		entries:  make(map[Key]*entry),
	}
}

// Acquire returns the chat for key, opening it and starting its poll loop for the first viewer.
func (g *Registry) Acquire(ctx context.Context, key Key, session models.Session) (*Reconciler, error) {
	g.mu.Lock()
	if e, ok := g.entries[key]; ok {
		e.viewers++
		g.mu.Unlock()
		return e.reconciler, nil
	}
	g.mu.Unlock()

	r := NewReconciler(g.backend, Config{
		Token:         session.Token,
		ViewerID:      session.UserID,
		AppointmentID: key.AppointmentID,
		Logger:        g.logger,
	})
	if _, err := r.Open(ctx); err != nil {
		r.Close()
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	// Another viewer may have opened the same chat while we were fetching.
	if e, ok := g.entries[key]; ok {
		r.Close()
		e.viewers++
		return e.reconciler, nil
	}
	runCtx, cancel := context.WithCancel(context.Background())
	g.entries[key] = &entry{reconciler: r, viewers: 1, cancel: cancel}
	observability.SetChatsOpen(len(g.entries))
	go r.Run(runCtx, g.interval)
	return r, nil
}

// Lookup returns the chat for key if it is open.
func (g *Registry) Lookup(key Key) (*Reconciler, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.entries[key]
	if !ok {
		return nil, false
	}
	return e.reconciler, true
}

// Release drops one viewer and tears the chat down when none remain.
func (g *Registry) Release(key Key) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.entries[key]
	if !ok {
		return
	}
	e.viewers--
	if e.viewers > 0 {
		return
	}
	g.teardownLocked(key, e)
}

// CloseSession tears down every chat held by sessionID.
func (g *Registry) CloseSession(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for key, e := range g.entries {
		if key.SessionID == sessionID {
			g.teardownLocked(key, e)
		}
	}
}

// Close tears down every open chat.
func (g *Registry) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for key, e := range g.entries {
		g.teardownLocked(key, e)
	}
}

// Len returns the number of open chats.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

func (g *Registry) teardownLocked(key Key, e *entry) {
	e.cancel()
	e.reconciler.Close()
	delete(g.entries, key)
	observability.SetChatsOpen(len(g.entries))
	g.logger.Debug("chat closed",
		zap.String("session_id", key.SessionID),
		zap.String("appointment_id", key.AppointmentID.String()))
}
