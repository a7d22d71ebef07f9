// Package inbox runs one unread summary per logged-in session, fed by the backend poll and,
// when configured, the push channel.
package inbox

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"homecare-portal/internal/models"
	"homecare-portal/internal/push"
	"homecare-portal/internal/unread"
)

// Config configures a Tracker.
type Config struct {
	// PushURL is the backend realtime endpoint. Empty disables push.
	PushURL      string
	PollInterval time.Duration
	Logger       *zap.Logger
}

type tracked struct {
	cell   *unread.Cell
	cancel context.CancelFunc
	done   sync.WaitGroup
}

// Tracker owns the unread cells of every active session.
type Tracker struct {
	source   unread.SummarySource
	pushURL  string
	interval time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	sessions map[string]*tracked
}

// NewTracker creates an empty tracker.
func NewTracker(source unread.SummarySource, cfg Config) *Tracker {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		source:   source,
		pushURL:  cfg.PushURL,
		interval: cfg.PollInterval,
		logger:   logger,
		sessions: make(map[string]*tracked),
	}
}

// Ensure returns the session's cell, starting its producers on first use. The first
// poll completes before Ensure returns so callers see data immediately.
func (t *Tracker) Ensure(ctx context.Context, s models.Session) *unread.Cell {
	t.mu.Lock()
	if tr, ok := t.sessions[s.ID]; ok {
		t.mu.Unlock()
		return tr.cell
	}

	logger := t.logger.With(zap.String("session_id", s.ID))
	runCtx, cancel := context.WithCancel(context.Background())
	tr := &tracked{cell: unread.NewCell(), cancel: cancel}
	poller := unread.NewPoller(t.source, tr.cell, s.Token, t.interval, logger)
	t.start(runCtx, tr, poller, s, logger)
	t.sessions[s.ID] = tr
	t.mu.Unlock()

	firstCtx, stop := context.WithTimeout(ctx, 5*time.Second)
	poller.Tick(firstCtx)
	stop()

	logger.Debug("unread tracking started")
	return tr.cell
}

// start launches the cell owner and its producers. Every goroutine is counted before the
// entry becomes visible to Stop.
func (t *Tracker) start(runCtx context.Context, tr *tracked, poller *unread.Poller, s models.Session, logger *zap.Logger) {
	var listener *push.Listener
	if t.pushURL != "" {
		listener = push.NewListener(push.Config{
			URL:    t.pushURL,
			Token:  s.Token,
			UserID: s.UserID,
			Logger: logger,
		}, tr.cell)
	}

	n := 2
	if listener != nil {
		n++
	}
	tr.done.Add(n)

	go func() {
		defer tr.done.Done()
		tr.cell.Run(runCtx)
	}()

	go func() {
		defer tr.done.Done()
		select {
		case <-runCtx.Done():
			return
		case <-time.After(t.pollInterval()):
		}
		poller.Run(runCtx)
	}()

	if listener != nil {
		go func() {
			defer tr.done.Done()
			if err := listener.Run(runCtx); err != nil {
				logger.Warn("push listener stopped", zap.Error(err))
			}
		}()
	}
}

// Lookup returns the session's cell if tracking is active.
func (t *Tracker) Lookup(sessionID string) (*unread.Cell, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tr, ok := t.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return tr.cell, true
}

// Stop ends tracking for a session and waits for its goroutines.
func (t *Tracker) Stop(sessionID string) {
	t.mu.Lock()
	tr, ok := t.sessions[sessionID]
	delete(t.sessions, sessionID)
	t.mu.Unlock()
	if !ok {
		return
	}
	tr.cancel()
	tr.done.Wait()
}

// Close stops every session.
func (t *Tracker) Close() {
	t.mu.Lock()
	ids := make([]string, 0, len(t.sessions))
	for id := range t.sessions {
		ids = append(ids, id)
	}
	t.mu.Unlock()
	for _, id := range ids {
		t.Stop(id)
	}
}

// Len returns the number of tracked sessions.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

func (t *Tracker) pollInterval() time.Duration {
	if t.interval <= 0 {
		return 30 * time.Second
	}
	return t.interval
}
