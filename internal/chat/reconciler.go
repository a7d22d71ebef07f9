// Package chat keeps an appointment's chat history in sync with the backend. Sends are shown
// immediately as pending entries; the backend list is refetched on every confirmation and on
// a fixed polling interval.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"homecare-portal/internal/models"
	"homecare-portal/internal/observability"
)

// DefaultPollInterval matches the refetch cadence of the chat view.
const DefaultPollInterval = 4 * time.Second

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrSendFailed   = errors.New("message could not be sent")
	ErrClosed       = errors.New("chat closed")
)

// Backend is the slice of the marketplace API the reconciler needs.
type Backend interface {
	ListMessages(ctx context.Context, token string, appointmentID models.ID) ([]models.Message, error)
	SendMessage(ctx context.Context, token string, appointmentID models.ID, content string) (models.Message, error)
	MarkRead(ctx context.Context, token string, appointmentID models.ID) error
}

// Listener receives a copy of the message list whenever it changes.
type Listener func(msgs []models.Message)

// Reconciler owns the local message list of one appointment for one viewer.
type Reconciler struct {
	backend       Backend
	token         string
	viewerID      models.ID
	appointmentID models.ID
	logger        *zap.Logger
	now           func() time.Time

	mu        sync.Mutex
	persisted []models.Message
	pending   []models.Message
	draft     string
	last      Fingerprint
	closed    bool
	listeners map[int]Listener
	nextSub   int

	// notifyMu orders deliveries so listeners never see an older list after a newer one.
	notifyMu sync.Mutex

	stop     chan struct{}
	stopOnce sync.Once
}

// Config identifies the chat and its viewer.
type Config struct {
	Token         string
	ViewerID      models.ID
	AppointmentID models.ID
	Logger        *zap.Logger
	Now           func() time.Time
}

// NewReconciler builds a reconciler. Nothing is fetched until Open or Refresh.
func NewReconciler(backend Backend, cfg Config) *Reconciler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Reconciler{
		backend:       backend,
		token:         cfg.Token,
		viewerID:      cfg.ViewerID,
		appointmentID: cfg.AppointmentID,
		logger:        logger.With(zap.String("appointment_id", cfg.AppointmentID.String())),
		now:           now,
		stop:          make(chan struct{}),
	}
}

// AppointmentID returns the appointment this chat belongs to.
func (r *Reconciler) AppointmentID() models.ID { return r.appointmentID }

// Open performs the initial fetch and marks incoming messages read.
func (r *Reconciler) Open(ctx context.Context) ([]models.Message, error) {
	msgs, err := r.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := r.MarkReadIfNeeded(ctx, msgs); err != nil {
		r.logger.Warn("mark read on open failed", zap.Error(err))
	}
	return r.Messages(), nil
}

// Refresh replaces the persisted list with the backend's and keeps pending sends at the tail.
func (r *Reconciler) Refresh(ctx context.Context) ([]models.Message, error) {
	fetched, err := r.backend.ListMessages(ctx, r.token, r.appointmentID)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	msgs, ok := r.apply(fetched, true)
	if !ok {
		return nil, ErrClosed
	}
	return msgs, nil
}

// Send shows content as a pending message and creates it on the backend. On failure the
// pending entry is dropped and the draft restored so the user can retry.
func (r *Reconciler) Send(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyMessage
	}

	temp := models.Message{
		ID:            newPendingID(),
		Content:       content,
		CreatedAt:     r.now(),
		Sender:        models.UserRef{ID: r.viewerID},
		AppointmentID: r.appointmentID,
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.pending = append(r.pending, temp)
	r.draft = ""
	r.mu.Unlock()
	r.notify()

	_, err := r.backend.SendMessage(ctx, r.token, r.appointmentID, content)

	r.mu.Lock()
	r.pending = removeByID(r.pending, temp.ID)
	if err != nil && !r.closed {
		r.draft = content
	}
	r.mu.Unlock()

	if err != nil {
		observability.IncChatSend("error")
		r.logger.Warn("send message failed", zap.Error(err))
		r.notify()
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	observability.IncChatSend("ok")

	if _, err := r.Refresh(ctx); err != nil {
		// The message exists on the backend; the next poll picks it up.
		r.logger.Warn("refresh after send failed", zap.Error(err))
		r.notify()
	}
	return nil
}

// Poll refetches the list and applies it only when its fingerprint changed. Failures are
// logged and otherwise ignored; the next tick retries. It reports whether state changed.
func (r *Reconciler) Poll(ctx context.Context) bool {
	observability.IncChatPoll()
	fetched, err := r.backend.ListMessages(ctx, r.token, r.appointmentID)
	if err != nil {
		observability.IncChatPollError()
		r.logger.Debug("poll failed", zap.Error(err))
		return false
	}

	r.mu.Lock()
	unchanged := FingerprintOf(fetched) == r.last
	r.mu.Unlock()
	if unchanged {
		return false
	}

	msgs, ok := r.apply(fetched, false)
	if !ok {
		return false
	}
	if _, err := r.MarkReadIfNeeded(ctx, msgs); err != nil {
		r.logger.Debug("mark read after poll failed", zap.Error(err))
	}
	return true
}

// MarkReadIfNeeded marks the appointment read when msgs holds unread messages addressed to
// the viewer, then refreshes to pick up the corrected flags.
func (r *Reconciler) MarkReadIfNeeded(ctx context.Context, msgs []models.Message) (bool, error) {
	if !hasUnreadFor(msgs, r.viewerID) {
		return false, nil
	}
	if err := r.backend.MarkRead(ctx, r.token, r.appointmentID); err != nil {
		return false, fmt.Errorf("mark read: %w", err)
	}
	if _, err := r.Refresh(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// Run polls every interval until ctx is done or the reconciler is closed.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-ticker.C:
			r.Poll(ctx)
		}
	}
}

// Close stops polling and makes every later update a no-op.
func (r *Reconciler) Close() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.listeners = nil
		r.mu.Unlock()
		close(r.stop)
	})
}

// Closed reports whether Close was called.
func (r *Reconciler) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Messages returns a copy of the current list: persisted messages followed by pending ones.
func (r *Reconciler) Messages() []models.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Draft returns the compose text, restored after a failed send.
func (r *Reconciler) Draft() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draft
}

// SetDraft records the compose text.
func (r *Reconciler) SetDraft(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.draft = text
}

// Subscribe registers fn for change notifications. The returned func removes it.
func (r *Reconciler) Subscribe(fn Listener) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return func() {}
	}
	if r.listeners == nil {
		r.listeners = make(map[int]Listener)
	}
	id := r.nextSub
	r.nextSub++
	r.listeners[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.listeners, id)
	}
}

// apply installs fetched as the persisted list. When force is false the update is skipped if
// the fingerprint is unchanged. It returns false once closed.
func (r *Reconciler) apply(fetched []models.Message, force bool) ([]models.Message, bool) {
	fp := FingerprintOf(fetched)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, false
	}
	changed := fp != r.last
	if changed || force {
		r.persisted = append([]models.Message(nil), fetched...)
		r.last = fp
	}
	msgs := r.snapshotLocked()
	r.mu.Unlock()

	if changed || force {
		r.notify()
	}
	return msgs, true
}

func (r *Reconciler) snapshotLocked() []models.Message {
	out := make([]models.Message, 0, len(r.persisted)+len(r.pending))
	out = append(out, r.persisted...)
	out = append(out, r.pending...)
	return out
}

// Announce delivers the current list to every listener.
func (r *Reconciler) Announce() { r.notify() }

// notify reads the list while holding notifyMu, so the last delivery always carries the
// latest state. Listeners must not call notify themselves.
func (r *Reconciler) notify() {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	listeners := make([]Listener, 0, len(r.listeners))
	for _, fn := range r.listeners {
		listeners = append(listeners, fn)
	}
	msgs := r.snapshotLocked()
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(msgs)
	}
}

func hasUnreadFor(msgs []models.Message, viewerID models.ID) bool {
	for _, m := range msgs {
		if !m.Pending() && !m.Read && m.AddressedTo(viewerID) {
			return true
		}
	}
	return false
}
