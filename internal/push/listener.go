// Package push consumes the backend's realtime channel and forwards unread summary
// replacements to the viewer's unread cell.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"homecare-portal/internal/models"
	"homecare-portal/internal/observability"
	"homecare-portal/internal/unread"
)

// EventUnreadSummaryUpdated is the event name carrying a full replacement summary.
const EventUnreadSummaryUpdated = "unread_summary_updated"

// Event is one frame from the push channel.
type Event struct {
	Event   string               `json:"event"`
	UserID  models.ID            `json:"userId"`
	Summary []models.UnreadEntry `json:"summary"`
}

// Sink receives summaries addressed to the listener's user.
type Sink interface {
	Publish(ctx context.Context, source unread.Source, entries []models.UnreadEntry) bool
}

// Listener keeps one websocket connection to the backend open for a session.
type Listener struct {
	url        string
	token      string
	userID     models.ID
	sink       Sink
	dialer     *websocket.Dialer
	logger     *zap.Logger
	maxBackoff time.Duration
}

// Config configures a Listener.
type Config struct {
	URL        string
	Token      string
	UserID     models.ID
	Logger     *zap.Logger
	MaxBackoff time.Duration
}

// NewListener creates a listener. Run starts it.
func NewListener(cfg Config, sink Sink) *Listener {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxBackoff := cfg.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = time.Minute
	}
	return &Listener{
		url:        cfg.URL,
		token:      cfg.Token,
		userID:     cfg.UserID,
		sink:       sink,
		dialer:     websocket.DefaultDialer,
		logger:     logger.With(zap.String("user_id", cfg.UserID.String())),
		maxBackoff: maxBackoff,
	}
}

// Run connects and reconnects with exponential backoff until ctx is done.
func (l *Listener) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = l.maxBackoff
	b.MaxElapsedTime = 0

	op := func() error {
		err := l.session(ctx)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if errors.Is(err, errReceivedFrames) {
			b.Reset()
		}
		l.logger.Debug("push channel disconnected", zap.Error(err))
		return err
	}

	err := backoff.Retry(op, backoff.WithContext(b, ctx))
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

var errReceivedFrames = errors.New("connection closed after receiving frames")

// session serves a single connection until it fails.
func (l *Listener) session(ctx context.Context) error {
	target, err := l.endpoint()
	if err != nil {
		return backoff.Permanent(err)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+l.token)
	conn, resp, err := l.dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return backoff.Permanent(fmt.Errorf("push channel rejected token: %w", err))
		}
		return fmt.Errorf("dial push channel: %w", err)
	}
	observability.IncWSActive("push")
	defer observability.DecWSActive("push")

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer conn.Close()

	received := false
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if received {
				return fmt.Errorf("%w: %v", errReceivedFrames, err)
			}
			return err
		}
		received = true
		l.handle(ctx, data)
	}
}

// handle applies one frame. Malformed frames and events for other users are ignored.
func (l *Listener) handle(ctx context.Context, data []byte) bool {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		l.logger.Debug("ignoring malformed push frame", zap.Error(err))
		return false
	}
	if ev.Event != EventUnreadSummaryUpdated {
		return false
	}
	if ev.UserID != l.userID {
		return false
	}
	observability.IncWSEvent("push", ev.Event)
	return l.sink.Publish(ctx, unread.SourcePush, ev.Summary)
}

func (l *Listener) endpoint() (string, error) {
	u, err := url.Parse(l.url)
	if err != nil {
		return "", fmt.Errorf("parse push url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported push url scheme %q", u.Scheme)
	}
	q := u.Query()
	q.Set("token", l.token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
