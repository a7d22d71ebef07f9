package unread

import (
	"context"
	"time"

	"go.uber.org/zap"

	"homecare-portal/internal/models"
)

// SummarySource fetches the unread summary for the session's user.
type SummarySource interface {
	UnreadSummary(ctx context.Context, token string) ([]models.UnreadEntry, error)
}

// Poller refreshes a Cell from the backend on a fixed interval.
type Poller struct {
	source   SummarySource
	cell     *Cell
	token    string
	interval time.Duration
	logger   *zap.Logger
}

// NewPoller creates a poller for one session token.
func NewPoller(source SummarySource, cell *Cell, token string, interval time.Duration, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{source: source, cell: cell, token: token, interval: interval, logger: logger}
}

// Tick fetches once and publishes the result. Failures are logged and skipped.
func (p *Poller) Tick(ctx context.Context) bool {
	entries, err := p.source.UnreadSummary(ctx, p.token)
	if err != nil {
		p.logger.Debug("unread poll failed", zap.Error(err))
		return false
	}
	return p.cell.Publish(ctx, SourcePoll, entries)
}

// Run ticks immediately and then every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	p.Tick(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}
