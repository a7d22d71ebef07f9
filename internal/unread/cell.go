// Package unread holds the viewer's unread-message summary. Two producers feed it: a
// periodic poll and the backend push channel. Both deliver complete replacement lists, so
// the cell keeps whichever arrived last.
package unread

import (
	"context"
	"sort"

	"homecare-portal/internal/models"
	"homecare-portal/internal/observability"
)

// Source names the producer of an update.
type Source string

const (
	SourcePoll Source = "poll"
	SourcePush Source = "push"
)

type update struct {
	source  Source
	entries []models.UnreadEntry
}

// State is a point-in-time copy of the cell.
type State struct {
	Entries []models.UnreadEntry
	Source  Source
	Version uint64
}

// Cell is a single-owner summary. Only the goroutine started by Run touches the state; every
// other access goes through channels.
type Cell struct {
	updates  chan update
	reads    chan chan State
	watchers chan chan State
	unwatch  chan chan State
	done     chan struct{}
}

// NewCell creates a cell. Call Run to start its owner goroutine.
func NewCell() *Cell {
	return &Cell{
		updates:  make(chan update),
		reads:    make(chan chan State),
		watchers: make(chan chan State),
		unwatch:  make(chan chan State),
		done:     make(chan struct{}),
	}
}

// Run owns the state until ctx is done.
func (c *Cell) Run(ctx context.Context) {
	defer close(c.done)

	var state State
	watchers := map[chan State]struct{}{}

	for {
		select {
		case <-ctx.Done():
			for w := range watchers {
				close(w)
			}
			return
		case u := <-c.updates:
			state = State{
				Entries: append([]models.UnreadEntry(nil), u.entries...),
				Source:  u.source,
				Version: state.Version + 1,
			}
			observability.IncUnreadUpdate(string(u.source))
			for w := range watchers {
				// Replace an unread older state; only this goroutine sends on w.
				select {
				case <-w:
				default:
				}
				w <- copyState(state)
			}
		case reply := <-c.reads:
			reply <- copyState(state)
		case w := <-c.watchers:
			watchers[w] = struct{}{}
		case w := <-c.unwatch:
			if _, ok := watchers[w]; ok {
				delete(watchers, w)
				close(w)
			}
		}
	}
}

// Publish replaces the summary. It returns false if the cell stopped before accepting it.
func (c *Cell) Publish(ctx context.Context, source Source, entries []models.UnreadEntry) bool {
	select {
	case c.updates <- update{source: source, entries: entries}:
		return true
	case <-ctx.Done():
		return false
	case <-c.done:
		return false
	}
}

// Snapshot returns the current state.
func (c *Cell) Snapshot(ctx context.Context) (State, bool) {
	reply := make(chan State, 1)
	select {
	case c.reads <- reply:
	case <-ctx.Done():
		return State{}, false
	case <-c.done:
		return State{}, false
	}
	select {
	case s := <-reply:
		return s, true
	case <-ctx.Done():
		return State{}, false
	}
}

// Totals aggregates the current state per counterpart.
func (c *Cell) Totals(ctx context.Context) ([]models.PersonTotal, bool) {
	s, ok := c.Snapshot(ctx)
	if !ok {
		return nil, false
	}
	return Aggregate(s.Entries), true
}

// Watch returns a channel holding the latest state published after the call. A reader that
// falls behind only sees the newest state. The channel is closed when ctx is done or the
// cell stops.
func (c *Cell) Watch(ctx context.Context) (<-chan State, bool) {
	w := make(chan State, 1)
	select {
	case c.watchers <- w:
	case <-ctx.Done():
		return nil, false
	case <-c.done:
		return nil, false
	}
	go func() {
		select {
		case <-ctx.Done():
			select {
			case c.unwatch <- w:
			case <-c.done:
			}
		case <-c.done:
		}
	}()
	return w, true
}

// Aggregate sums unread counts per counterpart, highest count first.
func Aggregate(entries []models.UnreadEntry) []models.PersonTotal {
	index := map[models.ID]int{}
	var totals []models.PersonTotal

	for _, e := range entries {
		if e.Count <= 0 {
			continue
		}
		i, ok := index[e.CounterpartID]
		if !ok {
			i = len(totals)
			index[e.CounterpartID] = i
			totals = append(totals, models.PersonTotal{UserID: e.CounterpartID, Name: e.CounterpartName})
		}
		totals[i].Count += e.Count
		totals[i].Appointments = append(totals[i].Appointments, e.AppointmentID)
		if totals[i].Name == "" {
			totals[i].Name = e.CounterpartName
		}
	}

	sort.SliceStable(totals, func(a, b int) bool {
		if totals[a].Count != totals[b].Count {
			return totals[a].Count > totals[b].Count
		}
		return totals[a].Name < totals[b].Name
	})
	if totals == nil {
		totals = []models.PersonTotal{}
	}
	return totals
}

func copyState(s State) State {
	s.Entries = append([]models.UnreadEntry(nil), s.Entries...)
	return s
}
