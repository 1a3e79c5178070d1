package registry

import (
	"context"
	"fmt"
	"sort"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/lululufr/Discord-CTFtime-event/internal/when"
)

// The time-window queries only surface events somebody reacted to:
// an event with zero confirmed and zero tentative names is known but
// not actionable, and stays out of "next" and the calendar. Date text
// that does not parse keeps the event out of time ordering too, since
// there is no instant to order it by.

// NextEvent returns the event with the smallest start instant strictly
// after now, among events with at least one participant of either
// kind. ErrNoUpcomingEvent if there is no candidate.
func (e *Engine) NextEvent(ctx context.Context, now time.Time) (*EventInfo, error) {
	events, err := e.upcoming(ctx, now, func(start time.Time) bool {
		return start.After(now)
	})
	if err != nil {
		return nil, err
	}
	return &events[0], nil
}

// EventsInWindow returns the events starting within spanDays of now,
// soonest first, under the same participation filter as NextEvent.
// ErrNoUpcomingEvent if the window is empty.
func (e *Engine) EventsInWindow(ctx context.Context, now time.Time, spanDays int) ([]EventInfo, error) {
	limit := now.Add(time.Duration(spanDays) * 24 * time.Hour)
	return e.upcoming(ctx, now, func(start time.Time) bool {
		return start.After(now) && start.Before(limit)
	})
}

func (e *Engine) upcoming(ctx context.Context, now time.Time, keep func(time.Time) bool) ([]EventInfo, error) {
	conn, err := e.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer e.pool.Put(conn)

	ids, starts, err := candidates(conn)
	if err != nil {
		return nil, err
	}

	type dated struct {
		id    string
		start time.Time
	}
	var selected []dated
	for i, id := range ids {
		start, ok := when.Parse(starts[i], e.loc)
		if !ok {
			continue
		}
		if keep(start) {
			selected = append(selected, dated{id: id, start: start})
		}
	}
	if len(selected) == 0 {
		return nil, ErrNoUpcomingEvent
	}
	sort.Slice(selected, func(i, j int) bool {
		return selected[i].start.Before(selected[j].start)
	})

	infos := make([]EventInfo, 0, len(selected))
	for _, d := range selected {
		info, err := loadEvent(conn, d.id)
		if err != nil {
			return nil, err
		}
		infos = append(infos, *info)
	}
	return infos, nil
}

// candidates returns the id and raw start text of every event that has
// at least one participation row in either table.
func candidates(conn *sqlite.Conn) (ids, starts []string, err error) {
	err = sqlitex.Execute(conn, `
		SELECT ctftime_id, start FROM events e
		WHERE EXISTS (SELECT 1 FROM participants p WHERE p.ctftime_id = e.ctftime_id)
		   OR EXISTS (SELECT 1 FROM maybe_participants m WHERE m.ctftime_id = e.ctftime_id)`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				ids = append(ids, stmt.ColumnText(0))
				starts = append(starts, stmt.ColumnText(1))
				return nil
			},
		})
	if err != nil {
		return nil, nil, fmt.Errorf("registry: upcoming candidates: %w", err)
	}
	return ids, starts, nil
}
