// Package registry is the event/participation store behind the bot:
// which CTF events are announced, who signed up, and who hesitates.
// Events are keyed by their CTFtime id but every operation also
// accepts the Discord announcement message id, so reaction handlers
// can talk to the registry without a mapping step of their own.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/lululufr/Discord-CTFtime-event/internal/store"
)

var (
	// ErrNotFound means the identifier matches no event, by either key.
	ErrNotFound = errors.New("registry: no such event")

	// ErrNoUpcomingEvent means a time-window query found no event with
	// both a parseable future start and at least one participant.
	ErrNoUpcomingEvent = errors.New("registry: no upcoming event")
)

// Event is one tracked competition. Start and End hold the raw date
// text from the source; they are not guaranteed to parse.
type Event struct {
	CTFTimeID   string
	MessageID   string
	Title       string
	URL         string
	Start       string
	End         string
	Description string
}

// EventInfo is an Event plus both rosters, deduplicated and sorted.
type EventInfo struct {
	Event
	Participants      []string
	MaybeParticipants []string
}

// Engine is the query/mutation API over the registry. It holds no
// mutable state: every operation borrows a connection, runs a single
// transaction, and returns it. Safe for concurrent use.
type Engine struct {
	pool   *store.Pool
	loc    *time.Location
	logger *slog.Logger
}

func New(pool *store.Pool, loc *time.Location, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{pool: pool, loc: loc, logger: logger}
}

// UpsertEvent creates or updates the event keyed by its CTFtime id and
// returns that id as the canonical handle. An update overwrites the
// display fields and the message id but never touches participation
// rows, so re-ingesting a feed entry is safe.
func (e *Engine) UpsertEvent(ctx context.Context, ev Event) (string, error) {
	if ev.CTFTimeID == "" {
		return "", fmt.Errorf("registry: upsert: ctftime id is empty")
	}
	conn, err := e.pool.Take(ctx)
	if err != nil {
		return "", err
	}
	defer e.pool.Put(conn)

	endTx, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return "", fmt.Errorf("registry: upsert %s: %w", ev.CTFTimeID, err)
	}
	defer endTx(&err)

	err = sqlitex.Execute(conn, `
		INSERT INTO events (ctftime_id, message_id, title, url, start, "end", description)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ctftime_id) DO UPDATE SET
			message_id  = excluded.message_id,
			title       = excluded.title,
			url         = excluded.url,
			start       = excluded.start,
			"end"       = excluded."end",
			description = excluded.description`,
		&sqlitex.ExecOptions{
			Args: []any{
				ev.CTFTimeID, ev.MessageID, ev.Title, ev.URL,
				ev.Start, ev.End, ev.Description,
			},
		})
	if err != nil {
		return "", fmt.Errorf("registry: upsert %s: %w", ev.CTFTimeID, err)
	}
	return ev.CTFTimeID, nil
}

// Resolve maps an identifier — CTFtime id or announcement message id,
// tried in that order — to the canonical CTFtime id.
func (e *Engine) Resolve(ctx context.Context, id string) (string, error) {
	conn, err := e.pool.Take(ctx)
	if err != nil {
		return "", err
	}
	defer e.pool.Put(conn)
	return resolve(conn, id)
}

// Exists reports whether the identifier resolves to an event by
// either key.
func (e *Engine) Exists(ctx context.Context, id string) (bool, error) {
	conn, err := e.pool.Take(ctx)
	if err != nil {
		return false, err
	}
	defer e.pool.Put(conn)

	_, err = resolve(conn, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetEvent returns the full event record plus both rosters.
func (e *Engine) GetEvent(ctx context.Context, id string) (*EventInfo, error) {
	conn, err := e.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer e.pool.Put(conn)

	ctfID, err := resolve(conn, id)
	if err != nil {
		return nil, err
	}
	return loadEvent(conn, ctfID)
}

// DeleteEvent removes an event and, through the cascade, every
// participation row in both tables. Administrative path.
func (e *Engine) DeleteEvent(ctx context.Context, id string) error {
	conn, err := e.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer e.pool.Put(conn)

	endTx, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("registry: delete %s: %w", id, err)
	}
	defer endTx(&err)

	ctfID, err := resolve(conn, id)
	if err != nil {
		return err
	}
	err = sqlitex.Execute(conn, `DELETE FROM events WHERE ctftime_id = ?`,
		&sqlitex.ExecOptions{Args: []any{ctfID}})
	if err != nil {
		return fmt.Errorf("registry: delete %s: %w", ctfID, err)
	}
	e.logger.Info("event deleted", "ctftime_id", ctfID)
	return nil
}

// AddParticipant records a confirmed sign-up. Idempotent: adding a
// name already on the roster changes nothing and is not an error.
func (e *Engine) AddParticipant(ctx context.Context, id, name string) error {
	return e.mutateRoster(ctx, id, "participants", true, []string{name})
}

// RemoveParticipant withdraws a confirmed sign-up. Removing a name
// that is not on the roster is a no-op.
func (e *Engine) RemoveParticipant(ctx context.Context, id, name string) error {
	return e.mutateRoster(ctx, id, "participants", false, []string{name})
}

// AddMaybeParticipant records a tentative sign-up.
func (e *Engine) AddMaybeParticipant(ctx context.Context, id, name string) error {
	return e.mutateRoster(ctx, id, "maybe_participants", true, []string{name})
}

// RemoveMaybeParticipant withdraws a tentative sign-up.
func (e *Engine) RemoveMaybeParticipant(ctx context.Context, id, name string) error {
	return e.mutateRoster(ctx, id, "maybe_participants", false, []string{name})
}

// AddParticipants adds several confirmed sign-ups in one transaction.
func (e *Engine) AddParticipants(ctx context.Context, id string, names []string) error {
	return e.mutateRoster(ctx, id, "participants", true, names)
}

// RemoveParticipants removes several confirmed sign-ups in one
// transaction.
func (e *Engine) RemoveParticipants(ctx context.Context, id string, names []string) error {
	return e.mutateRoster(ctx, id, "participants", false, names)
}

// AddMaybeParticipants adds several tentative sign-ups in one
// transaction.
func (e *Engine) AddMaybeParticipants(ctx context.Context, id string, names []string) error {
	return e.mutateRoster(ctx, id, "maybe_participants", true, names)
}

// RemoveMaybeParticipants removes several tentative sign-ups in one
// transaction.
func (e *Engine) RemoveMaybeParticipants(ctx context.Context, id string, names []string) error {
	return e.mutateRoster(ctx, id, "maybe_participants", false, names)
}

// mutateRoster applies one add/remove batch against a roster table.
// The identifier is resolved first so a bad id fails before any write;
// the batch is all-or-nothing inside a single transaction.
func (e *Engine) mutateRoster(ctx context.Context, id, table string, add bool, names []string) error {
	if len(names) == 0 {
		return nil
	}
	conn, err := e.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer e.pool.Put(conn)

	endTx, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("registry: roster %s: %w", id, err)
	}
	defer endTx(&err)

	ctfID, err := resolve(conn, id)
	if err != nil {
		return err
	}

	var query string
	if add {
		query = fmt.Sprintf(
			`INSERT OR IGNORE INTO %s (ctftime_id, participant) VALUES (?, ?)`, table)
	} else {
		query = fmt.Sprintf(
			`DELETE FROM %s WHERE ctftime_id = ? AND participant = ?`, table)
	}
	for _, name := range names {
		err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: []any{ctfID, name},
		})
		if err != nil {
			return fmt.Errorf("registry: roster %s: %w", ctfID, err)
		}
	}
	return nil
}

// resolve tries the identifier as a CTFtime id first, then as a
// message id.
func resolve(conn *sqlite.Conn, id string) (string, error) {
	for _, column := range []string{"ctftime_id", "message_id"} {
		var ctfID string
		query := fmt.Sprintf(`SELECT ctftime_id FROM events WHERE %s = ?`, column)
		err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: []any{id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				ctfID = stmt.ColumnText(0)
				return nil
			},
		})
		if err != nil {
			return "", fmt.Errorf("registry: resolve %s: %w", id, err)
		}
		if ctfID != "" {
			return ctfID, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, id)
}

func loadEvent(conn *sqlite.Conn, ctfID string) (*EventInfo, error) {
	var info *EventInfo
	err := sqlitex.Execute(conn, `
		SELECT ctftime_id, message_id, title, url, start, "end", description
		FROM events WHERE ctftime_id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{ctfID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				info = &EventInfo{Event: Event{
					CTFTimeID:   stmt.ColumnText(0),
					MessageID:   stmt.ColumnText(1),
					Title:       stmt.ColumnText(2),
					URL:         stmt.ColumnText(3),
					Start:       stmt.ColumnText(4),
					End:         stmt.ColumnText(5),
					Description: stmt.ColumnText(6),
				}}
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("registry: load %s: %w", ctfID, err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ctfID)
	}

	info.Participants, err = roster(conn, "participants", ctfID)
	if err != nil {
		return nil, err
	}
	info.MaybeParticipants, err = roster(conn, "maybe_participants", ctfID)
	if err != nil {
		return nil, err
	}
	return info, nil
}

// roster returns a participation list, sorted by name. The composite
// primary key guarantees there are no duplicates to filter.
func roster(conn *sqlite.Conn, table, ctfID string) ([]string, error) {
	names := []string{}
	query := fmt.Sprintf(
		`SELECT participant FROM %s WHERE ctftime_id = ? ORDER BY participant`, table)
	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: []any{ctfID},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			names = append(names, stmt.ColumnText(0))
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("registry: roster %s/%s: %w", table, ctfID, err)
	}
	return names, nil
}
