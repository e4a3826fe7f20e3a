package timer

import (
	"context"
	"log/slog"

	"github.com/hyperworkchat/hyperwork/internal/models"
)

// Op names a persistence write made by the engine.
type Op string

const (
	OpCreate   Op = "create"
	OpPause    Op = "pause"
	OpComplete Op = "complete"
	OpStop     Op = "stop"
	OpPoints   Op = "points"
)

// WriteResult is the outcome of one persistence write.
type WriteResult struct {
	Err       error
	retry     func(context.Context) WriteResult
	Op        Op
	SessionID string
}

// OK reports whether the write succeeded.
func (w WriteResult) OK() bool {
	return w.Err == nil
}

// Retry issues the same write again and returns its outcome. Retrying a
// successful write is a no-op.
func (w WriteResult) Retry(ctx context.Context) WriteResult {
	if w.OK() || w.retry == nil {
		return w
	}

	return w.retry(ctx)
}

// update writes upd to the active session. Writes for a session whose create
// failed are not attempted.
func (e *Engine) update(ctx context.Context, op Op, upd models.SessionUpdate) WriteResult {
	id := e.session.ID

	if id == "" {
		return WriteResult{
			Op:  op,
			Err: ErrSessionNotPersisted,
		}
	}

	var write func(context.Context) WriteResult

	write = func(ctx context.Context) WriteResult {
		err := e.store.UpdateSession(ctx, id, upd)
		if err != nil {
			slog.WarnContext(ctx, "session update failed",
				slog.String("op", string(op)),
				slog.String("session_id", id),
				slog.Any("error", err),
			)
		}

		return WriteResult{
			Op:        op,
			SessionID: id,
			Err:       err,
			retry:     write,
		}
	}

	return write(ctx)
}

func (e *Engine) awardPoints(ctx context.Context, points int) WriteResult {
	id := e.session.ID
	userID := e.user.ID

	var write func(context.Context) WriteResult

	write = func(ctx context.Context) WriteResult {
		total, err := e.store.IncrementProfilePoints(ctx, userID, points)
		if err != nil {
			slog.WarnContext(ctx, "awarding points failed",
				slog.String("user_id", userID),
				slog.Int("points", points),
				slog.Any("error", err),
			)
		} else {
			slog.DebugContext(ctx, "points awarded",
				slog.String("user_id", userID),
				slog.Int("points", points),
				slog.Int("total", total),
			)
		}

		return WriteResult{
			Op:        OpPoints,
			SessionID: id,
			Err:       err,
			retry:     write,
		}
	}

	return write(ctx)
}
