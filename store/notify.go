package store

import (
	"context"
	"log/slog"

	"github.com/hyperworkchat/hyperwork/internal/models"
	"github.com/hyperworkchat/hyperwork/internal/realtime"
)

// Notifying wraps a DB and publishes the new state of a profile after every
// write that changes it. Publish failures are logged and never fail the
// write.
type Notifying struct {
	DB
	broker realtime.Broker
}

func NewNotifying(db DB, broker realtime.Broker) *Notifying {
	return &Notifying{DB: db, broker: broker}
}

func (n *Notifying) publish(ctx context.Context, p models.Profile) {
	err := n.broker.Publish(ctx, realtime.ProfileTopic(p.ID), p)
	if err != nil {
		slog.WarnContext(ctx, "publishing profile change failed",
			slog.String("user_id", p.ID),
			slog.Any("error", err),
		)
	}
}

func (n *Notifying) CreateAccount(
	ctx context.Context,
	acct models.Account,
	p models.Profile,
) error {
	err := n.DB.CreateAccount(ctx, acct, p)
	if err != nil {
		return err
	}

	n.publish(ctx, p)

	return nil
}

func (n *Notifying) UpdateProfile(
	ctx context.Context,
	p models.Profile,
) (models.Profile, error) {
	updated, err := n.DB.UpdateProfile(ctx, p)
	if err != nil {
		return updated, err
	}

	n.publish(ctx, updated)

	return updated, nil
}

func (n *Notifying) IncrementProfilePoints(
	ctx context.Context,
	userID string,
	delta int,
) (int, error) {
	total, err := n.DB.IncrementProfilePoints(ctx, userID, delta)
	if err != nil {
		return total, err
	}

	p, err := n.DB.GetProfile(ctx, userID)
	if err != nil {
		slog.WarnContext(ctx, "reading profile after points update failed",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)

		return total, nil
	}

	n.publish(ctx, p)

	return total, nil
}
