package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/segmentio/ksuid"

	"github.com/hyperworkchat/hyperwork/internal/models"
)

const (
	groupColumns = `id, name, description, class_section, created_by, created_at`

	pgForeignKeyViolation = "23503"
)

func scanGroup(row pgx.Row) (models.Group, error) {
	var g models.Group

	err := row.Scan(
		&g.ID,
		&g.Name,
		&g.Description,
		&g.ClassSection,
		&g.CreatedBy,
		&g.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return g, ErrNotFound
	}

	return g, err
}

// missingGroup maps a foreign key violation on group_id to ErrNotFound.
func missingGroup(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return ErrNotFound
	}

	return err
}

func (p *Postgres) CreateGroup(
	ctx context.Context,
	g models.Group,
	memberIDs []string,
) (models.Group, error) {
	const (
		insertGroup = `
			INSERT INTO groups (id, name, description, class_section, created_by, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		insertMember = `
			INSERT INTO group_members (group_id, user_id, joined_at)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING
		`
	)

	if g.ID == "" {
		g.ID = ksuid.New().String()
	}

	if g.CreatedAt.IsZero() {
		g.CreatedAt = p.now()
	}

	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, insertGroup,
			g.ID,
			g.Name,
			g.Description,
			g.ClassSection,
			g.CreatedBy,
			g.CreatedAt,
		)
		if err != nil {
			return err
		}

		if len(memberIDs) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for _, id := range memberIDs {
			batch.Queue(insertMember, g.ID, id, g.CreatedAt)
		}

		return tx.SendBatch(ctx, batch).Close()
	})

	return g, err
}

func (p *Postgres) GetGroup(ctx context.Context, id string) (models.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE id = $1`

	return scanGroup(p.pool.QueryRow(ctx, query, id))
}

func (p *Postgres) ListGroups(
	ctx context.Context,
	classSection string,
) ([]models.Group, error) {
	query := `SELECT ` + groupColumns + `
		FROM groups
		WHERE $1 = '' OR class_section = $1
		ORDER BY created_at DESC`

	rows, err := p.pool.Query(ctx, query, classSection)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var groups []models.Group

	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}

		groups = append(groups, g)
	}

	return groups, rows.Err()
}

func (p *Postgres) AddGroupMember(
	ctx context.Context,
	groupID, userID string,
) error {
	const query = `
		INSERT INTO group_members (group_id, user_id, joined_at)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`

	_, err := p.pool.Exec(ctx, query, groupID, userID, p.now())

	return missingGroup(err)
}

func (p *Postgres) ListGroupMembers(
	ctx context.Context,
	groupID string,
) ([]models.GroupMember, error) {
	const query = `
		SELECT group_id, user_id, joined_at FROM group_members
		WHERE group_id = $1
		ORDER BY joined_at, user_id
	`

	rows, err := p.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var members []models.GroupMember

	for rows.Next() {
		var m models.GroupMember

		err := rows.Scan(&m.GroupID, &m.UserID, &m.JoinedAt)
		if err != nil {
			return nil, err
		}

		members = append(members, m)
	}

	return members, rows.Err()
}

func (p *Postgres) IsGroupMember(
	ctx context.Context,
	groupID, userID string,
) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2
		)
	`

	var found bool

	err := p.pool.QueryRow(ctx, query, groupID, userID).Scan(&found)

	return found, err
}

func (p *Postgres) AddGroupMessage(
	ctx context.Context,
	m models.Message,
) (models.Message, error) {
	const query = `
		INSERT INTO group_messages (id, group_id, user_id, author, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if m.GroupID == "" {
		return m, ErrNoGroup
	}

	if m.ID == "" {
		m.ID = ksuid.New().String()
	}

	if m.CreatedAt.IsZero() {
		m.CreatedAt = p.now()
	}

	_, err := p.pool.Exec(ctx, query,
		m.ID,
		m.GroupID,
		m.UserID,
		m.Author,
		m.Content,
		m.CreatedAt,
	)

	return m, missingGroup(err)
}

func (p *Postgres) ListGroupMessages(
	ctx context.Context,
	groupID string,
	limit int,
) ([]models.Message, error) {
	const query = `
		SELECT id, group_id, user_id, author, content, created_at FROM (
			SELECT * FROM group_messages
			WHERE group_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at
	`

	rows, err := p.pool.Query(ctx, query, groupID, limitOrDefault(limit))
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var messages []models.Message

	for rows.Next() {
		var m models.Message

		err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &m.Author, &m.Content, &m.CreatedAt)
		if err != nil {
			return nil, err
		}

		messages = append(messages, m)
	}

	return messages, rows.Err()
}
