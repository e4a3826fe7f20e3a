package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/segmentio/ksuid"

	"github.com/hyperworkchat/hyperwork/internal/config"
	"github.com/hyperworkchat/hyperwork/internal/models"
)

//go:embed schema.sql
var schemaSQL string

const pgUniqueViolation = "23505"

// Postgres stores data in a PostgreSQL database.
type Postgres struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgres connects to PostgreSQL and applies the schema.
func NewPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}

	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.HealthCheckPeriod = 30 * time.Second

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Postgres{pool: pool, now: time.Now}, nil
}

const sessionColumns = `id, user_id, phase, start_time, end_time, planned_duration,
	actual_duration, points_earned, is_completed, was_paused`

func scanSession(row pgx.Row) (models.WorkSession, error) {
	var (
		sess    models.WorkSession
		endTime *time.Time
	)

	err := row.Scan(
		&sess.ID,
		&sess.UserID,
		&sess.Phase,
		&sess.StartTime,
		&endTime,
		&sess.PlannedDuration,
		&sess.ActualDuration,
		&sess.PointsEarned,
		&sess.IsCompleted,
		&sess.WasPaused,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return sess, ErrNotFound
		}

		return sess, err
	}

	if endTime != nil {
		sess.EndTime = *endTime
	}

	return sess, nil
}

func collectSessions(rows pgx.Rows) ([]models.WorkSession, error) {
	defer rows.Close()

	var sessions []models.WorkSession

	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}

		sessions = append(sessions, sess)
	}

	return sessions, rows.Err()
}

func (p *Postgres) CreateSession(
	ctx context.Context,
	userID string,
	phase models.Phase,
	plannedDuration int,
) (string, error) {
	const query = `
		INSERT INTO work_sessions (id, user_id, phase, start_time, planned_duration)
		VALUES ($1, $2, $3, $4, $5)
	`

	id := ksuid.New().String()

	_, err := p.pool.Exec(ctx, query, id, userID, phase, p.now(), plannedDuration)
	if err != nil {
		return "", err
	}

	return id, nil
}

func (p *Postgres) UpdateSession(
	ctx context.Context,
	id string,
	upd models.SessionUpdate,
) error {
	const query = `
		UPDATE work_sessions SET
			end_time = COALESCE($2, end_time),
			actual_duration = COALESCE($3, actual_duration),
			points_earned = COALESCE($4, points_earned),
			is_completed = COALESCE($5, is_completed),
			was_paused = was_paused OR COALESCE($6, FALSE)
		WHERE id = $1 AND end_time IS NULL
	`

	cmd, err := p.pool.Exec(ctx, query,
		id,
		upd.EndTime,
		upd.ActualDuration,
		upd.PointsEarned,
		upd.IsCompleted,
		upd.WasPaused,
	)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() > 0 {
		return nil
	}

	// distinguish a missing session from one that has already ended
	if _, err := p.GetSession(ctx, id); err != nil {
		return err
	}

	return ErrSessionEnded
}

func (p *Postgres) GetSession(ctx context.Context, id string) (models.WorkSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM work_sessions WHERE id = $1`

	return scanSession(p.pool.QueryRow(ctx, query, id))
}

func (p *Postgres) ListSessions(
	ctx context.Context,
	userID string,
	limit int,
	before time.Time,
) ([]models.WorkSession, error) {
	query := `SELECT ` + sessionColumns + `
		FROM work_sessions
		WHERE user_id = $1 AND ($3::timestamptz IS NULL OR start_time < $3)
		ORDER BY start_time DESC
		LIMIT $2`

	var bound *time.Time
	if !before.IsZero() {
		bound = &before
	}

	rows, err := p.pool.Query(ctx, query, userID, limitOrDefault(limit), bound)
	if err != nil {
		return nil, err
	}

	return collectSessions(rows)
}

func (p *Postgres) ListOpenSessions(
	ctx context.Context,
	startedBefore time.Time,
) ([]models.WorkSession, error) {
	query := `SELECT ` + sessionColumns + `
		FROM work_sessions
		WHERE end_time IS NULL AND start_time < $1
		ORDER BY start_time`

	rows, err := p.pool.Query(ctx, query, startedBefore)
	if err != nil {
		return nil, err
	}

	return collectSessions(rows)
}

const profileColumns = `id, email, first_name, last_name, role, class_section,
	work_days, daily_work_minutes, total_points, created_at, updated_at`

func scanProfile(row pgx.Row) (models.Profile, error) {
	var pr models.Profile

	err := row.Scan(
		&pr.ID,
		&pr.Email,
		&pr.FirstName,
		&pr.LastName,
		&pr.Role,
		&pr.ClassSection,
		&pr.WorkDays,
		&pr.DailyWorkMinutes,
		&pr.TotalPoints,
		&pr.CreatedAt,
		&pr.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return pr, ErrNotFound
	}

	return pr, err
}

func (p *Postgres) CreateAccount(
	ctx context.Context,
	acct models.Account,
	pr models.Profile,
) error {
	const query = `
		INSERT INTO profiles (
			id, email, password_hash, first_name, last_name, role, class_section,
			work_days, daily_work_minutes, total_points, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	workDays := pr.WorkDays
	if workDays == nil {
		workDays = []string{}
	}

	_, err := p.pool.Exec(ctx, query,
		acct.ID,
		strings.ToLower(strings.TrimSpace(acct.Email)),
		acct.PasswordHash,
		pr.FirstName,
		pr.LastName,
		pr.Role,
		pr.ClassSection,
		workDays,
		pr.DailyWorkMinutes,
		pr.TotalPoints,
		pr.CreatedAt,
		pr.UpdatedAt,
	)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrEmailExists
	}

	return err
}

func (p *Postgres) GetAccountByEmail(
	ctx context.Context,
	email string,
) (models.Account, error) {
	const query = `SELECT id, email, password_hash, created_at FROM profiles WHERE email = $1`

	var acct models.Account

	err := p.pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))).Scan(
		&acct.ID,
		&acct.Email,
		&acct.PasswordHash,
		&acct.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return acct, ErrNotFound
	}

	return acct, err
}

func (p *Postgres) GetProfile(ctx context.Context, id string) (models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	return scanProfile(p.pool.QueryRow(ctx, query, id))
}

func (p *Postgres) UpdateProfile(
	ctx context.Context,
	pr models.Profile,
) (models.Profile, error) {
	query := `
		UPDATE profiles SET
			first_name = $2,
			last_name = $3,
			class_section = $4,
			work_days = $5,
			daily_work_minutes = $6,
			updated_at = $7
		WHERE id = $1
		RETURNING ` + profileColumns

	workDays := pr.WorkDays
	if workDays == nil {
		workDays = []string{}
	}

	return scanProfile(p.pool.QueryRow(ctx, query,
		pr.ID,
		pr.FirstName,
		pr.LastName,
		pr.ClassSection,
		workDays,
		pr.DailyWorkMinutes,
		p.now(),
	))
}

func (p *Postgres) IncrementProfilePoints(
	ctx context.Context,
	userID string,
	delta int,
) (int, error) {
	if delta < 0 {
		return 0, ErrNegativePoints
	}

	const query = `
		UPDATE profiles SET total_points = total_points + $2, updated_at = $3
		WHERE id = $1
		RETURNING total_points
	`

	var total int

	err := p.pool.QueryRow(ctx, query, userID, delta, p.now()).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}

	return total, err
}

func (p *Postgres) ListProfiles(
	ctx context.Context,
	filter ProfileFilter,
) ([]models.Profile, error) {
	query := `SELECT ` + profileColumns + `
		FROM profiles
		WHERE ($1 = '' OR role = $1) AND ($2 = '' OR class_section = $2)
		ORDER BY total_points DESC, TRIM(first_name || ' ' || last_name), email
		LIMIT NULLIF($3::int, 0)`

	rows, err := p.pool.Query(ctx, query,
		string(filter.Role),
		filter.ClassSection,
		filter.Limit,
	)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var profiles []models.Profile

	for rows.Next() {
		pr, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}

		profiles = append(profiles, pr)
	}

	return profiles, rows.Err()
}

func (p *Postgres) AddMessage(
	ctx context.Context,
	m models.Message,
) (models.Message, error) {
	const query = `
		INSERT INTO messages (id, user_id, author, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if m.ID == "" {
		m.ID = ksuid.New().String()
	}

	if m.CreatedAt.IsZero() {
		m.CreatedAt = p.now()
	}

	_, err := p.pool.Exec(ctx, query, m.ID, m.UserID, m.Author, m.Content, m.CreatedAt)

	return m, err
}

func (p *Postgres) ListMessages(
	ctx context.Context,
	limit int,
) ([]models.Message, error) {
	const query = `
		SELECT id, user_id, author, content, created_at FROM (
			SELECT * FROM messages ORDER BY created_at DESC LIMIT $1
		) recent
		ORDER BY created_at
	`

	rows, err := p.pool.Query(ctx, query, limitOrDefault(limit))
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var messages []models.Message

	for rows.Next() {
		var m models.Message

		err := rows.Scan(&m.ID, &m.UserID, &m.Author, &m.Content, &m.CreatedAt)
		if err != nil {
			return nil, err
		}

		messages = append(messages, m)
	}

	return messages, rows.Err()
}

func (p *Postgres) AddSelection(
	ctx context.Context,
	sel models.Selection,
) (models.Selection, error) {
	const query = `
		INSERT INTO selected_students (id, teacher_id, student_id, class_section, selected_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if sel.ID == "" {
		sel.ID = ksuid.New().String()
	}

	if sel.SelectedAt.IsZero() {
		sel.SelectedAt = p.now()
	}

	_, err := p.pool.Exec(ctx, query,
		sel.ID,
		sel.TeacherID,
		sel.StudentID,
		sel.ClassSection,
		sel.SelectedAt,
	)

	return sel, err
}

func (p *Postgres) ListSelections(
	ctx context.Context,
	teacherID, classSection string,
) ([]models.Selection, error) {
	const query = `
		SELECT id, teacher_id, student_id, class_section, selected_at
		FROM selected_students
		WHERE teacher_id = $1 AND ($2 = '' OR class_section = $2)
		ORDER BY selected_at
	`

	rows, err := p.pool.Query(ctx, query, teacherID, classSection)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var selections []models.Selection

	for rows.Next() {
		var sel models.Selection

		err := rows.Scan(
			&sel.ID,
			&sel.TeacherID,
			&sel.StudentID,
			&sel.ClassSection,
			&sel.SelectedAt,
		)
		if err != nil {
			return nil, err
		}

		selections = append(selections, sel)
	}

	return selections, rows.Err()
}

func (p *Postgres) ClearSelections(
	ctx context.Context,
	teacherID, classSection string,
) error {
	const query = `
		DELETE FROM selected_students
		WHERE teacher_id = $1 AND ($2 = '' OR class_section = $2)
	`

	_, err := p.pool.Exec(ctx, query, teacherID, classSection)

	return err
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() error {
	p.pool.Close()

	return nil
}
