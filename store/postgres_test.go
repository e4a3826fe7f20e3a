package store

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperworkchat/hyperwork/internal/config"
	"github.com/hyperworkchat/hyperwork/internal/models"
)

// postgresDSNEnv names a PostgreSQL database the tests may wipe. The
// postgres tests are skipped when it is unset.
const postgresDSNEnv = "HYPERWORK_TEST_POSTGRES_DSN"

func newTestPostgres(t *testing.T) (*Postgres, *clock) {
	t.Helper()

	dsn := os.Getenv(postgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s is not set", postgresDSNEnv)
	}

	ctx := context.Background()

	p, err := NewPostgres(ctx, config.DatabaseConfig{
		Driver:   config.DriverPostgres,
		DSN:      dsn,
		MaxConns: 8,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = p.Close()
	})

	_, err = p.pool.Exec(ctx, `TRUNCATE profiles, work_sessions, messages,
		selected_students, groups, group_members, group_messages CASCADE`)
	require.NoError(t, err)

	clk := &clock{t: epoch}

	var mu sync.Mutex

	p.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()

		return clk.now()
	}

	return p, clk
}

func seedPostgresProfile(t *testing.T, p *Postgres, pr models.Profile) {
	t.Helper()

	if pr.Email == "" {
		pr.Email = pr.ID + "@example.com"
	}

	if pr.Role == "" {
		pr.Role = models.RoleStudent
	}

	err := p.CreateAccount(context.Background(), models.Account{
		ID:    pr.ID,
		Email: pr.Email,
	}, pr)
	require.NoError(t, err)
}

func TestPostgresSessionLifecycle(t *testing.T) {
	p, _ := newTestPostgres(t)
	ctx := context.Background()

	seedPostgresProfile(t, p, models.Profile{ID: "user-1"})

	id, err := p.CreateSession(ctx, "user-1", models.PhaseWork, 1200)
	require.NoError(t, err)

	sess, err := p.GetSession(ctx, id)
	require.NoError(t, err)
	assert.False(t, sess.Ended())

	err = p.UpdateSession(ctx, id, models.SessionUpdate{WasPaused: ptr(true)})
	require.NoError(t, err)

	end := epoch.Add(time.Hour)

	err = p.UpdateSession(ctx, id, models.SessionUpdate{
		EndTime:        &end,
		ActualDuration: ptr(1200),
		PointsEarned:   ptr(50),
		IsCompleted:    ptr(true),
		WasPaused:      ptr(false),
	})
	require.NoError(t, err)

	got, err := p.GetSession(ctx, id)
	require.NoError(t, err)

	want := models.WorkSession{
		StartTime:       sess.StartTime,
		EndTime:         end,
		ID:              id,
		UserID:          "user-1",
		Phase:           models.PhaseWork,
		PlannedDuration: 1200,
		ActualDuration:  1200,
		PointsEarned:    50,
		WasPaused:       true,
		IsCompleted:     true,
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("session mismatch (-want +got):\n%s", diff)
	}

	err = p.UpdateSession(ctx, id, models.SessionUpdate{PointsEarned: ptr(100)})
	assert.ErrorIs(t, err, ErrSessionEnded)

	err = p.UpdateSession(ctx, "missing", models.SessionUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresListSessions(t *testing.T) {
	p, _ := newTestPostgres(t)
	ctx := context.Background()

	seedPostgresProfile(t, p, models.Profile{ID: "user-1"})
	seedPostgresProfile(t, p, models.Profile{ID: "user-2"})

	var ids []string

	for range 3 {
		id, err := p.CreateSession(ctx, "user-1", models.PhaseWork, 1200)
		require.NoError(t, err)

		ids = append(ids, id)
	}

	_, err := p.CreateSession(ctx, "user-2", models.PhaseWork, 1200)
	require.NoError(t, err)

	all, err := p.ListSessions(ctx, "user-1", 0, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID, "newest first")

	older, err := p.ListSessions(ctx, "user-1", 10, all[0].StartTime)
	require.NoError(t, err)
	require.Len(t, older, 2)
	assert.Equal(t, ids[1], older[0].ID)

	open, err := p.ListOpenSessions(ctx, epoch.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, open, 4)
}

func TestPostgresAccounts(t *testing.T) {
	p, _ := newTestPostgres(t)
	ctx := context.Background()

	seedPostgresProfile(t, p, models.Profile{ID: "user-1", Email: "Ada@Example.com"})

	acct, err := p.GetAccountByEmail(ctx, " ada@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "user-1", acct.ID)

	err = p.CreateAccount(ctx, models.Account{ID: "user-2", Email: "ada@example.com"}, models.Profile{
		Role: models.RoleStudent,
	})
	assert.ErrorIs(t, err, ErrEmailExists)

	_, err = p.GetAccountByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresIncrementProfilePoints(t *testing.T) {
	p, _ := newTestPostgres(t)
	ctx := context.Background()

	seedPostgresProfile(t, p, models.Profile{ID: "user-1"})

	var wg sync.WaitGroup

	for range 10 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := p.IncrementProfilePoints(ctx, "user-1", 50)
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	pr, err := p.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 500, pr.TotalPoints, "no increment is lost")

	_, err = p.IncrementProfilePoints(ctx, "user-1", -10)
	assert.ErrorIs(t, err, ErrNegativePoints)

	_, err = p.IncrementProfilePoints(ctx, "missing", 10)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresListProfiles(t *testing.T) {
	p, _ := newTestPostgres(t)
	ctx := context.Background()

	seedPostgresProfile(t, p, models.Profile{ID: "ada", FirstName: "Ada", ClassSection: "10A", TotalPoints: 50})
	seedPostgresProfile(t, p, models.Profile{ID: "alan", FirstName: "Alan", ClassSection: "10A", TotalPoints: 150})
	seedPostgresProfile(t, p, models.Profile{ID: "grace", FirstName: "Grace", Role: models.RoleTeacher})

	students, err := p.ListProfiles(ctx, ProfileFilter{Role: models.RoleStudent})
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "alan", students[0].ID)

	top, err := p.ListProfiles(ctx, ProfileFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, top, 1)
}

func TestPostgresMessages(t *testing.T) {
	p, _ := newTestPostgres(t)
	ctx := context.Background()

	seedPostgresProfile(t, p, models.Profile{ID: "user-1"})

	for _, content := range []string{"one", "two", "three"} {
		_, err := p.AddMessage(ctx, models.Message{UserID: "user-1", Author: "Ada", Content: content})
		require.NoError(t, err)
	}

	msgs, err := p.ListMessages(ctx, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "two", msgs[0].Content)
	assert.Equal(t, "three", msgs[1].Content)
}

func TestPostgresSelections(t *testing.T) {
	p, _ := newTestPostgres(t)
	ctx := context.Background()

	seedPostgresProfile(t, p, models.Profile{ID: "grace", Role: models.RoleTeacher})
	seedPostgresProfile(t, p, models.Profile{ID: "ada", ClassSection: "10A"})

	_, err := p.AddSelection(ctx, models.Selection{TeacherID: "grace", StudentID: "ada", ClassSection: "10A"})
	require.NoError(t, err)

	sels, err := p.ListSelections(ctx, "grace", "10A")
	require.NoError(t, err)
	assert.Len(t, sels, 1)

	require.NoError(t, p.ClearSelections(ctx, "grace", "10A"))

	sels, err = p.ListSelections(ctx, "grace", "10A")
	require.NoError(t, err)
	assert.Empty(t, sels)
}

func TestPostgresGroups(t *testing.T) {
	p, _ := newTestPostgres(t)
	ctx := context.Background()

	for _, id := range []string{"grace", "ada", "alan"} {
		seedPostgresProfile(t, p, models.Profile{ID: id})
	}

	g, err := p.CreateGroup(ctx, models.Group{
		Name:         "Physics",
		ClassSection: "10A",
		CreatedBy:    "grace",
	}, []string{"grace", "ada", "ada"})
	require.NoError(t, err)

	_, err = p.CreateGroup(ctx, models.Group{Name: "Open", CreatedBy: "alan"}, nil)
	require.NoError(t, err)

	class, err := p.ListGroups(ctx, "10A")
	require.NoError(t, err)
	require.Len(t, class, 1)
	assert.Equal(t, g.ID, class[0].ID)

	all, err := p.ListGroups(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, p.AddGroupMember(ctx, g.ID, "alan"))
	require.NoError(t, p.AddGroupMember(ctx, g.ID, "alan"))

	members, err := p.ListGroupMembers(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, "alan", members[2].UserID)

	ok, err := p.IsGroupMember(ctx, g.ID, "alan")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, p.AddGroupMember(ctx, "missing", "ada"), ErrNotFound)

	_, err = p.GetGroup(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	for _, content := range []string{"one", "two", "three"} {
		_, err = p.AddGroupMessage(ctx, models.Message{
			GroupID: g.ID,
			UserID:  "ada",
			Author:  "Ada",
			Content: content,
		})
		require.NoError(t, err)
	}

	msgs, err := p.ListGroupMessages(ctx, g.ID, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "two", msgs[0].Content)
	assert.Equal(t, g.ID, msgs[1].GroupID)

	_, err = p.AddGroupMessage(ctx, models.Message{UserID: "ada", Content: "lost"})
	assert.ErrorIs(t, err, ErrNoGroup)

	_, err = p.AddGroupMessage(ctx, models.Message{GroupID: "missing", UserID: "ada", Content: "lost"})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, p.Ping(ctx))
}
