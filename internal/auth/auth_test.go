package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hyperworkchat/hyperwork/internal/config"
	"github.com/hyperworkchat/hyperwork/internal/models"
	"github.com/hyperworkchat/hyperwork/internal/realtime"
	"github.com/hyperworkchat/hyperwork/store"
)

var testAuthConfig = config.AuthConfig{
	JWTSecret: "0123456789abcdef0123456789abcdef",
	Issuer:    "hyperwork-test",
	TokenTTL:  time.Hour,
}

func newTestService(t *testing.T) (*Service, store.DB) {
	t.Helper()

	db, err := store.NewClient(filepath.Join(t.TempDir(), "hyperwork.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	svc := NewService(db, testAuthConfig)
	svc.cost = bcrypt.MinCost

	return svc, db
}

func TestRegister(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	p, err := svc.Register(ctx, Registration{
		Email:    "  Ada@Example.com ",
		Password: "secret1",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "ada@example.com", p.Email)
	assert.Equal(t, models.RoleStudent, p.Role, "role defaults to student")
	assert.Zero(t, p.TotalPoints)

	stored, err := db.GetProfile(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Email, stored.Email)

	acct, err := db.GetAccountByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, []byte("secret1"), acct.PasswordHash)

	_, err = svc.Register(ctx, Registration{
		Email:    "ada@example.com",
		Password: "another",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)

	testCases := []struct {
		name  string
		field string
		reg   Registration
	}{
		{
			name:  "invalid email",
			field: "email",
			reg:   Registration{Email: "not-an-email", Password: "secret1"},
		},
		{
			name:  "short password",
			field: "password",
			reg:   Registration{Email: "a@example.com", Password: "12345"},
		},
		{
			name:  "unknown role",
			field: "role",
			reg: Registration{
				Email:    "a@example.com",
				Password: "secret1",
				Role:     "admin",
			},
		},
		{
			name:  "unknown work day",
			field: "work_days[0]",
			reg: Registration{
				Email:    "a@example.com",
				Password: "secret1",
				WorkDays: []string{"someday"},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.reg)

			var verr *ValidationError

			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Contains(t, verr.Fields, tc.field)
		})
	}
}

func TestSignIn(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.Register(ctx, Registration{
		Email:    "teacher@example.com",
		Password: "secret1",
		Role:     models.RoleTeacher,
	})
	require.NoError(t, err)

	sess, err := svc.SignIn(ctx, "TEACHER@example.com", "secret1")
	require.NoError(t, err)

	assert.Equal(t, p.ID, sess.Profile.ID)
	assert.NotEmpty(t, sess.Token)

	claims, err := svc.ParseToken(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, models.User{ID: p.ID, Role: models.RoleTeacher}, claims.User())

	_, err = svc.SignIn(ctx, "teacher@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.SignIn(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseToken(t *testing.T) {
	svc, _ := newTestService(t)

	u := models.User{ID: "user-1", Role: models.RoleStudent}

	token, expires, err := svc.IssueToken(u)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	_, err = svc.ParseToken(token + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewService(nil, config.AuthConfig{
		JWTSecret: "another-secret-another-secret",
		Issuer:    testAuthConfig.Issuer,
		TokenTTL:  time.Hour,
	})

	_, err = other.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "token signed with another key")

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err = svc.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired token")
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.Register(ctx, Registration{
		Email:    "ada@example.com",
		Password: "secret1",
	})
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, p.ID, ProfileUpdate{
		FirstName:        " Ada ",
		LastName:         "Lovelace",
		ClassSection:     "10A",
		WorkDays:         []string{"mon", "tue"},
		DailyWorkMinutes: 90,
	})
	require.NoError(t, err)

	assert.Equal(t, "Ada", updated.FirstName)
	assert.Equal(t, "Ada Lovelace", updated.DisplayName())
	assert.Equal(t, "10A", updated.ClassSection)

	_, err = svc.UpdateProfile(ctx, p.ID, ProfileUpdate{FirstName: "   "})

	var verr *ValidationError

	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "this field cannot be blank", verr.Fields["first_name"])
}

func newTestProvider(t *testing.T) (*Provider, *Service, realtime.Broker, store.DB) {
	t.Helper()

	svc, db := newTestService(t)

	broker := realtime.NewMemory()
	t.Cleanup(func() { _ = broker.Close() })

	notifying := store.NewNotifying(db, broker)
	svc.db = notifying

	credsPath := filepath.Join(t.TempDir(), "credentials.json")

	return NewProvider(svc, notifying, broker, credsPath), svc, broker, notifying
}

func TestProviderLoginLogout(t *testing.T) {
	p, svc, _, _ := newTestProvider(t)
	ctx := context.Background()

	require.NoError(t, p.Load())
	assert.Nil(t, p.CurrentUser())

	_, err := p.RequireUser()
	assert.ErrorIs(t, err, ErrSignedOut)

	reg, err := svc.Register(ctx, Registration{
		Email:    "ada@example.com",
		Password: "secret1",
	})
	require.NoError(t, err)

	_, err = p.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Nil(t, p.CurrentUser())

	profile, err := p.Login(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, reg.ID, profile.ID)

	info, err := os.Stat(p.credsPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// a fresh provider picks up the stored token
	restored := NewProvider(svc, p.db, p.broker, p.credsPath)
	require.NoError(t, restored.Load())

	u := restored.CurrentUser()
	require.NotNil(t, u)
	assert.Equal(t, reg.ID, u.ID)
	assert.Equal(t, p.Token(), restored.Token())

	require.NoError(t, p.Logout())
	assert.Nil(t, p.CurrentUser())

	_, err = os.Stat(p.credsPath)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, p.Logout(), "logging out twice is harmless")
}

func TestProviderLoadRejectsBadToken(t *testing.T) {
	p, _, _, _ := newTestProvider(t)

	require.NoError(t, os.WriteFile(p.credsPath, []byte(`{"token":"garbage"}`), 0o600))
	require.NoError(t, p.Load())
	assert.Nil(t, p.CurrentUser())

	require.NoError(t, os.WriteFile(p.credsPath, []byte(`not json`), 0o600))
	require.NoError(t, p.Load())
	assert.Nil(t, p.CurrentUser())
}

type failingProfiles struct {
	store.ProfileStore
}

func (failingProfiles) GetProfile(context.Context, string) (models.Profile, error) {
	return models.Profile{}, errors.New("connection refused")
}

func TestProviderProfileFallsBack(t *testing.T) {
	p := NewProvider(nil, failingProfiles{}, realtime.NewMemory(), "")

	got := p.Profile(context.Background(), "user-1")

	assert.Equal(t, DefaultProfile("user-1"), got)
}

func TestProviderOnProfileChange(t *testing.T) {
	p, svc, _, db := newTestProvider(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, Registration{
		Email:    "ada@example.com",
		Password: "secret1",
	})
	require.NoError(t, err)

	changes := make(chan models.Profile, 4)

	stop, err := p.OnProfileChange(ctx, reg.ID, func(profile models.Profile) {
		changes <- profile
	})
	require.NoError(t, err)

	defer stop()

	_, err = db.IncrementProfilePoints(ctx, reg.ID, 100)
	require.NoError(t, err)

	select {
	case got := <-changes:
		assert.Equal(t, 100, got.TotalPoints)
	case <-time.After(time.Second):
		t.Fatal("profile change not delivered")
	}
}
