// Package testutil holds helpers shared by the package tests
package testutil

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/hyperworkchat/hyperwork/internal/models"
	"github.com/hyperworkchat/hyperwork/internal/osutil"
	"github.com/hyperworkchat/hyperwork/store"
)

// TestSecret is a JWT signing key long enough to pass config validation.
const TestSecret = "0123456789abcdef0123456789abcdef"

// NewBoltStore opens a bolt store in a temporary directory. The store is
// closed when the test ends.
func NewBoltStore(t *testing.T) *store.Client {
	t.Helper()

	db, err := store.NewClient(filepath.Join(t.TempDir(), "hyperwork.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// SeedProfile creates an account for p. The email defaults to
// <id>@example.com and the role to student.
func SeedProfile(t *testing.T, db store.ProfileStore, p models.Profile) models.Profile {
	t.Helper()

	if p.Email == "" {
		p.Email = p.ID + "@example.com"
	}

	if p.Role == "" {
		p.Role = models.RoleStudent
	}

	err := db.CreateAccount(context.Background(), models.Account{
		ID:    p.ID,
		Email: p.Email,
	}, p)
	require.NoError(t, err)

	return p
}

// CompareGolden verifies that got matches testdata/<name>.golden. Run the
// tests with -update to rewrite the file.
func CompareGolden(t *testing.T, name string, got []byte) {
	t.Helper()

	if runtime.GOOS == osutil.Windows {
		// TODO: need to sort out line endings
		t.Skip("skipping golden file test in Windows")
	}

	g := goldie.New(
		t,
		goldie.WithFixtureDir("testdata"),
	)

	g.Assert(t, name, got)
}
