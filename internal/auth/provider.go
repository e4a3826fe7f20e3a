package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hyperworkchat/hyperwork/internal/models"
	"github.com/hyperworkchat/hyperwork/internal/realtime"
	"github.com/hyperworkchat/hyperwork/store"
)

// credentials is the on-disk record of the signed-in user.
type credentials struct {
	ExpiresAt time.Time `json:"expires_at"`
	Token     string    `json:"token"`
	Email     string    `json:"email"`
}

// Provider tracks the signed-in user of the terminal client and serves
// profile reads and change notifications.
type Provider struct {
	svc       *Service
	db        store.ProfileStore
	broker    realtime.Broker
	user      *models.User
	credsPath string
	token     string
	mu        sync.RWMutex
}

func NewProvider(
	svc *Service,
	db store.ProfileStore,
	broker realtime.Broker,
	credsPath string,
) *Provider {
	return &Provider{
		svc:       svc,
		db:        db,
		broker:    broker,
		credsPath: credsPath,
	}
}

// Load restores the signed-in user from the credentials file. A missing,
// expired or invalid token leaves the provider signed out.
func (p *Provider) Load() error {
	b, err := os.ReadFile(p.credsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return err
	}

	var creds credentials

	err = json.Unmarshal(b, &creds)
	if err != nil {
		slog.Warn("ignoring unreadable credentials file", slog.Any("error", err))
		return nil
	}

	claims, err := p.svc.ParseToken(creds.Token)
	if err != nil {
		slog.Info("stored token rejected", slog.Any("error", err))
		return nil
	}

	u := claims.User()

	p.mu.Lock()
	p.user = &u
	p.token = creds.Token
	p.mu.Unlock()

	return nil
}

// CurrentUser returns the signed-in user, or nil when signed out.
func (p *Provider) CurrentUser() *models.User {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.user == nil {
		return nil
	}

	u := *p.user

	return &u
}

// RequireUser returns the signed-in user or an error asking them to log in.
func (p *Provider) RequireUser() (models.User, error) {
	u := p.CurrentUser()
	if u == nil {
		return models.User{}, ErrSignedOut
	}

	return *u, nil
}

// Token returns the stored API token of the signed-in user.
func (p *Provider) Token() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.token
}

// Login signs in and stores the token for later runs.
func (p *Provider) Login(ctx context.Context, email, password string) (models.Profile, error) {
	sess, err := p.svc.SignIn(ctx, email, password)
	if err != nil {
		return models.Profile{}, err
	}

	b, err := json.MarshalIndent(credentials{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		Email:     sess.Profile.Email,
	}, "", "  ")
	if err != nil {
		return models.Profile{}, err
	}

	err = os.MkdirAll(filepath.Dir(p.credsPath), 0o700)
	if err != nil {
		return models.Profile{}, err
	}

	err = os.WriteFile(p.credsPath, b, 0o600)
	if err != nil {
		return models.Profile{}, err
	}

	u := sess.Profile.User()

	p.mu.Lock()
	p.user = &u
	p.token = sess.Token
	p.mu.Unlock()

	return sess.Profile, nil
}

// Logout forgets the signed-in user.
func (p *Provider) Logout() error {
	p.mu.Lock()
	p.user = nil
	p.token = ""
	p.mu.Unlock()

	err := os.Remove(p.credsPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	return nil
}

// DefaultProfile is shown when a profile cannot be read.
func DefaultProfile(id string) models.Profile {
	return models.Profile{
		ID:       id,
		Role:     models.RoleStudent,
		WorkDays: []string{},
	}
}

// Profile returns the stored profile for id. Read failures are logged and
// yield DefaultProfile so that the caller can keep going.
func (p *Provider) Profile(ctx context.Context, id string) models.Profile {
	profile, err := p.db.GetProfile(ctx, id)
	if err != nil {
		slog.WarnContext(ctx, "reading profile failed, using default",
			slog.String("user_id", id),
			slog.Any("error", err),
		)

		return DefaultProfile(id)
	}

	return profile
}

// OnProfileChange calls fn with the new profile every time the profile with
// the given id changes, until the returned function is called or ctx is
// cancelled.
func (p *Provider) OnProfileChange(
	ctx context.Context,
	id string,
	fn func(models.Profile),
) (func(), error) {
	sub, err := p.broker.Subscribe(ctx, realtime.ProfileTopic(id))
	if err != nil {
		return nil, err
	}

	go func() {
		for evt := range sub.C {
			var profile models.Profile

			err := evt.Decode(&profile)
			if err != nil {
				slog.Warn("decoding profile event failed", slog.Any("error", err))
				continue
			}

			fn(profile)
		}
	}()

	return sub.Close, nil
}
