// Package auth registers and signs in users, issues API tokens and provides
// the signed-in user's identity and profile to the rest of the application
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/segmentio/ksuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hyperworkchat/hyperwork/internal/apperr"
	"github.com/hyperworkchat/hyperwork/internal/config"
	"github.com/hyperworkchat/hyperwork/internal/models"
	"github.com/hyperworkchat/hyperwork/store"
)

var (
	ErrInvalidCredentials = &apperr.Error{
		Message: "invalid email or password",
	}

	ErrInvalidToken = &apperr.Error{
		Message: "invalid or expired token",
	}

	ErrSignedOut = &apperr.Error{
		Message: "you are not signed in: run 'hyperwork login' first",
	}

	ErrEmailTaken = &apperr.Error{
		Message: "an account with this email already exists",
	}
)

// Registration is the input for creating an account. Only email and
// password are required; the profile can be completed later.
type Registration struct {
	Email            string      `json:"email"              validate:"required,email,max=254"`
	Password         string      `json:"password"           validate:"required,min=6,max=72"`
	FirstName        string      `json:"first_name"         validate:"max=50"`
	LastName         string      `json:"last_name"          validate:"max=50"`
	Role             models.Role `json:"role"               validate:"omitempty,oneof=student teacher"`
	ClassSection     string      `json:"class_section"      validate:"max=20"`
	WorkDays         []string    `json:"work_days"          validate:"dive,oneof=mon tue wed thu fri sat sun"`
	DailyWorkMinutes int         `json:"daily_work_minutes" validate:"gte=0,lte=1440"`
}

// ProfileUpdate holds the editable fields of a profile.
type ProfileUpdate struct {
	FirstName        string   `json:"first_name"         validate:"notblank,max=50"`
	LastName         string   `json:"last_name"          validate:"max=50"`
	ClassSection     string   `json:"class_section"      validate:"max=20"`
	WorkDays         []string `json:"work_days"          validate:"dive,oneof=mon tue wed thu fri sat sun"`
	DailyWorkMinutes int      `json:"daily_work_minutes" validate:"gte=0,lte=1440"`
}

// Session is the result of a successful sign-in.
type Session struct {
	ExpiresAt time.Time      `json:"expires_at"`
	Token     string         `json:"token"`
	Profile   models.Profile `json:"profile"`
}

// Service manages accounts and tokens.
type Service struct {
	db   store.ProfileStore
	now  func() time.Time
	cfg  config.AuthConfig
	cost int
}

func NewService(db store.ProfileStore, cfg config.AuthConfig) *Service {
	return &Service{
		db:   db,
		cfg:  cfg,
		now:  time.Now,
		cost: bcrypt.DefaultCost,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account and its profile. New accounts are students
// unless a role is given.
func (s *Service) Register(ctx context.Context, r Registration) (models.Profile, error) {
	r.Email = normalizeEmail(r.Email)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.ClassSection = strings.TrimSpace(r.ClassSection)

	if err := validateStruct(r); err != nil {
		return models.Profile{}, err
	}

	if r.Role == "" {
		r.Role = models.RoleStudent
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), s.cost)
	if err != nil {
		return models.Profile{}, err
	}

	now := s.now()
	id := ksuid.New().String()

	acct := models.Account{
		ID:           id,
		Email:        r.Email,
		PasswordHash: hash,
		CreatedAt:    now,
	}

	p := models.Profile{
		ID:               id,
		Email:            r.Email,
		FirstName:        r.FirstName,
		LastName:         r.LastName,
		Role:             r.Role,
		ClassSection:     r.ClassSection,
		WorkDays:         r.WorkDays,
		DailyWorkMinutes: r.DailyWorkMinutes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = s.db.CreateAccount(ctx, acct, p)
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return models.Profile{}, ErrEmailTaken
		}

		return models.Profile{}, err
	}

	return p, nil
}

// SignIn verifies the credentials and issues a token.
func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	acct, err := s.db.GetAccountByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}

		return Session{}, err
	}

	err = bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(password))
	if err != nil {
		return Session{}, ErrInvalidCredentials
	}

	p, err := s.db.GetProfile(ctx, acct.ID)
	if err != nil {
		return Session{}, err
	}

	token, expires, err := s.IssueToken(p.User())
	if err != nil {
		return Session{}, err
	}

	return Session{Token: token, ExpiresAt: expires, Profile: p}, nil
}

// IssueToken signs a token for u.
func (s *Service) IssueToken(u models.User) (string, time.Time, error) {
	return generateToken(s.cfg.JWTSecret, s.cfg.Issuer, u, s.now(), s.cfg.TokenTTL)
}

// ParseToken verifies a token and returns its claims.
func (s *Service) ParseToken(token string) (*Claims, error) {
	claims, err := parseToken(token, s.cfg.JWTSecret, s.cfg.Issuer, s.now())
	if err != nil {
		return nil, ErrInvalidToken.Wrap(err)
	}

	return claims, nil
}

// UpdateProfile validates and saves the editable fields of a profile.
func (s *Service) UpdateProfile(
	ctx context.Context,
	userID string,
	upd ProfileUpdate,
) (models.Profile, error) {
	upd.FirstName = strings.TrimSpace(upd.FirstName)
	upd.LastName = strings.TrimSpace(upd.LastName)
	upd.ClassSection = strings.TrimSpace(upd.ClassSection)

	if err := validateStruct(upd); err != nil {
		return models.Profile{}, err
	}

	return s.db.UpdateProfile(ctx, models.Profile{
		ID:               userID,
		FirstName:        upd.FirstName,
		LastName:         upd.LastName,
		ClassSection:     upd.ClassSection,
		WorkDays:         upd.WorkDays,
		DailyWorkMinutes: upd.DailyWorkMinutes,
	})
}
