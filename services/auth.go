package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"eduquest/logger"
	"eduquest/models"
	"eduquest/storage"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"
)

const (
	StartingCoins     = 100
	minPasswordLength = 8
	// bcrypt ignores input beyond 72 bytes.
	maxPasswordLength = 72
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,32}$`)

type AuthOptions struct {
	Secret     string
	Issuer     string
	TTL        time.Duration
	BcryptCost int
}

type AuthService struct {
	store    storage.Storage
	log      *logger.Logger
	clock    clockwork.Clock
	opts     AuthOptions
	subjects *SubjectService
	quests   *QuestService
}

func NewAuthService(store storage.Storage, log *logger.Logger, clock clockwork.Clock, opts AuthOptions,
	subjects *SubjectService, quests *QuestService) *AuthService {
	if opts.TTL <= 0 {
		opts.TTL = 7 * 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Issuer == "" {
		opts.Issuer = "eduquest"
	}
	return &AuthService{store: store, log: log, clock: clock, opts: opts, subjects: subjects, quests: quests}
}

type RegisterInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type AuthResult struct {
	Token     string           `json:"token"`
	User      *models.User     `json:"user"`
	UserStats *models.UserStat `json:"userStats,omitempty"`
}

// Register creates the account and everything a new player starts with: stats,
// the default subjects and the daily and epic quests.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	if !usernamePattern.MatchString(username) {
		return nil, models.NewValidationError("username", "must be 3-32 letters, digits or underscores")
	}
	if len(in.Password) < minPasswordLength || len(in.Password) > maxPasswordLength {
		return nil, models.NewValidationError("password", fmt.Sprintf("must be %d-%d characters", minPasswordLength, maxPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock.Now()
	u := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: string(hash),
		CreatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	st := &models.UserStat{
		UserID:           u.ID,
		Level:            1,
		Coins:            StartingCoins,
		SelectedAvatar:   models.DefaultAvatar,
		SelectedTitle:    models.DefaultTitle,
		UnlockedAvatars:  []string{models.DefaultAvatar},
		UnlockedTitles:   []string{models.DefaultTitle},
		LastQuestRefresh: &now,
	}
	if err := s.store.CreateUserStats(ctx, st); err != nil {
		return nil, err
	}
	if err := s.subjects.CreateDefaultSubjects(ctx, u.ID); err != nil {
		return nil, err
	}
	if err := s.quests.CreateDefaultQuests(ctx, u.ID); err != nil {
		return nil, err
	}

	token, err := s.issueToken(u.ID, now)
	if err != nil {
		return nil, err
	}
	s.log.Info("user registered", "user_id", u.ID, "username", u.Username)
	return &AuthResult{Token: token, User: u, UserStats: st}, nil
}

// Login checks credentials and issues a token. Unknown users and wrong
// passwords fail the same way.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	u, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}
	token, err := s.issueToken(u.ID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: u}, nil
}

func (s *AuthService) issueToken(userID string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    s.opts.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.TTL)),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.opts.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a bearer token and returns the user id it was issued to.
func (s *AuthService) ParseToken(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return []byte(s.opts.Secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.opts.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", models.ErrUnauthorized)
	}
	return claims.Subject, nil
}
