package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/rs/zerolog"

	"github.com/noah-isme/tokobaju-api/internal/activity"
	"github.com/noah-isme/tokobaju-api/internal/common"
	"github.com/noah-isme/tokobaju-api/internal/store"
)

const defaultAccessTTL = 24 * time.Hour

var (
	// ErrEmailTaken is returned by Register for an email already on file.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned by Login for an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAdminExists is returned by SeedAdmin once an administrator exists.
	ErrAdminExists = errors.New("admin already exists")
	// ErrUnauthorized is returned when a token is missing or invalid.
	ErrUnauthorized = errors.New("unauthorized")
)

// Querier is the user persistence used by Service.
type Querier interface {
	CreateUser(ctx context.Context, arg store.CreateUserParams) (store.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	ExistsUserWithRole(ctx context.Context, role string) (bool, error)
}

// Service coordinates registration, login and access tokens.
type Service struct {
	queries  Querier
	tokens   Issuer
	activity activity.Recorder
	logger   zerolog.Logger
	params   *argon2id.Params
	admin    Credentials
}

// Credentials is an email and password pair.
type Credentials struct {
	Email    string
	Password string
}

// Config configures the auth service.
type Config struct {
	Queries        Querier
	Secret         string
	AccessTokenTTL time.Duration
	Issuer         string
	Audience       string
	ClockSkew      time.Duration
	Activity       activity.Recorder
	Logger         zerolog.Logger
	// HashParams overrides argon2id.DefaultParams.
	HashParams *argon2id.Params
	// Admin is the account created by SeedAdmin.
	Admin Credentials
}

// User represents a safe subset of the user model returned to clients.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// LoginResult bundles the user and the access token issued at login.
type LoginResult struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewService constructs a Service instance with sane defaults.
func NewService(cfg Config) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("auth: queries is required")
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	ttl := cfg.AccessTokenTTL
	if ttl <= 0 {
		ttl = defaultAccessTTL
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = "tokobaju-api"
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = "tokobaju-web"
	}
	skew := cfg.ClockSkew
	if skew < 0 {
		skew = 0
	}
	params := cfg.HashParams
	if params == nil {
		params = argon2id.DefaultParams
	}
	return &Service{
		queries:  cfg.Queries,
		activity: cfg.Activity,
		logger:   cfg.Logger,
		params:   params,
		admin:    cfg.Admin,
		tokens: Issuer{
			Secret: []byte(secret),
			TTL:    ttl,
			Now:    time.Now,
			Validator: TokenValidator{
				Issuer:    issuer,
				Audience:  audience,
				ClockSkew: skew,
				Algorithm: jwa.HS256,
			},
		},
	}, nil
}

// WithNow allows tests to override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.tokens.Now = now
	}
}

// HashPassword derives an argon2id hash for password.
func (s *Service) HashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, s.params)
}

// Register creates a Customer account.
func (s *Service) Register(ctx context.Context, fullName, email, password string) (User, error) {
	email = normalizeEmail(email)
	if _, err := s.queries.GetUserByEmail(ctx, email); err == nil {
		return User{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return User{}, fmt.Errorf("lookup email: %w", err)
	}
	hash, err := s.HashPassword(password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	created, err := s.queries.CreateUser(ctx, store.CreateUserParams{
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(fullName),
		Role:         common.RoleCustomer,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	s.record(ctx, created, activity.ActionRegister, "New user registered")
	return fromRow(created), nil
}

// Login verifies credentials and issues an access token.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	row, err := s.queries.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("lookup email: %w", err)
	}
	ok, err := argon2id.ComparePasswordAndHash(password, row.PasswordHash)
	if err != nil || !ok {
		return LoginResult{}, ErrInvalidCredentials
	}
	token, expiresAt, err := s.tokens.Sign(Claims{UserID: row.ID.String(), Role: row.Role, Email: row.Email})
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign access token: %w", err)
	}
	s.record(ctx, row, activity.ActionLogin, "User logged in successfully")
	return LoginResult{User: fromRow(row), Token: token, ExpiresAt: expiresAt}, nil
}

// Me fetches the current authenticated user.
func (s *Service) Me(ctx context.Context, userID string) (User, error) {
	id, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil {
		return User{}, ErrUnauthorized
	}
	row, err := s.queries.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return User{}, ErrUnauthorized
		}
		return User{}, err
	}
	return fromRow(row), nil
}

// SeedAdmin creates the configured administrator unless one already exists.
func (s *Service) SeedAdmin(ctx context.Context) (User, error) {
	exists, err := s.queries.ExistsUserWithRole(ctx, common.RoleAdmin)
	if err != nil {
		return User{}, err
	}
	email := normalizeEmail(s.admin.Email)
	if !exists {
		if _, err := s.queries.GetUserByEmail(ctx, email); err == nil {
			exists = true
		} else if !errors.Is(err, store.ErrNotFound) {
			return User{}, err
		}
	}
	if exists {
		return User{}, ErrAdminExists
	}
	if email == "" || s.admin.Password == "" {
		return User{}, errors.New("auth: admin credentials not configured")
	}
	hash, err := s.HashPassword(s.admin.Password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	created, err := s.queries.CreateUser(ctx, store.CreateUserParams{
		Email:        email,
		PasswordHash: hash,
		FullName:     "Administrator",
		Role:         common.RoleAdmin,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return User{}, ErrAdminExists
		}
		return User{}, fmt.Errorf("create admin: %w", err)
	}
	s.logger.Info().Str("email", created.Email).Msg("admin account seeded")
	return fromRow(created), nil
}

// ParseAccessToken validates token and returns its claims.
func (s *Service) ParseAccessToken(token string) (Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Claims{}, ErrUnauthorized
	}
	c, err := s.tokens.Parse(trimmed)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return c, nil
}

func (s *Service) record(ctx context.Context, u store.User, action, details string) {
	if s.activity == nil {
		return
	}
	err := s.activity.Record(ctx, activity.Entry{
		UserID:   u.ID.String(),
		UserName: u.FullName,
		Role:     u.Role,
		Action:   action,
		Details:  details,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("record auth activity failed")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func fromRow(u store.User) User {
	return User{
		ID:        u.ID.String(),
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
