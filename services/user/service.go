// Package user handles registration, login, bearer-token sessions and the
// admin user search.
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/junaidrashid-git/shopcart-api/apperr"
	"github.com/junaidrashid-git/shopcart-api/auth"
	"github.com/junaidrashid-git/shopcart-api/identity"
	"github.com/junaidrashid-git/shopcart-api/logging"
	"github.com/junaidrashid-git/shopcart-api/models"
	"github.com/junaidrashid-git/shopcart-api/repositories"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenName       = "auth_token"
	defaultPerPage  = 20
	maxPerPage      = 100
	minPasswordSize = 8
	maxPasswordSize = 72 // bcrypt input limit, in bytes
	badCredentials  = "The provided credentials are incorrect."
)

type UserStore interface {
	Transaction(ctx context.Context, fn func(users *repositories.UserRepository, tokens *repositories.TokenRepository) error) error
	Create(ctx context.Context, u *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	Paginate(ctx context.Context, f repositories.UserFilter) ([]models.User, int64, error)
}

type TokenStore interface {
	Create(ctx context.Context, t *models.AccessToken) error
	Active(ctx context.Context, id string, now time.Time) (*models.AccessToken, error)
	MarkUsed(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

type RegisterInput struct {
	Name                 string
	Email                string
	Password             string
	PasswordConfirmation string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User        *models.User
	AccessToken string
}

type ListQuery struct {
	Keyword       string
	Page          int
	PerPage       int
	OrderBy       string
	OrderByColumn string
}

type Page struct {
	Users   []models.User
	Total   int64
	Page    int
	PerPage int
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithBcryptCost overrides bcrypt.DefaultCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

type Service struct {
	users    UserStore
	tokens   TokenStore
	issuer   *auth.Issuer
	validate *validator.Validate
	cost     int
	now      func() time.Time
	log      *zap.Logger
}

func NewService(users UserStore, tokens TokenStore, issuer *auth.Issuer, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		users:    users,
		tokens:   tokens,
		issuer:   issuer,
		validate: validator.New(),
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
		log:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	verr := &apperr.ValidationError{}
	switch {
	case name == "":
		verr.Add("name", "The name field is required.")
	case utf8.RuneCountInString(name) > 255:
		verr.Add("name", "The name must not be greater than 255 characters.")
	}
	s.checkEmail(verr, email)
	switch {
	case in.Password == "":
		verr.Add("password", "The password field is required.")
	case len(in.Password) < minPasswordSize:
		verr.Add("password", "The password must be at least 8 characters.")
	case len(in.Password) > maxPasswordSize:
		verr.Add("password", "The password must not be greater than 72 characters.")
	case in.Password != in.PasswordConfirmation:
		verr.Add("password", "The password confirmation does not match.")
	}

	if !verr.Has("email") {
		taken, err := s.users.EmailTaken(ctx, email)
		if err != nil {
			return nil, err
		}
		if taken {
			verr.Add("email", "The email has already been taken.")
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{Name: name, Email: email, Password: string(hash)}
	var token string
	err = s.users.Transaction(ctx, func(users *repositories.UserRepository, tokens *repositories.TokenRepository) error {
		if err := users.Create(ctx, u); err != nil {
			return err
		}
		token, err = s.issueToken(ctx, tokens, u.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logging.FromContextOr(ctx, s.log).Info("user_registered", zap.Uint("user_id", u.ID))
	return &AuthResult{User: u, AccessToken: token}, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	verr := &apperr.ValidationError{}
	s.checkEmail(verr, email)
	if password == "" {
		verr.Add("password", "The password field is required.")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Invalid("email", badCredentials)
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		logging.FromContextOr(ctx, s.log).Info("login_failed", zap.Uint("user_id", u.ID))
		return nil, apperr.Invalid("email", badCredentials)
	}

	token, err := s.issueToken(ctx, s.tokens, u.ID)
	if err != nil {
		return nil, err
	}
	logging.FromContextOr(ctx, s.log).Info("user_logged_in", zap.Uint("user_id", u.ID))
	return &AuthResult{User: u, AccessToken: token}, nil
}

// Logout revokes the token the caller authenticated with. Other tokens of the
// same user stay valid.
func (s *Service) Logout(ctx context.Context, caller identity.Caller) error {
	if !caller.Authenticated() || caller.TokenID == "" {
		return apperr.ErrUnauthenticated
	}
	if err := s.tokens.Delete(ctx, caller.TokenID); err != nil {
		return err
	}
	logging.FromContextOr(ctx, s.log).Info("user_logged_out", zap.Uint("user_id", caller.UserID))
	return nil
}

// Authenticate resolves a bearer token to a caller. The signature, the expiry
// and the backing access_tokens row must all check out.
func (s *Service) Authenticate(ctx context.Context, bearer string) (identity.Caller, error) {
	userID, tokenID, err := s.issuer.Parse(bearer)
	if err != nil {
		return identity.Caller{}, fmt.Errorf("%w: %w", err, apperr.ErrUnauthenticated)
	}

	now := s.now().UTC()
	row, err := s.tokens.Active(ctx, tokenID, now)
	if err != nil {
		// Storage failures are returned unclassified.
		return identity.Caller{}, err
	}
	if row.UserID != userID {
		return identity.Caller{}, fmt.Errorf("token subject mismatch: %w", apperr.ErrUnauthenticated)
	}

	if err := s.tokens.MarkUsed(ctx, tokenID, now); err != nil {
		logging.FromContextOr(ctx, s.log).Warn("token_mark_used_failed", zap.Error(err))
	}
	return identity.Caller{UserID: userID, TokenID: tokenID}, nil
}

// ListUsers pages through users. Page defaults to 1 and PerPage to 20.
func (s *Service) ListUsers(ctx context.Context, q ListQuery) (*Page, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = defaultPerPage
	}
	if q.PerPage > maxPerPage {
		q.PerPage = maxPerPage
	}

	users, total, err := s.users.Paginate(ctx, repositories.UserFilter{
		Keyword:       q.Keyword,
		OrderBy:       q.OrderBy,
		OrderByColumn: q.OrderByColumn,
		Page:          q.Page,
		PerPage:       q.PerPage,
	})
	if err != nil {
		return nil, err
	}
	return &Page{Users: users, Total: total, Page: q.Page, PerPage: q.PerPage}, nil
}

func (s *Service) checkEmail(verr *apperr.ValidationError, email string) {
	switch {
	case email == "":
		verr.Add("email", "The email field is required.")
	case len(email) > 255:
		verr.Add("email", "The email must not be greater than 255 characters.")
	case s.validate.Var(email, "email") != nil:
		verr.Add("email", "The email must be a valid email address.")
	}
}

func (s *Service) issueToken(ctx context.Context, tokens TokenStore, userID uint) (string, error) {
	issued, err := s.issuer.Issue(userID)
	if err != nil {
		return "", err
	}
	row := &models.AccessToken{
		ID:        issued.ID,
		UserID:    userID,
		Name:      tokenName,
		ExpiresAt: issued.ExpiresAt,
		CreatedAt: s.now().UTC(),
	}
	if err := tokens.Create(ctx, row); err != nil {
		return "", err
	}
	return issued.Plain, nil
}
