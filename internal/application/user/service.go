package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/civic-issue-api/internal/domain"
	"github.com/civic-issue-api/internal/pkg/id"
	"github.com/civic-issue-api/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

type LoginResult struct {
	Bearer string       `json:"bearer"`
	User   *domain.User `json:"user"`
}

type Service interface {
	Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error)
	Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	ListByRole(ctx context.Context, role string) ([]domain.User, error)
}

type userStore interface {
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	ListByRole(ctx context.Context, role string) ([]domain.User, error)
}

type jwtSigner interface {
	Sign(userID, role string) (string, error)
}

type service struct {
	repo userStore
	jwt  jwtSigner
}

func NewService(repo userStore, jwt jwtSigner) Service {
	return &service{repo: repo, jwt: jwt}
}

// Register creates a surveyor account. Engineers and admins are provisioned
// out of band.
func (s *service) Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}

	if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("username taken: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Username:     req.Username,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Role:         domain.RoleSurveyor,
		Enable:       1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Put(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}

	u, err := s.repo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if u.Enable != 1 {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}

	bearer, err := s.jwt.Sign(u.UserID, u.Role)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &LoginResult{Bearer: bearer, User: u}, nil
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) ListByRole(ctx context.Context, role string) ([]domain.User, error) {
	if !domain.ValidRole(role) {
		return nil, fmt.Errorf("unknown role %q: %w", role, domain.ErrBadRequest)
	}
	return s.repo.ListByRole(ctx, role)
}
