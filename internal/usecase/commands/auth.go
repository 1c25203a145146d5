package commands

import (
	"context"

	"renovecare/internal/domain/user"
	"renovecare/internal/infra"
	"renovecare/internal/infra/db"
	"renovecare/internal/pkg/errs"
	"renovecare/internal/pkg/jwt"
	"renovecare/internal/pkg/password"

	"github.com/google/uuid"
)

var (
	ErrAuthentication = errs.New("invalid email or password")
	ErrUserInactive   = errs.New("user account is inactive")
	ErrEmailTaken     = errs.New("email is already registered")
)

type AuthService struct {
	db    db.DBTX
	users UserRepository
	jwt   *jwt.Service
}

func NewAuthService(dbtx db.DBTX, users UserRepository, jwtSvc *jwt.Service) *AuthService {
	return &AuthService{db: dbtx, users: users, jwt: jwtSvc}
}

type LoginResult struct {
	Token string
	User  *user.User
}

func (s *AuthService) Login(ctx context.Context, email, plainPassword string) (*LoginResult, error) {
	u, err := s.users.FindByEmail(ctx, s.db, email)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			// Same error as a wrong password so lookups cannot probe emails.
			return nil, errs.Mark(err, ErrAuthentication)
		}
		return nil, errs.Wrap(err, "failed to load user")
	}
	if !u.IsActive() {
		return nil, ErrUserInactive
	}
	if err := password.Verify(u.PasswordHash(), plainPassword); err != nil {
		return nil, errs.Mark(err, ErrAuthentication)
	}

	token, err := s.jwt.GenerateToken(u.ID(), u.Role())
	if err != nil {
		return nil, errs.Wrap(err, "failed to issue token")
	}
	return &LoginResult{Token: token, User: u}, nil
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Role     user.Role
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*user.User, error) {
	email, err := user.NewEmail(input.Email)
	if err != nil {
		return nil, errs.Mark(err, ErrInvalidPayload)
	}
	if !input.Role.IsValid() {
		return nil, errs.Mark(user.ErrInvalidRole, ErrInvalidPayload)
	}

	hash, err := password.Hash(input.Password)
	if err != nil {
		return nil, errs.Wrap(err, "failed to hash password")
	}

	u := user.NewUser(email, hash, input.Name, input.Role)
	if err := s.users.Create(ctx, s.db, u); err != nil {
		if infra.IsKind(err, infra.KindDuplicateKey) {
			return nil, errs.Mark(err, ErrEmailTaken)
		}
		return nil, errs.Wrap(err, "failed to create user")
	}
	return u, nil
}

func (s *AuthService) CurrentUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, err := s.users.FindByID(ctx, s.db, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, ErrAuthentication)
		}
		return nil, errs.Wrap(err, "failed to load user")
	}
	return u, nil
}
