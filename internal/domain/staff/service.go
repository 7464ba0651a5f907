package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/yacco/emr/internal/platform/auth"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTwoFactorRequired  = errors.New("two-factor verification required")
	ErrInvalidCode        = errors.New("invalid two-factor code")
)

// pendingTokenTTL bounds the window between password login and 2FA code
// submission.
const pendingTokenTTL = 5 * time.Minute

type Service struct {
	repo       Repository
	signingKey []byte
	issuer     string
	tokenTTL   time.Duration
}

func NewService(repo Repository, signingKey []byte, issuer string, tokenTTL time.Duration) *Service {
	return &Service{repo: repo, signingKey: signingKey, issuer: issuer, tokenTTL: tokenTTL}
}

func validRole(role string) bool {
	switch role {
	case auth.RoleHospitalAdmin, auth.RoleHospitalITAdmin, auth.RolePhysician,
		auth.RoleNurse, auth.RoleNursingSupervisor, auth.RoleBedManager,
		auth.RoleDispatcher, auth.RoleRadiologist, auth.RoleLabTech,
		auth.RolePharmacist, auth.RoleBiller, auth.RoleReceptionist:
		return true
	}
	return false
}

// Create registers a staff user with a bcrypt-hashed password. super_admin
// accounts are provisioned out of band, never through this API.
func (s *Service) Create(ctx context.Context, u *User, password string) error {
	if u.Email == "" {
		return fmt.Errorf("email is required")
	}
	if !strings.Contains(u.Email, "@") {
		return fmt.Errorf("email is malformed")
	}
	if !validRole(u.Role) {
		return fmt.Errorf("unknown role %q", u.Role)
	}
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	if existing, err := s.repo.GetByEmail(ctx, u.Email); err == nil && existing != nil {
		return fmt.Errorf("email %s already registered", u.Email)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	u.Active = true
	return s.repo.Create(ctx, u)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	return u, nil
}

func (s *Service) List(ctx context.Context, role string, limit, offset int) ([]*User, int, error) {
	return s.repo.List(ctx, role, limit, offset)
}

func (s *Service) Update(ctx context.Context, u *User) error {
	current, err := s.repo.GetByID(ctx, u.ID)
	if err != nil {
		return ErrNotFound
	}
	if u.Role == "" {
		u.Role = current.Role
	} else if !validRole(u.Role) {
		return fmt.Errorf("unknown role %q", u.Role)
	}
	return s.repo.Update(ctx, u)
}

// Deactivate soft-disables a user. Tokens already issued expire on their
// own; deactivated users cannot log in again.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	u.Active = false
	return s.repo.Update(ctx, u)
}

func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return ErrInvalidCredentials
	}
	if len(next) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, id, string(hash))
}

// EnableTwoFactor generates and stores a secret. The caller confirms
// enrollment by submitting a valid code, which flips the enabled flag.
func (s *Service) EnableTwoFactor(ctx context.Context, id uuid.UUID) (string, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return "", ErrNotFound
	}
	secret, err := NewTOTPSecret()
	if err != nil {
		return "", err
	}
	if err := s.repo.UpdateTwoFactor(ctx, id, secret, false); err != nil {
		return "", err
	}
	return secret, nil
}

func (s *Service) ConfirmTwoFactor(ctx context.Context, id uuid.UUID, code string) error {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	if u.TwoFactorSecret == "" || !VerifyTOTP(u.TwoFactorSecret, code, time.Now()) {
		return ErrInvalidCode
	}
	return s.repo.UpdateTwoFactor(ctx, id, u.TwoFactorSecret, true)
}

// LoginResult carries either a full session token or a short-lived pending
// token that must be exchanged with a 2FA code.
type LoginResult struct {
	Token            string `json:"token"`
	TwoFactorPending bool   `json:"two_factor_pending"`
	User             *User  `json:"user,omitempty"`
}

func (s *Service) Login(ctx context.Context, orgID, email, password string) (*LoginResult, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil || !u.Active {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	if u.TwoFactorEnabled {
		token, err := s.issueToken(u, orgID, false, pendingTokenTTL)
		if err != nil {
			return nil, err
		}
		return &LoginResult{Token: token, TwoFactorPending: true}, nil
	}

	token, err := s.issueToken(u, orgID, true, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, User: u}, nil
}

// VerifyTwoFactor exchanges a pending token plus a valid code for a full
// session token.
func (s *Service) VerifyTwoFactor(ctx context.Context, pendingToken, code string) (*LoginResult, error) {
	claims, err := auth.ParseToken(auth.JWTConfig{SigningKey: s.signingKey, Issuer: s.issuer}, pendingToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if claims.TwoFactorOK {
		return nil, fmt.Errorf("token already verified")
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil || !u.Active {
		return nil, ErrInvalidCredentials
	}
	if !VerifyTOTP(u.TwoFactorSecret, code, time.Now()) {
		return nil, ErrInvalidCode
	}
	token, err := s.issueToken(u, claims.OrganizationID, true, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, User: u}, nil
}

func (s *Service) issueToken(u *User, orgID string, verified bool, ttl time.Duration) (string, error) {
	claims := &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: u.ID.String(),
			Issuer:  s.issuer,
		},
		Role:           u.Role,
		OrganizationID: orgID,
		TwoFactorOK:    verified,
	}
	if u.HospitalID != nil {
		claims.HospitalID = u.HospitalID.String()
	}
	if u.LocationID != nil {
		claims.LocationID = u.LocationID.String()
	}
	return auth.IssueToken(s.signingKey, claims, ttl)
}
