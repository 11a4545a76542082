package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mediconnect/platform/pkg/logging"
)

// demoPassword unlocks any seeded account. The platform is a demo and has
// no real credential store.
const demoPassword = "mediconnect"

// ErrBadCredentials is returned for unknown emails, wrong passwords, and
// deactivated accounts alike.
var ErrBadCredentials = errors.New("invalid email or password")

// Claims carried in a session token.
type Claims struct {
	Role Role   `json:"role"`
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller attached to request context.
type Identity struct {
	UserID string
	Role   Role
	Name   string
}

// AuthService issues and verifies HMAC-signed session tokens.
type AuthService struct {
	repo   Repository
	secret []byte
	ttl    time.Duration
	logger *logging.Logger
	now    func() time.Time
}

// NewAuthService constructs the session boundary.
func NewAuthService(repo Repository, secret string, ttl time.Duration, logger *logging.Logger) *AuthService {
	if repo == nil {
		panic("directory: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &AuthService{
		repo:   repo,
		secret: []byte(secret),
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Login checks demo credentials and issues a signed session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, ErrBadCredentials
	}
	if !user.Active {
		return "", nil, ErrBadCredentials
	}
	expected := user.Password
	if expected == "" {
		expected = demoPassword
	}
	if password != expected {
		return "", nil, ErrBadCredentials
	}

	now := s.now()
	claims := Claims{
		Role: user.Role,
		Name: user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("directory: sign session token: %w", err)
	}

	s.logger.Info("user logged in", "user_id", user.ID, "role", user.Role)
	return token, user, nil
}

// LoginLegacy reconciles an old simple-auth account into the canonical user
// type, then issues a session for it. One-time adapter at the auth boundary.
func (s *AuthService) LoginLegacy(ctx context.Context, acc LegacyAccount, password string) (string, *User, error) {
	canonical := CanonicalizeLegacy(acc)
	if canonical.Email == "" {
		return "", nil, ErrBadCredentials
	}
	return s.Login(ctx, canonical.Email, password)
}

// Verify parses and validates a session token.
func (s *AuthService) Verify(tokenString string) (*Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil || !token.Valid {
		return nil, ErrBadCredentials
	}
	return &Identity{
		UserID: claims.Subject,
		Role:   claims.Role,
		Name:   claims.Name,
	}, nil
}
