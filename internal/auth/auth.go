package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"ira/internal/apierr"
)

const DefaultTokenTTL = 7 * 24 * time.Hour

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateEmail     = apierr.Validation("Email already registered")
	ErrInvalidCredentials = apierr.Auth("Invalid credentials")
	ErrInvalidToken       = apierr.Auth("Invalid or expired token")
)

type Service struct {
	store  Store
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
}

type Option func(*Service)

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.cost = cost
		}
	}
}

func NewService(store Store, secret string, opts ...Option) *Service {
	s := &Service{
		store:  store,
		secret: []byte(secret),
		ttl:    DefaultTokenTTL,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type RegisterInput struct {
	Name     string `json:"name" yaml:"name"`
	Email    string `json:"email" yaml:"email"`
	Password string `json:"password" yaml:"password"`
	Role     Role   `json:"role" yaml:"role"`
}

func (in RegisterInput) validate() error {
	var missing []string
	if strings.TrimSpace(in.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(in.Email) == "" {
		missing = append(missing, "email")
	}
	if in.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return apierr.Validation("missing required fields: " + strings.Join(missing, ", "))
	}
	if in.Role != "" && !in.Role.Valid() {
		return apierr.Validation(fmt.Sprintf("unknown role %q", in.Role))
	}
	return nil
}

// Register creates a user and returns it with a fresh token. The email check
// here is a fast path; the store's uniqueness constraint is authoritative.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, string, error) {
	if err := in.validate(); err != nil {
		return nil, "", err
	}
	if _, err := s.store.GetByEmail(ctx, in.Email); err == nil {
		return nil, "", ErrDuplicateEmail
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}
	role := in.Role
	if role == "" {
		role = DefaultRole
	}
	user := &User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         role,
		Avatar:       Initials(in.Name),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, "", err
	}
	token, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, string, error) {
	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !VerifyPassword(user, password) {
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func VerifyPassword(user *User, candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(candidate)) == nil
}

func (s *Service) ResolveUser(ctx context.Context, id string) (*User, error) {
	return s.store.GetByID(ctx, id)
}

type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

func (s *Service) IssueToken(userID string) (string, error) {
	now := s.now().UTC()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken returns the user id bound to tokenStr. Every failure (bad
// signature, malformed, expired, wrong algorithm) is ErrInvalidToken.
func (s *Service) VerifyToken(tokenStr string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	// User ids are UUIDs; a signed token naming anything else was not issued
	// by Register or Authenticate.
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}

type usersFile struct {
	Users []RegisterInput `yaml:"users"`
}

// SeedFromFile registers every user listed in the YAML file at path whose
// email is not taken yet. It returns how many users were created.
func (s *Service) SeedFromFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var uf usersFile
	if err := yaml.Unmarshal(data, &uf); err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	created := 0
	for _, u := range uf.Users {
		if u.Email == "" || u.Password == "" {
			continue
		}
		if _, _, err := s.Register(ctx, u); err != nil {
			if errors.Is(err, ErrDuplicateEmail) {
				continue
			}
			return created, fmt.Errorf("seed %s: %w", u.Email, err)
		}
		created++
	}
	return created, nil
}
