package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Principal roles carried in the role claim
const (
	RoleAdmin  = "admin"
	RoleClinic = "clinic"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
	ErrNoSecret     = errors.New("jwt secret is not configured")
)

// Identity is what gets embedded into a token
type Identity struct {
	ID        int64
	Role      string
	Email     string
	Name      string
	StaffRole string
}

// Claims are the verified contents of a token
type Claims struct {
	jwt.RegisteredClaims
	Role      string `json:"role"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	StaffRole string `json:"staff_role,omitempty"`
}

// PrincipalID returns the numeric subject of the token
func (c *Claims) PrincipalID() int64 {
	id, _ := strconv.ParseInt(c.Subject, 10, 64)
	return id
}

type JWTService interface {
	Issue(identity Identity, ttl time.Duration) (string, time.Time, error)
	Verify(token string) (*Claims, error)
}

type jwtService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

type Option func(*jwtService)

// WithClock overrides the time source used for issuing and verifying
func WithClock(now func() time.Time) Option {
	return func(s *jwtService) { s.now = now }
}

// NewJWTService creates an HS256 token service. An empty secret is an error.
func NewJWTService(secret, issuer string, opts ...Option) (JWTService, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	s := &jwtService{secret: []byte(secret), issuer: issuer, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *jwtService) Issue(identity Identity, ttl time.Duration) (string, time.Time, error) {
	if identity.Role == "" {
		return "", time.Time{}, fmt.Errorf("identity role is required")
	}
	if ttl <= 0 {
		return "", time.Time{}, fmt.Errorf("token ttl must be positive")
	}

	issuedAt := s.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(identity.ID, 10),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role:      identity.Role,
		Email:     identity.Email,
		Name:      identity.Name,
		StaffRole: identity.StaffRole,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, expiresAt, nil
}

// Verify checks signature and expiry before returning any claim.
func (s *jwtService) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrTokenInvalid
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if claims.Role == "" || claims.PrincipalID() <= 0 {
		return nil, fmt.Errorf("%w: missing identity claims", ErrTokenInvalid)
	}
	return &claims, nil
}
