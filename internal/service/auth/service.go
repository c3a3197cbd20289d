package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/medstaff-api/internal/email"
	"github.com/jwalitptl/medstaff-api/internal/model"
	"github.com/jwalitptl/medstaff-api/internal/repository"
	"github.com/jwalitptl/medstaff-api/pkg/auth"
	apperrors "github.com/jwalitptl/medstaff-api/pkg/errors"
	"github.com/jwalitptl/medstaff-api/pkg/metrics"
	"github.com/jwalitptl/medstaff-api/pkg/security"
)

const (
	defaultStaffRole = "admin"
	timingGuard      = "medstaff-timing-guard"
)

var (
	ErrInvalidCredentials = apperrors.Unauthenticated("invalid email or password", nil)
	ErrConsentRequired    = apperrors.Validationf("terms_accepted and data_processing_accepted must be accepted")
)

type Config struct {
	AdminTTL  time.Duration
	ClinicTTL time.Duration
}

type Service struct {
	admins  repository.AdminRepository
	clinics repository.ClinicRepository
	hasher  security.PasswordHasher
	tokens  auth.JWTService
	mailer  email.Service
	metrics *metrics.Metrics
	cfg     Config
	now     func() time.Time

	guardOnce sync.Once
	guardHash string
}

func NewService(admins repository.AdminRepository, clinics repository.ClinicRepository,
	hasher security.PasswordHasher, tokens auth.JWTService, mailer email.Service,
	m *metrics.Metrics, cfg Config) *Service {
	return &Service{
		admins:  admins,
		clinics: clinics,
		hasher:  hasher,
		tokens:  tokens,
		mailer:  mailer,
		metrics: m,
		cfg:     cfg,
		now:     time.Now,
	}
}

// NormalizeEmail is the canonical form emails are stored and looked up in
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) AdminLogin(ctx context.Context, email, password string) (*model.AdminSession, error) {
	admin, err := s.admins.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			s.burnHash(password)
			s.recordLogin(auth.RoleAdmin, "invalid_credentials")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load admin: %w", err)
	}

	if !s.hasher.Verify(admin.PasswordHash, password) {
		s.recordLogin(auth.RoleAdmin, "invalid_credentials")
		return nil, ErrInvalidCredentials
	}
	if !admin.IsActive {
		s.recordLogin(auth.RoleAdmin, "forbidden")
		return nil, apperrors.Forbidden("admin account is disabled")
	}

	if err := s.admins.TouchLastLogin(ctx, admin.ID, s.now().UTC()); err != nil {
		log.Warn().Err(err).Int64("admin_id", admin.ID).Msg("failed to update admin last login")
	}

	token, expiresAt, err := s.tokens.Issue(auth.Identity{
		ID:        admin.ID,
		Role:      auth.RoleAdmin,
		Email:     admin.Email,
		Name:      admin.FullName,
		StaffRole: admin.Role,
	}, s.cfg.AdminTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue admin token: %w", err)
	}

	s.recordLogin(auth.RoleAdmin, "success")
	return &model.AdminSession{Admin: admin.Profile(), Token: token, ExpiresAt: expiresAt}, nil
}

// VerifyAdminToken validates a token presented to the admin verify endpoint
func (s *Service) VerifyAdminToken(token string) (*auth.Claims, error) {
	claims, err := s.VerifyToken(token)
	if err != nil {
		return nil, err
	}
	if claims.Role != auth.RoleAdmin {
		return nil, apperrors.Unauthenticated("invalid token", nil)
	}
	return claims, nil
}

// VerifyToken maps token failures onto 401 errors with a stable message
func (s *Service) VerifyToken(token string) (*auth.Claims, error) {
	claims, err := s.tokens.Verify(token)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, auth.ErrTokenExpired):
		return nil, apperrors.Unauthenticated("token expired", err)
	default:
		return nil, apperrors.Unauthenticated("invalid token", err)
	}
}

func (s *Service) RegisterClinic(ctx context.Context, req *model.ClinicRegisterRequest) (*model.ClinicSession, error) {
	if !req.TermsAccepted || !req.DataProcessingAccepted {
		return nil, ErrConsentRequired
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, passwordError(err)
	}

	clinic, err := s.clinics.Register(ctx, &model.NewClinic{
		ClinicName:            strings.TrimSpace(req.ClinicName),
		Email:                 NormalizeEmail(req.Email),
		Phone:                 strings.TrimSpace(req.Phone),
		Region:                strings.TrimSpace(req.Region),
		City:                  strings.TrimSpace(req.City),
		PasswordHash:          hash,
		ContactPersonName:     strings.TrimSpace(req.ContactPersonName),
		ContactPersonPosition: req.ContactPersonPosition,
		INN:                   req.INN,
		LegalAddress:          req.LegalAddress,
		ConsentDate:           s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register clinic: %w", err)
	}

	session, err := s.clinicSession(clinic)
	if err != nil {
		return nil, err
	}

	if err := s.mailer.SendRegistrationReceived(ctx, clinic.Email, clinic.ClinicName); err != nil {
		log.Error().Err(err).Int64("clinic_id", clinic.ID).Msg("failed to send registration email")
	}

	log.Info().Int64("clinic_id", clinic.ID).Msg("clinic registered")
	return session, nil
}

// ClinicLogin checks the password before the account status, so a blocked
// status is only revealed to a caller who knows the password.
func (s *Service) ClinicLogin(ctx context.Context, email, password string) (*model.ClinicSession, error) {
	clinic, err := s.clinics.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			s.burnHash(password)
			s.recordLogin(auth.RoleClinic, "invalid_credentials")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load clinic: %w", err)
	}

	if !s.hasher.Verify(clinic.PasswordHash, password) {
		s.recordLogin(auth.RoleClinic, "invalid_credentials")
		return nil, ErrInvalidCredentials
	}
	if clinic.AccountStatus == model.ClinicBlocked {
		s.recordLogin(auth.RoleClinic, "forbidden")
		return nil, apperrors.Forbidden("clinic account is blocked")
	}

	if err := s.clinics.TouchLastLogin(ctx, clinic.ID, s.now().UTC()); err != nil {
		log.Warn().Err(err).Int64("clinic_id", clinic.ID).Msg("failed to update clinic last login")
	}

	session, err := s.clinicSession(clinic)
	if err != nil {
		return nil, err
	}
	s.recordLogin(auth.RoleClinic, "success")
	return session, nil
}

// CreateAdmin provisions an administrator account out of band
func (s *Service) CreateAdmin(ctx context.Context, email, fullName, password, role string) (*model.Admin, error) {
	email = NormalizeEmail(email)
	fullName = strings.TrimSpace(fullName)
	if email == "" || fullName == "" {
		return nil, apperrors.Validationf("email and full name are required")
	}
	if role == "" {
		role = defaultStaffRole
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, passwordError(err)
	}

	admin := &model.Admin{
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Role:         role,
		IsActive:     true,
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}
	return admin, nil
}

func (s *Service) clinicSession(clinic *model.Clinic) (*model.ClinicSession, error) {
	token, expiresAt, err := s.tokens.Issue(auth.Identity{
		ID:    clinic.ID,
		Role:  auth.RoleClinic,
		Email: clinic.Email,
		Name:  clinic.ClinicName,
	}, s.cfg.ClinicTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue clinic token: %w", err)
	}
	return &model.ClinicSession{Clinic: clinic.Summary(), Token: token, ExpiresAt: expiresAt}, nil
}

// burnHash runs one bcrypt comparison for unknown emails so that response
// time does not reveal whether an account exists.
func (s *Service) burnHash(password string) {
	s.guardOnce.Do(func() {
		s.guardHash, _ = s.hasher.Hash(timingGuard)
	})
	s.hasher.Verify(s.guardHash, password)
}

func (s *Service) recordLogin(principal, outcome string) {
	if s.metrics != nil {
		s.metrics.LoginAttempts.WithLabelValues(principal, outcome).Inc()
	}
}

func passwordError(err error) error {
	switch {
	case errors.Is(err, security.ErrPasswordTooShort):
		return apperrors.Validationf("password must be at least %d characters", security.MinPasswordLen)
	case errors.Is(err, security.ErrPasswordTooLong):
		return apperrors.Validationf("password is too long")
	default:
		return fmt.Errorf("failed to hash password: %w", err)
	}
}
