package clinic

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/medstaff-api/internal/email"
	"github.com/jwalitptl/medstaff-api/internal/model"
	"github.com/jwalitptl/medstaff-api/internal/repository"
	"github.com/jwalitptl/medstaff-api/pkg/query"
)

type Service struct {
	repo   repository.ClinicRepository
	mailer email.Service
	now    func() time.Time
}

func NewService(repo repository.ClinicRepository, mailer email.Service) *Service {
	return &Service{
		repo:   repo,
		mailer: mailer,
		now:    time.Now,
	}
}

func (s *Service) ListClinics(ctx context.Context, params query.Params) (*model.Page[model.Clinic], error) {
	page, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list clinics: %w", err)
	}
	return page, nil
}

func (s *Service) GetClinic(ctx context.Context, id int64) (*model.Clinic, error) {
	clinic, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get clinic: %w", err)
	}
	return clinic, nil
}

// UpdateClinic applies an admin's partial update. Moving the account to
// active or blocked notifies the clinic by e-mail.
func (s *Service) UpdateClinic(ctx context.Context, id int64, patch query.Patch, actorID int64) (*model.ClinicSummary, error) {
	var previous model.ClinicStatus
	if patch.Has("account_status") {
		current, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get clinic: %w", err)
		}
		previous = current.AccountStatus
	}

	summary, err := s.repo.Patch(ctx, id, patch, query.Env{Now: s.now().UTC(), ActorID: actorID})
	if err != nil {
		return nil, fmt.Errorf("failed to update clinic: %w", err)
	}

	log.Info().
		Int64("clinic_id", id).
		Int64("admin_id", actorID).
		Str("account_status", string(summary.AccountStatus)).
		Msg("clinic updated")

	if previous != "" && previous != summary.AccountStatus {
		s.notifyStatus(ctx, summary)
	}
	return summary, nil
}

// SetStatus is the action form of UpdateClinic for account_status alone
func (s *Service) SetStatus(ctx context.Context, id int64, status model.ClinicStatus, actorID int64) (*model.ClinicSummary, error) {
	patch, err := singleField("account_status", status)
	if err != nil {
		return nil, err
	}
	return s.UpdateClinic(ctx, id, patch, actorID)
}

// SetNotes replaces the admin notes; nil clears them
func (s *Service) SetNotes(ctx context.Context, id int64, notes *string, actorID int64) (*model.ClinicSummary, error) {
	patch, err := singleField("admin_notes", notes)
	if err != nil {
		return nil, err
	}
	return s.UpdateClinic(ctx, id, patch, actorID)
}

// Profile returns the clinic record of the authenticated clinic
func (s *Service) Profile(ctx context.Context, clinicID int64) (*model.Clinic, error) {
	return s.GetClinic(ctx, clinicID)
}

func (s *Service) notifyStatus(ctx context.Context, summary *model.ClinicSummary) {
	if summary.AccountStatus != model.ClinicActive && summary.AccountStatus != model.ClinicBlocked {
		return
	}
	if err := s.mailer.SendClinicStatusChanged(ctx, summary.Email, summary.ClinicName, summary.AccountStatus); err != nil {
		log.Error().Err(err).Int64("clinic_id", summary.ID).Msg("failed to send clinic status email")
	}
}

func singleField(key string, value interface{}) (query.Patch, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return query.Patch{key: raw}, nil
}
