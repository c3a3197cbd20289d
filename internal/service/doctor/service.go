package doctor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/medstaff-api/internal/model"
	"github.com/jwalitptl/medstaff-api/internal/repository"
	apperrors "github.com/jwalitptl/medstaff-api/pkg/errors"
	"github.com/jwalitptl/medstaff-api/pkg/query"
)

type Service struct {
	repo repository.DoctorRepository
	now  func() time.Time
}

func NewService(repo repository.DoctorRepository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

func (s *Service) ListDoctors(ctx context.Context, params query.Params) (*model.Page[model.DoctorSummary], error) {
	page, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return page, nil
}

// Catalog lists the doctors a clinic can book: active ones only,
// whatever status filter the caller sent.
func (s *Service) Catalog(ctx context.Context, params query.Params) (*model.Page[model.DoctorSummary], error) {
	params = params.Without("status").Where("status", string(model.DoctorActive))
	return s.ListDoctors(ctx, params)
}

func (s *Service) GetDoctor(ctx context.Context, id int64) (*model.Doctor, error) {
	doctor, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	return doctor, nil
}

func (s *Service) CreateDoctor(ctx context.Context, req *model.DoctorCreateRequest) (*model.DoctorRef, error) {
	doctor, err := newDoctor(req)
	if err != nil {
		return nil, err
	}

	ref, err := s.repo.Create(ctx, doctor, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to create doctor: %w", err)
	}

	log.Info().Int64("doctor_id", ref.ID).Str("specialty", ref.Specialty).Msg("doctor created")
	return ref, nil
}

func (s *Service) UpdateDoctor(ctx context.Context, id int64, patch query.Patch, actorID int64) (*model.DoctorRef, error) {
	ref, err := s.repo.Patch(ctx, id, patch, query.Env{Now: s.now().UTC(), ActorID: actorID})
	if err != nil {
		return nil, fmt.Errorf("failed to update doctor: %w", err)
	}
	return ref, nil
}

func (s *Service) DeleteDoctor(ctx context.Context, id int64) (string, error) {
	name, err := s.repo.Delete(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to delete doctor: %w", err)
	}
	log.Info().Int64("doctor_id", id).Msg("doctor deleted")
	return name, nil
}

func newDoctor(req *model.DoctorCreateRequest) (*model.NewDoctor, error) {
	fullName := strings.TrimSpace(req.FullName)
	specialty := strings.TrimSpace(req.Specialty)
	if fullName == "" || specialty == "" {
		return nil, apperrors.Validationf("full_name and specialty are required")
	}
	if err := query.CheckMoney(req.PrepaymentAmount); err != nil {
		return nil, apperrors.Validationf("prepayment_amount %v", err)
	}

	status := req.Status
	if status == "" {
		status = model.DoctorActive
	}

	doctor := &model.NewDoctor{
		FullName:         fullName,
		Specialty:        specialty,
		Workplace:        req.Workplace,
		WorkplaceType:    req.WorkplaceType,
		ExperienceYears:  req.ExperienceYears,
		PhotoURL:         req.PhotoURL,
		Description:      req.Description,
		PrepaymentAmount: req.PrepaymentAmount.Round(2),
		PriceIncludes:    req.PriceIncludes,
		Status:           status,
	}

	p := &doctor.DoctorProfile
	lists := []struct {
		name string
		in   []string
		out  *model.TextList
	}{
		{"main_education", req.MainEducation, &p.MainEducation},
		{"residency", req.Residency, &p.Residency},
		{"additional_education", req.AdditionalEducation, &p.AdditionalEducation},
		{"skills", req.Skills, &p.Skills},
		{"work_directions", req.WorkDirections, &p.WorkDirections},
		{"achievements", req.Achievements, &p.Achievements},
		{"academic_degrees", req.AcademicDegrees, &p.AcademicDegrees},
		{"publications", req.Publications, &p.Publications},
		{"professional_societies", req.ProfessionalSocieties, &p.ProfessionalSocieties},
		{"services_provided", req.ServicesProvided, &p.ServicesProvided},
		{"consultation_types", req.ConsultationTypes, &p.ConsultationTypes},
	}
	for _, l := range lists {
		items, err := model.NormalizeTextList(l.in)
		if err != nil {
			return nil, apperrors.Validationf("invalid %s: %v", l.name, err)
		}
		*l.out = model.TextList(items)
	}
	return doctor, nil
}
