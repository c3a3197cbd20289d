package order

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

const visitTimeLayout = "15:04"

type Service struct {
	repo repository.OrderRepository
	now  func() time.Time
}

func NewService(repo repository.OrderRepository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

func (s *Service) ListOrders(ctx context.Context, params query.Params) (*model.Page[model.OrderView], error) {
	page, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return page, nil
}

func (s *Service) GetOrder(ctx context.Context, id int64) (*model.OrderDetail, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// UpdateOrder applies an admin's partial update. The acting admin is
// recorded when a doctor is assigned.
func (s *Service) UpdateOrder(ctx context.Context, id int64, patch query.Patch, actorID int64) (*model.OrderRef, error) {
	ref, err := s.repo.Patch(ctx, id, patch, query.Env{Now: s.now().UTC(), ActorID: actorID})
	if err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	log.Info().
		Int64("order_id", ref.ID).
		Int64("admin_id", actorID).
		Str("status", string(ref.Status)).
		Msg("order updated")
	return ref, nil
}

// ListClinicOrders lists the orders of one clinic only
func (s *Service) ListClinicOrders(ctx context.Context, clinicID int64, params query.Params) (*model.Page[model.OrderView], error) {
	return s.ListOrders(ctx, params.Without("clinic_id").Where("o.clinic_id", clinicID))
}

// GetClinicOrder hides other clinics' orders behind a NotFound
func (s *Service) GetClinicOrder(ctx context.Context, clinicID, id int64) (*model.OrderDetail, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.ClinicID != clinicID {
		return nil, apperrors.NotFound("order", nil)
	}
	return order, nil
}

func (s *Service) CreateOrder(ctx context.Context, clinicID int64, req *model.OrderCreateRequest) (*model.Order, error) {
	input, err := newOrder(clinicID, req)
	if err != nil {
		return nil, err
	}

	order, err := s.repo.Create(ctx, input, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	log.Info().
		Int64("order_id", order.ID).
		Int64("clinic_id", clinicID).
		Str("urgency", string(order.UrgencyLevel)).
		Msg("order created")
	return order, nil
}

func newOrder(clinicID int64, req *model.OrderCreateRequest) (*model.NewOrder, error) {
	if req.VisitDate.IsZero() {
		return nil, apperrors.Validationf("visit_date is required")
	}

	var visitTime *string
	if req.VisitTime != nil && strings.TrimSpace(*req.VisitTime) != "" {
		t, err := time.Parse(visitTimeLayout, strings.TrimSpace(*req.VisitTime))
		if err != nil {
			return nil, apperrors.Validationf("visit_time must be HH:MM")
		}
		formatted := t.Format(visitTimeLayout)
		visitTime = &formatted
	}

	urgency := req.UrgencyLevel
	if urgency == "" {
		urgency = model.UrgencyNormal
	}
	patients := req.PatientCount
	if patients == 0 {
		patients = 1
	}

	estimated := req.EstimatedCost
	if estimated.Valid {
		if err := query.CheckMoney(estimated.Decimal); err != nil {
			return nil, apperrors.Validationf("estimated_cost %v", err)
		}
		estimated.Decimal = estimated.Decimal.Round(2)
	}

	return &model.NewOrder{
		ClinicID:            clinicID,
		DoctorID:            req.DoctorID,
		VisitDate:           req.VisitDate,
		VisitTime:           visitTime,
		PatientCount:        patients,
		ServiceType:         req.ServiceType,
		UrgencyLevel:        urgency,
		ContactPerson:       strings.TrimSpace(req.ContactPerson),
		ContactPhone:        strings.TrimSpace(req.ContactPhone),
		ContactEmail:        req.ContactEmail,
		VisitAddress:        strings.TrimSpace(req.VisitAddress),
		VisitCity:           strings.TrimSpace(req.VisitCity),
		VisitRegion:         req.VisitRegion,
		SpecialRequirements: req.SpecialRequirements,
		ClinicComments:      req.ClinicComments,
		EstimatedCost:       estimated,
	}, nil
}
