// Package mocks holds testify mocks of the repository interfaces for service tests.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/jwalitptl/medstaff-api/internal/model"
	"github.com/jwalitptl/medstaff-api/internal/repository"
	"github.com/jwalitptl/medstaff-api/pkg/query"
)

var (
	_ repository.AdminRepository  = (*AdminRepository)(nil)
	_ repository.ClinicRepository = (*ClinicRepository)(nil)
	_ repository.DoctorRepository = (*DoctorRepository)(nil)
	_ repository.OrderRepository  = (*OrderRepository)(nil)
)

type AdminRepository struct {
	mock.Mock
}

func (m *AdminRepository) Create(ctx context.Context, admin *model.Admin) error {
	args := m.Called(ctx, admin)
	return args.Error(0)
}

func (m *AdminRepository) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	args := m.Called(ctx, email)
	if v := args.Get(0); v != nil {
		return v.(*model.Admin), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AdminRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

type ClinicRepository struct {
	mock.Mock
}

func (m *ClinicRepository) Register(ctx context.Context, clinic *model.NewClinic) (*model.Clinic, error) {
	args := m.Called(ctx, clinic)
	if v := args.Get(0); v != nil {
		return v.(*model.Clinic), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ClinicRepository) Get(ctx context.Context, id int64) (*model.Clinic, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*model.Clinic), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ClinicRepository) GetByEmail(ctx context.Context, email string) (*model.Clinic, error) {
	args := m.Called(ctx, email)
	if v := args.Get(0); v != nil {
		return v.(*model.Clinic), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ClinicRepository) List(ctx context.Context, params query.Params) (*model.Page[model.Clinic], error) {
	args := m.Called(ctx, params)
	if v := args.Get(0); v != nil {
		return v.(*model.Page[model.Clinic]), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ClinicRepository) Patch(ctx context.Context, id int64, patch query.Patch, env query.Env) (*model.ClinicSummary, error) {
	args := m.Called(ctx, id, patch, env)
	if v := args.Get(0); v != nil {
		return v.(*model.ClinicSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ClinicRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

type DoctorRepository struct {
	mock.Mock
}

func (m *DoctorRepository) Create(ctx context.Context, doctor *model.NewDoctor, now time.Time) (*model.DoctorRef, error) {
	args := m.Called(ctx, doctor, now)
	if v := args.Get(0); v != nil {
		return v.(*model.DoctorRef), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DoctorRepository) Get(ctx context.Context, id int64) (*model.Doctor, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*model.Doctor), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DoctorRepository) List(ctx context.Context, params query.Params) (*model.Page[model.DoctorSummary], error) {
	args := m.Called(ctx, params)
	if v := args.Get(0); v != nil {
		return v.(*model.Page[model.DoctorSummary]), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DoctorRepository) Patch(ctx context.Context, id int64, patch query.Patch, env query.Env) (*model.DoctorRef, error) {
	args := m.Called(ctx, id, patch, env)
	if v := args.Get(0); v != nil {
		return v.(*model.DoctorRef), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DoctorRepository) Delete(ctx context.Context, id int64) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

type OrderRepository struct {
	mock.Mock
}

func (m *OrderRepository) Create(ctx context.Context, order *model.NewOrder, now time.Time) (*model.Order, error) {
	args := m.Called(ctx, order, now)
	if v := args.Get(0); v != nil {
		return v.(*model.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *OrderRepository) Get(ctx context.Context, id int64) (*model.OrderDetail, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*model.OrderDetail), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *OrderRepository) List(ctx context.Context, params query.Params) (*model.Page[model.OrderView], error) {
	args := m.Called(ctx, params)
	if v := args.Get(0); v != nil {
		return v.(*model.Page[model.OrderView]), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *OrderRepository) Patch(ctx context.Context, id int64, patch query.Patch, env query.Env) (*model.OrderRef, error) {
	args := m.Called(ctx, id, patch, env)
	if v := args.Get(0); v != nil {
		return v.(*model.OrderRef), args.Error(1)
	}
	return nil, args.Error(1)
}

// Mailer records notifications instead of sending them
type Mailer struct {
	mock.Mock
}

func (m *Mailer) SendRegistrationReceived(ctx context.Context, to, clinicName string) error {
	args := m.Called(ctx, to, clinicName)
	return args.Error(0)
}

func (m *Mailer) SendClinicStatusChanged(ctx context.Context, to, clinicName string, status model.ClinicStatus) error {
	args := m.Called(ctx, to, clinicName, status)
	return args.Error(0)
}

